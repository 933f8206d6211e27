package repository

import "time"

// ── Domain types for the document workflow engine ────────────────────────────

// EntityType discriminates the three workflow document kinds sharing the
// WorkflowItem envelope.
type EntityType string

const (
	EntityTypeRFI         EntityType = "rfi"
	EntityTypeSubmittal   EntityType = "submittal"
	EntityTypeChangeOrder EntityType = "change_order"
)

// Valid reports whether the entity type is one of the known kinds.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeRFI, EntityTypeSubmittal, EntityTypeChangeOrder:
		return true
	}
	return false
}

// Cost impact statuses used for read-side rollups.
const (
	CostImpactNone      = "none"
	CostImpactEstimated = "estimated"
	CostImpactPending   = "pending"
	CostImpactApproved  = "approved"
	CostImpactRejected  = "rejected"
)

// WorkflowItem is the shared envelope for an RFI, Submittal or Change Order.
// The status domain depends on EntityType; legality of transitions is owned
// by the service layer. Version is the optimistic-concurrency token,
// incremented on every committed transition.
type WorkflowItem struct {
	ID                 string
	ProjectID          string
	EntityType         EntityType
	Title              string
	Description        *string
	SpecSection        *string // submittals only; also the sequence scope key
	SequenceNumber     *int64
	DisplayNumber      *string // e.g. RFI-003, 05 12 00-1, PCO-002
	Status             string
	BallInCourtUserID  *string
	BallInCourtRole    string
	RevisionChainID    *string
	CurrentRevisionID  *string
	CostImpact         *int64 // cents
	CostImpactStatus   string
	ScheduleImpactDays *int
	LinkedItemIDs      []string // weak references, no ownership

	// Change-order specific
	IsPCO                 bool
	CONumber              *int64
	CODisplayNumber       *string
	ApprovedAmount        *int64
	ApprovedDays          *int
	RevisedContractAmount *int64

	Metadata map[string]interface{} // escalation records and other context

	Version     int64
	CreatedBy   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SubmittedAt *time.Time
	RespondedAt *time.Time // responded (RFI) or approved (Submittal/CO)
	ClosedAt    *time.Time
}

// Revision statuses. Within a chain at most one revision is current; a voided
// revision keeps its number and never promotes another revision.
const (
	RevisionStatusCurrent    = "current"
	RevisionStatusSuperseded = "superseded"
	RevisionStatusVoid       = "void"
)

// Revision is one submission attempt within a revision chain. Revisions are
// never deleted; resubmission supersedes the previous current revision.
type Revision struct {
	ID                string
	ChainID           string
	WorkflowItemID    string
	RevisionNumber    int
	IsCurrent         bool
	Status            string // current | superseded | void
	ApprovalCode      *string // A | B | C | D for submittals
	ChangeDescription *string
	SubmittedAt       time.Time
	ReviewedAt        *time.Time
	CreatedAt         time.Time
}

// TransitionAuditEntry is one immutable record in the workflow audit log.
type TransitionAuditEntry struct {
	ID             string
	WorkflowItemID string
	ProjectID      string
	Action         string
	PerformedBy    string
	PerformedAt    time.Time
	StatusBefore   *string
	StatusAfter    *string
	Metadata       map[string]interface{}
}

// ImpactRollup is the derived cost/schedule aggregation for a project,
// computed on demand and never stored.
type ImpactRollup struct {
	TotalEstimated           int64 `json:"total_estimated"`
	TotalPending             int64 `json:"total_pending"`
	TotalApproved            int64 `json:"total_approved"`
	TotalRejected            int64 `json:"total_rejected"`
	ItemCount                int   `json:"item_count"`
	ItemsWithCostImpact      int   `json:"items_with_cost_impact"`
	ItemsLinkedToChangeOrder int   `json:"items_linked_to_change_order"`
	TotalScheduleDays        int   `json:"total_schedule_days"`
}

// ── Transition commit ─────────────────────────────────────────────────────────

// SequenceRequest asks the item store to allocate the next number for a scope
// inside the commit transaction. Format turns the raw integer into the stored
// display string; it is a pure function supplied by the caller.
type SequenceRequest struct {
	ScopeKey string
	Format   func(n int64) string
}

// RevisionInsert asks the item store to add a revision to the item's chain
// inside the commit transaction, superseding the previous current revision.
type RevisionInsert struct {
	ChangeDescription *string
}

// TransitionCommit carries everything one transition must persist atomically:
// the status change, ball-in-court assignment, version bump, and any sequence
// allocation or revision-chain mutation. The expected version is checked by a
// conditional update; a stale version aborts the whole commit with no side
// effects.
type TransitionCommit struct {
	ItemID          string
	ExpectedVersion int64

	Status            string
	BallInCourtUserID *string
	BallInCourtRole   string

	SetSubmittedAt bool
	SetRespondedAt bool
	SetClosedAt    bool

	CostImpact         *int64
	CostImpactStatus   *string
	ScheduleImpactDays *int
	ApprovedAmount     *int64
	ApprovedDays       *int

	// Change-order approval
	SetCOApproved         bool // flips is_pco false; requires AllocateCONumber
	RevisedContractAmount *int64

	// Metadata replaces the stored metadata document when non-nil.
	Metadata map[string]interface{}

	// Sequence allocations (nil = none). Display numbers are allocated on the
	// transition that first leaves draft; CO numbers only on owner approval.
	AllocateDisplayNumber *SequenceRequest
	AllocateCONumber      *SequenceRequest

	// Revision chain directives (nil/empty = none).
	StartChainID        *string // assign a new chain id to the item
	NewRevision         *RevisionInsert
	ReviewApprovalCode  *string // stamp the current revision with a verdict
	VoidCurrentRevision bool
}
