package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kubiknyc/SuperSiteHero-sub015/internal/apperr"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/logger"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/repository"
)

// ItemStore is the transactional persistence collaborator for workflow items.
// Commit applies one transition atomically: version check, status and
// ball-in-court update, and any sequence allocation or revision-chain
// mutation succeed or fail together.
type ItemStore interface {
	Create(ctx context.Context, item *repository.WorkflowItem) error
	GetByID(ctx context.Context, id string) (*repository.WorkflowItem, error)
	List(ctx context.Context, projectID string, entityType *repository.EntityType, status *string, limit, offset int) ([]*repository.WorkflowItem, int64, error)
	GetPendingForUser(ctx context.Context, projectID, userID string) ([]*repository.WorkflowItem, error)
	Commit(ctx context.Context, commit *repository.TransitionCommit) (*repository.WorkflowItem, error)
	AddLink(ctx context.Context, itemID, linkedID string, expectedVersion int64) (*repository.WorkflowItem, error)
	SumApprovedChangeOrders(ctx context.Context, projectID string) (int64, error)
	Rollup(ctx context.Context, projectID string) (*repository.ImpactRollup, error)
}

// RevisionStore reads revision chains. Chain mutation happens through
// ItemStore.Commit so the exactly-one-current invariant holds inside the
// owning item's transaction.
type RevisionStore interface {
	GetByChainID(ctx context.Context, chainID string) ([]*repository.Revision, error)
	GetCurrent(ctx context.Context, chainID string) (*repository.Revision, error)
}

// SequenceReader reads sequence counters without consuming them. Allocation
// happens only inside ItemStore.Commit.
type SequenceReader interface {
	Peek(ctx context.Context, projectID string, entityType repository.EntityType, scopeKey string) (int64, error)
}

// AuditLog appends and reads immutable transition records.
type AuditLog interface {
	Append(ctx context.Context, entry *repository.TransitionAuditEntry) error
	GetByItemID(ctx context.Context, itemID string) ([]*repository.TransitionAuditEntry, error)
}

// TransitionEvent is the domain event emitted after every committed
// transition for notification and audit consumers.
type TransitionEvent struct {
	EventID         string                 `json:"event_id"`
	ProjectID       string                 `json:"project_id"`
	ItemID          string                 `json:"item_id"`
	EntityType      string                 `json:"entity_type"`
	DisplayNumber   *string                `json:"display_number,omitempty"`
	Action          string                 `json:"action"`
	StatusBefore    string                 `json:"status_before"`
	StatusAfter     string                 `json:"status_after"`
	ActorID         string                 `json:"actor_id"`
	ActorRole       string                 `json:"actor_role,omitempty"`
	BallInCourtRole string                 `json:"ball_in_court_role,omitempty"`
	Escalated       bool                   `json:"escalated,omitempty"`
	OccurredAt      time.Time              `json:"occurred_at"`
	Payload         map[string]interface{} `json:"payload,omitempty"`
}

// EventPublisher delivers transition events to the external sink
// (at-least-once; failures must not interrupt the transition).
type EventPublisher interface {
	PublishTransition(ctx context.Context, event *TransitionEvent)
}

// WorkflowService is the state machine core: it owns the per-type transition
// graphs and the transactional apply-transition operation, consulting the
// authority resolver, ball-in-court router and revision chain manager.
type WorkflowService struct {
	items     ItemStore
	revisions RevisionStore
	sequences SequenceReader
	audit     AuditLog
	events    EventPublisher
	authority *AuthorityResolver
	log       *logger.Logger
}

// NewWorkflowService creates a new WorkflowService. events may be nil when no
// sink is configured.
func NewWorkflowService(
	items ItemStore,
	revisions RevisionStore,
	sequences SequenceReader,
	audit AuditLog,
	events EventPublisher,
	authority *AuthorityResolver,
	log *logger.Logger,
) *WorkflowService {
	return &WorkflowService{
		items:     items,
		revisions: revisions,
		sequences: sequences,
		audit:     audit,
		events:    events,
		authority: authority,
		log:       log,
	}
}

// ── Requests and results ──────────────────────────────────────────────────────

// CreateItemRequest creates a workflow item in its initial draft status. No
// number is assigned until the item is submitted.
type CreateItemRequest struct {
	ProjectID          string
	EntityType         repository.EntityType
	Title              string
	Description        *string
	SpecSection        *string // required for submittals
	AssignedTo         *string
	CostImpact         *int64
	ScheduleImpactDays *int
	LinkedItemIDs      []string
	CreatedBy          string
}

// TransitionPayload carries the action-specific inputs of a transition.
type TransitionPayload struct {
	AssignedTo             *string
	ApprovalCode           *string // submittal review verdict A/B/C/D
	ChangeDescription      *string // resubmission description
	CostImpact             *int64  // estimate, cents
	ScheduleImpactDays     *int
	ApprovedAmount         *int64 // owner-approved amount, cents
	ApprovedDays           *int
	OriginalContractAmount *int64 // supplied by the host system on CO approval
	Notes                  *string
}

// TransitionRequest asks the engine to apply one action to one item.
// ExpectedVersion is the optimistic-concurrency token the caller last read.
type TransitionRequest struct {
	ItemID          string
	Action          Action
	ActorID         string
	ActorRole       string
	ExpectedVersion int64
	Payload         TransitionPayload
}

// TransitionResult is the outcome of a transition attempt. Escalated marks
// the distinguished "escalated, not approved" outcome: the item was routed to
// a higher authority instead of transitioning, which is a valid terminal step
// of this attempt, not an error.
type TransitionResult struct {
	Item                   *repository.WorkflowItem
	Escalated              bool
	EscalatedToRole        string
	RequiresSecondApproval bool
}

// ── Item creation ─────────────────────────────────────────────────────────────

// Create validates and persists a new workflow item in its initial status.
func (s *WorkflowService) Create(ctx context.Context, req *CreateItemRequest) (*repository.WorkflowItem, error) {
	if !req.EntityType.Valid() {
		return nil, apperr.InvalidInput("entity_type", "must be one of rfi, submittal, change_order")
	}
	if req.Title == "" {
		return nil, apperr.InvalidInput("title", "title is required")
	}
	if req.ProjectID == "" {
		return nil, apperr.InvalidInput("project_id", "project id is required")
	}
	if req.EntityType == repository.EntityTypeSubmittal && (req.SpecSection == nil || *req.SpecSection == "") {
		return nil, apperr.InvalidInput("spec_section", "submittals require a spec section")
	}
	if req.CreatedBy == "" {
		return nil, apperr.InvalidInput("created_by", "creator is required")
	}

	costStatus := repository.CostImpactNone
	if req.CostImpact != nil {
		costStatus = repository.CostImpactEstimated
	}

	item := &repository.WorkflowItem{
		ProjectID:          req.ProjectID,
		EntityType:         req.EntityType,
		Title:              req.Title,
		Description:        req.Description,
		SpecSection:        req.SpecSection,
		Status:             initialStatus(req.EntityType),
		BallInCourtUserID:  req.AssignedTo,
		CostImpact:         req.CostImpact,
		CostImpactStatus:   costStatus,
		ScheduleImpactDays: req.ScheduleImpactDays,
		LinkedItemIDs:      req.LinkedItemIDs,
		IsPCO:              req.EntityType == repository.EntityTypeChangeOrder,
		CreatedBy:          &req.CreatedBy,
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, item, "created", req.CreatedBy, nil, &item.Status, nil)
	s.publish(ctx, item, "created", "", item.Status, req.CreatedBy, "", false, nil)

	s.log.Info().
		Str("item_id", item.ID).
		Str("project_id", item.ProjectID).
		Str("entity_type", string(item.EntityType)).
		Msg("Workflow item created")

	return item, nil
}

// ── Apply transition ──────────────────────────────────────────────────────────

// ApplyTransition validates and commits one transition. Algorithm: load and
// version-check the item, resolve the target status from the entity type's
// transition table, run the authority check for monetary actions (possibly
// escalating instead of transitioning), route the new ball-in-court, fold in
// revision-chain and sequence directives, then commit everything atomically
// and emit the transition event.
func (s *WorkflowService) ApplyTransition(ctx context.Context, req *TransitionRequest) (*TransitionResult, error) {
	item, err := s.items.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Version != req.ExpectedVersion {
		return nil, apperr.New(apperr.CodeConcurrencyConflict, "workflow item was modified by another caller").
			WithDetail("expected_version", req.ExpectedVersion).
			WithDetail("current_version", item.Version)
	}

	target, err := resolveTarget(item.EntityType, item.Status, req.Action, req.Payload.ApprovalCode)
	if err != nil {
		return nil, err
	}

	// Monetary decisions consult the authority resolver before anything else;
	// an over-limit amount escalates instead of transitioning.
	var decision AuthorityDecision
	if isMonetary(req.Action) {
		amount, err := monetaryAmount(item, req)
		if err != nil {
			return nil, err
		}
		decision = s.authority.Evaluate(req.ActorRole, amount)
		if decision.RequiresEscalation {
			return s.escalate(ctx, item, req, amount, decision.EscalateToRole)
		}
	}

	commit := &repository.TransitionCommit{
		ItemID:          item.ID,
		ExpectedVersion: req.ExpectedVersion,
		Status:          target,
	}

	// Items entering internal approval route to the lowest role whose
	// authority covers the estimate, not to whoever requested the approval.
	approverRole := req.ActorRole
	if target == COStatusPendingInternal && item.CostImpact != nil {
		approverRole = s.authority.CoveringRole(*item.CostImpact)
	}

	route := RouteBallInCourt(item.EntityType, item.Status, target, RouteContext{
		AssignedTo:   req.Payload.AssignedTo,
		ApproverRole: approverRole,
		SubmittedBy:  item.CreatedBy,
	})
	commit.BallInCourtUserID = route.UserID
	commit.BallInCourtRole = route.Role

	if err := s.decorateCommit(ctx, item, req, target, commit); err != nil {
		return nil, err
	}

	updated, err := s.items.Commit(ctx, commit)
	if err != nil {
		return nil, err
	}

	statusBefore := item.Status
	s.appendAudit(ctx, updated, string(req.Action), req.ActorID, &statusBefore, &updated.Status, auditMetadata(req))
	s.publish(ctx, updated, string(req.Action), statusBefore, updated.Status, req.ActorID, req.ActorRole, false, nil)

	s.log.Info().
		Str("item_id", updated.ID).
		Str("action", string(req.Action)).
		Str("status_before", statusBefore).
		Str("status_after", updated.Status).
		Int64("version", updated.Version).
		Msg("Transition applied")

	return &TransitionResult{
		Item:                   updated,
		RequiresSecondApproval: decision.RequiresSecondApproval,
	}, nil
}

// decorateCommit folds action-specific directives into the commit: timestamp
// stamps, sequence allocation, revision-chain mutation and cost fields.
func (s *WorkflowService) decorateCommit(ctx context.Context, item *repository.WorkflowItem, req *TransitionRequest, target string, commit *repository.TransitionCommit) error {
	if isFirstSubmission(req.Action) {
		commit.SetSubmittedAt = true
		if item.DisplayNumber == nil {
			commit.AllocateDisplayNumber = displayNumberRequest(item)
		}
		// A submittal's first submission opens its revision chain at rev 0.
		if item.EntityType == repository.EntityTypeSubmittal && item.RevisionChainID == nil {
			chainID := uuid.NewString()
			commit.StartChainID = &chainID
			commit.NewRevision = &repository.RevisionInsert{ChangeDescription: req.Payload.ChangeDescription}
		}
	}

	if isTerminal(item.EntityType, target) {
		commit.SetClosedAt = true
	}

	switch req.Action {
	case ActionRespond:
		commit.SetRespondedAt = true

	case ActionReview:
		commit.SetRespondedAt = true
		commit.ReviewApprovalCode = req.Payload.ApprovalCode

	case ActionCreateRevision:
		if item.RevisionChainID == nil {
			return apperr.New(apperr.CodeConflict, "item has no revision chain to extend")
		}
		commit.NewRevision = &repository.RevisionInsert{ChangeDescription: req.Payload.ChangeDescription}

	case ActionCompleteEstimate:
		if req.Payload.CostImpact == nil {
			return apperr.InvalidInput("cost_impact", "estimate completion requires a cost impact")
		}
		commit.CostImpact = req.Payload.CostImpact
		commit.CostImpactStatus = stringPtr(repository.CostImpactEstimated)
		commit.ScheduleImpactDays = req.Payload.ScheduleImpactDays

	case ActionApproveInternal:
		commit.SetRespondedAt = true
		commit.CostImpactStatus = stringPtr(repository.CostImpactPending)

	case ActionApproveOwner:
		commit.SetRespondedAt = true
		commit.SetCOApproved = true
		commit.AllocateCONumber = coNumberRequest()
		commit.ApprovedAmount = req.Payload.ApprovedAmount
		commit.ApprovedDays = req.Payload.ApprovedDays
		commit.CostImpactStatus = stringPtr(repository.CostImpactApproved)

		revised, err := s.revisedContractAmount(ctx, item, req.Payload)
		if err != nil {
			return err
		}
		commit.RevisedContractAmount = &revised

	case ActionRejectOwner:
		commit.SetRespondedAt = true
		commit.CostImpactStatus = stringPtr(repository.CostImpactRejected)
	}

	return nil
}

// revisedContractAmount computes original + previously approved change orders
// + this approval's amount. The original contract amount is project finance
// data owned by the host system and arrives in the payload.
func (s *WorkflowService) revisedContractAmount(ctx context.Context, item *repository.WorkflowItem, payload TransitionPayload) (int64, error) {
	previous, err := s.items.SumApprovedChangeOrders(ctx, item.ProjectID)
	if err != nil {
		return 0, err
	}

	var original int64
	if payload.OriginalContractAmount != nil {
		original = *payload.OriginalContractAmount
	}
	var approved int64
	if payload.ApprovedAmount != nil {
		approved = *payload.ApprovedAmount
	}
	return original + previous + approved, nil
}

// monetaryAmount selects the amount an authority check evaluates: the
// owner-approved amount when present, otherwise the current estimate.
func monetaryAmount(item *repository.WorkflowItem, req *TransitionRequest) (int64, error) {
	if req.Action == ActionApproveOwner && req.Payload.ApprovedAmount != nil {
		return *req.Payload.ApprovedAmount, nil
	}
	if item.CostImpact != nil {
		return *item.CostImpact, nil
	}
	return 0, apperr.InvalidInput("cost_impact", "monetary approval requires an estimated or approved amount")
}

// escalate commits the "escalated, not approved" outcome: the status is
// unchanged, ball-in-court moves to the escalation role, an escalation record
// is appended to the item metadata, and the version advances.
func (s *WorkflowService) escalate(ctx context.Context, item *repository.WorkflowItem, req *TransitionRequest, amount int64, toRole string) (*TransitionResult, error) {
	metadata := item.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	escalations, _ := metadata["escalations"].([]interface{})
	metadata["escalations"] = append(escalations, map[string]interface{}{
		"from_role":    req.ActorRole,
		"to_role":      toRole,
		"amount":       amount,
		"action":       string(req.Action),
		"requested_by": req.ActorID,
		"at":           time.Now().UTC().Format(time.RFC3339),
	})

	commit := &repository.TransitionCommit{
		ItemID:          item.ID,
		ExpectedVersion: req.ExpectedVersion,
		Status:          item.Status, // escalation does not transition
		BallInCourtRole: toRole,
		Metadata:        metadata,
	}

	updated, err := s.items.Commit(ctx, commit)
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, updated, "escalation_required", req.ActorID, &item.Status, &updated.Status, map[string]interface{}{
		"from_role": req.ActorRole,
		"to_role":   toRole,
		"amount":    amount,
	})
	s.publish(ctx, updated, string(req.Action), item.Status, updated.Status, req.ActorID, req.ActorRole, true, map[string]interface{}{
		"escalated_to_role": toRole,
		"amount":            amount,
	})

	s.log.Info().
		Str("item_id", updated.ID).
		Str("from_role", req.ActorRole).
		Str("to_role", toRole).
		Int64("amount", amount).
		Msg("Approval escalated")

	return &TransitionResult{
		Item:            updated,
		Escalated:       true,
		EscalatedToRole: toRole,
	}, nil
}

// ── Manual overrides ──────────────────────────────────────────────────────────

// UpdateBallInCourt manually reassigns responsibility without changing
// status. Version-checked and audited like any transition.
func (s *WorkflowService) UpdateBallInCourt(ctx context.Context, itemID string, userID *string, role, actorID string, expectedVersion int64) (*repository.WorkflowItem, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if isTerminal(item.EntityType, item.Status) {
		return nil, apperr.New(apperr.CodeConflict, "cannot reassign a closed item").
			WithDetail("current_status", item.Status)
	}

	updated, err := s.items.Commit(ctx, &repository.TransitionCommit{
		ItemID:            itemID,
		ExpectedVersion:   expectedVersion,
		Status:            item.Status,
		BallInCourtUserID: userID,
		BallInCourtRole:   role,
	})
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, updated, "ball_in_court_override", actorID, &item.Status, &updated.Status, map[string]interface{}{
		"role": role,
	})
	return updated, nil
}

// RequestEscalation manually bumps ball-in-court one role up the approval
// hierarchy, for callers who know their authority is insufficient.
func (s *WorkflowService) RequestEscalation(ctx context.Context, itemID, actorID, actorRole string, expectedVersion int64) (*TransitionResult, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Version != expectedVersion {
		return nil, apperr.New(apperr.CodeConcurrencyConflict, "workflow item was modified by another caller").
			WithDetail("current_version", item.Version)
	}

	amount := int64(0)
	if item.CostImpact != nil {
		amount = *item.CostImpact
	}
	return s.escalate(ctx, item, &TransitionRequest{
		ItemID:          itemID,
		Action:          "request_escalation",
		ActorID:         actorID,
		ActorRole:       actorRole,
		ExpectedVersion: expectedVersion,
	}, amount, nextRole(actorRole))
}

// VoidRevision voids the item's current revision without promoting another:
// the chain is left with zero current revisions until a new one is added.
func (s *WorkflowService) VoidRevision(ctx context.Context, itemID, actorID string, expectedVersion int64) (*repository.WorkflowItem, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.RevisionChainID == nil {
		return nil, apperr.New(apperr.CodeConflict, "item has no revision chain")
	}

	updated, err := s.items.Commit(ctx, &repository.TransitionCommit{
		ItemID:              itemID,
		ExpectedVersion:     expectedVersion,
		Status:              item.Status,
		BallInCourtUserID:   item.BallInCourtUserID,
		BallInCourtRole:     item.BallInCourtRole,
		VoidCurrentRevision: true,
	})
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, updated, "revision_voided", actorID, &item.Status, &updated.Status, nil)
	return updated, nil
}

// LinkItems records a weak reference between two items (RFI↔ChangeOrder,
// Submittal↔RFI). Relation only; no ownership.
func (s *WorkflowService) LinkItems(ctx context.Context, itemID, linkedID, actorID string, expectedVersion int64) (*repository.WorkflowItem, error) {
	if _, err := s.items.GetByID(ctx, linkedID); err != nil {
		return nil, err
	}

	updated, err := s.items.AddLink(ctx, itemID, linkedID, expectedVersion)
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, updated, "linked", actorID, nil, nil, map[string]interface{}{
		"linked_item_id": linkedID,
	})
	return updated, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

// GetItem returns one item by id.
func (s *WorkflowService) GetItem(ctx context.Context, itemID string) (*repository.WorkflowItem, error) {
	return s.items.GetByID(ctx, itemID)
}

// ListItems returns a project's items with optional filters.
func (s *WorkflowService) ListItems(ctx context.Context, projectID string, entityType *repository.EntityType, status *string, limit, offset int) ([]*repository.WorkflowItem, int64, error) {
	return s.items.List(ctx, projectID, entityType, status, limit, offset)
}

// GetRevisions returns an item's revision chain oldest-first.
func (s *WorkflowService) GetRevisions(ctx context.Context, itemID string) ([]*repository.Revision, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.RevisionChainID == nil {
		return []*repository.Revision{}, nil
	}
	return s.revisions.GetByChainID(ctx, *item.RevisionChainID)
}

// GetAuditTrail returns an item's immutable audit log oldest-first.
func (s *WorkflowService) GetAuditTrail(ctx context.Context, itemID string) ([]*repository.TransitionAuditEntry, error) {
	return s.audit.GetByItemID(ctx, itemID)
}

// PreviewNextNumber returns the display number the next first submission in a
// scope would receive. Read-only; the counter is not consumed, so a
// concurrent submission may claim the previewed number first.
func (s *WorkflowService) PreviewNextNumber(ctx context.Context, projectID string, entityType repository.EntityType, specSection *string) (string, error) {
	if !entityType.Valid() {
		return "", apperr.InvalidInput("entity_type", "must be one of rfi, submittal, change_order")
	}
	if entityType == repository.EntityTypeSubmittal && (specSection == nil || *specSection == "") {
		return "", apperr.InvalidInput("spec_section", "submittals number within a spec section")
	}

	scope := sequenceScope(entityType, specSection)
	last, err := s.sequences.Peek(ctx, projectID, entityType, scope.ScopeKey)
	if err != nil {
		return "", err
	}
	return scope.Format(last + 1), nil
}

// GetPendingForUser returns the open items whose ball-in-court points at a
// user.
func (s *WorkflowService) GetPendingForUser(ctx context.Context, projectID, userID string) ([]*repository.WorkflowItem, error) {
	return s.items.GetPendingForUser(ctx, projectID, userID)
}

// Rollup aggregates cost and schedule impact for a project. Read-only and
// safe to run concurrently with transitions; tolerates a stale-by-one
// snapshot per item.
func (s *WorkflowService) Rollup(ctx context.Context, projectID string) (*repository.ImpactRollup, error) {
	return s.items.Rollup(ctx, projectID)
}

// ── Internal helpers ──────────────────────────────────────────────────────────

// appendAudit writes an audit entry, logging a warning on failure (the
// transition itself has already committed).
func (s *WorkflowService) appendAudit(ctx context.Context, item *repository.WorkflowItem, action, performedBy string, before, after *string, metadata map[string]interface{}) {
	err := s.audit.Append(ctx, &repository.TransitionAuditEntry{
		WorkflowItemID: item.ID,
		ProjectID:      item.ProjectID,
		Action:         action,
		PerformedBy:    performedBy,
		StatusBefore:   before,
		StatusAfter:    after,
		Metadata:       metadata,
	})
	if err != nil {
		s.log.Warn().Err(err).
			Str("item_id", item.ID).
			Str("action", action).
			Msg("Failed to write audit log entry")
	}
}

func (s *WorkflowService) publish(ctx context.Context, item *repository.WorkflowItem, action, before, after, actorID, actorRole string, escalated bool, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.PublishTransition(ctx, &TransitionEvent{
		EventID:         uuid.NewString(),
		ProjectID:       item.ProjectID,
		ItemID:          item.ID,
		EntityType:      string(item.EntityType),
		DisplayNumber:   item.DisplayNumber,
		Action:          action,
		StatusBefore:    before,
		StatusAfter:     after,
		ActorID:         actorID,
		ActorRole:       actorRole,
		BallInCourtRole: item.BallInCourtRole,
		Escalated:       escalated,
		OccurredAt:      time.Now().UTC(),
		Payload:         payload,
	})
}

func auditMetadata(req *TransitionRequest) map[string]interface{} {
	metadata := make(map[string]interface{})
	if req.Payload.ApprovalCode != nil {
		metadata["approval_code"] = *req.Payload.ApprovalCode
	}
	if req.Payload.ApprovedAmount != nil {
		metadata["approved_amount"] = *req.Payload.ApprovedAmount
	}
	if req.Payload.CostImpact != nil {
		metadata["cost_impact"] = *req.Payload.CostImpact
	}
	if req.Payload.Notes != nil {
		metadata["notes"] = *req.Payload.Notes
	}
	if req.ActorRole != "" {
		metadata["actor_role"] = req.ActorRole
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func stringPtr(s string) *string {
	return &s
}
