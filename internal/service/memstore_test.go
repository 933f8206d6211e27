package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kubiknyc/SuperSiteHero-sub015/internal/apperr"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/logger"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/repository"
)

// memStore is an in-memory ItemStore + RevisionStore that mirrors the
// transactional semantics of the SQL repositories: version-checked commits,
// monotonic sequence counters and exactly-one-current revision chains.
type memStore struct {
	mu        sync.Mutex
	items     map[string]*repository.WorkflowItem
	sequences map[string]int64
	revisions map[string][]*repository.Revision
}

func newMemStore() *memStore {
	return &memStore{
		items:     make(map[string]*repository.WorkflowItem),
		sequences: make(map[string]int64),
		revisions: make(map[string][]*repository.Revision),
	}
}

func seqKey(projectID string, entityType repository.EntityType, scopeKey string) string {
	return fmt.Sprintf("%s|%s|%s", projectID, entityType, scopeKey)
}

func copyItem(item *repository.WorkflowItem) *repository.WorkflowItem {
	clone := *item
	clone.LinkedItemIDs = append([]string(nil), item.LinkedItemIDs...)
	if item.Metadata != nil {
		clone.Metadata = make(map[string]interface{}, len(item.Metadata))
		for k, v := range item.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

func (s *memStore) Create(ctx context.Context, item *repository.WorkflowItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = uuid.NewString()
	item.Version = 1
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	if item.LinkedItemIDs == nil {
		item.LinkedItemIDs = []string{}
	}
	s.items[item.ID] = copyItem(item)
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*repository.WorkflowItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, apperr.NotFound("workflow_item", id)
	}
	return copyItem(item), nil
}

func (s *memStore) List(ctx context.Context, projectID string, entityType *repository.EntityType, status *string, limit, offset int) ([]*repository.WorkflowItem, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*repository.WorkflowItem
	for _, item := range s.items {
		if item.ProjectID != projectID {
			continue
		}
		if entityType != nil && item.EntityType != *entityType {
			continue
		}
		if status != nil && item.Status != *status {
			continue
		}
		out = append(out, copyItem(item))
	}
	return out, int64(len(out)), nil
}

func (s *memStore) GetPendingForUser(ctx context.Context, projectID, userID string) ([]*repository.WorkflowItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*repository.WorkflowItem
	for _, item := range s.items {
		if item.ProjectID != projectID || item.ClosedAt != nil {
			continue
		}
		if item.BallInCourtUserID != nil && *item.BallInCourtUserID == userID {
			out = append(out, copyItem(item))
		}
	}
	return out, nil
}

func (s *memStore) Commit(ctx context.Context, commit *repository.TransitionCommit) (*repository.WorkflowItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[commit.ItemID]
	if !ok {
		return nil, apperr.NotFound("workflow_item", commit.ItemID)
	}
	if item.Version != commit.ExpectedVersion {
		return nil, apperr.New(apperr.CodeConcurrencyConflict, "workflow item was modified by another caller").
			WithDetail("expected_version", commit.ExpectedVersion).
			WithDetail("current_version", item.Version)
	}

	now := time.Now()
	item.Status = commit.Status
	item.BallInCourtUserID = commit.BallInCourtUserID
	item.BallInCourtRole = commit.BallInCourtRole
	item.Version++
	item.UpdatedAt = now

	if req := commit.AllocateDisplayNumber; req != nil {
		key := seqKey(item.ProjectID, item.EntityType, req.ScopeKey)
		s.sequences[key]++
		n := s.sequences[key]
		item.SequenceNumber = &n
		display := req.Format(n)
		item.DisplayNumber = &display
	}
	if req := commit.AllocateCONumber; req != nil {
		key := seqKey(item.ProjectID, item.EntityType, req.ScopeKey)
		s.sequences[key]++
		n := s.sequences[key]
		item.CONumber = &n
		display := req.Format(n)
		item.CODisplayNumber = &display
	}
	if commit.SetCOApproved {
		item.IsPCO = false
	}

	if commit.StartChainID != nil {
		item.RevisionChainID = commit.StartChainID
	}
	if commit.NewRevision != nil {
		if item.RevisionChainID == nil {
			return nil, apperr.New(apperr.CodeInternal, "revision insert requires a chain id")
		}
		rev := s.addRevision(*item.RevisionChainID, item.ID, commit.NewRevision.ChangeDescription)
		item.CurrentRevisionID = &rev.ID
	}
	if commit.ReviewApprovalCode != nil {
		if item.RevisionChainID == nil {
			return nil, apperr.New(apperr.CodeInternal, "revision review requires a chain id")
		}
		if cur := s.currentRevision(*item.RevisionChainID); cur != nil {
			code := *commit.ReviewApprovalCode
			cur.ApprovalCode = &code
			reviewed := now
			cur.ReviewedAt = &reviewed
		}
	}
	if commit.VoidCurrentRevision && item.RevisionChainID != nil {
		if cur := s.currentRevision(*item.RevisionChainID); cur != nil {
			cur.IsCurrent = false
			cur.Status = repository.RevisionStatusVoid
		}
		item.CurrentRevisionID = nil
	}

	if commit.SetSubmittedAt {
		item.SubmittedAt = &now
	}
	if commit.SetRespondedAt {
		item.RespondedAt = &now
	}
	if commit.SetClosedAt {
		item.ClosedAt = &now
	}

	if commit.CostImpact != nil {
		item.CostImpact = commit.CostImpact
	}
	if commit.CostImpactStatus != nil {
		item.CostImpactStatus = *commit.CostImpactStatus
	}
	if commit.ScheduleImpactDays != nil {
		item.ScheduleImpactDays = commit.ScheduleImpactDays
	}
	if commit.ApprovedAmount != nil {
		item.ApprovedAmount = commit.ApprovedAmount
	}
	if commit.ApprovedDays != nil {
		item.ApprovedDays = commit.ApprovedDays
	}
	if commit.RevisedContractAmount != nil {
		item.RevisedContractAmount = commit.RevisedContractAmount
	}
	if commit.Metadata != nil {
		item.Metadata = commit.Metadata
	}

	return copyItem(item), nil
}

func (s *memStore) addRevision(chainID, itemID string, changeDescription *string) *repository.Revision {
	next := 0
	for _, rev := range s.revisions[chainID] {
		if rev.IsCurrent {
			rev.IsCurrent = false
			rev.Status = repository.RevisionStatusSuperseded
		}
		if rev.RevisionNumber >= next {
			next = rev.RevisionNumber + 1
		}
	}
	rev := &repository.Revision{
		ID:                uuid.NewString(),
		ChainID:           chainID,
		WorkflowItemID:    itemID,
		RevisionNumber:    next,
		IsCurrent:         true,
		Status:            repository.RevisionStatusCurrent,
		ChangeDescription: changeDescription,
		SubmittedAt:       time.Now(),
		CreatedAt:         time.Now(),
	}
	s.revisions[chainID] = append(s.revisions[chainID], rev)
	return rev
}

func (s *memStore) currentRevision(chainID string) *repository.Revision {
	for _, rev := range s.revisions[chainID] {
		if rev.IsCurrent {
			return rev
		}
	}
	return nil
}

func (s *memStore) AddLink(ctx context.Context, itemID, linkedID string, expectedVersion int64) (*repository.WorkflowItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return nil, apperr.NotFound("workflow_item", itemID)
	}
	if item.Version != expectedVersion {
		return nil, apperr.New(apperr.CodeConcurrencyConflict, "workflow item was modified by another caller")
	}
	for _, id := range item.LinkedItemIDs {
		if id == linkedID {
			return nil, apperr.New(apperr.CodeConcurrencyConflict, "workflow item was modified or link already exists")
		}
	}
	item.LinkedItemIDs = append(item.LinkedItemIDs, linkedID)
	item.Version++
	return copyItem(item), nil
}

func (s *memStore) SumApprovedChangeOrders(ctx context.Context, projectID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, item := range s.items {
		if item.ProjectID == projectID &&
			item.EntityType == repository.EntityTypeChangeOrder &&
			item.Status == COStatusApproved &&
			item.ApprovedAmount != nil {
			total += *item.ApprovedAmount
		}
	}
	return total, nil
}

func (s *memStore) Rollup(ctx context.Context, projectID string) (*repository.ImpactRollup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rollup := &repository.ImpactRollup{}
	for _, item := range s.items {
		if item.ProjectID != projectID {
			continue
		}
		rollup.ItemCount++
		if item.CostImpact != nil {
			rollup.ItemsWithCostImpact++
		}
		if item.ScheduleImpactDays != nil {
			rollup.TotalScheduleDays += *item.ScheduleImpactDays
		}
		for _, linked := range item.LinkedItemIDs {
			if other, ok := s.items[linked]; ok && other.EntityType == repository.EntityTypeChangeOrder {
				rollup.ItemsLinkedToChangeOrder++
				break
			}
		}

		switch item.CostImpactStatus {
		case repository.CostImpactEstimated:
			if item.CostImpact != nil {
				rollup.TotalEstimated += *item.CostImpact
			}
		case repository.CostImpactPending:
			if item.CostImpact != nil {
				rollup.TotalPending += *item.CostImpact
			}
		case repository.CostImpactApproved:
			if item.ApprovedAmount != nil {
				rollup.TotalApproved += *item.ApprovedAmount
			} else if item.CostImpact != nil {
				rollup.TotalApproved += *item.CostImpact
			}
		case repository.CostImpactRejected:
			if item.CostImpact != nil {
				rollup.TotalRejected += *item.CostImpact
			}
		}
	}
	return rollup, nil
}

// SequenceReader

func (s *memStore) Peek(ctx context.Context, projectID string, entityType repository.EntityType, scopeKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequences[seqKey(projectID, entityType, scopeKey)], nil
}

// RevisionStore

func (s *memStore) GetByChainID(ctx context.Context, chainID string) ([]*repository.Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*repository.Revision, 0, len(s.revisions[chainID]))
	for _, rev := range s.revisions[chainID] {
		clone := *rev
		out = append(out, &clone)
	}
	return out, nil
}

func (s *memStore) GetCurrent(ctx context.Context, chainID string) (*repository.Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.currentRevision(chainID); cur != nil {
		clone := *cur
		return &clone, nil
	}
	return nil, apperr.NotFound("current_revision", chainID)
}

// memAudit is an in-memory append-only AuditLog.
type memAudit struct {
	mu      sync.Mutex
	entries []*repository.TransitionAuditEntry
}

func (a *memAudit) Append(ctx context.Context, entry *repository.TransitionAuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.PerformedAt = time.Now()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *memAudit) GetByItemID(ctx context.Context, itemID string) ([]*repository.TransitionAuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []*repository.TransitionAuditEntry
	for _, entry := range a.entries {
		if entry.WorkflowItemID == itemID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// memPublisher records transition events.
type memPublisher struct {
	mu     sync.Mutex
	events []*TransitionEvent
}

func (p *memPublisher) PublishTransition(ctx context.Context, event *TransitionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// newTestService wires a WorkflowService over the in-memory fakes with the
// default authority table.
func newTestService() (*WorkflowService, *memStore, *memAudit, *memPublisher) {
	store := newMemStore()
	audit := &memAudit{}
	events := &memPublisher{}
	svc := NewWorkflowService(store, store, store, audit, events, NewAuthorityResolver(nil), logger.Nop())
	return svc, store, audit, events
}
