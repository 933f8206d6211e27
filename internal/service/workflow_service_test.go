package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubiknyc/SuperSiteHero-sub015/internal/apperr"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/repository"
)

const testProject = "5f1c9a2e-0000-0000-0000-000000000001"

func int64Ptr(n int64) *int64 { return &n }
func intPtr(n int) *int       { return &n }

func createItem(t *testing.T, svc *WorkflowService, entityType repository.EntityType, opts func(*CreateItemRequest)) *repository.WorkflowItem {
	t.Helper()

	req := &CreateItemRequest{
		ProjectID:  testProject,
		EntityType: entityType,
		Title:      "test item",
		CreatedBy:  "user-creator",
	}
	if entityType == repository.EntityTypeSubmittal {
		req.SpecSection = stringPtr("05 12 00")
	}
	if opts != nil {
		opts(req)
	}

	item, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	return item
}

func transition(t *testing.T, svc *WorkflowService, item *repository.WorkflowItem, action Action, role string, payload TransitionPayload) *TransitionResult {
	t.Helper()

	result, err := svc.ApplyTransition(context.Background(), &TransitionRequest{
		ItemID:          item.ID,
		Action:          action,
		ActorID:         "user-actor",
		ActorRole:       role,
		ExpectedVersion: item.Version,
		Payload:         payload,
	})
	require.NoError(t, err)
	return result
}

// ── RFI lifecycle ─────────────────────────────────────────────────────────────

func TestRFILifecycle(t *testing.T) {
	svc, _, _, events := newTestService()
	ctx := context.Background()

	item := createItem(t, svc, repository.EntityTypeRFI, nil)
	assert.Equal(t, RFIStatusDraft, item.Status)
	assert.Nil(t, item.DisplayNumber)
	assert.Equal(t, int64(1), item.Version)

	result := transition(t, svc, item, ActionSubmit, RolePM, TransitionPayload{})
	item = result.Item
	assert.Equal(t, RFIStatusOpen, item.Status)
	require.NotNil(t, item.DisplayNumber)
	assert.Equal(t, "RFI-001", *item.DisplayNumber)
	assert.Equal(t, RoleGC, item.BallInCourtRole)
	assert.NotNil(t, item.SubmittedAt)
	assert.Equal(t, int64(2), item.Version)

	result = transition(t, svc, item, ActionForward, RoleGC, TransitionPayload{})
	item = result.Item
	assert.Equal(t, RFIStatusPendingResponse, item.Status)
	assert.Equal(t, RoleArchitect, item.BallInCourtRole)

	result = transition(t, svc, item, ActionRespond, RoleArchitect, TransitionPayload{})
	item = result.Item
	assert.Equal(t, RFIStatusResponded, item.Status)
	assert.Equal(t, RoleGC, item.BallInCourtRole)
	assert.NotNil(t, item.RespondedAt)

	result = transition(t, svc, item, ActionClose, RoleGC, TransitionPayload{})
	item = result.Item
	assert.Equal(t, RFIStatusClosed, item.Status)
	assert.NotNil(t, item.ClosedAt)
	assert.Empty(t, item.BallInCourtRole)
	assert.Equal(t, int64(5), item.Version)

	trail, err := svc.GetAuditTrail(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 5) // created + 4 transitions
	assert.Equal(t, "created", trail[0].Action)
	assert.Equal(t, "close", trail[4].Action)

	assert.Len(t, events.events, 5)
}

func TestRFIReopen(t *testing.T) {
	svc, _, _, _ := newTestService()

	item := createItem(t, svc, repository.EntityTypeRFI, nil)
	item = transition(t, svc, item, ActionSubmit, RolePM, TransitionPayload{}).Item
	item = transition(t, svc, item, ActionRespond, RoleGC, TransitionPayload{}).Item
	require.Equal(t, RFIStatusResponded, item.Status)

	item = transition(t, svc, item, ActionReopen, RolePM, TransitionPayload{}).Item
	assert.Equal(t, RFIStatusOpen, item.Status)
	assert.Equal(t, RoleGC, item.BallInCourtRole)
}

func TestVoidedNumberIsNeverReused(t *testing.T) {
	svc, _, _, _ := newTestService()

	first := createItem(t, svc, repository.EntityTypeRFI, nil)
	first = transition(t, svc, first, ActionSubmit, RolePM, TransitionPayload{}).Item
	require.Equal(t, "RFI-001", *first.DisplayNumber)

	first = transition(t, svc, first, ActionVoid, RolePM, TransitionPayload{}).Item
	assert.Equal(t, RFIStatusVoid, first.Status)
	assert.Equal(t, "RFI-001", *first.DisplayNumber) // voided item keeps its number

	second := createItem(t, svc, repository.EntityTypeRFI, nil)
	second = transition(t, svc, second, ActionSubmit, RolePM, TransitionPayload{}).Item
	assert.Equal(t, "RFI-002", *second.DisplayNumber)
}

func TestInvalidTransitionCarriesLegalActions(t *testing.T) {
	svc, _, _, _ := newTestService()

	item := createItem(t, svc, repository.EntityTypeRFI, nil)
	item = transition(t, svc, item, ActionSubmit, RolePM, TransitionPayload{}).Item

	_, err := svc.ApplyTransition(context.Background(), &TransitionRequest{
		ItemID:          item.ID,
		Action:          ActionSubmit, // already submitted
		ActorID:         "user-actor",
		ExpectedVersion: item.Version,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidTransition))

	details := apperr.DetailsOf(err)
	require.NotNil(t, details)
	assert.Equal(t, RFIStatusOpen, details["current_status"])
	assert.Equal(t, "submit", details["attempted_action"])
	assert.ElementsMatch(t, []string{"forward", "respond", "void"}, details["legal_actions"])
}

func TestConcurrencyConflict(t *testing.T) {
	svc, _, _, _ := newTestService()

	item := createItem(t, svc, repository.EntityTypeRFI, nil)
	transition(t, svc, item, ActionSubmit, RolePM, TransitionPayload{})

	// Replay with the stale version the first caller read.
	_, err := svc.ApplyTransition(context.Background(), &TransitionRequest{
		ItemID:          item.ID,
		Action:          ActionVoid,
		ActorID:         "user-actor",
		ExpectedVersion: item.Version,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeConcurrencyConflict))
}

// ── Submittal lifecycle ───────────────────────────────────────────────────────

func TestCreateRequiresCreator(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Create(context.Background(), &CreateItemRequest{
		ProjectID:  testProject,
		EntityType: repository.EntityTypeRFI,
		Title:      "missing creator",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))

	details := apperr.DetailsOf(err)
	require.NotNil(t, details)
	assert.Equal(t, "created_by", details["field"])
}

func TestAuditTrailRecordsCreationAndLinks(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	item := createItem(t, svc, repository.EntityTypeRFI, nil)
	co := createItem(t, svc, repository.EntityTypeChangeOrder, nil)

	_, err := svc.LinkItems(ctx, item.ID, co.ID, "user-actor", item.Version)
	require.NoError(t, err)

	trail, err := svc.GetAuditTrail(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)

	// Creation has no prior status; link entries carry no status at all. Both
	// must still land in the trail.
	assert.Equal(t, "created", trail[0].Action)
	assert.Nil(t, trail[0].StatusBefore)
	require.NotNil(t, trail[0].StatusAfter)
	assert.Equal(t, RFIStatusDraft, *trail[0].StatusAfter)

	assert.Equal(t, "linked", trail[1].Action)
	assert.Nil(t, trail[1].StatusBefore)
	assert.Nil(t, trail[1].StatusAfter)
}

func TestSubmittalRequiresSpecSection(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Create(context.Background(), &CreateItemRequest{
		ProjectID:  testProject,
		EntityType: repository.EntityTypeSubmittal,
		Title:      "structural steel shop drawings",
		CreatedBy:  "user-creator",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))
}

func TestSubmittalReviseResubmitCycle(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	item := createItem(t, svc, repository.EntityTypeSubmittal, nil)
	assert.Equal(t, SubmittalStatusNotSubmitted, item.Status)

	// First submission opens the revision chain at rev 0 and numbers the item
	// within its spec section.
	item = transition(t, svc, item, ActionSubmit, RoleSubcontractor, TransitionPayload{}).Item
	assert.Equal(t, SubmittalStatusSubmitted, item.Status)
	require.NotNil(t, item.DisplayNumber)
	assert.Equal(t, "05 12 00-1", *item.DisplayNumber)
	require.NotNil(t, item.RevisionChainID)

	revs, err := svc.GetRevisions(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, 0, revs[0].RevisionNumber)
	assert.True(t, revs[0].IsCurrent)

	item = transition(t, svc, item, ActionBeginReview, RoleGC, TransitionPayload{}).Item
	assert.Equal(t, SubmittalStatusUnderGCReview, item.Status)

	// Code C: revise and resubmit. Ball returns to the submitter.
	item = transition(t, svc, item, ActionReview, RoleGC, TransitionPayload{
		ApprovalCode: stringPtr(ApprovalCodeReviseResubmit),
	}).Item
	assert.Equal(t, SubmittalStatusReviseResubmit, item.Status)
	assert.Equal(t, RoleSubcontractor, item.BallInCourtRole)
	require.NotNil(t, item.BallInCourtUserID)
	assert.Equal(t, "user-creator", *item.BallInCourtUserID)

	revs, err = svc.GetRevisions(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	require.NotNil(t, revs[0].ApprovalCode)
	assert.Equal(t, ApprovalCodeReviseResubmit, *revs[0].ApprovalCode)

	// Rev 1 supersedes rev 0; the display number survives resubmission.
	item = transition(t, svc, item, ActionCreateRevision, RoleSubcontractor, TransitionPayload{
		ChangeDescription: stringPtr("fixed connection details"),
	}).Item
	assert.Equal(t, SubmittalStatusNotSubmitted, item.Status)

	item = transition(t, svc, item, ActionSubmit, RoleSubcontractor, TransitionPayload{}).Item
	assert.Equal(t, "05 12 00-1", *item.DisplayNumber)

	revs, err = svc.GetRevisions(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, repository.RevisionStatusSuperseded, revs[0].Status)
	assert.False(t, revs[0].IsCurrent)
	assert.Equal(t, 1, revs[1].RevisionNumber)
	assert.True(t, revs[1].IsCurrent)

	// Approve the resubmission.
	item = transition(t, svc, item, ActionBeginReview, RoleGC, TransitionPayload{}).Item
	item = transition(t, svc, item, ActionReview, RoleGC, TransitionPayload{
		ApprovalCode: stringPtr(ApprovalCodeApproved),
	}).Item
	assert.Equal(t, SubmittalStatusApproved, item.Status)
	assert.NotNil(t, item.ClosedAt)
	assert.Empty(t, item.BallInCourtRole)
}

func TestSubmittalRejectionRequiresArchitect(t *testing.T) {
	svc, _, _, _ := newTestService()

	item := createItem(t, svc, repository.EntityTypeSubmittal, nil)
	item = transition(t, svc, item, ActionSubmit, RoleSubcontractor, TransitionPayload{}).Item
	item = transition(t, svc, item, ActionBeginReview, RoleGC, TransitionPayload{}).Item

	// Code D from GC review is not legal.
	_, err := svc.ApplyTransition(context.Background(), &TransitionRequest{
		ItemID:          item.ID,
		Action:          ActionReview,
		ActorID:         "user-actor",
		ActorRole:       RoleGC,
		ExpectedVersion: item.Version,
		Payload:         TransitionPayload{ApprovalCode: stringPtr(ApprovalCodeRejected)},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidTransition))

	// Forwarded to the architect, code D rejects.
	item = transition(t, svc, item, ActionForwardToArchitect, RoleGC, TransitionPayload{}).Item
	assert.Equal(t, RoleArchitect, item.BallInCourtRole)

	item = transition(t, svc, item, ActionReview, RoleArchitect, TransitionPayload{
		ApprovalCode: stringPtr(ApprovalCodeRejected),
	}).Item
	assert.Equal(t, SubmittalStatusRejected, item.Status)
	assert.NotNil(t, item.ClosedAt)
}

func TestVoidRevisionLeavesChainWithoutCurrent(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	item := createItem(t, svc, repository.EntityTypeSubmittal, nil)
	item = transition(t, svc, item, ActionSubmit, RoleSubcontractor, TransitionPayload{}).Item
	require.NotNil(t, item.RevisionChainID)

	item, err := svc.VoidRevision(ctx, item.ID, "user-actor", item.Version)
	require.NoError(t, err)
	assert.Nil(t, item.CurrentRevisionID)

	// The voided revision keeps its number and nothing is promoted.
	_, err = store.GetCurrent(ctx, *item.RevisionChainID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	revs, err := svc.GetRevisions(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, repository.RevisionStatusVoid, revs[0].Status)
	assert.Equal(t, 0, revs[0].RevisionNumber)
}

// ── Change-order lifecycle ────────────────────────────────────────────────────

func TestChangeOrderApprovalFlow(t *testing.T) {
	svc, _, _, _ := newTestService()

	item := createItem(t, svc, repository.EntityTypeChangeOrder, func(req *CreateItemRequest) {
		req.Title = "added structural steel"
	})
	assert.Equal(t, COStatusDraft, item.Status)
	assert.True(t, item.IsPCO)

	item = transition(t, svc, item, ActionSubmit, RolePM, TransitionPayload{}).Item
	assert.Equal(t, COStatusPendingEstimate, item.Status)
	assert.Equal(t, RoleEstimating, item.BallInCourtRole)
	require.NotNil(t, item.DisplayNumber)
	assert.Equal(t, "PCO-001", *item.DisplayNumber)

	item = transition(t, svc, item, ActionCompleteEstimate, RoleEstimating, TransitionPayload{
		CostImpact:         int64Ptr(300_000), // $3,000
		ScheduleImpactDays: intPtr(4),
	}).Item
	assert.Equal(t, COStatusEstimateComplete, item.Status)
	assert.Equal(t, repository.CostImpactEstimated, item.CostImpactStatus)

	item = transition(t, svc, item, ActionRequestApproval, RolePM, TransitionPayload{}).Item
	assert.Equal(t, COStatusPendingInternal, item.Status)

	// $3,000 is within the PM's $5,000 auto-approve limit and under the $4,000
	// second-signoff threshold.
	result := transition(t, svc, item, ActionApproveInternal, RolePM, TransitionPayload{})
	item = result.Item
	assert.Equal(t, COStatusInternalApproved, item.Status)
	assert.False(t, result.Escalated)
	assert.False(t, result.RequiresSecondApproval)
	assert.Equal(t, repository.CostImpactPending, item.CostImpactStatus)

	item = transition(t, svc, item, ActionSubmitToOwner, RolePM, TransitionPayload{}).Item
	assert.Equal(t, COStatusPendingOwner, item.Status)
	assert.Equal(t, RoleOwner, item.BallInCourtRole)

	item = transition(t, svc, item, ActionApproveOwner, RoleOwner, TransitionPayload{
		ApprovedAmount:         int64Ptr(280_000),
		ApprovedDays:           intPtr(3),
		OriginalContractAmount: int64Ptr(100_000_000), // $1M contract
	}).Item
	assert.Equal(t, COStatusApproved, item.Status)
	assert.False(t, item.IsPCO)
	require.NotNil(t, item.CODisplayNumber)
	assert.Equal(t, "CO-001", *item.CODisplayNumber)
	assert.Equal(t, repository.CostImpactApproved, item.CostImpactStatus)
	require.NotNil(t, item.RevisedContractAmount)
	assert.Equal(t, int64(100_280_000), *item.RevisedContractAmount)
	assert.NotNil(t, item.ClosedAt)
}

func TestChangeOrderEscalation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	item := createItem(t, svc, repository.EntityTypeChangeOrder, nil)
	item = transition(t, svc, item, ActionSubmit, RolePM, TransitionPayload{}).Item
	item = transition(t, svc, item, ActionCompleteEstimate, RoleEstimating, TransitionPayload{
		CostImpact: int64Ptr(600_000), // $6,000, over the PM limit
	}).Item
	item = transition(t, svc, item, ActionRequestApproval, RolePM, TransitionPayload{}).Item

	result, err := svc.ApplyTransition(ctx, &TransitionRequest{
		ItemID:          item.ID,
		Action:          ActionApproveInternal,
		ActorID:         "user-pm",
		ActorRole:       RolePM,
		ExpectedVersion: item.Version,
	})
	require.NoError(t, err) // escalation is an outcome, not an error
	assert.True(t, result.Escalated)
	assert.Equal(t, RoleSeniorPM, result.EscalatedToRole)

	// The item did not transition, but the escalation was committed.
	updated := result.Item
	assert.Equal(t, COStatusPendingInternal, updated.Status)
	assert.Equal(t, RoleSeniorPM, updated.BallInCourtRole)
	assert.Equal(t, item.Version+1, updated.Version)

	escalations, ok := updated.Metadata["escalations"].([]interface{})
	require.True(t, ok)
	assert.Len(t, escalations, 1)

	trail, err := svc.GetAuditTrail(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "escalation_required", trail[len(trail)-1].Action)

	// The senior PM has authority for $6,000.
	result = transition(t, svc, updated, ActionApproveInternal, RoleSeniorPM, TransitionPayload{})
	assert.False(t, result.Escalated)
	assert.Equal(t, COStatusInternalApproved, result.Item.Status)
}

func TestChangeOrderSecondApprovalFlag(t *testing.T) {
	svc, _, _, _ := newTestService()

	item := createItem(t, svc, repository.EntityTypeChangeOrder, nil)
	item = transition(t, svc, item, ActionSubmit, RolePM, TransitionPayload{}).Item
	item = transition(t, svc, item, ActionCompleteEstimate, RoleEstimating, TransitionPayload{
		CostImpact: int64Ptr(450_000), // $4,500: within limit, over threshold
	}).Item
	item = transition(t, svc, item, ActionRequestApproval, RolePM, TransitionPayload{}).Item

	result := transition(t, svc, item, ActionApproveInternal, RolePM, TransitionPayload{})
	assert.False(t, result.Escalated)
	assert.True(t, result.RequiresSecondApproval)
	assert.Equal(t, COStatusInternalApproved, result.Item.Status)
}

func TestChangeOrderOwnerRejection(t *testing.T) {
	svc, _, _, _ := newTestService()

	item := createItem(t, svc, repository.EntityTypeChangeOrder, nil)
	item = transition(t, svc, item, ActionSubmit, RolePM, TransitionPayload{}).Item
	item = transition(t, svc, item, ActionCompleteEstimate, RoleEstimating, TransitionPayload{
		CostImpact: int64Ptr(200_000),
	}).Item
	item = transition(t, svc, item, ActionRequestApproval, RolePM, TransitionPayload{}).Item
	item = transition(t, svc, item, ActionApproveInternal, RolePM, TransitionPayload{}).Item
	item = transition(t, svc, item, ActionSubmitToOwner, RolePM, TransitionPayload{}).Item

	item = transition(t, svc, item, ActionRejectOwner, RoleOwner, TransitionPayload{}).Item
	assert.Equal(t, COStatusRejected, item.Status)
	assert.Equal(t, repository.CostImpactRejected, item.CostImpactStatus)
	assert.Nil(t, item.CODisplayNumber) // no CO number without approval
	assert.True(t, item.IsPCO)
	assert.NotNil(t, item.ClosedAt)
}

func TestRevisedContractAmountAccumulates(t *testing.T) {
	svc, _, _, _ := newTestService()

	approve := func(amount int64) *repository.WorkflowItem {
		item := createItem(t, svc, repository.EntityTypeChangeOrder, nil)
		item = transition(t, svc, item, ActionSubmit, RolePM, TransitionPayload{}).Item
		item = transition(t, svc, item, ActionCompleteEstimate, RoleEstimating, TransitionPayload{
			CostImpact: int64Ptr(amount),
		}).Item
		item = transition(t, svc, item, ActionRequestApproval, RolePM, TransitionPayload{}).Item
		item = transition(t, svc, item, ActionApproveInternal, RolePM, TransitionPayload{}).Item
		item = transition(t, svc, item, ActionSubmitToOwner, RolePM, TransitionPayload{}).Item
		return transition(t, svc, item, ActionApproveOwner, RoleOwner, TransitionPayload{
			ApprovedAmount:         int64Ptr(amount),
			OriginalContractAmount: int64Ptr(50_000_000),
		}).Item
	}

	first := approve(100_000)
	require.NotNil(t, first.RevisedContractAmount)
	assert.Equal(t, int64(50_100_000), *first.RevisedContractAmount)

	// The second approval includes the first CO in the running total.
	second := approve(200_000)
	require.NotNil(t, second.RevisedContractAmount)
	assert.Equal(t, int64(50_300_000), *second.RevisedContractAmount)
	assert.Equal(t, "CO-002", *second.CODisplayNumber)
}

// ── Overrides, links, queries ─────────────────────────────────────────────────

func TestUpdateBallInCourtRejectsClosedItems(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	item := createItem(t, svc, repository.EntityTypeRFI, nil)
	item = transition(t, svc, item, ActionSubmit, RolePM, TransitionPayload{}).Item

	userID := "user-reviewer"
	updated, err := svc.UpdateBallInCourt(ctx, item.ID, &userID, RoleArchitect, "user-admin", item.Version)
	require.NoError(t, err)
	assert.Equal(t, RoleArchitect, updated.BallInCourtRole)
	require.NotNil(t, updated.BallInCourtUserID)
	assert.Equal(t, userID, *updated.BallInCourtUserID)

	updated = transition(t, svc, updated, ActionVoid, RolePM, TransitionPayload{}).Item

	_, err = svc.UpdateBallInCourt(ctx, updated.ID, &userID, RoleGC, "user-admin", updated.Version)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
}

func TestRequestEscalationWalksHierarchy(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	item := createItem(t, svc, repository.EntityTypeChangeOrder, nil)
	item = transition(t, svc, item, ActionSubmit, RolePM, TransitionPayload{}).Item

	result, err := svc.RequestEscalation(ctx, item.ID, "user-pm", RolePM, item.Version)
	require.NoError(t, err)
	assert.True(t, result.Escalated)
	assert.Equal(t, RoleSeniorPM, result.EscalatedToRole)
	assert.Equal(t, COStatusPendingEstimate, result.Item.Status)
}

func TestLinkItems(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	rfi := createItem(t, svc, repository.EntityTypeRFI, nil)
	co := createItem(t, svc, repository.EntityTypeChangeOrder, nil)

	linked, err := svc.LinkItems(ctx, rfi.ID, co.ID, "user-actor", rfi.Version)
	require.NoError(t, err)
	assert.Contains(t, linked.LinkedItemIDs, co.ID)

	// Linking to a missing item fails without touching the source.
	_, err = svc.LinkItems(ctx, rfi.ID, "no-such-item", "user-actor", linked.Version)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

func TestRequestApprovalRoutesToCoveringRole(t *testing.T) {
	svc, _, _, _ := newTestService()

	item := createItem(t, svc, repository.EntityTypeChangeOrder, nil)
	item = transition(t, svc, item, ActionSubmit, RolePM, TransitionPayload{}).Item
	item = transition(t, svc, item, ActionCompleteEstimate, RoleEstimating, TransitionPayload{
		CostImpact: int64Ptr(600_000), // over the PM limit, within senior PM's
	}).Item

	// The internal review lands with a role that can actually approve, even
	// though the PM requested it.
	item = transition(t, svc, item, ActionRequestApproval, RolePM, TransitionPayload{}).Item
	assert.Equal(t, COStatusPendingInternal, item.Status)
	assert.Equal(t, RoleSeniorPM, item.BallInCourtRole)
}

func TestPreviewNextNumber(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	number, err := svc.PreviewNextNumber(ctx, testProject, repository.EntityTypeRFI, nil)
	require.NoError(t, err)
	assert.Equal(t, "RFI-001", number)

	// Previewing does not consume the counter.
	item := createItem(t, svc, repository.EntityTypeRFI, nil)
	item = transition(t, svc, item, ActionSubmit, RolePM, TransitionPayload{}).Item
	assert.Equal(t, "RFI-001", *item.DisplayNumber)

	number, err = svc.PreviewNextNumber(ctx, testProject, repository.EntityTypeRFI, nil)
	require.NoError(t, err)
	assert.Equal(t, "RFI-002", number)

	section := "05 12 00"
	number, err = svc.PreviewNextNumber(ctx, testProject, repository.EntityTypeSubmittal, &section)
	require.NoError(t, err)
	assert.Equal(t, "05 12 00-1", number)

	_, err = svc.PreviewNextNumber(ctx, testProject, repository.EntityTypeSubmittal, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))
}

func TestGetPendingForUser(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	assignee := "user-reviewer"
	item := createItem(t, svc, repository.EntityTypeRFI, nil)
	item = transition(t, svc, item, ActionSubmit, RolePM, TransitionPayload{
		AssignedTo: &assignee,
	}).Item
	require.NotNil(t, item.BallInCourtUserID)

	pending, err := svc.GetPendingForUser(ctx, testProject, assignee)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, item.ID, pending[0].ID)

	pending, err = svc.GetPendingForUser(ctx, testProject, "user-other")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRollup(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	// One estimated CO, one approved CO, one plain RFI.
	estimated := createItem(t, svc, repository.EntityTypeChangeOrder, nil)
	estimated = transition(t, svc, estimated, ActionSubmit, RolePM, TransitionPayload{}).Item
	transition(t, svc, estimated, ActionCompleteEstimate, RoleEstimating, TransitionPayload{
		CostImpact:         int64Ptr(500_000),
		ScheduleImpactDays: intPtr(5),
	})

	approved := createItem(t, svc, repository.EntityTypeChangeOrder, nil)
	approved = transition(t, svc, approved, ActionSubmit, RolePM, TransitionPayload{}).Item
	approved = transition(t, svc, approved, ActionCompleteEstimate, RoleEstimating, TransitionPayload{
		CostImpact: int64Ptr(200_000),
	}).Item
	approved = transition(t, svc, approved, ActionRequestApproval, RolePM, TransitionPayload{}).Item
	approved = transition(t, svc, approved, ActionApproveInternal, RolePM, TransitionPayload{}).Item
	approved = transition(t, svc, approved, ActionSubmitToOwner, RolePM, TransitionPayload{}).Item
	transition(t, svc, approved, ActionApproveOwner, RoleOwner, TransitionPayload{
		ApprovedAmount:         int64Ptr(180_000),
		OriginalContractAmount: int64Ptr(10_000_000),
	})

	rfi := createItem(t, svc, repository.EntityTypeRFI, nil)
	_, err := svc.LinkItems(ctx, rfi.ID, approved.ID, "user-actor", rfi.Version)
	require.NoError(t, err)

	rollup, err := svc.Rollup(ctx, testProject)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), rollup.TotalEstimated)
	assert.Equal(t, int64(180_000), rollup.TotalApproved)
	assert.Equal(t, 3, rollup.ItemCount)
	assert.Equal(t, 2, rollup.ItemsWithCostImpact)
	assert.Equal(t, 1, rollup.ItemsLinkedToChangeOrder)
	assert.Equal(t, 5, rollup.TotalScheduleDays)
}
