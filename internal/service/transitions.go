package service

import (
	"sort"

	"github.com/kubiknyc/SuperSiteHero-sub015/internal/apperr"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/repository"
)

// Action is a workflow command verb. The legal (status, action) pairs are
// fixed per entity type; anything outside the tables below is rejected.
type Action string

const (
	// Shared
	ActionSubmit Action = "submit"
	ActionVoid   Action = "void"

	// RFI
	ActionForward Action = "forward"
	ActionRespond Action = "respond"
	ActionClose   Action = "close"
	ActionReopen  Action = "reopen"

	// Submittal
	ActionBeginReview        Action = "begin_review"
	ActionForwardToArchitect Action = "forward_to_architect"
	ActionReview             Action = "review"
	ActionCreateRevision     Action = "create_revision"

	// Change order
	ActionCompleteEstimate Action = "complete_estimate"
	ActionRequestApproval  Action = "request_approval"
	ActionApproveInternal  Action = "approve_internal"
	ActionSubmitToOwner    Action = "submit_to_owner"
	ActionApproveOwner     Action = "approve_owner"
	ActionRejectOwner      Action = "reject_owner"
)

// RFI statuses.
const (
	RFIStatusDraft           = "draft"
	RFIStatusOpen            = "open"
	RFIStatusPendingResponse = "pending_response"
	RFIStatusResponded       = "responded"
	RFIStatusClosed          = "closed"
	RFIStatusVoid            = "void"
)

// Submittal statuses.
const (
	SubmittalStatusNotSubmitted         = "not_submitted"
	SubmittalStatusSubmitted            = "submitted"
	SubmittalStatusUnderGCReview        = "under_gc_review"
	SubmittalStatusSubmittedToArchitect = "submitted_to_architect"
	SubmittalStatusApproved             = "approved"
	SubmittalStatusApprovedAsNoted      = "approved_as_noted"
	SubmittalStatusReviseResubmit       = "revise_resubmit"
	SubmittalStatusRejected             = "rejected"
)

// Change-order statuses.
const (
	COStatusDraft            = "draft"
	COStatusPendingEstimate  = "pending_estimate"
	COStatusEstimateComplete = "estimate_complete"
	COStatusPendingInternal  = "pending_internal_approval"
	COStatusInternalApproved = "internally_approved"
	COStatusPendingOwner     = "pending_owner_review"
	COStatusApproved         = "approved"
	COStatusRejected         = "rejected"
	COStatusVoid             = "void"
)

// Submittal approval codes (standard A/B/C/D review verdicts).
const (
	ApprovalCodeApproved        = "A"
	ApprovalCodeApprovedAsNoted = "B"
	ApprovalCodeReviseResubmit  = "C"
	ApprovalCodeRejected        = "D"
)

type transitionKey struct {
	status string
	action Action
}

// codeResolved marks review transitions whose target depends on the approval
// code carried in the payload.
const codeResolved = "\x00code"

var rfiTransitions = map[transitionKey]string{
	{RFIStatusDraft, ActionSubmit}:            RFIStatusOpen,
	{RFIStatusOpen, ActionForward}:            RFIStatusPendingResponse,
	{RFIStatusOpen, ActionRespond}:            RFIStatusResponded,
	{RFIStatusPendingResponse, ActionRespond}: RFIStatusResponded,
	{RFIStatusResponded, ActionClose}:         RFIStatusClosed,
	{RFIStatusResponded, ActionReopen}:        RFIStatusOpen,
	{RFIStatusDraft, ActionVoid}:              RFIStatusVoid,
	{RFIStatusOpen, ActionVoid}:               RFIStatusVoid,
	{RFIStatusPendingResponse, ActionVoid}:    RFIStatusVoid,
}

var submittalTransitions = map[transitionKey]string{
	{SubmittalStatusNotSubmitted, ActionSubmit}:                      SubmittalStatusSubmitted,
	{SubmittalStatusSubmitted, ActionBeginReview}:                    SubmittalStatusUnderGCReview,
	{SubmittalStatusUnderGCReview, ActionForwardToArchitect}:         SubmittalStatusSubmittedToArchitect,
	{SubmittalStatusUnderGCReview, ActionReview}:                     codeResolved,
	{SubmittalStatusSubmittedToArchitect, ActionReview}:              codeResolved,
	{SubmittalStatusReviseResubmit, ActionCreateRevision}:            SubmittalStatusNotSubmitted,
}

var changeOrderTransitions = map[transitionKey]string{
	{COStatusDraft, ActionSubmit}:                      COStatusPendingEstimate,
	{COStatusPendingEstimate, ActionCompleteEstimate}:  COStatusEstimateComplete,
	{COStatusEstimateComplete, ActionRequestApproval}:  COStatusPendingInternal,
	{COStatusPendingInternal, ActionApproveInternal}:   COStatusInternalApproved,
	{COStatusInternalApproved, ActionSubmitToOwner}:    COStatusPendingOwner,
	{COStatusPendingOwner, ActionApproveOwner}:         COStatusApproved,
	{COStatusPendingOwner, ActionRejectOwner}:          COStatusRejected,
	{COStatusDraft, ActionVoid}:                        COStatusVoid,
	{COStatusPendingEstimate, ActionVoid}:              COStatusVoid,
	{COStatusEstimateComplete, ActionVoid}:             COStatusVoid,
	{COStatusPendingInternal, ActionVoid}:              COStatusVoid,
	{COStatusInternalApproved, ActionVoid}:             COStatusVoid,
	{COStatusPendingOwner, ActionVoid}:                 COStatusVoid,
}

func transitionTable(entityType repository.EntityType) map[transitionKey]string {
	switch entityType {
	case repository.EntityTypeRFI:
		return rfiTransitions
	case repository.EntityTypeSubmittal:
		return submittalTransitions
	case repository.EntityTypeChangeOrder:
		return changeOrderTransitions
	}
	return nil
}

var terminalStatuses = map[repository.EntityType]map[string]bool{
	repository.EntityTypeRFI: {
		RFIStatusClosed: true,
		RFIStatusVoid:   true,
	},
	repository.EntityTypeSubmittal: {
		SubmittalStatusApproved:        true,
		SubmittalStatusApprovedAsNoted: true,
		SubmittalStatusRejected:        true,
	},
	repository.EntityTypeChangeOrder: {
		COStatusApproved: true,
		COStatusRejected: true,
		COStatusVoid:     true,
	},
}

// initialStatus returns the status a freshly created item starts in.
func initialStatus(entityType repository.EntityType) string {
	switch entityType {
	case repository.EntityTypeSubmittal:
		return SubmittalStatusNotSubmitted
	default:
		return RFIStatusDraft // "draft" for both RFIs and change orders
	}
}

// isTerminal reports whether a status admits no further transitions.
func isTerminal(entityType repository.EntityType, status string) bool {
	return terminalStatuses[entityType][status]
}

// reviewOutcome maps a submittal approval code to the resulting status.
// Code D (rejected) is only legal from submitted_to_architect.
func reviewOutcome(fromStatus, code string) (string, bool) {
	switch code {
	case ApprovalCodeApproved:
		return SubmittalStatusApproved, true
	case ApprovalCodeApprovedAsNoted:
		return SubmittalStatusApprovedAsNoted, true
	case ApprovalCodeReviseResubmit:
		return SubmittalStatusReviseResubmit, true
	case ApprovalCodeRejected:
		if fromStatus == SubmittalStatusSubmittedToArchitect {
			return SubmittalStatusRejected, true
		}
	}
	return "", false
}

// resolveTarget returns the target status for (status, action) under the
// entity type's transition table, consulting the approval code for review
// transitions. Returns an INVALID_TRANSITION error carrying the current
// status, the attempted action and the legal actions.
func resolveTarget(entityType repository.EntityType, status string, action Action, approvalCode *string) (string, error) {
	table := transitionTable(entityType)
	target, ok := table[transitionKey{status, action}]
	if ok && target == codeResolved {
		if approvalCode == nil {
			return "", apperr.InvalidInput("approval_code", "review requires an approval code (A/B/C/D)")
		}
		target, ok = reviewOutcome(status, *approvalCode)
		if !ok {
			return "", invalidTransitionError(entityType, status, action).
				WithDetail("approval_code", *approvalCode)
		}
	}
	if !ok {
		return "", invalidTransitionError(entityType, status, action)
	}
	return target, nil
}

func invalidTransitionError(entityType repository.EntityType, status string, action Action) *apperr.Error {
	return apperr.Newf(apperr.CodeInvalidTransition, "action %q is not legal from status %q", action, status).
		WithDetail("entity_type", string(entityType)).
		WithDetail("current_status", status).
		WithDetail("attempted_action", string(action)).
		WithDetail("legal_actions", legalActions(entityType, status))
}

// legalActions lists the actions defined from a status, sorted for stable
// error payloads.
func legalActions(entityType repository.EntityType, status string) []string {
	var actions []string
	for key := range transitionTable(entityType) {
		if key.status == status {
			actions = append(actions, string(key.action))
		}
	}
	sort.Strings(actions)
	return actions
}

// isMonetary reports whether an action carries a monetary decision requiring
// an authority check.
func isMonetary(action Action) bool {
	return action == ActionApproveInternal || action == ActionApproveOwner
}

// isFirstSubmission reports whether the action is the one that first takes an
// item out of its draft state, which is when display numbers are allocated.
func isFirstSubmission(action Action) bool {
	return action == ActionSubmit
}
