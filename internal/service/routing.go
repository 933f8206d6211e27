package service

import "github.com/kubiknyc/SuperSiteHero-sub015/internal/repository"

// RouteContext carries the transition-specific inputs the ball-in-court
// router may consult. All fields are optional.
type RouteContext struct {
	// AssignedTo is an explicitly chosen responsible user, when the caller
	// named one (e.g. a specific reviewer on RFI submission).
	AssignedTo *string
	// ApproverRole is the role resolved by the authority check for
	// pending-internal-approval routing.
	ApproverRole string
	// SubmittedBy is the item's original submitter, for return-to-sender
	// statuses.
	SubmittedBy *string
}

// BallInCourtAssignment is the routed responsibility for a status. An empty
// role means no party is responsible (terminal statuses).
type BallInCourtAssignment struct {
	UserID *string
	Role   string
}

// RouteBallInCourt derives the responsible party for an item entering
// newStatus. Pure lookup; never mutates state. The assignment is persisted by
// the state machine core as part of the transition commit.
func RouteBallInCourt(entityType repository.EntityType, oldStatus, newStatus string, rc RouteContext) BallInCourtAssignment {
	if isTerminal(entityType, newStatus) || newStatus == RFIStatusVoid {
		return BallInCourtAssignment{}
	}

	role := routeRole(entityType, newStatus, rc)

	// An explicit assignee overrides the default user for the routed role;
	// revise-and-resubmit statuses fall back to the original submitter.
	assignment := BallInCourtAssignment{Role: role}
	switch {
	case rc.AssignedTo != nil:
		assignment.UserID = rc.AssignedTo
	case role == RoleSubcontractor && rc.SubmittedBy != nil:
		assignment.UserID = rc.SubmittedBy
	}
	return assignment
}

func routeRole(entityType repository.EntityType, newStatus string, rc RouteContext) string {
	switch entityType {
	case repository.EntityTypeRFI:
		switch newStatus {
		case RFIStatusOpen:
			return RoleGC
		case RFIStatusPendingResponse:
			return RoleArchitect
		case RFIStatusResponded:
			return RoleGC // distribution back to the field
		}

	case repository.EntityTypeSubmittal:
		switch newStatus {
		case SubmittalStatusSubmitted, SubmittalStatusUnderGCReview:
			return RoleGC
		case SubmittalStatusSubmittedToArchitect:
			return RoleArchitect
		case SubmittalStatusReviseResubmit, SubmittalStatusNotSubmitted:
			return RoleSubcontractor
		}

	case repository.EntityTypeChangeOrder:
		switch newStatus {
		case COStatusPendingEstimate:
			return RoleEstimating
		case COStatusEstimateComplete, COStatusInternalApproved:
			return RolePM
		case COStatusPendingInternal:
			if rc.ApproverRole != "" {
				return rc.ApproverRole
			}
			return RolePM
		case COStatusPendingOwner:
			return RoleOwner
		}
	}
	return ""
}
