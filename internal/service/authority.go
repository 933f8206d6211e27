package service

// Approval roles in ascending order of spending authority. Escalation walks
// this list one step at a time; the CEO has unlimited authority and never
// escalates further.
const (
	RolePM                 = "pm"
	RoleSeniorPM           = "senior_pm"
	RoleOperationsManager  = "operations_manager"
	RoleDirector           = "director"
	RoleVPOperations       = "vp_operations"
	RoleCFO                = "cfo"
	RoleCEO                = "ceo"
)

// Non-hierarchy roles that appear in routing and authority checks.
const (
	RoleOwner         = "owner"
	RoleGC            = "gc"
	RoleArchitect     = "architect"
	RoleSubcontractor = "subcontractor"
	RoleEstimating    = "estimating"
)

var roleHierarchy = []string{
	RolePM,
	RoleSeniorPM,
	RoleOperationsManager,
	RoleDirector,
	RoleVPOperations,
	RoleCFO,
	RoleCEO,
}

// Unlimited marks a role with no spending cap.
const Unlimited int64 = -1

// AuthorityLevel is one row of the role → spending-limit table. Amounts are
// cents.
type AuthorityLevel struct {
	Role                    string
	MaxAutoApprove          int64
	SecondApprovalThreshold int64
}

// AuthorityTable maps role → level. Injected into the resolver so it can be
// swapped per tenant or test.
type AuthorityTable map[string]AuthorityLevel

// DefaultAuthorityTable returns the standard spending-limit schedule.
func DefaultAuthorityTable() AuthorityTable {
	levels := []AuthorityLevel{
		{RolePM, 500_000, 400_000},                    // $5,000 / $4,000
		{RoleSeniorPM, 2_500_000, 2_000_000},          // $25,000 / $20,000
		{RoleOperationsManager, 10_000_000, 8_000_000}, // $100,000 / $80,000
		{RoleDirector, 25_000_000, 20_000_000},        // $250,000 / $200,000
		{RoleVPOperations, 100_000_000, 80_000_000},   // $1M / $800,000
		{RoleCFO, 500_000_000, 400_000_000},           // $5M / $4M
		{RoleCEO, Unlimited, Unlimited},
		{RoleOwner, Unlimited, Unlimited},
	}

	table := make(AuthorityTable, len(levels))
	for _, level := range levels {
		table[level.Role] = level
	}
	return table
}

// AuthorityDecision is the outcome of evaluating a role against an amount.
// Escalation is a valid business outcome, not an error: the caller routes the
// item to EscalateToRole instead of applying the approval.
type AuthorityDecision struct {
	AutoApprove            bool
	RequiresSecondApproval bool
	RequiresEscalation     bool
	EscalateToRole         string
}

// AuthorityResolver decides approve / approve-with-second-signoff / escalate
// for monetary transitions. Pure; no I/O.
type AuthorityResolver struct {
	table AuthorityTable
}

// NewAuthorityResolver creates a resolver over the given table.
func NewAuthorityResolver(table AuthorityTable) *AuthorityResolver {
	if table == nil {
		table = DefaultAuthorityTable()
	}
	return &AuthorityResolver{table: table}
}

// Evaluate applies the authority rule: within the role's auto-approve limit
// the decision is approve (flagging a second signoff above the threshold);
// over the limit the decision escalates to the next role in the hierarchy.
// Roles missing from the table have zero authority.
func (r *AuthorityResolver) Evaluate(role string, amount int64) AuthorityDecision {
	level, known := r.table[role]

	if known && withinLimit(amount, level.MaxAutoApprove) {
		return AuthorityDecision{
			AutoApprove:            true,
			RequiresSecondApproval: !withinLimit(amount, level.SecondApprovalThreshold),
		}
	}

	return AuthorityDecision{
		RequiresEscalation: true,
		EscalateToRole:     nextRole(role),
	}
}

// CoveringRole returns the lowest role in the hierarchy whose auto-approve
// limit covers the amount, so pending approvals route straight to a role that
// can actually decide. Falls back to the top of the hierarchy when no role
// covers it.
func (r *AuthorityResolver) CoveringRole(amount int64) string {
	for _, role := range roleHierarchy {
		if level, ok := r.table[role]; ok && withinLimit(amount, level.MaxAutoApprove) {
			return role
		}
	}
	return roleHierarchy[len(roleHierarchy)-1]
}

func withinLimit(amount, limit int64) bool {
	return limit == Unlimited || amount <= limit
}

// nextRole returns the role one step up the hierarchy. Roles outside the
// hierarchy escalate to its bottom; the top role escalates to itself.
func nextRole(role string) string {
	for i, r := range roleHierarchy {
		if r == role {
			if i+1 < len(roleHierarchy) {
				return roleHierarchy[i+1]
			}
			return r
		}
	}
	return roleHierarchy[0]
}
