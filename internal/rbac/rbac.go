package rbac

import "strings"

type Role string
type Action string

const (
	RoleProposer Role = "proposer"
	RoleReviewer Role = "reviewer"
	RoleAdmin    Role = "admin"
)

const (
	ActionRead   Action = "read"
	ActionSubmit Action = "submit"
	ActionReview Action = "review"
	ActionReport Action = "report"
	ActionAdmin  Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleReviewer:
		return action == ActionRead || action == ActionReview || action == ActionReport
	case RoleProposer:
		return action == ActionRead || action == ActionSubmit
	default:
		return false
	}
}

// Normalize maps a stored role string onto a known role; unknown values
// get the least privileged one.
func Normalize(role string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(role))) {
	case RoleProposer:
		return RoleProposer
	case RoleReviewer:
		return RoleReviewer
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleProposer
	}
}
