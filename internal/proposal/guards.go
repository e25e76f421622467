package proposal

import (
	"fmt"
	"net/mail"
	"strings"

	"proposaldesk/internal/rbac"
)

// GuardResult is the outcome of a precondition check. Guards are pure and
// run before any write.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts a denied result into an ErrForbidden error.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrForbidden, r.Reason)
}

type EditContext struct {
	ProposalID string
	OwnerID    string
	Status     Status
	Actor      ActingUser
}

// CanEdit evaluates whether the actor may change proposal content.
// Rules:
// - Actor must own the proposal
// - Status must be Pending or Reviewed
func CanEdit(ctx EditContext) GuardResult {
	if ctx.Actor.ID == "" || ctx.Actor.ID != ctx.OwnerID {
		return GuardResult{Reason: fmt.Sprintf("only the proposer can edit proposal %s", ctx.ProposalID)}
	}
	if !ctx.Status.Editable() {
		return GuardResult{Reason: fmt.Sprintf("proposal %s is %s and can no longer be edited", ctx.ProposalID, ctx.Status)}
	}
	return GuardResult{Allowed: true}
}

// CanReply evaluates whether the actor may reply on the proposal thread.
func CanReply(ctx EditContext) GuardResult {
	if ctx.Actor.ID == "" || ctx.Actor.ID != ctx.OwnerID {
		return GuardResult{Reason: fmt.Sprintf("only the proposer can reply on proposal %s", ctx.ProposalID)}
	}
	return GuardResult{Allowed: true}
}

type ReviewContext struct {
	ProposalID string
	Department string
	Actor      ActingUser
}

// CanReview evaluates whether the actor may submit a decision.
// Rules:
// - Role must allow reviewing
// - Reviewers only act on their own departments
func CanReview(ctx ReviewContext) GuardResult {
	if !rbac.Can(ctx.Actor.Role, rbac.ActionReview) {
		return GuardResult{Reason: fmt.Sprintf("role %q cannot review proposals", ctx.Actor.Role)}
	}
	if !ctx.Actor.CoversDepartment(ctx.Department) {
		return GuardResult{Reason: fmt.Sprintf("proposal %s belongs to department %q", ctx.ProposalID, ctx.Department)}
	}
	return GuardResult{Allowed: true}
}

// CanView reports whether the actor may read a proposal: owners always,
// reviewers within their departments, admins everywhere.
func CanView(p Proposal, actor ActingUser) GuardResult {
	switch {
	case actor.ID != "" && actor.ID == p.ProposerID:
		return GuardResult{Allowed: true}
	case actor.Role == rbac.RoleAdmin:
		return GuardResult{Allowed: true}
	case actor.Role == rbac.RoleReviewer && actor.CoversDepartment(p.Department):
		return GuardResult{Allowed: true}
	}
	return GuardResult{Reason: fmt.Sprintf("proposal %s is not visible to %s", p.ID, actor.ID)}
}

// ValidateContent checks required fields. Group registrations need the
// full set of group details.
func ValidateContent(c Content) error {
	var missing []string
	if strings.TrimSpace(c.Title) == "" {
		missing = append(missing, "title")
	}
	if c.Budget < 0 {
		return fmt.Errorf("%w: budget must not be negative", ErrValidation)
	}
	if !c.IsIndividual {
		if strings.TrimSpace(c.GroupName) == "" {
			missing = append(missing, "groupName")
		}
		if strings.TrimSpace(c.LeaderName) == "" {
			missing = append(missing, "leaderName")
		}
		if strings.TrimSpace(c.LeaderEmail) == "" {
			missing = append(missing, "leaderEmail")
		} else if _, err := mail.ParseAddress(c.LeaderEmail); err != nil {
			return fmt.Errorf("%w: leaderEmail is not a valid address", ErrValidation)
		}
		if c.MemberCount < 1 {
			missing = append(missing, "memberCount")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}
