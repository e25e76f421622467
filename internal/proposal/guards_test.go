package proposal

import (
	"errors"
	"testing"

	"proposaldesk/internal/rbac"
)

func TestCanEdit(t *testing.T) {
	tests := []struct {
		name        string
		ctx         EditContext
		wantAllowed bool
		wantReason  string
	}{
		{
			name:        "owner can edit pending proposal",
			ctx:         EditContext{ProposalID: "p1", OwnerID: "u1", Status: StatusPending, Actor: ActingUser{ID: "u1"}},
			wantAllowed: true,
		},
		{
			name:        "owner can edit reviewed proposal",
			ctx:         EditContext{ProposalID: "p1", OwnerID: "u1", Status: StatusReviewed, Actor: ActingUser{ID: "u1"}},
			wantAllowed: true,
		},
		{
			name:       "cannot edit someone else's proposal",
			ctx:        EditContext{ProposalID: "p1", OwnerID: "u1", Status: StatusPending, Actor: ActingUser{ID: "u2", Role: rbac.RoleAdmin}},
			wantReason: "only the proposer can edit proposal p1",
		},
		{
			name:       "cannot edit approved proposal",
			ctx:        EditContext{ProposalID: "p1", OwnerID: "u1", Status: StatusApproved, Actor: ActingUser{ID: "u1"}},
			wantReason: "proposal p1 is Approved and can no longer be edited",
		},
		{
			name:       "anonymous actor never owns a proposal",
			ctx:        EditContext{ProposalID: "p1", Status: StatusPending},
			wantReason: "only the proposer can edit proposal p1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanEdit(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if !tt.wantAllowed {
				if result.Reason != tt.wantReason {
					t.Errorf("Reason = %q, want %q", result.Reason, tt.wantReason)
				}
				if !errors.Is(result.Error(), ErrForbidden) {
					t.Errorf("Error() = %v, want ErrForbidden", result.Error())
				}
			}
		})
	}
}

func TestCanReview(t *testing.T) {
	tests := []struct {
		name        string
		actor       ActingUser
		wantAllowed bool
	}{
		{name: "reviewer in department", actor: ActingUser{ID: "r1", Role: rbac.RoleReviewer, Departments: []string{"CS"}}, wantAllowed: true},
		{name: "reviewer department casing", actor: ActingUser{ID: "r1", Role: rbac.RoleReviewer, Departments: []string{" cs "}}, wantAllowed: true},
		{name: "reviewer elsewhere", actor: ActingUser{ID: "r2", Role: rbac.RoleReviewer, Departments: []string{"EE"}}},
		{name: "admin anywhere", actor: ActingUser{ID: "a1", Role: rbac.RoleAdmin}, wantAllowed: true},
		{name: "proposer", actor: ActingUser{ID: "u1", Role: rbac.RoleProposer, Departments: []string{"CS"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanReview(ReviewContext{ProposalID: "p1", Department: "CS", Actor: tt.actor})
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v (reason %q)", result.Allowed, tt.wantAllowed, result.Reason)
			}
		})
	}
}

func TestCanView(t *testing.T) {
	p := Proposal{ID: "p1", ProposerID: "u1", Department: "CS"}
	if !CanView(p, ActingUser{ID: "u1", Role: rbac.RoleProposer}).Allowed {
		t.Fatal("owner should see own proposal")
	}
	if CanView(p, ActingUser{ID: "u2", Role: rbac.RoleProposer, Departments: []string{"CS"}}).Allowed {
		t.Fatal("other proposers should not see the proposal")
	}
	if !CanView(p, ActingUser{ID: "r1", Role: rbac.RoleReviewer, Departments: []string{"CS"}}).Allowed {
		t.Fatal("department reviewer should see the proposal")
	}
}

func TestValidateContent(t *testing.T) {
	if err := ValidateContent(Content{Title: "Solo talk", IsIndividual: true}); err != nil {
		t.Fatalf("individual proposal: %v", err)
	}
	err := ValidateContent(Content{Title: "Team", GroupDetails: GroupDetails{GroupName: "G", LeaderName: "L", LeaderEmail: "not-an-email", MemberCount: 3}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for bad email, got %v", err)
	}
	if err := ValidateContent(Content{IsIndividual: true}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for missing title, got %v", err)
	}
}
