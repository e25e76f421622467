package authpw

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"proposaldesk/internal/rbac"
	"proposaldesk/internal/store"
)

func newTestService() *Service {
	svc := NewService(store.NewMemoryStore())
	svc.cost = bcrypt.MinCost
	return svc
}

func TestCreateUserAndSignIn(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, NewUser{
		Email:       "Alice@Example.edu",
		Name:        "Alice",
		Password:    "correct-horse",
		Role:        rbac.RoleReviewer,
		Departments: []string{"CS"},
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if created.ID == "" || created.Email != "alice@example.edu" {
		t.Fatalf("unexpected user: %+v", created)
	}

	user, err := svc.SignIn(ctx, " alice@example.EDU ", "correct-horse")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	actor := user.ActingUser()
	if actor.ID != created.ID || actor.Role != rbac.RoleReviewer || len(actor.Departments) != 1 {
		t.Fatalf("unexpected acting user: %+v", actor)
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.CreateUser(ctx, NewUser{Email: "p@example.edu", Name: "P", Password: "password-1"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if _, err := svc.SignIn(ctx, "p@example.edu", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@example.edu", "password-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", err)
	}
	if _, err := svc.SignIn(ctx, "", ""); err == nil {
		t.Fatal("expected error for empty credentials")
	}
}

func TestCreateUserRejectsDuplicatesAndShortPasswords(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.CreateUser(ctx, NewUser{Email: "dup@example.edu", Name: "D", Password: "password-1"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if _, err := svc.CreateUser(ctx, NewUser{Email: "DUP@example.edu", Name: "D2", Password: "password-2"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := svc.CreateUser(ctx, NewUser{Email: "short@example.edu", Name: "S", Password: "short"}); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestChangePassword(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.CreateUser(ctx, NewUser{Email: "c@example.edu", Name: "C", Password: "password-1"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := svc.ChangePassword(ctx, "c@example.edu", "password-1", "password-2"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := svc.SignIn(ctx, "c@example.edu", "password-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should no longer work, got %v", err)
	}
	if _, err := svc.SignIn(ctx, "c@example.edu", "password-2"); err != nil {
		t.Fatalf("new password should work: %v", err)
	}
	if err := svc.ChangePassword(ctx, "c@example.edu", "password-2", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("ChangePassword() error = %v, want ErrWeakPassword", err)
	}
}

func TestHasUsers(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if has, err := svc.HasUsers(ctx); err != nil || has {
		t.Fatalf("HasUsers() = %v, %v; want false", has, err)
	}
	if _, err := svc.CreateUser(ctx, NewUser{Email: "h@example.edu", Name: "H", Password: "password-1"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if has, err := svc.HasUsers(ctx); err != nil || !has {
		t.Fatalf("HasUsers() = %v, %v; want true", has, err)
	}
}

func TestUserByID(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, NewUser{Email: "pat@example.edu", Name: "Pat", Password: "long-enough"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	user, err := svc.User(ctx, created.ID)
	if err != nil {
		t.Fatalf("User() error = %v", err)
	}
	if user.ID != created.ID || user.Email != "pat@example.edu" || user.Role != rbac.RoleProposer {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := svc.User(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("User(missing) error = %v, want ErrNotFound", err)
	}
}
