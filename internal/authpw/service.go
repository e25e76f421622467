// Package authpw provides email/password sign-in against the Users
// collection.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"proposaldesk/internal/proposal"
	"proposaldesk/internal/rbac"
	"proposaldesk/internal/store"
)

const CollectionUsers = "Users"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

type User struct {
	ID           string    `json:"-"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         rbac.Role `json:"role"`
	Departments  []string  `json:"departments"`
	PasswordHash string    `json:"passwordHash"`
}

func (u User) ActingUser() proposal.ActingUser {
	return proposal.ActingUser{
		ID:          u.ID,
		Name:        u.Name,
		Role:        rbac.Normalize(string(u.Role)),
		Departments: u.Departments,
	}
}

type Service struct {
	docs store.DocumentStore
	cost int
}

func NewService(docs store.DocumentStore) *Service {
	return &Service{docs: docs, cost: bcrypt.DefaultCost}
}

type NewUser struct {
	Email       string
	Name        string
	Password    string
	Role        rbac.Role
	Departments []string
}

// CreateUser registers an account. Emails are unique, case-insensitively.
func (s *Service) CreateUser(ctx context.Context, req NewUser) (User, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		return User{}, errors.New("email, password, and name are required")
	}
	if len(req.Password) < 8 {
		return User{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Role:         rbac.Normalize(string(req.Role)),
		Departments:  req.Departments,
		PasswordHash: string(hash),
	}
	err = s.docs.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		existing, err := tx.QueryDocuments(ctx, CollectionUsers, store.Query{
			Filters: []store.Filter{{Field: "email", Value: email}},
			Limit:   1,
		})
		if err != nil {
			return fmt.Errorf("lookup user: %w", err)
		}
		if len(existing) > 0 {
			return ErrEmailTaken
		}
		user.ID, err = tx.AddDocument(ctx, CollectionUsers, map[string]any{
			"email":        user.Email,
			"name":         user.Name,
			"role":         user.Role,
			"departments":  user.Departments,
			"passwordHash": user.PasswordHash,
			"createdAt":    store.ServerTimestamp,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// SignIn verifies the password and returns the account. Unknown emails and
// wrong passwords fail the same way.
func (s *Service) SignIn(ctx context.Context, email, password string) (User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return User{}, errors.New("email and password are required")
	}
	user, err := s.findByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, email, current, next string) error {
	user, err := s.SignIn(ctx, email, current)
	if err != nil {
		return err
	}
	if len(next) < 8 {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.docs.UpdateDocument(ctx, CollectionUsers, user.ID, map[string]any{"passwordHash": string(hash)}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// HasUsers reports whether any account exists.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	docs, err := s.docs.QueryDocuments(ctx, CollectionUsers, store.Query{Limit: 1})
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return len(docs) > 0, nil
}

// User loads an account by id.
func (s *Service) User(ctx context.Context, id string) (User, error) {
	doc, err := s.docs.GetDocument(ctx, CollectionUsers, id)
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	var user User
	if err := doc.Decode(&user); err != nil {
		return User{}, err
	}
	user.ID = doc.ID
	return user, nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (User, error) {
	docs, err := s.docs.QueryDocuments(ctx, CollectionUsers, store.Query{
		Filters: []store.Filter{{Field: "email", Value: normalizeEmail(email)}},
		Limit:   1,
	})
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if len(docs) == 0 {
		return User{}, store.ErrNotFound
	}
	var user User
	if err := docs[0].Decode(&user); err != nil {
		return User{}, err
	}
	user.ID = docs[0].ID
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
