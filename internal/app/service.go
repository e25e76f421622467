package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"proposaldesk/internal/auth"
	"proposaldesk/internal/authpw"
	"proposaldesk/internal/config"
	"proposaldesk/internal/email"
	"proposaldesk/internal/export"
	"proposaldesk/internal/proposal"
	"proposaldesk/internal/rbac"
	"proposaldesk/internal/search"
	"proposaldesk/internal/session"
	"proposaldesk/internal/store"
)

type Session struct {
	Token     string
	User      proposal.ActingUser
	JTI       string
	ExpiresAt time.Time
}

// Deps are the optional collaborators of a Service. Nil search, export and
// session components fall back to store-backed or in-process versions.
type Deps struct {
	Docs     store.DocumentStore
	Sessions session.Store
	Search   *search.Service
	Exports  *export.Service
	Mailer   *email.Service
	Logger   *zap.Logger
}

type Service struct {
	cfg      config.Config
	docs     store.DocumentStore
	logger   *zap.Logger
	engine   *proposal.Engine
	reviews  *proposal.ReviewWorkflow
	edits    *proposal.EditWorkflow
	reader   *proposal.Reader
	users    *authpw.Service
	sessions session.Store
	search   *search.Service
	exports  *export.Service
	mailer   *email.Service
	now      func() time.Time
}

func New(cfg config.Config, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := proposal.NewEngine(deps.Docs, logger)
	reader := proposal.NewReader(deps.Docs)

	s := &Service{
		cfg:      cfg,
		docs:     deps.Docs,
		logger:   logger,
		engine:   engine,
		reviews:  proposal.NewReviewWorkflow(engine),
		edits:    proposal.NewEditWorkflow(engine),
		reader:   reader,
		users:    authpw.NewService(deps.Docs),
		sessions: deps.Sessions,
		search:   deps.Search,
		exports:  deps.Exports,
		mailer:   deps.Mailer,
		now:      time.Now,
	}
	if s.sessions == nil {
		s.sessions = session.NewMemoryStore()
	}
	if s.search == nil {
		s.search = search.NewService(nil, search.NewStoreSearcher(reader), logger)
	}
	if s.exports == nil {
		s.exports = export.NewService(reader, nil, logger)
	}
	return s
}

// DemoUser is an account seeded into an empty user collection.
type DemoUser struct {
	Email       string
	Name        string
	Role        rbac.Role
	Departments []string
}

var DemoUsers = []DemoUser{
	{Email: "admin@proposaldesk.local", Name: "Avery Admin", Role: rbac.RoleAdmin},
	{Email: "reviewer@proposaldesk.local", Name: "Riley Reviewer", Role: rbac.RoleReviewer, Departments: []string{"Computer Science"}},
	{Email: "math.reviewer@proposaldesk.local", Name: "Morgan Reviewer", Role: rbac.RoleReviewer, Departments: []string{"Mathematics"}},
	{Email: "proposer@proposaldesk.local", Name: "Parker Proposer", Role: rbac.RoleProposer, Departments: []string{"Computer Science"}},
}

// Bootstrap seeds DemoUsers with the configured password when no account
// exists yet.
func (s *Service) Bootstrap(ctx context.Context) error {
	exists, err := s.users.HasUsers(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	for _, demo := range DemoUsers {
		_, err := s.users.CreateUser(ctx, authpw.NewUser{
			Email:       demo.Email,
			Name:        demo.Name,
			Password:    s.cfg.BootstrapPassword,
			Role:        demo.Role,
			Departments: demo.Departments,
		})
		if err != nil && !errors.Is(err, authpw.ErrEmailTaken) {
			return fmt.Errorf("seed user %s: %w", demo.Email, err)
		}
	}
	s.logger.Info("seeded demo users", zap.Int("count", len(DemoUsers)))
	return nil
}

func (s *Service) Login(ctx context.Context, address, password string) (Session, error) {
	if strings.TrimSpace(address) == "" || password == "" {
		return Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "email and password are required", nil)
	}
	user, err := s.users.SignIn(ctx, address, password)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user.ActingUser())
}

func (s *Service) issueSession(ctx context.Context, user proposal.ActingUser) (Session, error) {
	claims := auth.NewClaims(user, s.cfg.AccessTTL, s.now())
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), claims)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.Save(ctx, claims.JTI, user, claims.ExpiresAt()); err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user, JTI: claims.JTI, ExpiresAt: claims.ExpiresAt()}, nil
}

// SessionFromToken verifies the token signature and that it has not been
// revoked by logout.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	user, err := s.sessions.Lookup(ctx, claims.JTI)
	if errors.Is(err, session.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user, JTI: claims.JTI, ExpiresAt: claims.ExpiresAt()}, nil
}

func (s *Service) Logout(ctx context.Context, sess Session) error {
	if sess.JTI == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, sess.JTI)
}

// ChangePassword replaces the caller's password after checking the current
// one.
func (s *Service) ChangePassword(ctx context.Context, actor proposal.ActingUser, current, next string) error {
	user, err := s.users.User(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: user %s", proposal.ErrNotFound, actor.ID)
		}
		return err
	}
	return s.users.ChangePassword(ctx, user.Email, current, next)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.docs.Ping(ctx)
}

func requireAction(actor proposal.ActingUser, action rbac.Action) error {
	if !rbac.Can(actor.Role, action) {
		return fmt.Errorf("%w: role %q cannot %s", proposal.ErrForbidden, actor.Role, action)
	}
	return nil
}

// ListProposals returns the proposals visible to actor. Proposers see their
// own; reviewers see their departments.
func (s *Service) ListProposals(ctx context.Context, actor proposal.ActingUser, filter proposal.Filter) ([]proposal.Proposal, error) {
	switch actor.Role {
	case rbac.RoleAdmin:
	case rbac.RoleReviewer:
		if filter.Department != "" && !actor.CoversDepartment(filter.Department) {
			return nil, fmt.Errorf("%w: department %q is outside your review scope", proposal.ErrForbidden, filter.Department)
		}
	default:
		filter.ProposerID = actor.ID
	}
	items, err := s.reader.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(items, func(p proposal.Proposal) bool {
		return !proposal.CanView(p, actor).Allowed
	}), nil
}

func (s *Service) GetProposal(ctx context.Context, actor proposal.ActingUser, proposalID string) (proposal.Proposal, error) {
	p, err := s.reader.Get(ctx, proposalID)
	if err != nil {
		return proposal.Proposal{}, err
	}
	if err := proposal.CanView(p, actor).Error(); err != nil {
		return proposal.Proposal{}, err
	}
	return p, nil
}

func (s *Service) SubmitProposal(ctx context.Context, actor proposal.ActingUser, content proposal.Content, department string) (proposal.Proposal, error) {
	if err := requireAction(actor, rbac.ActionSubmit); err != nil {
		return proposal.Proposal{}, err
	}
	p, err := s.edits.Submit(ctx, content, department, actor)
	if err != nil {
		return proposal.Proposal{}, err
	}
	s.search.IndexProposal(p)
	return p, nil
}

func (s *Service) EditProposal(ctx context.Context, actor proposal.ActingUser, proposalID string, content proposal.Content) (proposal.Proposal, error) {
	p, err := s.edits.Edit(ctx, proposalID, content, actor)
	if err != nil {
		return proposal.Proposal{}, err
	}
	s.search.IndexProposal(p)
	return p, nil
}

func (s *Service) Review(ctx context.Context, actor proposal.ActingUser, proposalID string, decision proposal.Status, text string) (proposal.Proposal, error) {
	p, err := s.reviews.SubmitReview(ctx, proposalID, decision, text, actor)
	if err != nil {
		return proposal.Proposal{}, err
	}
	s.search.IndexProposal(p)
	s.notifyReview(p, actor, text)
	return p, nil
}

// notifyReview emails the proposer in the background. Failures are logged.
func (s *Service) notifyReview(p proposal.Proposal, reviewer proposal.ActingUser, text string) {
	if !s.mailer.IsConfigured() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		owner, err := s.users.User(ctx, p.ProposerID)
		if err != nil {
			s.logger.Warn("review notification: load proposer", zap.String("proposal_id", p.ID), zap.Error(err))
			return
		}
		err = s.mailer.SendReviewDecision(owner.Email, email.ReviewDecisionData{
			ProposerName: owner.Name,
			ReviewerName: cmp.Or(reviewer.Name, reviewer.ID),
			Title:        p.Title,
			Status:       p.Status.String(),
			Version:      p.Version,
			Comment:      text,
			ProposalURL:  s.mailer.ProposalURL(p.ID),
		})
		if err != nil {
			s.logger.Warn("review notification failed", zap.String("proposal_id", p.ID), zap.Error(err))
		}
	}()
}

func (s *Service) Reply(ctx context.Context, actor proposal.ActingUser, proposalID, text string) (proposal.Proposal, error) {
	p, err := s.edits.Reply(ctx, proposalID, text, actor)
	if err != nil {
		return proposal.Proposal{}, err
	}
	s.search.IndexProposal(p)
	return p, nil
}

// SetStatus is the administrative status override.
func (s *Service) SetStatus(ctx context.Context, actor proposal.ActingUser, proposalID string, status proposal.Status, remarks string) (proposal.Proposal, error) {
	if err := requireAction(actor, rbac.ActionAdmin); err != nil {
		return proposal.Proposal{}, err
	}
	p, err := s.engine.ApplyStatusTransition(ctx, proposalID, status, remarks, actor)
	if err != nil {
		return proposal.Proposal{}, err
	}
	s.search.IndexProposal(p)
	return p, nil
}

func (s *Service) Thread(ctx context.Context, actor proposal.ActingUser, proposalID string) ([]proposal.ThreadGroup, error) {
	p, history, err := s.reader.Thread(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if err := proposal.CanView(p, actor).Error(); err != nil {
		return nil, err
	}
	groups := slices.Collect(proposal.AssembleThread(p, history))
	if groups == nil {
		groups = []proposal.ThreadGroup{}
	}
	return groups, nil
}

func (s *Service) History(ctx context.Context, actor proposal.ActingUser, proposalID string) ([]proposal.HistoryEntry, error) {
	if _, err := s.GetProposal(ctx, actor, proposalID); err != nil {
		return nil, err
	}
	return s.reader.History(ctx, proposalID)
}

func (s *Service) Export(ctx context.Context, actor proposal.ActingUser, req export.Request) (*export.Result, error) {
	if _, err := s.GetProposal(ctx, actor, req.ProposalID); err != nil {
		return nil, err
	}
	return s.exports.Export(ctx, req)
}

// Report builds the XLSX summary of every proposal visible to actor.
func (s *Service) Report(ctx context.Context, actor proposal.ActingUser, filter proposal.Filter) (*export.Result, error) {
	if err := requireAction(actor, rbac.ActionReport); err != nil {
		return nil, err
	}
	items, err := s.ListProposals(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	return export.ProposalReport(items, s.now())
}

// Search scopes the query to what actor may read.
func (s *Service) Search(ctx context.Context, actor proposal.ActingUser, q search.Query) search.Response {
	switch actor.Role {
	case rbac.RoleAdmin:
	case rbac.RoleReviewer:
		q.Departments = actor.Departments
		if len(q.Departments) == 0 {
			return search.Response{Results: []search.Result{}, Query: q.Text}
		}
	default:
		q.ProposerID = actor.ID
	}
	return s.search.Search(ctx, q)
}

// Reindex pushes every proposal to the search index.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	return s.search.Reindex(ctx, s.reader)
}
