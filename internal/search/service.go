package search

import (
	"context"

	"go.uber.org/zap"

	"proposaldesk/internal/proposal"
)

// HistoryLoader is the read side the reindex walks.
type HistoryLoader interface {
	ProposalLister
	History(ctx context.Context, proposalID string) ([]proposal.HistoryEntry, error)
}

// Service tries Meilisearch first and falls back to scanning the store.
type Service struct {
	meili    *Meili
	fallback Searcher
	logger   *zap.Logger
}

// NewService creates a search service. meili may be nil.
func NewService(meili *Meili, fallback Searcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{meili: meili, fallback: fallback, logger: logger}
}

func (s *Service) meiliReady() bool {
	return s.meili != nil && s.meili.Healthy()
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meiliReady() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("meilisearch error, falling back to store scan", zap.Error(err))
	}
	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error("store search failed", zap.Error(err))
		return Response{Results: []Result{}, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexProposal pushes p to Meilisearch in the background.
func (s *Service) IndexProposal(p proposal.Proposal) {
	if !s.meiliReady() {
		return
	}
	record, comments := Records(p, nil)
	go func() {
		if err := s.meili.IndexProposal(record, comments); err != nil {
			s.logger.Warn("index proposal", zap.String("proposal_id", p.ID), zap.Error(err))
		}
	}()
}

// Reindex loads every proposal with its history and bulk-indexes them. It
// returns the number of proposals pushed.
func (s *Service) Reindex(ctx context.Context, source HistoryLoader) (int, error) {
	if !s.meiliReady() {
		return 0, nil
	}
	items, err := source.List(ctx, proposal.Filter{})
	if err != nil {
		return 0, err
	}
	records := make([]ProposalRecord, 0, len(items))
	var comments []CommentRecord
	for _, p := range items {
		history, err := source.History(ctx, p.ID)
		if err != nil {
			return 0, err
		}
		record, threadComments := Records(p, history)
		records = append(records, record)
		comments = append(comments, threadComments...)
	}
	if err := s.meili.IndexProposals(records, comments); err != nil {
		return 0, err
	}
	s.logger.Info("search reindexed", zap.Int("proposals", len(records)), zap.Int("comments", len(comments)))
	return len(records), nil
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
