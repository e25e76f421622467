package proposal

import (
	"context"
	"fmt"

	"proposaldesk/internal/store"
)

// Reader serves read-only views of proposals. It never writes.
type Reader struct {
	store store.DocumentStore
}

func NewReader(docs store.DocumentStore) *Reader {
	return &Reader{store: docs}
}

func (r *Reader) Get(ctx context.Context, proposalID string) (Proposal, error) {
	return loadProposal(ctx, r.store, proposalID)
}

// List returns proposals matching filter, most recently updated first.
func (r *Reader) List(ctx context.Context, filter Filter) ([]Proposal, error) {
	var filters []store.Filter
	if filter.Department != "" {
		filters = append(filters, store.Filter{Field: "department", Value: filter.Department})
	}
	if filter.ProposerID != "" {
		filters = append(filters, store.Filter{Field: "proposerId", Value: filter.ProposerID})
	}
	if filter.Status != "" {
		status, err := ParseStatus(string(filter.Status))
		if err != nil {
			return nil, err
		}
		filters = append(filters, store.Filter{Field: "status", Value: status})
	}

	docs, err := r.store.QueryDocuments(ctx, CollectionProposals, store.Query{
		Filters:    filters,
		OrderBy:    "updatedAt",
		Descending: true,
		Limit:      filter.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list proposals: %w", ErrStore, err)
	}
	items := make([]Proposal, 0, len(docs))
	for _, doc := range docs {
		p, err := decodeProposal(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, nil
}

// History returns the archived versions of a proposal, newest first.
func (r *Reader) History(ctx context.Context, proposalID string) ([]HistoryEntry, error) {
	if _, err := r.Get(ctx, proposalID); err != nil {
		return nil, err
	}
	return listHistory(ctx, r.store, proposalID)
}

// Thread loads a proposal and its history for AssembleThread.
func (r *Reader) Thread(ctx context.Context, proposalID string) (Proposal, []HistoryEntry, error) {
	p, err := r.Get(ctx, proposalID)
	if err != nil {
		return Proposal{}, nil, err
	}
	history, err := listHistory(ctx, r.store, proposalID)
	if err != nil {
		return Proposal{}, nil, err
	}
	return p, history, nil
}
