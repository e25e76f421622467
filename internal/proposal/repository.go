package proposal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"proposaldesk/internal/store"
)

const (
	CollectionProposals = "Proposals"
	historyName         = "History"
)

func historyCollection(proposalID string) string {
	return store.SubCollection(CollectionProposals, proposalID, historyName)
}

// historyID is the deterministic document id of the entry for version, which
// makes archiving the same version an upsert.
func historyID(version int) string {
	return "v" + strconv.Itoa(version)
}

func loadProposal(ctx context.Context, tx store.Tx, id string) (Proposal, error) {
	if strings.TrimSpace(id) == "" {
		return Proposal{}, fmt.Errorf("%w: proposal id is required", ErrValidation)
	}
	doc, err := tx.GetDocument(ctx, CollectionProposals, id)
	if errors.Is(err, store.ErrNotFound) {
		return Proposal{}, fmt.Errorf("%w: proposal %s", ErrNotFound, id)
	}
	if err != nil {
		return Proposal{}, fmt.Errorf("%w: load proposal: %w", ErrStore, err)
	}
	return decodeProposal(doc)
}

func decodeProposal(doc store.Document) (Proposal, error) {
	var p Proposal
	if err := doc.Decode(&p); err != nil {
		return Proposal{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	p.ID = doc.ID
	if p.Status == "" {
		p.Status = StatusPending
	}
	if p.Version < 1 {
		p.Version = 1
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = doc.CreatedAt
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = doc.UpdatedAt
	}
	return p, nil
}

func listHistory(ctx context.Context, tx store.Tx, proposalID string) ([]HistoryEntry, error) {
	docs, err := tx.QueryDocuments(ctx, historyCollection(proposalID), store.Query{OrderBy: "version", Descending: true})
	if err != nil {
		return nil, fmt.Errorf("%w: list history: %w", ErrStore, err)
	}
	entries := make([]HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		var entry HistoryEntry
		if err := doc.Decode(&entry); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
		entry.ID = doc.ID
		if entry.UpdatedAt.IsZero() {
			entry.UpdatedAt = doc.UpdatedAt
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// upsertHistory merges fields into the entry for version, creating it when
// absent.
func upsertHistory(ctx context.Context, tx store.Tx, proposalID string, version int, fields map[string]any) error {
	collection := historyCollection(proposalID)
	id := historyID(version)
	fields["version"] = version
	fields["updatedAt"] = store.ServerTimestamp

	_, err := tx.GetDocument(ctx, collection, id)
	switch {
	case err == nil:
		err = tx.UpdateDocument(ctx, collection, id, fields)
	case errors.Is(err, store.ErrNotFound):
		err = tx.SetDocument(ctx, collection, id, fields)
	}
	if err != nil {
		return fmt.Errorf("%w: archive version %d: %w", ErrStore, version, err)
	}
	return nil
}

// fieldsOf flattens v into a store field map using its JSON tags.
func fieldsOf(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// orEmpty keeps empty thread lists serialized as [] rather than null.
func orEmpty(comments Comments, replies []ProposerComment) (Comments, []ProposerComment) {
	if comments == nil {
		comments = Comments{}
	}
	if replies == nil {
		replies = []ProposerComment{}
	}
	return comments, replies
}
