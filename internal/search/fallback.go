package search

import (
	"context"
	"slices"
	"strings"

	"proposaldesk/internal/proposal"
)

// ProposalLister is the read side of the proposal store.
type ProposalLister interface {
	List(ctx context.Context, filter proposal.Filter) ([]proposal.Proposal, error)
}

// StoreSearcher answers queries by scanning proposals in the document
// store with case-insensitive substring matching over content and live
// comments.
type StoreSearcher struct {
	proposals ProposalLister
}

func NewStoreSearcher(proposals ProposalLister) *StoreSearcher {
	return &StoreSearcher{proposals: proposals}
}

func (s *StoreSearcher) Search(ctx context.Context, q Query) ([]Result, int, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" {
		return nil, 0, nil
	}
	filter := proposal.Filter{ProposerID: q.ProposerID}
	if q.Status != "" {
		filter.Status = proposal.Status(q.Status)
	}
	items, err := s.proposals.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	var matches []Result
	for _, p := range items {
		if len(q.Departments) > 0 && !slices.ContainsFunc(q.Departments, func(d string) bool {
			return strings.EqualFold(d, p.Department)
		}) {
			continue
		}
		if q.FilterType == "" || q.FilterType == ResultProposal {
			if field, ok := firstMatch(needle, p.Title, p.Description, p.Objectives, p.Venue); ok {
				matches = append(matches, Result{
					Type:       ResultProposal,
					ID:         p.ID,
					ProposalID: p.ID,
					Title:      p.Title,
					Snippet:    field,
					Department: p.Department,
					Status:     p.Status.String(),
				})
			}
		}
		if q.FilterType == "" || q.FilterType == ResultComment {
			_, comments := Records(p, nil)
			for _, c := range comments {
				if strings.Contains(strings.ToLower(c.Text), needle) {
					matches = append(matches, Result{
						Type:       ResultComment,
						ID:         c.ID,
						ProposalID: p.ID,
						Title:      p.Title,
						Snippet:    c.Text,
						Department: p.Department,
					})
				}
			}
		}
	}

	total := len(matches)
	start := min(max(q.Offset, 0), total)
	end := min(start+limitOf(q), total)
	return matches[start:end], total, nil
}

func firstMatch(needle string, fields ...string) (string, bool) {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return field, true
		}
	}
	return "", false
}
