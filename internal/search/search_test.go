package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposaldesk/internal/proposal"
)

type fakeLister struct {
	items []proposal.Proposal
	err   error
}

func (f fakeLister) List(context.Context, proposal.Filter) ([]proposal.Proposal, error) {
	return f.items, f.err
}

func sampleProposals() []proposal.Proposal {
	return []proposal.Proposal{
		{
			ID:         "p1",
			Content:    proposal.Content{Title: "Robotics Expo", Description: "Autonomous rovers on display"},
			Department: "CS",
			Status:     proposal.StatusPending,
			Version:    2,
			Comments: proposal.Comments{proposal.ReviewerComment{
				ReviewerName: "Alice", Text: "Rover safety plan missing", Timestamp: time.Now(),
			}},
		},
		{
			ID:         "p2",
			Content:    proposal.Content{Title: "Circuit Lab Day", Description: "Hands-on soldering"},
			Department: "EE",
			Status:     proposal.StatusApproved,
			Version:    1,
		},
	}
}

func TestStoreSearcherMatchesContentAndComments(t *testing.T) {
	s := NewStoreSearcher(fakeLister{items: sampleProposals()})

	results, total, err := s.Search(context.Background(), Query{Text: "ROVER"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, results, 2)
	assert.Equal(t, ResultProposal, results[0].Type)
	assert.Equal(t, "p1", results[0].ProposalID)
	assert.Equal(t, ResultComment, results[1].Type)
	assert.Equal(t, "p1-v2-0", results[1].ID)
}

func TestStoreSearcherScopesByDepartmentAndType(t *testing.T) {
	s := NewStoreSearcher(fakeLister{items: sampleProposals()})

	results, _, err := s.Search(context.Background(), Query{Text: "o", Departments: []string{"ee"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p2", results[0].ID)

	results, _, err = s.Search(context.Background(), Query{Text: "rover", FilterType: ResultComment})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ResultComment, results[0].Type)
}

func TestStoreSearcherPaginates(t *testing.T) {
	s := NewStoreSearcher(fakeLister{items: sampleProposals()})

	results, total, err := s.Search(context.Background(), Query{Text: "o", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, results, 1)

	results, _, err = s.Search(context.Background(), Query{Text: "o", Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestServiceFallsBackWithoutMeili(t *testing.T) {
	svc := NewService(nil, NewStoreSearcher(fakeLister{items: sampleProposals()}), nil)

	resp := svc.Search(context.Background(), Query{Text: "soldering"})
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "soldering", resp.Query)

	empty := svc.Search(context.Background(), Query{Text: ""})
	assert.NotNil(t, empty.Results)
	assert.Empty(t, empty.Results)

	n, err := svc.Reindex(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecordsIncludeArchivedComments(t *testing.T) {
	p := sampleProposals()[0]
	history := []proposal.HistoryEntry{{
		Version:  1,
		Comments: proposal.Comments{proposal.ReviewerComment{ReviewerName: "Bob", Text: "Budget?"}},
	}}

	record, comments := Records(p, history)
	assert.Equal(t, "Pending", record.Status)
	require.Len(t, comments, 2)
	assert.Equal(t, 1, comments[1].Version)
	assert.Equal(t, "Bob", comments[1].Author)
}
