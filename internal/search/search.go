// Package search indexes proposals and reviewer comments for full-text
// lookup. Meilisearch is used when configured and healthy; otherwise a
// scan of the document store answers the query.
package search

import "context"

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultProposal ResultType = "proposal"
	ResultComment  ResultType = "comment"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type       ResultType `json:"type"`
	ID         string     `json:"id"`
	ProposalID string     `json:"proposalId"`
	Title      string     `json:"title"`
	Snippet    string     `json:"snippet"`
	Department string     `json:"department"`
	Status     string     `json:"status,omitempty"`
}

// Query describes a search request. Departments and ProposerID scope the
// results to what the caller may see; empty means unrestricted.
type Query struct {
	Text        string
	FilterType  ResultType
	Departments []string
	ProposerID  string
	Status      string
	Limit       int
	Offset      int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
}

// ProposalRecord is the data indexed for a proposal.
type ProposalRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Objectives  string `json:"objectives"`
	Venue       string `json:"venue"`
	Department  string `json:"department"`
	ProposerID  string `json:"proposerId"`
	Status      string `json:"status"`
	Version     int    `json:"version"`
}

// CommentRecord is the data indexed for a live or archived comment.
type CommentRecord struct {
	ID         string `json:"id"`
	ProposalID string `json:"proposalId"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Text       string `json:"text"`
	Department string `json:"department"`
	ProposerID string `json:"proposerId"`
	Version    int    `json:"version"`
}

const defaultLimit = 20

func limitOf(q Query) int {
	if q.Limit <= 0 {
		return defaultLimit
	}
	return q.Limit
}
