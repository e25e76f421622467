package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const (
	idxProposals = "proposaldesk_proposals"
	idxComments  = "proposaldesk_comments"
)

// Meili implements Searcher and indexing via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *zap.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes. An
// unreachable server is not an error; Healthy reports false until the
// background probe sees it come up.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger,
		done:   make(chan struct{}),
	}
	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}
	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		filterable []string
		searchable []string
	}{
		{
			uid:        idxProposals,
			filterable: []string{"department", "proposerId", "status"},
			searchable: []string{"title", "description", "objectives", "venue"},
		},
		{
			uid:        idxComments,
			filterable: []string{"department", "proposerId", "proposalId"},
			searchable: []string{"text", "author", "title"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: idx.uid, PrimaryKey: "id"}); err != nil {
			m.logger.Debug("create index", zap.String("index", idx.uid), zap.Error(err))
		}
		index := m.client.Index(idx.uid)
		filterable := make([]interface{}, len(idx.filterable))
		for i, v := range idx.filterable {
			filterable[i] = v
		}
		if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
			m.logger.Warn("update filterable attributes", zap.String("index", idx.uid), zap.Error(err))
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			m.logger.Warn("update searchable attributes", zap.String("index", idx.uid), zap.Error(err))
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search runs one multi-search across the proposal and comment indexes.
func (m *Meili) Search(_ context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	targets := []struct {
		uid  string
		kind ResultType
	}{
		{idxProposals, ResultProposal},
		{idxComments, ResultComment},
	}
	var queries []*meili.SearchRequest
	for _, target := range targets {
		if q.FilterType != "" && q.FilterType != target.kind {
			continue
		}
		sr := &meili.SearchRequest{
			IndexUID:              target.uid,
			Query:                 q.Text,
			Limit:                 int64(limitOf(q)),
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
		}
		if filters := meiliFilters(q, target.kind); len(filters) > 0 {
			sr.Filter = filters
		}
		queries = append(queries, sr)
	}
	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: queries})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		kind := ResultProposal
		if sr.IndexUID == idxComments {
			kind = ResultComment
		}
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, kind))
		}
	}
	return results, total, nil
}

// meiliFilters builds the visibility and status filter expressions. Outer
// slice elements are ANDed, inner ones ORed.
func meiliFilters(q Query, kind ResultType) []interface{} {
	var filters []interface{}
	if len(q.Departments) > 0 {
		anyOf := make([]string, 0, len(q.Departments))
		for _, d := range q.Departments {
			anyOf = append(anyOf, fmt.Sprintf("department = %q", d))
		}
		filters = append(filters, anyOf)
	}
	if q.ProposerID != "" {
		filters = append(filters, fmt.Sprintf("proposerId = %q", q.ProposerID))
	}
	if q.Status != "" && kind == ResultProposal {
		filters = append(filters, fmt.Sprintf("status = %q", q.Status))
	}
	return filters
}

func hitToResult(hit meili.Hit, kind ResultType) Result {
	r := Result{
		Type:       kind,
		ID:         decodeString(hit, "id"),
		Department: decodeString(hit, "department"),
	}
	switch kind {
	case ResultProposal:
		r.ProposalID = r.ID
		r.Status = decodeString(hit, "status")
		r.Title = firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "description"), decodeString(hit, "description"))
	case ResultComment:
		r.ProposalID = decodeString(hit, "proposalId")
		r.Title = decodeString(hit, "title")
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "text"), decodeString(hit, "text"))
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	s, _ := formatted[key].(string)
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexProposal replaces the proposal document and its comment documents.
func (m *Meili) IndexProposal(p ProposalRecord, comments []CommentRecord) error {
	if _, err := m.client.Index(idxProposals).AddDocuments([]ProposalRecord{p}, nil); err != nil {
		return fmt.Errorf("index proposal %s: %w", p.ID, err)
	}
	if len(comments) == 0 {
		return nil
	}
	if _, err := m.client.Index(idxComments).AddDocuments(comments, nil); err != nil {
		return fmt.Errorf("index comments of %s: %w", p.ID, err)
	}
	return nil
}

// IndexProposals bulk-indexes proposals and comments.
func (m *Meili) IndexProposals(proposals []ProposalRecord, comments []CommentRecord) error {
	if len(proposals) > 0 {
		if _, err := m.client.Index(idxProposals).AddDocuments(proposals, nil); err != nil {
			return fmt.Errorf("bulk index proposals: %w", err)
		}
	}
	if len(comments) > 0 {
		if _, err := m.client.Index(idxComments).AddDocuments(comments, nil); err != nil {
			return fmt.Errorf("bulk index comments: %w", err)
		}
	}
	return nil
}
