package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"proposaldesk/internal/util"
)

type memDoc struct {
	fields    map[string]any
	createdAt time.Time
	updatedAt time.Time
}

// MemoryStore keeps documents in process memory. Transactions are
// serialized, which makes it a faithful stand-in for the row-locking
// Postgres store in tests and single-node development.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	docs map[string]map[string]memDoc
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]memDoc),
		now:  time.Now,
	}
}

// WithClock replaces the store clock used for ServerTimestamp and
// bookkeeping timestamps.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
	}
	return toDocument(collection, id, doc), nil
}

func (s *MemoryStore) QueryDocuments(ctx context.Context, collection string, q Query) ([]Document, error) {
	s.mu.RLock()
	view := make(map[string]memDoc, len(s.docs[collection]))
	for id, doc := range s.docs[collection] {
		view[id] = doc
	}
	s.mu.RUnlock()
	return runQuery(collection, view, q)
}

func (s *MemoryStore) SetDocument(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.SetDocument(ctx, collection, id, fields)
	})
}

func (s *MemoryStore) UpdateDocument(ctx context.Context, collection, id string, patch map[string]any) error {
	return s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.UpdateDocument(ctx, collection, id, patch)
	})
}

func (s *MemoryStore) AddDocument(ctx context.Context, collection string, fields map[string]any) (string, error) {
	var id string
	err := s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		id, err = tx.AddDocument(ctx, collection, fields)
		return err
	})
	return id, err
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{store: s, now: s.now(), writes: make(map[string]map[string]memDoc)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for collection, docs := range tx.writes {
		if s.docs[collection] == nil {
			s.docs[collection] = make(map[string]memDoc)
		}
		for id, doc := range docs {
			s.docs[collection][id] = doc
		}
	}
	return nil
}

// memTx buffers writes until RunInTx commits them.
type memTx struct {
	store  *MemoryStore
	now    time.Time
	writes map[string]map[string]memDoc
}

func (t *memTx) lookup(collection, id string) (memDoc, bool) {
	if doc, ok := t.writes[collection][id]; ok {
		return doc, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	doc, ok := t.store.docs[collection][id]
	return doc, ok
}

func (t *memTx) stage(collection, id string, doc memDoc) {
	if t.writes[collection] == nil {
		t.writes[collection] = make(map[string]memDoc)
	}
	t.writes[collection][id] = doc
}

func (t *memTx) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	doc, ok := t.lookup(collection, id)
	if !ok {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
	}
	return toDocument(collection, id, doc), nil
}

func (t *memTx) QueryDocuments(ctx context.Context, collection string, q Query) ([]Document, error) {
	t.store.mu.RLock()
	view := make(map[string]memDoc, len(t.store.docs[collection]))
	for id, doc := range t.store.docs[collection] {
		view[id] = doc
	}
	t.store.mu.RUnlock()
	for id, doc := range t.writes[collection] {
		view[id] = doc
	}
	return runQuery(collection, view, q)
}

func (t *memTx) SetDocument(ctx context.Context, collection, id string, fields map[string]any) error {
	normalized, _, err := normalize(resolveTimestamps(fields, t.now))
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	createdAt := t.now
	if existing, ok := t.lookup(collection, id); ok {
		createdAt = existing.createdAt
	}
	t.stage(collection, id, memDoc{fields: normalized, createdAt: createdAt, updatedAt: t.now})
	return nil
}

func (t *memTx) UpdateDocument(ctx context.Context, collection, id string, patch map[string]any) error {
	existing, ok := t.lookup(collection, id)
	if !ok {
		return fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}
	normalized, _, err := normalize(resolveTimestamps(patch, t.now))
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	merged := make(map[string]any, len(existing.fields)+len(normalized))
	for key, value := range existing.fields {
		merged[key] = value
	}
	for key, value := range normalized {
		merged[key] = value
	}
	t.stage(collection, id, memDoc{fields: merged, createdAt: existing.createdAt, updatedAt: t.now})
	return nil
}

func (t *memTx) AddDocument(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := util.NewID("")
	if err := t.SetDocument(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func toDocument(collection, id string, doc memDoc) Document {
	fields, _, err := normalize(doc.fields)
	if err != nil {
		fields = map[string]any{}
	}
	return Document{
		ID:         id,
		Collection: collection,
		Fields:     fields,
		CreatedAt:  doc.createdAt,
		UpdatedAt:  doc.updatedAt,
	}
}

func runQuery(collection string, view map[string]memDoc, q Query) ([]Document, error) {
	filters := make([]Filter, 0, len(q.Filters))
	for _, filter := range q.Filters {
		value, err := normalizeValue(filter.Value)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		filters = append(filters, Filter{Field: filter.Field, Value: value})
	}

	items := make([]Document, 0, len(view))
	for id, doc := range view {
		if !matches(doc.fields, filters) {
			continue
		}
		items = append(items, toDocument(collection, id, doc))
	}

	sort.SliceStable(items, func(i, j int) bool {
		if q.OrderBy != "" {
			a, aok := items[i].Fields[q.OrderBy]
			b, bok := items[j].Fields[q.OrderBy]
			switch {
			case aok && !bok:
				return !q.Descending
			case !aok && bok:
				return q.Descending
			case aok && bok:
				if cmp := compareValues(a, b); cmp != 0 {
					if q.Descending {
						return cmp > 0
					}
					return cmp < 0
				}
			}
		}
		return items[i].ID < items[j].ID
	})

	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

func matches(fields map[string]any, filters []Filter) bool {
	for _, filter := range filters {
		value, ok := fields[filter.Field]
		if !ok || !reflect.DeepEqual(value, filter.Value) {
			return false
		}
	}
	return true
}

func normalizeValue(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
