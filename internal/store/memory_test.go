package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func TestMemoryStoreSetGetNormalizesFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore().WithClock(fixedClock())

	require.NoError(t, s.SetDocument(ctx, "Proposals", "p1", map[string]any{
		"title":     "Robotics Expo",
		"version":   2,
		"createdAt": ServerTimestamp,
		"comments":  []map[string]any{{"text": "ok"}},
	}))

	doc, err := s.GetDocument(ctx, "Proposals", "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", doc.ID)
	assert.Equal(t, float64(2), doc.Fields["version"])
	assert.Equal(t, "2026-03-01T09:00:00Z", doc.Fields["createdAt"])
	assert.Equal(t, []any{map[string]any{"text": "ok"}}, doc.Fields["comments"])
}

func TestMemoryStoreGetMissing(t *testing.T) {
	_, err := NewMemoryStore().GetDocument(context.Background(), "Proposals", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUpdateMergesAndKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.SetDocument(ctx, "Proposals", "p1", map[string]any{"title": "A", "status": "Pending"}))
	before, err := s.GetDocument(ctx, "Proposals", "p1")
	require.NoError(t, err)

	require.NoError(t, s.UpdateDocument(ctx, "Proposals", "p1", map[string]any{"status": "Reviewed"}))
	after, err := s.GetDocument(ctx, "Proposals", "p1")
	require.NoError(t, err)

	assert.Equal(t, "A", after.Fields["title"])
	assert.Equal(t, "Reviewed", after.Fields["status"])
	assert.Equal(t, before.CreatedAt, after.CreatedAt)

	err = s.UpdateDocument(ctx, "Proposals", "missing", map[string]any{"status": "Reviewed"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreRunInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SetDocument(ctx, "Proposals", "p1", map[string]any{"version": 1}))

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.UpdateDocument(ctx, "Proposals", "p1", map[string]any{"version": 2}))
		require.NoError(t, tx.SetDocument(ctx, SubCollection("Proposals", "p1", "History"), "v1", map[string]any{"version": 1}))

		staged, err := tx.GetDocument(ctx, "Proposals", "p1")
		require.NoError(t, err)
		assert.Equal(t, float64(2), staged.Fields["version"])
		return boom
	})
	require.ErrorIs(t, err, boom)

	doc, err := s.GetDocument(ctx, "Proposals", "p1")
	require.NoError(t, err)
	assert.Equal(t, float64(1), doc.Fields["version"])

	history, err := s.QueryDocuments(ctx, SubCollection("Proposals", "p1", "History"), Query{})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStoreQueryFiltersOrdersAndLimits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SetDocument(ctx, "Proposals", "a", map[string]any{"department": "CS", "version": 3}))
	require.NoError(t, s.SetDocument(ctx, "Proposals", "b", map[string]any{"department": "CS", "version": 1}))
	require.NoError(t, s.SetDocument(ctx, "Proposals", "c", map[string]any{"department": "EE", "version": 2}))
	require.NoError(t, s.SetDocument(ctx, "Proposals", "d", map[string]any{"department": "CS"}))

	docs, err := s.QueryDocuments(ctx, "Proposals", Query{
		Filters:    []Filter{{Field: "department", Value: "CS"}},
		OrderBy:    "version",
		Descending: true,
	})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"d", "a", "b"}, ids(docs))

	docs, err = s.QueryDocuments(ctx, "Proposals", Query{OrderBy: "version", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(docs))
}

func TestMemoryStoreAddDocumentAssignsID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.AddDocument(ctx, "Users", map[string]any{"name": "Dana"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.GetDocument(ctx, "Users", id)
	require.NoError(t, err)
	assert.Equal(t, "Dana", doc.Fields["name"])
}

func TestDocumentDecode(t *testing.T) {
	doc := Document{ID: "p1", Collection: "Proposals", Fields: map[string]any{"title": "Expo", "version": float64(4)}}
	var out struct {
		Title   string `json:"title"`
		Version int    `json:"version"`
	}
	require.NoError(t, doc.Decode(&out))
	assert.Equal(t, "Expo", out.Title)
	assert.Equal(t, 4, out.Version)
}

func TestUnresolvedServerTimestampFailsToEncode(t *testing.T) {
	_, _, err := normalize(map[string]any{"at": ServerTimestamp})
	assert.Error(t, err)
}

func ids(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.ID)
	}
	return out
}
