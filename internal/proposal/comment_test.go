package proposal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentsDiscriminateByAuthorField(t *testing.T) {
	raw := `[
		{"reviewerName":"Alice","text":"fix budget","timestamp":"2026-04-01T10:00:00Z","status":"reviewed"},
		{"authorName":"Priya","authorType":"proposer","text":"done","timestamp":"2026-04-01T11:00:00Z"}
	]`

	var comments Comments
	require.NoError(t, json.Unmarshal([]byte(raw), &comments))
	require.Len(t, comments, 2)

	reviewer, ok := comments[0].(ReviewerComment)
	require.True(t, ok)
	assert.Equal(t, StatusReviewed, reviewer.Status)

	proposer, ok := comments[1].(ProposerComment)
	require.True(t, ok)
	assert.Equal(t, "proposer", proposer.AuthorType)

	out, err := json.Marshal(comments)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"authorName":"Alice"`)
	assert.Contains(t, string(out), `"reviewerName":"Alice"`)
}

func TestCommentsRejectAmbiguousAuthors(t *testing.T) {
	var comments Comments
	err := json.Unmarshal([]byte(`[{"text":"who am i"}]`), &comments)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`[{"reviewerName":"A","authorName":"B","text":"both"}]`), &comments)
	assert.Error(t, err)

	_, err = json.Marshal(Comments{ReviewerComment{Text: "anonymous"}})
	assert.Error(t, err)
}

func TestEmptyCommentsEncodeAsArray(t *testing.T) {
	out, err := json.Marshal(struct {
		Comments Comments `json:"comments"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"comments":[]}`, string(out))
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"pending":   StatusPending,
		"REVIEWED":  StatusReviewed,
		" Approved": StatusApproved,
		"rejected":  StatusRejected,
	}
	for input, want := range cases {
		got, err := ParseStatus(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseStatus("archived")
	assert.ErrorIs(t, err, ErrValidation)
}
