package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposaldesk/internal/proposal"
)

func TestLoginAndAuthenticatedRequests(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/session/login":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "reviewer@example.com", body["email"])
			_, _ = w.Write([]byte(`{"token":"tok-1","user":{"id":"u1","name":"Riley","role":"reviewer"},"expiresAt":1}`))
		case "/api/proposals/p1/reviews":
			gotAuth = r.Header.Get("Authorization")
			assert.Equal(t, http.MethodPost, r.Method)
			_, _ = w.Write([]byte(`{"id":"p1","title":"Expo","status":"Reviewed","version":2,"comments":[],"replies":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	login, err := c.Login(context.Background(), "reviewer@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", login.Token)
	assert.Equal(t, "Riley", login.User.Name)

	p, err := c.WithToken(login.Token).Review(context.Background(), "p1", "Reviewed", "needs work")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, proposal.StatusReviewed, p.Status)
	assert.Equal(t, 2, p.Version)
}

func TestAPIErrorsAreDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":"FORBIDDEN","error":"only the proposer can edit proposal p1"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Edit(context.Background(), "p1", proposal.Content{Title: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "FORBIDDEN", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "only the proposer")
}

func TestThreadDecodesMixedComments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/proposals/p1/thread", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"proposalId":"p1","groups":[{"label":"Current Version","current":true,"updatedAt":"2025-01-01T00:00:00Z","items":[
			{"reviewerName":"Riley","text":"Add budget","timestamp":"2025-01-01T00:00:00Z","status":"Pending"},
			{"authorName":"Parker","authorType":"proposer","text":"Done","timestamp":"2025-01-01T01:00:00Z"}]}]}`))
	}))
	defer srv.Close()

	groups, err := New(srv.URL).Thread(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Items, 2)
	assert.IsType(t, proposal.ReviewerComment{}, groups[0].Items[0])
	assert.IsType(t, proposal.ProposerComment{}, groups[0].Items[1])
}
