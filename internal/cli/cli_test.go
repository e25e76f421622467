package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposaldesk/internal/proposal"
)

func init() {
	color.NoColor = true
}

func TestPrintThread(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 0, 0, time.Local)
	groups := []proposal.ThreadGroup{
		{
			Label: proposal.CurrentVersionLabel,
			Items: proposal.Comments{
				proposal.ReviewerComment{ReviewerName: "Riley", Text: "Add a budget", Timestamp: at, Status: proposal.StatusReviewed},
				proposal.ProposerComment{AuthorName: "Parker", AuthorType: "proposer", Text: "Added", Timestamp: at.Add(time.Hour)},
			},
		},
		{Label: "Version 1", Remarks: "Version 1 comments archived", Items: proposal.Comments{
			proposal.ReviewerComment{ReviewerName: "Morgan", Text: "Which venue?", Timestamp: at.Add(-time.Hour)},
		}},
	}

	var buf bytes.Buffer
	printThread(&buf, groups)
	out := buf.String()

	assert.Contains(t, out, "Current Version\n")
	assert.Contains(t, out, "[2025-01-02 03:04] Riley Reviewed\n    Add a budget")
	assert.Contains(t, out, "Parker (proposer)\n    Added")
	assert.Contains(t, out, "  Version 1 comments archived\n")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Added")), bytes.Index(buf.Bytes(), []byte("Which venue?")))
}

func TestPrintThreadEmpty(t *testing.T) {
	var buf bytes.Buffer
	printThread(&buf, nil)
	assert.Equal(t, "No comments yet.\n", buf.String())
}

func TestPrintProposal(t *testing.T) {
	p := proposal.Proposal{
		ID:           "p1",
		Content:      proposal.Content{Title: "Expo", Description: "Robots"},
		ProposerName: "Parker",
		Department:   "CS",
		Status:       proposal.StatusPending,
		Version:      3,
	}
	history := []proposal.HistoryEntry{{Version: 2, Remarks: "Version 2 archived when creating version 3"}}

	var buf bytes.Buffer
	printProposal(&buf, p, history)
	out := buf.String()
	assert.Contains(t, out, "p1 | CS | v3 | Pending")
	assert.Contains(t, out, "v2  -  Version 2 archived when creating version 3")
}

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	_, err := loadToken()
	require.Error(t, err)

	_, err = saveToken("tok-123\n")
	require.NoError(t, err)
	token, err := loadToken()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}
