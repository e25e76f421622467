package export

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"proposaldesk/internal/proposal"
)

type fakeSource struct {
	proposal proposal.Proposal
	history  []proposal.HistoryEntry
	getErr   error
}

func (f fakeSource) Get(context.Context, string) (proposal.Proposal, error) {
	return f.proposal, f.getErr
}

func (f fakeSource) History(context.Context, string) ([]proposal.HistoryEntry, error) {
	return f.history, nil
}

type fakeArchive struct {
	keys []string
	err  error
}

func (a *fakeArchive) Put(_ context.Context, key string, _ []byte, _ string) error {
	if a.err != nil {
		return a.err
	}
	a.keys = append(a.keys, key)
	return nil
}

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleProposal() proposal.Proposal {
	return proposal.Proposal{
		ID: "p1",
		Content: proposal.Content{
			Title:        "Spring Hackathon",
			Description:  "24 hour <build> event",
			Budget:       1200,
			IsIndividual: true,
		},
		ProposerID:   "u1",
		ProposerName: "Olivia",
		Department:   "CS",
		Status:       proposal.StatusPending,
		Version:      2,
		Comments: proposal.Comments{proposal.ReviewerComment{
			ReviewerName: "Alice", Text: "Looks good", Timestamp: t0.Add(time.Hour), Status: proposal.StatusPending,
		}},
		Replies: []proposal.ProposerComment{{
			AuthorName: "Olivia", AuthorType: "proposer", Text: "Thanks", Timestamp: t0.Add(2 * time.Hour),
		}},
		UpdatedAt: t0,
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"Budget v1.2", "Budget-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "proposal"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := sanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"é", "%C3%A9"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := percentEncodeForDataURL(tt.input); got != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRenderProposalHTMLIncludesThread(t *testing.T) {
	p := sampleProposal()
	history := []proposal.HistoryEntry{{
		Version: 1,
		Remarks: "Version 1 comments archived",
		Comments: proposal.Comments{proposal.ReviewerComment{
			ReviewerName: "Bob", Text: "Add a venue", Timestamp: t0.Add(-time.Hour),
		}},
	}}
	groups := slices.Collect(proposal.AssembleThread(p, history))

	html, err := RenderProposalHTML(NewTemplateData(p, groups))
	require.NoError(t, err)

	assert.Contains(t, html, "Spring Hackathon")
	assert.Contains(t, html, "Current Version")
	assert.Contains(t, html, "Version 1")
	assert.Contains(t, html, "Version 1 comments archived")
	assert.Contains(t, html, "Add a venue")
	assert.Contains(t, html, `class="item proposer"`)
	assert.Contains(t, html, "24 hour &lt;build&gt; event")
	assert.Less(t, strings.Index(html, "Looks good"), strings.Index(html, "Thanks"))
	assert.Less(t, strings.Index(html, "Current Version"), strings.Index(html, "Add a venue"))
}

func TestServiceExportPDFArchives(t *testing.T) {
	archive := &fakeArchive{}
	var rendered string
	svc := NewService(fakeSource{proposal: sampleProposal()}, archive, nil).
		WithPDFRenderer(func(_ context.Context, html string) ([]byte, error) {
			rendered = html
			return []byte("%PDF-1.4"), nil
		})

	result, err := svc.Export(context.Background(), Request{ProposalID: "p1", Format: FormatPDF, IncludeThread: true})
	require.NoError(t, err)

	assert.Equal(t, "Spring-Hackathon-v2.pdf", result.Filename)
	assert.Equal(t, "application/pdf", result.MimeType)
	assert.Equal(t, []byte("%PDF-1.4"), result.Data)
	assert.Equal(t, "proposals/p1/v2/Spring-Hackathon-v2.pdf", result.ArchiveKey)
	assert.Equal(t, []string{result.ArchiveKey}, archive.keys)
	assert.Contains(t, rendered, "Looks good")
}

func TestServiceExportWithoutThread(t *testing.T) {
	svc := NewService(fakeSource{proposal: sampleProposal()}, nil, nil)

	result, err := svc.Export(context.Background(), Request{ProposalID: "p1", Format: FormatHTML})
	require.NoError(t, err)
	assert.Equal(t, "Spring-Hackathon-v2.html", result.Filename)
	assert.NotContains(t, string(result.Data), "Review Thread")
	assert.Empty(t, result.ArchiveKey)
}

func TestServiceExportArchiveFailureIsNotFatal(t *testing.T) {
	svc := NewService(fakeSource{proposal: sampleProposal()}, &fakeArchive{err: errors.New("bucket gone")}, nil)

	result, err := svc.Export(context.Background(), Request{ProposalID: "p1", Format: FormatHTML})
	require.NoError(t, err)
	assert.Empty(t, result.ArchiveKey)
}

func TestServiceExportErrors(t *testing.T) {
	svc := NewService(fakeSource{proposal: sampleProposal()}, nil, nil)
	_, err := svc.Export(context.Background(), Request{ProposalID: "p1", Format: "docx"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	missing := NewService(fakeSource{getErr: proposal.ErrNotFound}, nil, nil)
	_, err = missing.Export(context.Background(), Request{ProposalID: "nope", Format: FormatHTML})
	assert.ErrorIs(t, err, proposal.ErrNotFound)
}

func TestProposalReport(t *testing.T) {
	a := sampleProposal()
	b := sampleProposal()
	b.ID, b.Title, b.Department, b.Status = "p2", "Chess Open", "MATH", proposal.StatusApproved
	c := sampleProposal()
	c.ID, c.Status = "p3", proposal.StatusRejected

	result, err := ProposalReport([]proposal.Proposal{a, b, c}, t0)
	require.NoError(t, err)
	assert.Equal(t, "proposals-20250301.xlsx", result.Filename)

	f, err := excelize.OpenReader(bytes.NewReader(result.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetProposals)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Title", rows[0][1])
	assert.Equal(t, "Chess Open", rows[2][1])
	assert.Equal(t, "Approved", rows[2][4])

	summary, err := f.GetRows(sheetSummary)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"Department", "Pending", "Reviewed", "Approved", "Rejected", "Total"}, summary[0])
	assert.Equal(t, []string{"CS", "1", "0", "0", "1", "2"}, summary[1])
	assert.Equal(t, []string{"MATH", "0", "0", "1", "0", "1"}, summary[2])
}
