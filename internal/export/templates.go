package export

import (
	"bytes"
	"cmp"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"proposaldesk/internal/proposal"
)

//go:embed templates/*.html
var templateFS embed.FS

var proposalTemplate = template.Must(
	template.New("proposal.html").Funcs(template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}).ParseFS(templateFS, "templates/proposal.html"),
)

// TemplateData holds data for proposal template rendering.
type TemplateData struct {
	Title      string
	Department string
	Proposer   string
	Status     string
	Version    int
	UpdatedAt  time.Time
	Fields     []TemplateField
	Groups     []TemplateGroup
}

type TemplateField struct {
	Label string
	Value string
}

// TemplateGroup is one version block of the review thread.
type TemplateGroup struct {
	Label   string
	Remarks string
	Items   []TemplateItem
}

type TemplateItem struct {
	Kind   string
	Author string
	Status string
	Text   string
	Time   time.Time
}

// NewTemplateData flattens a proposal and its assembled thread.
func NewTemplateData(p proposal.Proposal, groups []proposal.ThreadGroup) TemplateData {
	data := TemplateData{
		Title:      p.Title,
		Department: p.Department,
		Proposer:   cmp.Or(p.ProposerName, p.ProposerID),
		Status:     p.Status.String(),
		Version:    p.Version,
		UpdatedAt:  p.UpdatedAt,
		Fields:     contentFields(p.Content),
	}
	for _, g := range groups {
		group := TemplateGroup{Label: g.Label, Remarks: g.Remarks}
		for _, c := range g.Items {
			item := TemplateItem{Author: c.Author(), Text: c.CommentText(), Time: c.CommentTime()}
			switch v := c.(type) {
			case proposal.ReviewerComment:
				item.Kind = "Reviewer"
				item.Status = v.Status.String()
			case proposal.ProposerComment:
				item.Kind = "Proposer"
			}
			group.Items = append(group.Items, item)
		}
		data.Groups = append(data.Groups, group)
	}
	return data
}

func contentFields(c proposal.Content) []TemplateField {
	fields := []TemplateField{
		{"Description", c.Description},
		{"Objectives", c.Objectives},
		{"Expected Outcomes", c.Outcomes},
		{"Budget", strconv.FormatFloat(c.Budget, 'f', 2, 64)},
		{"Schedule", c.Schedule},
		{"Venue", c.Venue},
		{"Event Date", c.EventDate},
	}
	if c.IsIndividual {
		fields = append(fields, TemplateField{"Registration", "Individual"})
	} else {
		fields = append(fields,
			TemplateField{"Group", c.GroupName},
			TemplateField{"Group Leader", fmt.Sprintf("%s <%s>", c.LeaderName, c.LeaderEmail)},
			TemplateField{"Members", strconv.Itoa(c.MemberCount)},
		)
	}
	out := fields[:0]
	for _, f := range fields {
		if strings.TrimSpace(f.Value) != "" {
			out = append(out, f)
		}
	}
	return out
}

// RenderProposalHTML renders the proposal template with provided data.
func RenderProposalHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := proposalTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
