package search

import (
	"fmt"

	"proposaldesk/internal/proposal"
)

// Records flattens a proposal and its archived threads into index records.
func Records(p proposal.Proposal, history []proposal.HistoryEntry) (ProposalRecord, []CommentRecord) {
	record := ProposalRecord{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Objectives:  p.Objectives,
		Venue:       p.Venue,
		Department:  p.Department,
		ProposerID:  p.ProposerID,
		Status:      p.Status.String(),
		Version:     p.Version,
	}

	var comments []CommentRecord
	add := func(version, index int, c proposal.Comment) {
		comments = append(comments, CommentRecord{
			ID:         fmt.Sprintf("%s-v%d-%d", p.ID, version, index),
			ProposalID: p.ID,
			Title:      p.Title,
			Author:     c.Author(),
			Text:       c.CommentText(),
			Department: p.Department,
			ProposerID: p.ProposerID,
			Version:    version,
		})
	}
	for i, c := range p.Comments {
		add(p.Version, i, c)
	}
	for _, entry := range history {
		for i, c := range entry.Comments {
			add(entry.Version, i, c)
		}
	}
	return record, comments
}
