package proposal

import (
	"context"
	"fmt"
	"strings"

	"proposaldesk/internal/store"
)

// ReviewWorkflow applies reviewer decisions.
type ReviewWorkflow struct {
	engine *Engine
}

func NewReviewWorkflow(engine *Engine) *ReviewWorkflow {
	return &ReviewWorkflow{engine: engine}
}

// SubmitReview records a reviewer comment and applies decision, which must
// be Approved, Rejected or Reviewed (request changes). The comment and the
// status are written in one update of the live document.
func (w *ReviewWorkflow) SubmitReview(ctx context.Context, proposalID string, decision Status, text string, actor ActingUser) (Proposal, error) {
	status, err := ParseStatus(string(decision))
	if err != nil {
		return Proposal{}, err
	}
	if !status.IsDecision() {
		return Proposal{}, fmt.Errorf("%w: decision must be Approved, Rejected or Reviewed", ErrValidation)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Proposal{}, fmt.Errorf("%w: review comment is required", ErrValidation)
	}
	reviewerName := strings.TrimSpace(actor.Name)
	if reviewerName == "" {
		reviewerName = actor.ID
	}

	var updated Proposal
	err = w.engine.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := loadProposal(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if err := CanReview(ReviewContext{ProposalID: p.ID, Department: p.Department, Actor: actor}).Error(); err != nil {
			return err
		}
		p.Comments = append(p.Comments, ReviewerComment{
			ReviewerName: reviewerName,
			Text:         text,
			Timestamp:    w.engine.now().UTC(),
			Status:       status,
		})
		updated, err = w.engine.transition(ctx, tx, p, status, "Status updated to "+status.String(), actor)
		return err
	})
	if err != nil {
		return Proposal{}, w.engine.fail("review", proposalID, err)
	}
	return updated, nil
}
