package proposal

import (
	"context"
	"fmt"
	"strings"

	"proposaldesk/internal/store"
)

const authorTypeProposer = "proposer"

// EditWorkflow is the proposer side: initial submission, edits and replies
// to reviewer feedback.
type EditWorkflow struct {
	engine *Engine
}

func NewEditWorkflow(engine *Engine) *EditWorkflow {
	return &EditWorkflow{engine: engine}
}

// Submit files a new proposal at version 1 in Pending status. An empty
// department falls back to the actor's only department.
func (w *EditWorkflow) Submit(ctx context.Context, content Content, department string, actor ActingUser) (Proposal, error) {
	if strings.TrimSpace(actor.ID) == "" {
		return Proposal{}, fmt.Errorf("%w: acting user is required", ErrForbidden)
	}
	department = strings.TrimSpace(department)
	if department == "" && len(actor.Departments) == 1 {
		department = actor.Departments[0]
	}
	if department == "" {
		return Proposal{}, fmt.Errorf("%w: department is required", ErrValidation)
	}
	if err := ValidateContent(content); err != nil {
		return Proposal{}, err
	}

	fields, err := fieldsOf(content)
	if err != nil {
		return Proposal{}, fmt.Errorf("%w: encode content: %w", ErrStore, err)
	}
	fields["proposerId"] = actor.ID
	fields["proposerName"] = actor.Name
	fields["department"] = department
	fields["status"] = StatusPending
	fields["version"] = 1
	fields["comments"] = Comments{}
	fields["replies"] = []ProposerComment{}
	fields["createdAt"] = store.ServerTimestamp
	fields["updatedAt"] = store.ServerTimestamp

	var created Proposal
	err = w.engine.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		id, err := tx.AddDocument(ctx, CollectionProposals, fields)
		if err != nil {
			return fmt.Errorf("%w: create proposal: %w", ErrStore, err)
		}
		created, err = loadProposal(ctx, tx, id)
		return err
	})
	if err != nil {
		return Proposal{}, w.engine.fail("submit", "", err)
	}
	return created, nil
}

// Edit applies a proposer edit. Ownership and status are checked before
// the content is validated, and both before anything is written.
func (w *EditWorkflow) Edit(ctx context.Context, proposalID string, content Content, actor ActingUser) (Proposal, error) {
	current, err := loadProposal(ctx, w.engine.store, proposalID)
	if err != nil {
		return Proposal{}, err
	}
	if err := CanEdit(EditContext{ProposalID: current.ID, OwnerID: current.ProposerID, Status: current.Status, Actor: actor}).Error(); err != nil {
		return Proposal{}, err
	}
	if err := ValidateContent(content); err != nil {
		return Proposal{}, err
	}
	return w.engine.ApplyContentEdit(ctx, proposalID, content, actor)
}

// Reply appends a proposer reply to the current version's thread.
func (w *EditWorkflow) Reply(ctx context.Context, proposalID, text string, actor ActingUser) (Proposal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Proposal{}, fmt.Errorf("%w: reply text is required", ErrValidation)
	}
	authorName := strings.TrimSpace(actor.Name)
	if authorName == "" {
		authorName = actor.ID
	}

	var updated Proposal
	err := w.engine.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := loadProposal(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if err := CanReply(EditContext{ProposalID: p.ID, OwnerID: p.ProposerID, Status: p.Status, Actor: actor}).Error(); err != nil {
			return err
		}
		replies := append(p.Replies, ProposerComment{
			AuthorName: authorName,
			AuthorType: authorTypeProposer,
			Text:       text,
			Timestamp:  w.engine.now().UTC(),
		})
		err = tx.UpdateDocument(ctx, CollectionProposals, p.ID, map[string]any{
			"replies":   replies,
			"updatedAt": store.ServerTimestamp,
		})
		if err != nil {
			return fmt.Errorf("%w: update proposal: %w", ErrStore, err)
		}
		updated, err = loadProposal(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return Proposal{}, w.engine.fail("reply", proposalID, err)
	}
	return updated, nil
}
