// Package proposal implements proposal versioning and review history: status
// transitions, proposer edits, reviewer decisions and the assembled comment
// thread.
//
// Every mutating operation runs as one store transaction. The proposal
// document is read with a row lock, so concurrent reviewers and proposers
// serialize on it, and the live-document update commits together with the
// history archive it implies.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"proposaldesk/internal/store"
)

type Engine struct {
	store  store.DocumentStore
	logger *zap.Logger
	now    func() time.Time
}

func NewEngine(docs store.DocumentStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: docs, logger: logger, now: time.Now}
}

// WithClock sets the clock used for comment timestamps.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ApplyStatusTransition sets the proposal status. Moving into Reviewed from
// any other status bumps the version and archives the live thread under the
// previous version; any other status archives a content snapshot under the
// resulting version. An empty remarks defaults to "Status updated to X".
func (e *Engine) ApplyStatusTransition(ctx context.Context, proposalID string, newStatus Status, remarks string, actor ActingUser) (Proposal, error) {
	status, err := ParseStatus(string(newStatus))
	if err != nil {
		return Proposal{}, err
	}

	var updated Proposal
	err = e.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		current, err := loadProposal(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		updated, err = e.transition(ctx, tx, current, status, remarks, actor)
		return err
	})
	if err != nil {
		return Proposal{}, e.fail("status transition", proposalID, err)
	}
	return updated, nil
}

// transition applies a status change to p, whose in-memory comments may
// already hold unsaved additions; they are written in the same update.
func (e *Engine) transition(ctx context.Context, tx store.Tx, p Proposal, status Status, remarks string, actor ActingUser) (Proposal, error) {
	wasReviewed := p.Status == StatusReviewed
	becomesReviewed := status == StatusReviewed

	newVersion := p.Version
	comments, replies := orEmpty(p.Comments, p.Replies)
	if becomesReviewed && !wasReviewed {
		newVersion = p.Version + 1
		if len(comments) > 0 || len(replies) > 0 {
			err := upsertHistory(ctx, tx, p.ID, p.Version, map[string]any{
				"comments":  comments,
				"replies":   replies,
				"remarks":   fmt.Sprintf("Version %d comments archived", p.Version),
				"updatedBy": actor.ID,
			})
			if err != nil {
				return Proposal{}, err
			}
		}
		comments, replies = Comments{}, []ProposerComment{}
	}

	err := tx.UpdateDocument(ctx, CollectionProposals, p.ID, map[string]any{
		"status":    status,
		"version":   newVersion,
		"comments":  comments,
		"replies":   replies,
		"updatedAt": store.ServerTimestamp,
	})
	if err != nil {
		return Proposal{}, fmt.Errorf("%w: update proposal: %w", ErrStore, err)
	}

	if !becomesReviewed {
		if remarks == "" {
			remarks = "Status updated to " + status.String()
		}
		err := upsertHistory(ctx, tx, p.ID, newVersion, map[string]any{
			"snapshot":  p.Snapshot(),
			"remarks":   remarks,
			"updatedBy": actor.ID,
		})
		if err != nil {
			return Proposal{}, err
		}
	}

	e.logger.Info("proposal status updated",
		zap.String("proposal_id", p.ID),
		zap.String("from", p.Status.String()),
		zap.String("to", status.String()),
		zap.Int("version", newVersion),
		zap.String("actor", actor.ID),
	)
	return loadProposal(ctx, tx, p.ID)
}

// ApplyContentEdit replaces the proposal content and returns it to Pending.
// Editing a Reviewed proposal archives the current version, snapshot and
// thread, and opens the next version. Live comments are always cleared;
// replies only when the version changes.
func (e *Engine) ApplyContentEdit(ctx context.Context, proposalID string, content Content, actor ActingUser) (Proposal, error) {
	var updated Proposal
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := loadProposal(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if err := CanEdit(EditContext{ProposalID: p.ID, OwnerID: p.ProposerID, Status: p.Status, Actor: actor}).Error(); err != nil {
			return err
		}

		history, err := listHistory(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		isFirstEdit := p.Version == 1 && len(history) == 0 && p.Status == StatusReviewed
		isNewVersion := p.Status == StatusReviewed

		newVersion := p.Version
		if isFirstEdit || isNewVersion {
			if isNewVersion {
				newVersion = p.Version + 1
			}
			remarks := fmt.Sprintf("Version %d archived when creating version %d", p.Version, newVersion)
			if isFirstEdit {
				remarks = "Initial version archived"
			}
			comments, replies := orEmpty(p.Comments, p.Replies)
			err := upsertHistory(ctx, tx, p.ID, p.Version, map[string]any{
				"snapshot":  p.Snapshot(),
				"comments":  comments,
				"replies":   replies,
				"remarks":   remarks,
				"updatedBy": actor.ID,
			})
			if err != nil {
				return err
			}
		}

		fields, err := fieldsOf(content)
		if err != nil {
			return fmt.Errorf("%w: encode content: %w", ErrStore, err)
		}
		fields["status"] = StatusPending
		fields["version"] = newVersion
		fields["comments"] = Comments{}
		fields["updatedAt"] = store.ServerTimestamp
		if newVersion != p.Version {
			fields["replies"] = []ProposerComment{}
		}
		if err := tx.UpdateDocument(ctx, CollectionProposals, p.ID, fields); err != nil {
			return fmt.Errorf("%w: update proposal: %w", ErrStore, err)
		}

		e.logger.Info("proposal content edited",
			zap.String("proposal_id", p.ID),
			zap.Int("from_version", p.Version),
			zap.Int("version", newVersion),
			zap.String("actor", actor.ID),
		)
		updated, err = loadProposal(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return Proposal{}, e.fail("content edit", proposalID, err)
	}
	return updated, nil
}

// fail classifies err and logs store failures. Validation, permission and
// lookup errors are the caller's to present and are not logged.
func (e *Engine) fail(op, proposalID string, err error) error {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrForbidden), errors.Is(err, ErrNotFound):
		return err
	case !errors.Is(err, ErrStore):
		err = fmt.Errorf("%w: %w", ErrStore, err)
	}
	e.logger.Error("proposal "+op+" failed", zap.String("proposal_id", proposalID), zap.Error(err))
	return err
}
