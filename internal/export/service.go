package export

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"proposaldesk/internal/proposal"
)

// DataSource is the read side of the proposal store.
type DataSource interface {
	Get(ctx context.Context, proposalID string) (proposal.Proposal, error)
	History(ctx context.Context, proposalID string) ([]proposal.HistoryEntry, error)
}

// Service provides proposal export functionality.
type Service struct {
	source  DataSource
	pdf     PDFRenderer
	archive Archive
	logger  *zap.Logger
}

// NewService creates an export service that prints PDFs with headless
// Chrome. archive may be nil.
func NewService(source DataSource, archive Archive, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, pdf: ChromePDF, archive: archive, logger: logger}
}

// WithPDFRenderer replaces the PDF backend.
func (s *Service) WithPDFRenderer(r PDFRenderer) *Service {
	s.pdf = r
	return s
}

// Export renders one proposal. Callers check visibility first. A failed
// archive upload is logged and does not fail the export.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	p, err := s.source.Get(ctx, req.ProposalID)
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}

	var groups []proposal.ThreadGroup
	if req.IncludeThread {
		history, err := s.source.History(ctx, req.ProposalID)
		if err != nil {
			return nil, fmt.Errorf("list history: %w", err)
		}
		groups = slices.Collect(proposal.AssembleThread(p, history))
	}

	html, err := RenderProposalHTML(NewTemplateData(p, groups))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	base := fmt.Sprintf("%s-v%d", sanitizeFilename(p.Title), p.Version)
	var result *Result
	switch req.Format {
	case FormatHTML:
		result = &Result{Data: []byte(html), Filename: base + ".html", MimeType: "text/html; charset=utf-8"}
	case FormatPDF, "":
		data, err := s.pdf(ctx, html)
		if err != nil {
			return nil, err
		}
		result = &Result{Data: data, Filename: base + ".pdf", MimeType: "application/pdf"}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}

	if s.archive != nil {
		key := archiveKey(p.ID, p.Version, result.Filename)
		if err := s.archive.Put(ctx, key, result.Data, result.MimeType); err != nil {
			s.logger.Warn("archive export", zap.String("proposal_id", p.ID), zap.String("key", key), zap.Error(err))
		} else {
			result.ArchiveKey = key
		}
	}
	return result, nil
}
