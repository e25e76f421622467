// Package export renders a proposal with its review thread as PDF or HTML,
// builds spreadsheet reports over proposal lists, and archives rendered
// files to object storage.
package export

import "errors"

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
	FormatXLSX Format = "xlsx"
)

// Request contains parameters for a proposal export.
type Request struct {
	ProposalID    string
	Format        Format
	IncludeThread bool
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
	// ArchiveKey is set when the file was stored in the archive.
	ArchiveKey string
}

var (
	// ErrPDFDependencyMissing indicates no Chromium binary is available.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	ErrUnsupportedFormat    = errors.New("export format unsupported")
)
