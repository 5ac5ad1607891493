package constants

// Common error messages
const (
	ErrInvalidJSON         = "invalid json or missing fields"
	ErrFailedToQuery       = "Failed to query"
	ErrMissingUploadSetID  = "Missing upload_set_id"
	ErrMissingSourceSystem = "Missing source_system"
)

// Content Types
const (
	ContentTypeText = "Content-Type"
	ContentTypeJSON = "application/json"
)

// Date formats
const (
	DateFormat     = "2006-01-02"
	DateTimeFormat = "2006-01-02 15:04:05"
)

// NBSP shows up in headers exported from some spreadsheet tools and must be
// treated as plain whitespace during normalization.
const NBSP = "\u00a0"
