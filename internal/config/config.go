package config

const (
	// Fiscal periods close on the 21st; day 22 onward rolls into the
	// following month's anchor.
	FiscalCutoffDay = 21

	// RowInsertChunkSize bounds a single CopyFrom call so one oversized
	// export cannot exceed the per-request payload limit.
	RowInsertChunkSize = 1000

	// StorageDeleteBatchSize bounds one storage remove call during undo.
	StorageDeleteBatchSize = 100

	// ParseWorkers bounds concurrent per-file download/parse/upload work
	// inside a commit.
	ParseWorkers = 4

	// HeaderScanRows is how deep into a worksheet we look for the header
	// row before giving up on that sheet.
	HeaderScanRows = 10

	// StaleCommitMinutes is how long a batch may sit in `committing`
	// before the janitor flags it.
	StaleCommitMinutes = 30
)
