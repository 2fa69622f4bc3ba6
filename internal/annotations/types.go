// Package annotations owns the plausibility judgment ledger: loading it from
// blob storage, recording judgments into it, and answering completion
// queries. The remote ledger is the source of truth; a local CSV cache is
// written alongside every record for offline inspection.
package annotations

import (
	"verdict/pkg/ledger"
	"verdict/pkg/pagination"
)

// RecordCommand captures one reviewer judgment to persist. OriginalURL and
// GeneratedURL accept signed URLs or bare object keys; the stable object key
// is derived before the judgment lands in the ledger.
type RecordCommand struct {
	TaskID       string `json:"task_id"`
	OriginalURL  string `json:"original_url"`
	GeneratedURL string `json:"generated_url"`
	Label        string `json:"label"`
}

// SyncWarning notes a non-fatal ledger synchronization problem. Reads degrade
// to an empty table and writes report the failure instead of blocking the
// review flow.
type SyncWarning struct {
	Op  string `json:"op"`
	Err string `json:"error"`
}

// SyncStatus reports the outcome of writing the ledger to one destination.
type SyncStatus struct {
	Destination string `json:"destination"`
	Synced      bool   `json:"synced"`
	Error       string `json:"error,omitempty"`
}

// RecordResult reports a stored judgment along with the sync outcome for each
// ledger destination. Warning carries any problem loading the prior table;
// when set, judgments recorded by others since the last successful load may
// have been overwritten.
type RecordResult struct {
	Task     string          `json:"task"`
	Judgment ledger.Judgment `json:"judgment"`
	Remote   SyncStatus      `json:"remote"`
	Cache    SyncStatus      `json:"cache"`
	Warning  *SyncWarning    `json:"warning,omitempty"`
}

// ProgressReport summarizes how far review of a task has come.
type ProgressReport struct {
	Task                string       `json:"task"`
	Annotated           int          `json:"annotated"`
	FullyAnnotated      int          `json:"fully_annotated"`
	ExpectedPerOriginal int          `json:"expected_per_original"`
	Warning             *SyncWarning `json:"warning,omitempty"`
}

// CompletionReport answers whether one original image has a full set of
// judgments.
type CompletionReport struct {
	Task     string       `json:"task"`
	Original string       `json:"original"`
	Complete bool         `json:"complete"`
	Warning  *SyncWarning `json:"warning,omitempty"`
}

// LedgerPage is one page of ledger rows together with any sync warning hit
// while loading the table.
type LedgerPage struct {
	Task    string                                 `json:"task"`
	Page    pagination.PageResult[ledger.Judgment] `json:"page"`
	Warning *SyncWarning                           `json:"warning,omitempty"`
}
