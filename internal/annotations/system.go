package annotations

import (
	"context"

	"verdict/pkg/ledger"
	"verdict/pkg/pagination"
)

// System defines the public contract for ledger operations.
type System interface {
	Handler() *Handler
	// Load re-reads the remote ledger. A missing blob yields an empty table;
	// a transient failure or malformed data yields an empty table plus a
	// SyncWarning. Errors are reserved for unknown tasks.
	Load(ctx context.Context, taskID string) (*ledger.Table, *SyncWarning, error)
	// Record derives stable keys from the command, upserts the judgment dated
	// today, and writes the full table to the local cache and the remote
	// blob. Destination failures are reported in the result, never returned
	// as errors.
	Record(ctx context.Context, cmd RecordCommand) (*RecordResult, error)
	// SetComplete reports whether the original has as many judgments as
	// expected candidates. Both arguments accept URLs or bare keys.
	SetComplete(ctx context.Context, taskID, original string, expectedGenerated []string) (bool, *SyncWarning, error)
	// Progress counts originals with a full judgment set.
	Progress(ctx context.Context, taskID string) (*ProgressReport, error)
	// Rows returns one page of the ledger table, optionally filtered by a key
	// substring.
	Rows(ctx context.Context, taskID string, page pagination.PageRequest) (*pagination.PageResult[ledger.Judgment], *SyncWarning, error)
}
