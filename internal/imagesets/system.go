package imagesets

import (
	"context"

	"verdict/internal/annotations"
	"verdict/pkg/pagination"
)

// ListQuery selects image sets for one task.
type ListQuery struct {
	TaskID string
	// Pending keeps only sets with at least one unjudged candidate.
	Pending bool
	Page    pagination.PageRequest
}

// BuildReport summarizes one builder run.
type BuildReport struct {
	Task         string `json:"task"`
	File         string `json:"file"`
	Originals    int    `json:"originals"`
	ScannedBytes int64  `json:"scanned_bytes"`
	Sets         int    `json:"sets"`
	Incomplete   int    `json:"incomplete"`
	SignFailures int    `json:"sign_failures"`
}

// System defines the public contract for image-set operations.
type System interface {
	Handler() *Handler
	// List serves one page of a task's image-set file. The sync warning, when
	// set, means the pending filter ran against an empty ledger.
	List(ctx context.Context, query ListQuery) (*pagination.PageResult[ImageSet], *annotations.SyncWarning, error)
	// Build scans blob storage for the task's originals, pairs each with its
	// generated candidates, pre-signs the URLs, and rewrites the task's
	// image-set file.
	Build(ctx context.Context, taskID string) (*BuildReport, error)
}
