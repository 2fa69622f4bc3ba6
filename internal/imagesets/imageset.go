// Package imagesets pairs original images with their generated candidates.
// The provider serves pre-built per-task JSON files to the annotator; the
// builder scans blob storage and writes those files with pre-signed URLs.
package imagesets

import (
	"fmt"

	"verdict/internal/tasks"
	"verdict/pkg/ledger"
	"verdict/pkg/urlkey"
)

// ImageSet pairs one original image with its generated candidates. URLs are
// pre-signed at build time; reviewers judge the set within the signing
// window.
type ImageSet struct {
	Original  string   `json:"original"`
	Generated []string `json:"generated"`
}

// Validate checks the structural invariant: a non-empty original with
// exactly CandidatesPerSet non-empty generated URLs.
func (s ImageSet) Validate() error {
	if s.Original == "" {
		return fmt.Errorf("%w: empty original", ErrInvalidSet)
	}

	if len(s.Generated) != tasks.CandidatesPerSet {
		return fmt.Errorf("%w: %s has %d generated images, want %d",
			ErrInvalidSet, s.Original, len(s.Generated), tasks.CandidatesPerSet)
	}

	for i, url := range s.Generated {
		if url == "" {
			return fmt.Errorf("%w: %s has an empty generated image at index %d", ErrInvalidSet, s.Original, i)
		}
	}

	return nil
}

// OriginalKey returns the stable object key of the original image.
func (s ImageSet) OriginalKey() string {
	return urlkey.Extract(s.Original)
}

// pending reports whether any candidate in the set still lacks a judgment.
// Membership is checked key by key, so a judgment against a re-signed URL
// still counts.
func (s ImageSet) pending(table *ledger.Table) bool {
	annotated := table.AnnotatedGenerated(s.OriginalKey())

	for _, url := range s.Generated {
		if _, ok := annotated[urlkey.Extract(url)]; !ok {
			return true
		}
	}

	return false
}
