// Package tasks defines the annotation tasks reviewers work through and the
// ledger naming scheme shared by every component that touches task state.
package tasks

// CandidatesPerSet is the number of generated images reviewed against each
// original.
const CandidatesPerSet = 5

// Task describes one reviewable image domain: where its originals and
// generated candidates live in blob storage, and which image-set file feeds
// the annotator.
type Task struct {
	ID              string `json:"id" toml:"id"`
	Name            string `json:"name" toml:"name"`
	SetsFile        string `json:"sets_file" toml:"sets_file"`
	OriginalsPrefix string `json:"originals_prefix" toml:"originals_prefix"`
	GeneratedPrefix string `json:"generated_prefix" toml:"generated_prefix"`
}
