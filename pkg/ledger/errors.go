package ledger

import "errors"

var (
	// ErrMalformed indicates ledger bytes that do not parse as the expected
	// CSV shape.
	ErrMalformed = errors.New("malformed ledger data")
	// ErrUnknownLabel indicates a plausibility value outside the two
	// recognized labels.
	ErrUnknownLabel = errors.New("unknown plausibility label")
)
