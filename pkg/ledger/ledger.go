// Package ledger models the ordered table of plausibility judgments recorded
// against generated images, along with its CSV wire format.
package ledger

import (
	"encoding/json"
	"fmt"
	"time"
)

// Label is a reviewer's plausibility judgment for a generated image.
type Label string

const (
	Plausible   Label = "Plausible"
	Implausible Label = "Implausible"
)

// ParseLabel validates the wire form of a plausibility label.
func ParseLabel(s string) (Label, error) {
	switch Label(s) {
	case Plausible, Implausible:
		return Label(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
}

// DateLayout is the wire format for judgment dates: zero-padded
// day-month-year.
const DateLayout = "02-01-2006"

// Date is a day-granularity timestamp normalized to UTC midnight.
type Date struct {
	t time.Time
}

// Today returns the current date.
func Today() Date {
	return DateOf(time.Now())
}

// NewDate builds a Date from calendar components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar date.
func DateOf(t time.Time) Date {
	year, month, day := t.Date()
	return NewDate(year, month, day)
}

// ParseDate parses the DateLayout wire form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return d.t.Format(DateLayout)
}

// Equal reports whether two dates name the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Judgment is one recorded plausibility decision for a generated image,
// keyed by the stable object keys of the original and generated images.
type Judgment struct {
	OriginalKey  string `json:"original_key"`
	GeneratedKey string `json:"generated_key"`
	Label        Label  `json:"label"`
	RecordedAt   Date   `json:"recorded_at"`
}

// Table is the ordered judgment table for one task. Rows keep insertion
// order; updating an existing (original, generated) pair removes the old row
// and appends the replacement at the end.
type Table struct {
	rows []Judgment
}

// NewTable builds a table from rows in order.
func NewTable(rows ...Judgment) *Table {
	t := &Table{}
	for _, row := range rows {
		t.Upsert(row)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns a copy of the table rows in order.
func (t *Table) Rows() []Judgment {
	rows := make([]Judgment, len(t.rows))
	copy(rows, t.rows)
	return rows
}

// Upsert records a judgment. A row with the same (OriginalKey, GeneratedKey)
// is removed first, so the table never holds two judgments for one pair and
// the newest judgment always sits at the end.
func (t *Table) Upsert(j Judgment) {
	for i, row := range t.rows {
		if row.OriginalKey == j.OriginalKey && row.GeneratedKey == j.GeneratedKey {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			break
		}
	}
	t.rows = append(t.rows, j)
}

// Lookup returns the judgment for an (original, generated) pair.
func (t *Table) Lookup(originalKey, generatedKey string) (Judgment, bool) {
	for _, row := range t.rows {
		if row.OriginalKey == originalKey && row.GeneratedKey == generatedKey {
			return row, true
		}
	}
	return Judgment{}, false
}

// ForOriginal returns the judgments recorded against one original image, in
// table order.
func (t *Table) ForOriginal(originalKey string) []Judgment {
	var rows []Judgment
	for _, row := range t.rows {
		if row.OriginalKey == originalKey {
			rows = append(rows, row)
		}
	}
	return rows
}

// AnnotatedGenerated returns the set of generated-image keys judged against
// one original image.
func (t *Table) AnnotatedGenerated(originalKey string) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, row := range t.rows {
		if row.OriginalKey == originalKey {
			keys[row.GeneratedKey] = struct{}{}
		}
	}
	return keys
}

// SetComplete reports whether an original image has as many recorded
// judgments as it has expected candidates. The gate counts rows rather than
// matching individual candidate keys.
func (t *Table) SetComplete(originalKey string, expectedGeneratedKeys []string) bool {
	count := 0
	for _, row := range t.rows {
		if row.OriginalKey == originalKey {
			count++
		}
	}
	return count == len(expectedGeneratedKeys)
}

// CountComplete returns the number of original images whose judgment count
// equals exactly expectedPerOriginal.
func (t *Table) CountComplete(expectedPerOriginal int) int {
	counts := make(map[string]int)
	for _, row := range t.rows {
		counts[row.OriginalKey]++
	}

	complete := 0
	for _, count := range counts {
		if count == expectedPerOriginal {
			complete++
		}
	}
	return complete
}
