package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
)

// Header is the exact column header of the ledger wire format. External
// tooling reads these files, so the names and order are fixed.
var Header = []string{"Original_Image", "Generated_Image", "Plausibility", "Date"}

// Marshal encodes a table as CSV. An empty table encodes to the header line
// alone.
func Marshal(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("write ledger header: %w", err)
	}
	for _, row := range t.rows {
		record := []string{row.OriginalKey, row.GeneratedKey, string(row.Label), row.RecordedAt.String()}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write ledger row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush ledger: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes CSV ledger bytes. It rejects a missing or re-ordered
// header, rows with the wrong column count, unknown labels, and unparseable
// dates, all wrapped as ErrMalformed.
func Unmarshal(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(Header)

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	if !slices.Equal(header, Header) {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrMalformed, header)
	}

	t := &Table{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
		}

		label, err := ParseLabel(record[2])
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
		}
		date, err := ParseDate(record[3])
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
		}

		t.rows = append(t.rows, Judgment{
			OriginalKey:  record[0],
			GeneratedKey: record[1],
			Label:        label,
			RecordedAt:   date,
		})
	}

	return t, nil
}
