// Package csvio adapts raw CSV file content into typed records.
//
// The actual parsing is delegated to encoding/csv; this package owns the
// contract around it: the first row is a header, each header cell becomes the
// field name for that column, blank lines are skipped, and a parse failure
// aborts ingestion of that file. Rows are decoded into the strict record
// types from internal/model at this boundary so that nothing downstream ever
// sees an untyped map.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrEmptyFile is returned when a file contains no header row.
var ErrEmptyFile = errors.New("empty file: no header row")

// HeaderIndex maps lowercased column names to their position in a row.
type HeaderIndex map[string]int

// BOMSkippingReader wraps an io.Reader and drops a leading UTF-8 BOM
// (0xEF 0xBB 0xBF), commonly added by Windows spreadsheet exports.
type BOMSkippingReader struct {
	reader     io.Reader
	bomChecked bool
	pending    []byte
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader. On the first read it inspects up to three bytes
// and discards them if they form a BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.bomChecked {
		r.bomChecked = true

		var buf [3]byte
		n, err := io.ReadFull(r.reader, buf[:])
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return 0, err
		}

		head := buf[:n]
		if n == 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
			head = nil
		}
		r.pending = head
	}

	if len(r.pending) > 0 {
		n := copy(p, r.pending)
		r.pending = r.pending[n:]
		return n, nil
	}

	return r.reader.Read(p)
}

// readRows parses CSV content into a header index and data rows.
// Blank lines are skipped by encoding/csv itself; rows shorter than the
// header are padded with empty fields so lookups never go out of range.
func readRows(r io.Reader) (HeaderIndex, [][]string, error) {
	cr := csv.NewReader(NewBOMSkippingReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("invalid csv: %w", err)
	}

	idx := make(HeaderIndex, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("invalid csv: %w", err)
		}
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		rows = append(rows, row)
	}

	return idx, rows, nil
}

// field returns the trimmed value of the named column, or "" when the column
// is absent from the header.
func field(row []string, idx HeaderIndex, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseFlag interprets common truthy spellings of a yes/no CSV cell.
func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}

// parseCapacity parses a non-negative integer capacity cell.
func parseCapacity(s string, rowNum int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("row %d: invalid number for capacity: %q", rowNum, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("row %d: capacity must be non-negative, got %d", rowNum, n)
	}
	return n, nil
}
