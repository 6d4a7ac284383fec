package core

// csv.go reads a delimited upload into a header and raw rows.
//
// A line that fails to parse becomes a RawRow carrying its error so the
// pipeline can record a row-level error and keep going. Only failures of
// the underlying reader abort the read.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RawRow is one unprocessed row of a batch.
// Exactly one of Cells, Record, or Err is meaningful.
type RawRow struct {
	Cells  []string // Tabular sources
	Record *Record  // Sources that produce records directly
	Err    error    // Row could not be parsed

	// Line is the 1-based data row in the source, counting rows that were
	// skipped. Zero means the row's position in the batch is its number.
	Line int
}

// ReadCSV parses r as comma-delimited text with a header row.
// Rows whose cells are all blank are skipped but still counted, so each
// RawRow's Line matches the source file. Returns ErrEmptyFile when
// there is no header or no data rows.
func ReadCSV(r io.Reader) ([]string, []RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // column count is checked per row by the pipeline

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: header: %v", ErrInvalidCSV, err)
	}

	var rows []RawRow
	for line := 1; ; line++ {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, nil, fmt.Errorf("read csv: %w", err)
			}
			rows = append(rows, RawRow{Err: perr, Line: line})
			continue
		}
		if isEmptyRow(cells) {
			continue
		}
		rows = append(rows, RawRow{Cells: cells, Line: line})
	}

	if len(rows) == 0 {
		return header, nil, ErrEmptyFile
	}
	return header, rows, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
