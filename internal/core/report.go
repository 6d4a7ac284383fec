package core

// report.go exports a job's error list and the blank import template as CSV.

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ErrorReportHeader is the header row of an error report.
var ErrorReportHeader = []string{"Row", "Field", "Severity", "Message", "Value"}

// WriteErrorReport writes errs as CSV in the order given.
// Cells that a spreadsheet would evaluate are prefixed with a quote.
func WriteErrorReport(w io.Writer, errs []ValidationError) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ErrorReportHeader); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	for _, e := range errs {
		row := []string{
			strconv.Itoa(e.Row),
			e.Field,
			string(e.Severity),
			escapeFormula(e.Message),
			escapeFormula(e.Value),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write report row %d: %w", e.Row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func escapeFormula(s string) string {
	if IsFormulaCell(s) {
		return "'" + s
	}
	return s
}

// WriteTemplate writes the import template: the header row and one example row.
func WriteTemplate(w io.Writer) error {
	example := make([]string, len(TemplateColumns))
	for i, col := range TemplateColumns {
		example[i] = col.Example
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(TemplateHeader()); err != nil {
		return fmt.Errorf("write template header: %w", err)
	}
	if err := cw.Write(example); err != nil {
		return fmt.Errorf("write template example: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
