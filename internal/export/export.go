// Package export writes the current audit queue as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/gradeguard/internal/core"
)

// Format is a supported export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat returns the format for a query value; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Header is the column layout shared by both formats.
var Header = []string{"ID", "Sheet ID", "Type", "AI Score", "Human Score", "Status", "Label", "Evidence"}

// SheetName is the worksheet name used for XLSX exports.
const SheetName = "Audit Queue"

// Write exports records in the given format.
func Write(w io.Writer, f Format, records []core.AuditRecord) error {
	if f == FormatXLSX {
		return WriteXLSX(w, records)
	}
	return WriteCSV(w, records)
}

func row(r core.AuditRecord) []string {
	c, _ := core.Classify(r.Status)
	return []string{
		safeCell(r.ID.String()),
		safeCell(r.SecretCode),
		string(r.NormalizedSheetType()),
		core.FormatScore(r.CVTotalScore),
		core.FormatScore(r.ManualTotalEntry),
		safeCell(string(r.Status)),
		c.Label,
		safeCell(r.FileURL),
	}
}

// safeCell stops spreadsheet apps from evaluating backend-supplied text as
// a formula by prefixing a quote to cells that start with a formula trigger.
func safeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// WriteCSV writes records as CSV with a header row.
func WriteCSV(w io.Writer, records []core.AuditRecord) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := csvWriter.Write(row(r)); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteXLSX writes records as a single-sheet workbook. Scores are stored as
// numbers; absent scores are left blank.
func WriteXLSX(w io.Writer, records []core.AuditRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	for col, h := range Header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}

	for i, r := range records {
		values := xlsxRow(r)
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("xlsx row %s: %w", r.ID, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func xlsxRow(r core.AuditRecord) []interface{} {
	cells := make([]interface{}, len(Header))
	for i, s := range row(r) {
		cells[i] = s
	}
	if r.CVTotalScore.Valid {
		cells[3], _ = r.CVTotalScore.Decimal.Float64()
	} else {
		cells[3] = nil
	}
	if r.ManualTotalEntry.Valid {
		cells[4], _ = r.ManualTotalEntry.Decimal.Float64()
	} else {
		cells[4] = nil
	}
	return cells
}
