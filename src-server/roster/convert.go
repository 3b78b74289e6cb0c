// Package roster converts uploaded spreadsheets into the CSV the import
// endpoint accepts, and exports an event roster as a workbook.
package roster

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxUploadBytes bounds roster uploads.
const MaxUploadBytes = 10 << 20

// IsSpreadsheet reports whether filename is an Excel workbook.
func IsSpreadsheet(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// CSVName swaps the extension of filename for .csv.
func CSVName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".csv"
}

// ToCSV converts the first sheet of an xlsx workbook to CSV. Trailing empty
// rows are dropped; short rows are padded to the header width.
func ToCSV(r io.Reader) ([]byte, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ToCSV: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("ToCSV: no worksheet found")
	}
	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("ToCSV: %w", err)
	}
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ToCSV: worksheet is empty")
	}

	width := len(rows[0])
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		record := make([]string, max(width, len(row)))
		for i, cell := range row {
			record[i] = strings.TrimSpace(cell)
		}
		if err := w.Write(record[:max(width, lastNonEmpty(record)+1)]); err != nil {
			return nil, fmt.Errorf("ToCSV: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("ToCSV: %w", err)
	}
	return buf.Bytes(), nil
}

func blank(row []string) bool {
	return lastNonEmpty(row) < 0
}

func lastNonEmpty(row []string) int {
	for i := len(row) - 1; i >= 0; i-- {
		if strings.TrimSpace(row[i]) != "" {
			return i
		}
	}
	return -1
}
