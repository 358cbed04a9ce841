package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"opex/internal/core"
)

// Table is the raw content of one uploaded sheet: the header row as it
// appears in row 1 plus every data row, positionally aligned. Read once,
// never mutated.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ReadTable parses an uploaded workbook or CSV into a Table. The first
// worksheet of an xlsx is used; CSV is detected by filename extension.
// An empty or headerless file is an input-shape error: the caller gets no
// partial table.
func ReadTable(filename string, r io.Reader) (*Table, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return readCSV(r)
	}
	return readWorkbook(r)
}

func readWorkbook(r io.Reader) (*Table, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnreadableFile, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.ErrNoHeaderRow
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnreadableFile, err)
	}
	return tableFromRows(rows)
}

func readCSV(r io.Reader) (*Table, error) {
	// Strip a UTF-8 BOM so the first header cell matches cleanly.
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnreadableFile, err)
	}
	buf = bytes.TrimPrefix(buf, []byte{0xEF, 0xBB, 0xBF})

	cr := csv.NewReader(bytes.NewReader(buf))
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnreadableFile, err)
	}
	return tableFromRows(rows)
}

func tableFromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, core.ErrNoHeaderRow
	}
	headers := make([]string, len(rows[0]))
	blank := true
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
		if headers[i] != "" {
			blank = false
		}
	}
	if blank {
		return nil, core.ErrNoHeaderRow
	}
	return &Table{Headers: headers, Rows: rows[1:]}, nil
}

// Cell returns the trimmed value at column col of a data row, tolerating
// ragged rows shorter than the header.
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
