package importer

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"opex/internal/core"
)

// RejectedCSV renders a report's rejections as a flat tabular artifact for
// operator follow-up outside the system: row number, uid, and the
// semicolon-joined error list.
func RejectedCSV(rejected []core.RejectedRow) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"row", "uid", "errors"})
	for _, r := range rejected {
		_ = w.Write([]string{
			strconv.Itoa(r.RowIndex),
			r.UID,
			strings.Join(r.Errors, "; "),
		})
	}
	w.Flush()
	return buf.Bytes()
}
