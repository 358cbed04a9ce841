package importer

import (
	"opex/internal/core"
)

// HeaderMapping is the wire shape of a resolved mapping, returned alongside
// every dry-run report so a human can correct it before commit.
type HeaderMapping struct {
	RawHeaders []string          `json:"rawHeaders"`
	FieldMap   map[string]string `json:"fieldMap"`
}

// Run maps the header row, normalizes every data row, and accumulates the
// outcomes into a report. It is a pure pass over its inputs: no writes, no
// retained state, safe to invoke any number of times with different
// overrides. The same pass backs both dry runs and the commit path's
// server-side re-validation.
func Run(table *Table, override map[string]core.Field, idx UIDIndex) (HeaderMapping, core.ImportReport, error) {
	mapping := ResolveMapping(table.Headers, override)
	hm := HeaderMapping{FieldMap: mapping.FieldMap()}
	for _, h := range table.Headers {
		if h != "" {
			hm.RawHeaders = append(hm.RawHeaders, h)
		}
	}

	norm := NewNormalizer(table.Headers, mapping)
	if !norm.HasUIDColumn() {
		return hm, core.ImportReport{}, core.ErrMissingUID
	}

	report := core.ImportReport{}
	seen := make(map[string]bool)
	for i, row := range table.Rows {
		if blankRow(row) {
			continue
		}
		report.TotalRows++
		rec, rejected := norm.NormalizeRow(i+2, row, idx, seen)
		if rejected != nil {
			report.Rejected = append(report.Rejected, *rejected)
			continue
		}
		report.Accepted = append(report.Accepted, rec)
	}
	return hm, report, nil
}

func blankRow(row []string) bool {
	for i := range row {
		if Cell(row, i) != "" {
			return false
		}
	}
	return true
}
