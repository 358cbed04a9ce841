package importer

import (
	"encoding/json"
	"reflect"
	"testing"

	"opex/internal/core"
)

func testTable() *Table {
	return &Table{
		Headers: []string{"Service UID", "Vendor Name", "April", "May"},
		Rows: [][]string{
			{"S-100", "Acme", "1000", "2000"},
			{"", "Acme", "1000", "abc"},
			{"S-100", "Dup Inc", "5", "5"},
			{"", "", "", ""}, // blank row, not counted
			{"S-200", "Beta", "", "300"},
		},
	}
}

func TestRunReport(t *testing.T) {
	hm, report, err := Run(testTable(), nil, UIDSet{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.TotalRows != 4 {
		t.Fatalf("expected 4 counted rows, got %d", report.TotalRows)
	}
	if report.TotalRows != len(report.Accepted)+len(report.Rejected) {
		t.Fatalf("totalRows invariant broken: %d != %d + %d",
			report.TotalRows, len(report.Accepted), len(report.Rejected))
	}
	if len(report.Accepted) != 2 || len(report.Rejected) != 2 {
		t.Fatalf("expected 2 accepted / 2 rejected, got %d/%d",
			len(report.Accepted), len(report.Rejected))
	}
	if report.Rejected[1].RowIndex != 4 || report.Rejected[1].Errors[0] != "duplicate UID in file" {
		t.Fatalf("unexpected second rejection: %+v", report.Rejected[1])
	}
	if len(hm.RawHeaders) != 4 {
		t.Fatalf("raw headers: %v", hm.RawHeaders)
	}
	if hm.FieldMap["Service UID"] != "uid" {
		t.Fatalf("field map: %v", hm.FieldMap)
	}
}

func TestRunIdempotent(t *testing.T) {
	_, first, err := Run(testTable(), nil, UIDSet{"S-900": {}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	_, second, err := Run(testTable(), nil, UIDSet{"S-900": {}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical inputs must produce identical reports")
	}
}

func TestRunSeesStorageState(t *testing.T) {
	_, report, err := Run(testTable(), nil, UIDSet{"S-200": {}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	found := false
	for _, r := range report.Rejected {
		if r.UID == "S-200" && r.Errors[0] == "duplicate UID" {
			found = true
		}
	}
	if !found {
		t.Fatalf("S-200 should be rejected as a storage duplicate: %+v", report.Rejected)
	}
}

func TestRunMissingUIDColumn(t *testing.T) {
	table := &Table{Headers: []string{"Vendor Name", "April"}, Rows: [][]string{{"Acme", "1"}}}
	_, _, err := Run(table, nil, UIDSet{})
	if err != core.ErrMissingUID {
		t.Fatalf("expected ErrMissingUID, got %v", err)
	}
}

func TestRejectedCSV(t *testing.T) {
	out := RejectedCSV([]core.RejectedRow{
		{RowIndex: 3, UID: "S-1", Errors: []string{"duplicate UID", "invalid amount for month_May: abc"}},
	})
	want := "row,uid,errors\n3,S-1,duplicate UID; invalid amount for month_May: abc\n"
	if string(out) != want {
		t.Fatalf("csv mismatch:\n got: %q\nwant: %q", out, want)
	}
}
