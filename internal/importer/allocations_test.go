package importer

import (
	"errors"
	"testing"

	"opex/internal/core"
)

func TestParseAllocationRows(t *testing.T) {
	table := &Table{
		Headers: []string{"Service UID", "Basis", "Total", "JPM Corporate", "Enpro"},
		Rows: [][]string{
			{"S-100", "Headcount", "40", "10", "30"},
			{"S-101", "Usage", "", "5", ""},
			{"", "", "", "", ""},
		},
	}

	rows, rejected, err := ParseAllocationRows(table)
	if err != nil {
		t.Fatalf("ParseAllocationRows: %v", err)
	}
	if len(rejected) != 0 {
		t.Fatalf("rejected = %+v", rejected)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	if rows[0].ServiceUID != "S-100" || rows[0].TotalCount != 40 {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[0].Counts["JPM Corporate"] != 10 || rows[0].Counts["Enpro"] != 30 {
		t.Errorf("unexpected counts: %v", rows[0].Counts)
	}

	// No explicit total: the counts define it, blanks read as zero.
	if rows[1].TotalCount != 5 {
		t.Errorf("S-101 total = %v, want 5", rows[1].TotalCount)
	}
	if rows[1].Counts["Enpro"] != 0 {
		t.Errorf("blank count = %v, want 0", rows[1].Counts["Enpro"])
	}
}

func TestParseAllocationRowsRejections(t *testing.T) {
	table := &Table{
		Headers: []string{"Service UID", "Enpro"},
		Rows: [][]string{
			{"", "5"},
			{"S-100", "abc"},
			{"S-200", "1"},
		},
	}

	rows, rejected, err := ParseAllocationRows(table)
	if err != nil {
		t.Fatalf("ParseAllocationRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if len(rejected) != 2 {
		t.Fatalf("got %d rejections, want 2: %+v", len(rejected), rejected)
	}
	if rejected[0].RowIndex != 2 || rejected[0].Errors[0] != "missing UID" {
		t.Errorf("unexpected first rejection: %+v", rejected[0])
	}
	if rejected[1].RowIndex != 3 || rejected[1].Errors[0] != "invalid amount for Enpro: abc" {
		t.Errorf("unexpected second rejection: %+v", rejected[1])
	}
}

func TestParseAllocationRowsNoUIDColumn(t *testing.T) {
	table := &Table{
		Headers: []string{"Basis", "Enpro"},
		Rows:    [][]string{{"Headcount", "5"}},
	}
	if _, _, err := ParseAllocationRows(table); !errors.Is(err, core.ErrMissingUID) {
		t.Errorf("err = %v, want ErrMissingUID", err)
	}
}
