package importer

import (
	"strings"
	"testing"

	"opex/internal/core"
)

func normalizerFor(t *testing.T, headers []string, override map[string]core.Field) *Normalizer {
	t.Helper()
	return NewNormalizer(headers, ResolveMapping(headers, override))
}

func TestNormalizeRowAccepted(t *testing.T) {
	headers := []string{"Service UID", "Vendor Name", "April", "May"}
	n := normalizerFor(t, headers, map[string]core.Field{
		"Service UID": core.FieldUID,
		"Vendor Name": core.FieldVendor,
		"April":       core.MonthField("Apr"),
		"May":         core.MonthField("May"),
	})
	rec, rejected := n.NormalizeRow(2, []string{"S-100", "Acme", "1000", "2000"}, UIDSet{}, map[string]bool{})
	if rejected != nil {
		t.Fatalf("unexpected rejection: %v", rejected.Errors)
	}
	if rec.UID != "S-100" || rec.Vendor != "Acme" {
		t.Fatalf("wrong record: %+v", rec)
	}
	if rec.Months["Apr"] != 1000 || rec.Months["May"] != 2000 {
		t.Fatalf("wrong months: %v", rec.Months)
	}
	if rec.Total != 3000 {
		t.Fatalf("total should auto-calculate to 3000, got %v", rec.Total)
	}
}

func TestNormalizeRowCollectsAllErrors(t *testing.T) {
	headers := []string{"Service UID", "Vendor Name", "April", "May"}
	n := normalizerFor(t, headers, nil)
	_, rejected := n.NormalizeRow(2, []string{"", "Acme", "1000", "abc"}, UIDSet{}, map[string]bool{})
	if rejected == nil {
		t.Fatal("expected rejection")
	}
	if len(rejected.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %v", rejected.Errors)
	}
	if rejected.Errors[0] != "missing UID" {
		t.Fatalf("first error should be missing UID, got %q", rejected.Errors[0])
	}
	if !strings.Contains(rejected.Errors[1], "month_May") {
		t.Fatalf("second error should name month_May, got %q", rejected.Errors[1])
	}
}

func TestNormalizeRowDuplicateInStorage(t *testing.T) {
	headers := []string{"UID"}
	n := normalizerFor(t, headers, nil)
	_, rejected := n.NormalizeRow(2, []string{"S-1"}, UIDSet{"S-1": {}}, map[string]bool{})
	if rejected == nil || rejected.Errors[0] != "duplicate UID" {
		t.Fatalf("expected duplicate UID rejection, got %+v", rejected)
	}
	if rejected.UID != "S-1" {
		t.Fatalf("rejection should carry the uid for triage, got %q", rejected.UID)
	}
}

func TestNormalizeRowDuplicateInFile(t *testing.T) {
	headers := []string{"UID"}
	n := normalizerFor(t, headers, nil)
	seen := map[string]bool{}
	if _, rejected := n.NormalizeRow(2, []string{"S-1"}, UIDSet{}, seen); rejected != nil {
		t.Fatalf("first occurrence should pass: %v", rejected.Errors)
	}
	_, rejected := n.NormalizeRow(3, []string{"S-1"}, UIDSet{}, seen)
	if rejected == nil || rejected.Errors[0] != "duplicate UID in file" {
		t.Fatalf("expected in-file duplicate rejection, got %+v", rejected)
	}
	// Third occurrence errors too.
	_, rejected = n.NormalizeRow(4, []string{"S-1"}, UIDSet{}, seen)
	if rejected == nil {
		t.Fatal("third occurrence should also be rejected")
	}
}

func TestNormalizeRowBadDate(t *testing.T) {
	headers := []string{"UID", "Start Date"}
	n := normalizerFor(t, headers, nil)
	_, rejected := n.NormalizeRow(2, []string{"S-1", "not-a-date"}, UIDSet{}, map[string]bool{})
	if rejected == nil || !strings.Contains(rejected.Errors[0], "startDate") {
		t.Fatalf("expected startDate error, got %+v", rejected)
	}

	// Blank dates are fine.
	rec, rejected := n.NormalizeRow(3, []string{"S-2", ""}, UIDSet{}, map[string]bool{})
	if rejected != nil {
		t.Fatalf("blank date should not error: %v", rejected.Errors)
	}
	if !rec.StartDate.IsZero() {
		t.Fatal("blank date should stay zero")
	}
}

func TestNormalizeRowBlankNumericIsZero(t *testing.T) {
	headers := []string{"UID", "April", "May"}
	n := normalizerFor(t, headers, nil)
	rec, rejected := n.NormalizeRow(2, []string{"S-1", "", "500"}, UIDSet{}, map[string]bool{})
	if rejected != nil {
		t.Fatalf("blank numeric cell must normalize to zero, not error: %v", rejected.Errors)
	}
	if rec.Months["Apr"] != 0 || rec.Months["May"] != 500 {
		t.Fatalf("wrong months: %v", rec.Months)
	}
}

func TestNormalizeRowTotalMismatch(t *testing.T) {
	headers := []string{"UID", "April", "May", "Total"}
	n := normalizerFor(t, headers, nil)
	_, rejected := n.NormalizeRow(2, []string{"S-1", "100", "200", "500"}, UIDSet{}, map[string]bool{})
	if rejected == nil || !strings.Contains(rejected.Errors[0], "total mismatch") {
		t.Fatalf("expected total mismatch, got %+v", rejected)
	}

	// Within tolerance passes and keeps the explicit total.
	rec, rejected := n.NormalizeRow(3, []string{"S-2", "100", "200", "295"}, UIDSet{}, map[string]bool{})
	if rejected != nil {
		t.Fatalf("within tolerance should pass: %v", rejected.Errors)
	}
	if rec.Total != 295 {
		t.Fatalf("explicit total should win, got %v", rec.Total)
	}
}

func TestNormalizeRowCustomFieldsPreserved(t *testing.T) {
	headers := []string{"UID", "Cost Center", "Remarks"}
	n := normalizerFor(t, headers, map[string]core.Field{
		"Remarks": core.FieldSkip, // explicit skip drops the column
	})
	rec, rejected := n.NormalizeRow(2, []string{"S-1", "CC-42", "ignore me"}, UIDSet{}, map[string]bool{})
	if rejected != nil {
		t.Fatalf("unexpected rejection: %v", rejected.Errors)
	}
	if rec.CustomFields["Cost Center"] != "CC-42" {
		t.Fatalf("default-skipped column should be preserved: %v", rec.CustomFields)
	}
	if _, ok := rec.CustomFields["Remarks"]; ok {
		t.Fatal("explicitly skipped column must be dropped")
	}
}
