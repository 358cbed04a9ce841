package importer

import (
	"testing"

	"opex/internal/core"
)

func TestResolveMappingDefaults(t *testing.T) {
	cases := []struct {
		header string
		field  core.Field
	}{
		{"UID", core.FieldUID},
		{"Service UID", core.FieldUID},
		{"Unique ID", core.FieldUID},
		{"Parent UID", core.FieldParentUID},
		{"parent_uid", core.FieldParentUID},
		{"Description", core.FieldDescription},
		{"Service Description", core.FieldDescription},
		{"Tower", core.FieldTower},
		{"Budget Head", core.FieldBudgetHead},
		{"budget-head", core.FieldBudgetHead},
		{"Vendor Name", core.FieldVendor},
		{"Service Start Date", core.FieldStartDate},
		{"End Date", core.FieldEndDate},
		{"Renewal Date", core.FieldRenewalDate},
		{"Contract/PO", core.FieldContractID},
		{"PO Number", core.FieldContractID},
		{"PO Entity", core.FieldPOEntity},
		{"Entity", core.FieldPOEntity},
		{"Allocation Basis", core.FieldAllocationBasis},
		{"Basis", core.FieldAllocationBasis},
		{"Allocation Type", core.FieldAllocationType},
		{"Service Type", core.FieldServiceType},
		{"Initiative Type", core.FieldInitiativeType},
		{"Priority", core.FieldPriority},
		{"Total", core.FieldTotal},
		{"Grand Total", core.FieldTotal},
		{"FY26 Budget", core.FieldTotal},
		{"April", core.MonthField("Apr")},
		{"Apr-25", core.MonthField("Apr")},
		{"January", core.MonthField("Jan")},
		{"Cost Center", core.FieldSkip},
		{"Remarks", core.FieldSkip},
	}
	headers := make([]string, len(cases))
	for i, tc := range cases {
		headers[i] = tc.header
	}
	m := ResolveMapping(headers, nil)
	for _, tc := range cases {
		if got := m.FieldFor(tc.header); got != tc.field {
			t.Fatalf("header %q: expected %q, got %q", tc.header, tc.field, got)
		}
	}
}

func TestResolveMappingOverrideWins(t *testing.T) {
	headers := []string{"UID", "April", "Remarks"}
	m := ResolveMapping(headers, map[string]core.Field{
		"April":   core.FieldSkip, // caller explicitly drops a month column
		"Remarks": core.FieldVendor,
	})
	if got := m.FieldFor("April"); got != core.FieldSkip {
		t.Fatalf("override ignored: April mapped to %q", got)
	}
	if !m.ExplicitSkip("April") {
		t.Fatal("explicit skip not recorded")
	}
	if m.ExplicitSkip("Remarks") {
		t.Fatal("Remarks is not an explicit skip")
	}
	if got := m.FieldFor("Remarks"); got != core.FieldVendor {
		t.Fatalf("override ignored: Remarks mapped to %q", got)
	}
}

func TestResolveMappingUnknownHeaderIsDefaultSkip(t *testing.T) {
	m := ResolveMapping([]string{"Completely Custom Column"}, nil)
	if got := m.FieldFor("Completely Custom Column"); got != core.FieldSkip {
		t.Fatalf("expected default skip, got %q", got)
	}
	if m.ExplicitSkip("Completely Custom Column") {
		t.Fatal("default skip must not count as explicit")
	}
}

func TestParseOverride(t *testing.T) {
	out, err := ParseOverride(map[string]string{
		"Service UID": "uid",
		"April":       "month_Apr",
		"Notes":       "skip",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["Service UID"] != core.FieldUID || out["April"] != core.MonthField("Apr") || out["Notes"] != core.FieldSkip {
		t.Fatalf("unexpected override: %v", out)
	}

	if _, err := ParseOverride(map[string]string{"X": "nonsense"}); err == nil {
		t.Fatal("expected error for unknown field name")
	}
}
