package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CanonicalEntities is the fixed reporting order of organizational entities.
// Entities discovered in uploaded data outside this list are appended after
// the canonical ones, never dropped.
var CanonicalEntities = []string{
	"JPM Corporate",
	"JPHI Corporate",
	"Biosys - Bengaluru",
	"Biosys - Noida",
	"Biosys - Greater Noida",
	"Pharmova - API",
	"JGL - Dosage",
	"JGL - IBP",
	"Cadista - Dosage",
	"JDI – Radio Pharmaceuticals",
	"JDI - Radiopharmacies",
	"JHS GP CMO",
	"JHS LLC - CMO",
	"JHS LLC - Allergy",
	"Ingrevia",
	"JIL - JACPL",
	"JFL",
	"Consumer",
	"JTI",
	"JOGPL",
	"Enpro",
}

type (
	// AllocationRow holds the absolute allocation counts for one service.
	// TotalCount is the denominator; Counts is keyed by entity name.
	AllocationRow struct {
		ServiceUID string             `json:"serviceUid"`
		Basis      string             `json:"basis"`
		TotalCount float64            `json:"totalCount"`
		Counts     map[string]float64 `json:"counts"`
	}

	// AllocationPercentageView is derived, never stored. Percentages holds
	// the display strings finance reviewers sign off on; Values holds the
	// raw numbers for anything that needs to add them back up.
	AllocationPercentageView struct {
		ServiceUID  string             `json:"serviceUid"`
		Percentages map[string]string  `json:"percentages"`
		Values      map[string]float64 `json:"-"`
	}
)

// Percentages derives each entity's share of the row total. Rows with a zero
// total report every percentage as blank rather than dividing by zero.
func (r AllocationRow) Percentages() AllocationPercentageView {
	view := AllocationPercentageView{
		ServiceUID:  r.ServiceUID,
		Percentages: make(map[string]string, len(r.Counts)),
		Values:      make(map[string]float64, len(r.Counts)),
	}
	if r.TotalCount == 0 {
		for entity := range r.Counts {
			view.Percentages[entity] = "-"
		}
		return view
	}
	total := decimal.NewFromFloat(r.TotalCount)
	for entity, count := range r.Counts {
		pct := decimal.NewFromFloat(count).Div(total).Mul(decimal.NewFromInt(100))
		view.Values[entity] = pct.InexactFloat64()
		view.Percentages[entity] = FormatPercent(pct)
	}
	return view
}

// FormatPercent renders a percentage the way the allocation grid does:
// zero as "-", integral values without a decimal point ("25%"), everything
// else to two decimals ("33.33%"). The integral check runs on the raw value,
// so 33.999 renders "34.00%", not "34%". Finance sign-off depends on this
// exact rendering.
func FormatPercent(pct decimal.Decimal) string {
	if pct.IsZero() {
		return "-"
	}
	if pct.IsInteger() {
		return pct.StringFixed(0) + "%"
	}
	return pct.StringFixed(2) + "%"
}

// FormatCount renders an absolute count with the same zero and integral rules.
func FormatCount(v float64) string {
	d := decimal.NewFromFloat(v)
	if d.IsZero() {
		return "-"
	}
	if d.IsInteger() {
		return d.StringFixed(0)
	}
	return d.StringFixed(2)
}

// EntityOrder returns the canonical entities followed by any extras found in
// rows, preserving first-seen order for the extras.
func EntityOrder(rows []AllocationRow) []string {
	known := make(map[string]bool, len(CanonicalEntities))
	for _, e := range CanonicalEntities {
		known[e] = true
	}
	order := append([]string(nil), CanonicalEntities...)
	for _, row := range rows {
		for _, e := range sortedKeys(row.Counts) {
			if !known[e] {
				known[e] = true
				order = append(order, e)
			}
		}
	}
	return order
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Stable order for extras so repeated GETs agree.
	sort.Strings(keys)
	return keys
}
