// Package importer implements the spreadsheet import pipeline: header
// mapping, per-row normalization and validation, and the dry-run aggregator.
// Nothing in this package writes to storage; persistence is the import
// service's job.
package importer

import (
	"regexp"
	"strings"

	"opex/internal/core"
)

// Mapping covers every raw header of an upload: each one resolves to a
// canonical field or to skip. Explicit records which headers the caller
// mapped themselves; an explicit skip drops the column, a default skip
// preserves it in the record's custom-field bag.
type Mapping struct {
	fields   map[string]core.Field
	explicit map[string]bool
}

// FieldFor returns the canonical field a raw header resolves to.
func (m Mapping) FieldFor(header string) core.Field {
	if f, ok := m.fields[header]; ok {
		return f
	}
	return core.FieldSkip
}

// ExplicitSkip reports whether the caller mapped this header to skip
// themselves, as opposed to the mapper defaulting it.
func (m Mapping) ExplicitSkip(header string) bool {
	return m.explicit[header] && m.fields[header] == core.FieldSkip
}

// FieldMap returns the header-to-field map in the wire shape callers edit
// and re-submit.
func (m Mapping) FieldMap() map[string]string {
	out := make(map[string]string, len(m.fields))
	for h, f := range m.fields {
		out[h] = string(f)
	}
	return out
}

// exactLabels maps squashed header text (lower-case, separators stripped) to
// canonical fields. The label inventory follows the display labels the
// budget sheets have historically used.
var exactLabels = map[string]core.Field{
	"uid": core.FieldUID, "uniqueid": core.FieldUID, "serviceuid": core.FieldUID,
	"parentuid": core.FieldParentUID,
	"description": core.FieldDescription, "servicedescription": core.FieldDescription,
	"desc": core.FieldDescription, "servicedesc": core.FieldDescription,
	"tower": core.FieldTower, "towers": core.FieldTower,
	"budgethead": core.FieldBudgetHead,
	"vendor":     core.FieldVendor, "vendorname": core.FieldVendor,
	"startdate": core.FieldStartDate, "servicestartdate": core.FieldStartDate,
	"enddate": core.FieldEndDate, "serviceenddate": core.FieldEndDate,
	"renewaldate": core.FieldRenewalDate, "renewal": core.FieldRenewalDate,
	"contract": core.FieldContractID, "contractpo": core.FieldContractID,
	"ponumber": core.FieldContractID, "po": core.FieldContractID,
	"contractid": core.FieldContractID, "hascontract": core.FieldContractID,
	"poentity": core.FieldPOEntity, "entity": core.FieldPOEntity,
	"allocationbasis": core.FieldAllocationBasis, "basis": core.FieldAllocationBasis,
	"allocationtype": core.FieldAllocationType, "alloctype": core.FieldAllocationType,
	"servicetype":    core.FieldServiceType,
	"initiativetype": core.FieldInitiativeType, "initiative": core.FieldInitiativeType,
	"priority": core.FieldPriority,
	"total":    core.FieldTotal, "totalbudget": core.FieldTotal, "grandtotal": core.FieldTotal,
}

// substringLabels is the fuzzy fallback, most specific first so "parent uid"
// never lands on uid.
var substringLabels = []struct {
	sub   string
	field core.Field
}{
	{"parentuid", core.FieldParentUID},
	{"uid", core.FieldUID},
	{"budgethead", core.FieldBudgetHead},
	{"allocationbasis", core.FieldAllocationBasis},
	{"allocationtype", core.FieldAllocationType},
	{"servicetype", core.FieldServiceType},
	{"initiativetype", core.FieldInitiativeType},
	{"startdate", core.FieldStartDate},
	{"enddate", core.FieldEndDate},
	{"renewaldate", core.FieldRenewalDate},
	{"poentity", core.FieldPOEntity},
	{"contract", core.FieldContractID},
	{"vendor", core.FieldVendor},
	{"description", core.FieldDescription},
	{"tower", core.FieldTower},
	{"priority", core.FieldPriority},
	{"total", core.FieldTotal},
}

// fyBudgetPattern catches year-total columns such as "FY26 Budget".
var fyBudgetPattern = regexp.MustCompile(`^fy\d{2}budget$`)

var squashPattern = regexp.MustCompile(`[^a-z0-9]+`)

func squash(header string) string {
	return squashPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(header)), "")
}

// ResolveMapping produces a complete mapping for a header row. Caller
// overrides always win; remaining headers get a best-effort default match
// and fall back to skip rather than failing. The result is returned to the
// caller before any commit so a human can correct it.
func ResolveMapping(headers []string, override map[string]core.Field) Mapping {
	m := Mapping{
		fields:   make(map[string]core.Field, len(headers)),
		explicit: make(map[string]bool, len(override)),
	}
	for _, header := range headers {
		if header == "" {
			continue
		}
		if f, ok := override[header]; ok {
			m.fields[header] = f
			m.explicit[header] = true
			continue
		}
		m.fields[header] = matchHeader(header)
	}
	return m
}

func matchHeader(header string) core.Field {
	key := squash(header)
	if key == "" {
		return core.FieldSkip
	}
	if f, ok := exactLabels[key]; ok {
		return f
	}
	if fyBudgetPattern.MatchString(key) {
		return core.FieldTotal
	}
	if mon, ok := core.NormalizeMonth(header); ok {
		return core.MonthField(mon)
	}
	for _, s := range substringLabels {
		if strings.Contains(key, s.sub) {
			return s.field
		}
	}
	return core.FieldSkip
}

// ParseOverride validates a caller-supplied header-to-field map from the
// wire. Unknown field names are an input-shape error, not a silent skip.
func ParseOverride(raw map[string]string) (map[string]core.Field, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]core.Field, len(raw))
	for header, name := range raw {
		f := core.Field(name)
		if !f.Valid() {
			return nil, &UnknownFieldError{Header: header, Field: name}
		}
		out[header] = f
	}
	return out, nil
}

// UnknownFieldError reports a custom mapping entry naming a field outside
// the canonical catalog.
type UnknownFieldError struct {
	Header string
	Field  string
}

func (e *UnknownFieldError) Error() string {
	return "unknown canonical field " + e.Field + " for header " + e.Header
}
