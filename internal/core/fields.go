package core

import "strings"

// Field identifies a canonical column of a budget line item. Raw spreadsheet
// headers are resolved to fields by the importer's header mapper.
type Field string

const (
	FieldUID             Field = "uid"
	FieldParentUID       Field = "parentUid"
	FieldDescription     Field = "description"
	FieldTower           Field = "tower"
	FieldBudgetHead      Field = "budgetHead"
	FieldVendor          Field = "vendor"
	FieldStartDate       Field = "startDate"
	FieldEndDate         Field = "endDate"
	FieldRenewalDate     Field = "renewalDate"
	FieldContractID      Field = "contractId"
	FieldPOEntity        Field = "poEntity"
	FieldAllocationBasis Field = "allocationBasis"
	FieldAllocationType  Field = "allocationType"
	FieldServiceType     Field = "serviceType"
	FieldInitiativeType  Field = "initiativeType"
	FieldPriority        Field = "priority"
	FieldTotal           Field = "total"

	// FieldSkip is the sentinel for headers excluded from canonical mapping.
	// Values under skipped headers survive in the record's custom-field bag.
	FieldSkip Field = "skip"
)

// Months holds the twelve month keys in fiscal order (April through March).
var Months = []string{"Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec", "Jan", "Feb", "Mar"}

const monthFieldPrefix = "month_"

// MonthField returns the canonical field for a month key, e.g. "Apr" -> "month_Apr".
func MonthField(mon string) Field {
	return Field(monthFieldPrefix + mon)
}

// IsMonth reports whether f is one of the twelve month fields.
func (f Field) IsMonth() bool {
	_, ok := f.MonthKey()
	return ok
}

// MonthKey returns the month key ("Apr".."Mar") for a month field.
func (f Field) MonthKey() (string, bool) {
	s := string(f)
	if !strings.HasPrefix(s, monthFieldPrefix) {
		return "", false
	}
	mon := s[len(monthFieldPrefix):]
	for _, m := range Months {
		if m == mon {
			return m, true
		}
	}
	return "", false
}

// IsDate reports whether f holds a calendar date.
func (f Field) IsDate() bool {
	switch f {
	case FieldStartDate, FieldEndDate, FieldRenewalDate:
		return true
	}
	return false
}

// IsNumeric reports whether f holds a numeric amount.
func (f Field) IsNumeric() bool {
	return f == FieldTotal || f.IsMonth()
}

// Valid reports whether f names a known canonical field (or skip).
func (f Field) Valid() bool {
	switch f {
	case FieldUID, FieldParentUID, FieldDescription, FieldTower, FieldBudgetHead,
		FieldVendor, FieldStartDate, FieldEndDate, FieldRenewalDate, FieldContractID,
		FieldPOEntity, FieldAllocationBasis, FieldAllocationType, FieldServiceType,
		FieldInitiativeType, FieldPriority, FieldTotal, FieldSkip:
		return true
	}
	return f.IsMonth()
}

var monthNames = map[string]string{
	"jan": "Jan", "january": "Jan",
	"feb": "Feb", "february": "Feb",
	"mar": "Mar", "march": "Mar",
	"apr": "Apr", "april": "Apr",
	"may": "May",
	"jun": "Jun", "june": "Jun",
	"jul": "Jul", "july": "Jul",
	"aug": "Aug", "august": "Aug",
	"sep": "Sep", "sept": "Sep", "september": "Sep",
	"oct": "Oct", "october": "Oct",
	"nov": "Nov", "november": "Nov",
	"dec": "Dec", "december": "Dec",
}

// NormalizeMonth resolves a header like "April", "apr" or "Apr-25" to its
// canonical three-letter key. The second return is false when the text does
// not name a month.
func NormalizeMonth(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	// Tolerate year suffixes such as "Apr-25" or "April 2025".
	for _, sep := range []string{"-", " ", "'", "/"} {
		if i := strings.Index(s, sep); i > 0 {
			s = s[:i]
		}
	}
	mon, ok := monthNames[s]
	return mon, ok
}
