package importer

import (
	"fmt"
	"strconv"

	"opex/internal/core"
)

// UIDIndex answers whether a canonical identifier already exists in storage.
// During a dry run it reflects persisted state only, never other rows of the
// same batch; commit re-checks against the storage constraint regardless.
type UIDIndex interface {
	Has(uid string) bool
}

// UIDSet is a point-in-time snapshot implementation of UIDIndex.
type UIDSet map[string]struct{}

func (s UIDSet) Has(uid string) bool {
	_, ok := s[uid]
	return ok
}

// totalTolerance is how far the sum of monthly figures may drift from an
// explicit total column before the row is rejected. Matches the historical
// sheets, which accumulate small rounding residue per month.
const totalTolerance = 10

// Normalizer converts raw rows to normalized records under one resolved
// mapping. Column positions are computed once per file.
type Normalizer struct {
	mapping    Mapping
	cols       map[core.Field]int
	monthCols  map[string]int
	customCols map[string]int
}

func NewNormalizer(headers []string, mapping Mapping) *Normalizer {
	n := &Normalizer{
		mapping:    mapping,
		cols:       make(map[core.Field]int),
		monthCols:  make(map[string]int),
		customCols: make(map[string]int),
	}
	for i, header := range headers {
		if header == "" {
			continue
		}
		f := mapping.FieldFor(header)
		switch {
		case f == core.FieldSkip:
			// Explicitly skipped columns are dropped; default-skipped ones
			// survive in the custom-field bag so no data is lost.
			if !mapping.ExplicitSkip(header) {
				n.customCols[header] = i
			}
		case f.IsMonth():
			mon, _ := f.MonthKey()
			n.monthCols[mon] = i
		default:
			n.cols[f] = i
		}
	}
	return n
}

// HasUIDColumn reports whether any header resolved to the uid field. A file
// without one cannot be imported at all.
func (n *Normalizer) HasUIDColumn() bool {
	_, ok := n.cols[core.FieldUID]
	return ok
}

// NormalizeRow validates one data row and either returns the normalized
// record or a rejection carrying every error found, not just the first.
// rowNum is the spreadsheet row number (the header is row 1). seen tracks
// UIDs met earlier in the same batch.
func (n *Normalizer) NormalizeRow(rowNum int, row []string, idx UIDIndex, seen map[string]bool) (core.NormalizedRecord, *core.RejectedRow) {
	var errs []string

	uid := n.cell(row, core.FieldUID)
	switch {
	case uid == "":
		errs = append(errs, "missing UID")
	case idx != nil && idx.Has(uid):
		errs = append(errs, "duplicate UID")
	}
	if uid != "" {
		if seen[uid] {
			errs = append(errs, "duplicate UID in file")
		}
		seen[uid] = true
	}

	rec := core.NormalizedRecord{
		RowIndex:        rowNum,
		UID:             uid,
		ParentUID:       n.cell(row, core.FieldParentUID),
		Description:     n.cell(row, core.FieldDescription),
		Tower:           n.cell(row, core.FieldTower),
		BudgetHead:      n.cell(row, core.FieldBudgetHead),
		Vendor:          n.cell(row, core.FieldVendor),
		ContractID:      n.cell(row, core.FieldContractID),
		POEntity:        n.cell(row, core.FieldPOEntity),
		AllocationBasis: n.cell(row, core.FieldAllocationBasis),
		AllocationType:  n.cell(row, core.FieldAllocationType),
		ServiceType:     n.cell(row, core.FieldServiceType),
		InitiativeType:  n.cell(row, core.FieldInitiativeType),
		Priority:        n.cell(row, core.FieldPriority),
		Months:          make(map[string]float64, len(n.monthCols)),
	}

	rec.StartDate = n.parseDate(row, core.FieldStartDate, &errs)
	rec.EndDate = n.parseDate(row, core.FieldEndDate, &errs)
	rec.RenewalDate = n.parseDate(row, core.FieldRenewalDate, &errs)

	var sum float64
	for _, mon := range core.Months {
		col, mapped := n.monthCols[mon]
		if !mapped {
			continue
		}
		raw := Cell(row, col)
		if raw == "" {
			rec.Months[mon] = 0
			continue
		}
		v, err := core.ParseAmount(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid amount for %s: %s", core.MonthField(mon), raw))
			continue
		}
		rec.Months[mon] = v
		sum += v
	}

	if col, mapped := n.cols[core.FieldTotal]; mapped {
		raw := Cell(row, col)
		if raw == "" {
			rec.Total = sum
		} else if v, err := core.ParseAmount(raw); err != nil {
			errs = append(errs, fmt.Sprintf("invalid amount for %s: %s", core.FieldTotal, raw))
		} else {
			rec.Total = v
			if diff := sum - v; diff > totalTolerance || diff < -totalTolerance {
				errs = append(errs, fmt.Sprintf("total mismatch: sum(%s) != total(%s)",
					formatAmount(sum), formatAmount(v)))
			}
		}
	} else {
		rec.Total = sum
	}

	for header, col := range n.customCols {
		if v := Cell(row, col); v != "" {
			if rec.CustomFields == nil {
				rec.CustomFields = make(map[string]string)
			}
			rec.CustomFields[header] = v
		}
	}

	if len(errs) > 0 {
		return core.NormalizedRecord{}, &core.RejectedRow{RowIndex: rowNum, UID: uid, Errors: errs}
	}
	return rec, nil
}

func (n *Normalizer) cell(row []string, f core.Field) string {
	col, ok := n.cols[f]
	if !ok {
		return ""
	}
	return Cell(row, col)
}

func (n *Normalizer) parseDate(row []string, f core.Field, errs *[]string) core.Date {
	raw := n.cell(row, f)
	if raw == "" {
		return core.Date{}
	}
	d, err := core.ParseCalendarDate(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid date for %s: %s", f, raw))
		return core.Date{}
	}
	return d
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
