package importer

import (
	"fmt"

	"opex/internal/core"
)

// ParseAllocationRows converts an allocation-base spreadsheet into rows. The
// expected shape is one service per row: a service UID column, optional basis
// and total columns, and one column per entity. Any header that is not the
// UID, basis or total is treated as an entity name. Rows with no service UID
// or with unparseable counts are rejected, never silently dropped.
func ParseAllocationRows(table *Table) ([]core.AllocationRow, []core.RejectedRow, error) {
	uidCol, basisCol, totalCol := -1, -1, -1
	entityCols := map[string]int{}
	for i, header := range table.Headers {
		if header == "" {
			continue
		}
		switch squash(header) {
		case "uid", "serviceuid", "service", "uniqueid":
			uidCol = i
		case "basis", "allocationbasis":
			basisCol = i
		case "total", "totalcount", "grandtotal":
			totalCol = i
		default:
			entityCols[header] = i
		}
	}
	if uidCol < 0 {
		return nil, nil, core.ErrMissingUID
	}

	var rows []core.AllocationRow
	var rejected []core.RejectedRow
	seen := make(map[string]bool)
	for i, raw := range table.Rows {
		if blankRow(raw) {
			continue
		}
		rowNum := i + 2

		uid := Cell(raw, uidCol)
		var errs []string
		if uid == "" {
			errs = append(errs, "missing UID")
		} else {
			if seen[uid] {
				errs = append(errs, "duplicate UID in file")
			}
			seen[uid] = true
		}

		row := core.AllocationRow{
			ServiceUID: uid,
			Counts:     make(map[string]float64, len(entityCols)),
		}
		if basisCol >= 0 {
			row.Basis = Cell(raw, basisCol)
		}

		var sum float64
		for entity, col := range entityCols {
			v := Cell(raw, col)
			if v == "" {
				row.Counts[entity] = 0
				continue
			}
			n, err := core.ParseAmount(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("invalid amount for %s: %s", entity, v))
				continue
			}
			row.Counts[entity] = n
			sum += n
		}

		// An explicit total wins; otherwise the entity counts define it.
		row.TotalCount = sum
		if totalCol >= 0 {
			if v := Cell(raw, totalCol); v != "" {
				n, err := core.ParseAmount(v)
				if err != nil {
					errs = append(errs, fmt.Sprintf("invalid amount for %s: %s", table.Headers[totalCol], v))
				} else {
					row.TotalCount = n
				}
			}
		}

		if len(errs) > 0 {
			rejected = append(rejected, core.RejectedRow{RowIndex: rowNum, UID: uid, Errors: errs})
			continue
		}
		rows = append(rows, row)
	}
	return rows, rejected, nil
}
