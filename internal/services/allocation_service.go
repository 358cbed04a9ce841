package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"opex/internal/core"
	"opex/internal/importer"
	"opex/internal/storage"
)

// AllocationGrid is the derived view of the whole allocation base: every row
// with its recomputed percentages, plus the entity column order.
type AllocationGrid struct {
	Rows     []AllocationGridRow `json:"rows"`
	Entities []string            `json:"entities"`
}

// AllocationGridRow pairs a stored row with its display strings: derived
// percentages plus the counts formatted the way the grid renders them.
type AllocationGridRow struct {
	core.AllocationRow
	Percentages   map[string]string `json:"percentages"`
	CountsDisplay map[string]string `json:"countsDisplay"`
	TotalDisplay  string            `json:"totalDisplay"`
}

func newGridRow(row core.AllocationRow) AllocationGridRow {
	counts := make(map[string]string, len(row.Counts))
	for entity, count := range row.Counts {
		counts[entity] = core.FormatCount(count)
	}
	return AllocationGridRow{
		AllocationRow: row,
		Percentages:   row.Percentages().Percentages,
		CountsDisplay: counts,
		TotalDisplay:  core.FormatCount(row.TotalCount),
	}
}

// AllocationImportResult reports a bulk replace: which services were written
// and which input rows were rejected.
type AllocationImportResult struct {
	Updated  int                `json:"updated"`
	Rejected []core.RejectedRow `json:"rejected"`
}

// AllocationService owns the allocation base. Writes to the same service are
// serialized through a per-service lock so concurrent edits settle on one
// row's counts at a time; reads always see a committed row and derive
// percentages from it, never from a half-applied update.
type AllocationService struct {
	storage *storage.SQLiteRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAllocationService(repo *storage.SQLiteRepository) *AllocationService {
	return &AllocationService{
		storage: repo,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *AllocationService) serviceLock(serviceUID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[serviceUID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[serviceUID] = l
	}
	return l
}

// Grid loads every allocation row and recomputes percentages from the stored
// counts.
func (s *AllocationService) Grid(ctx context.Context) (AllocationGrid, error) {
	rows, err := s.storage.ListAllocationRows(ctx)
	if err != nil {
		return AllocationGrid{}, fmt.Errorf("list allocation rows: %w", err)
	}

	grid := AllocationGrid{
		Rows:     make([]AllocationGridRow, 0, len(rows)),
		Entities: core.EntityOrder(rows),
	}
	for _, row := range rows {
		grid.Rows = append(grid.Rows, newGridRow(row))
	}
	return grid, nil
}

// Update replaces one service's allocation row and returns it with
// percentages recomputed from the new counts.
func (s *AllocationService) Update(ctx context.Context, row core.AllocationRow) (AllocationGridRow, error) {
	if row.ServiceUID == "" {
		return AllocationGridRow{}, fmt.Errorf("missing service UID")
	}

	l := s.serviceLock(row.ServiceUID)
	l.Lock()
	defer l.Unlock()

	if err := s.storage.UpsertAllocationRow(ctx, row); err != nil {
		return AllocationGridRow{}, err
	}

	slog.InfoContext(ctx, "Allocation row updated",
		"service_uid", row.ServiceUID,
		"total_count", row.TotalCount)

	return newGridRow(row), nil
}

// ImportFile bulk-replaces allocation rows from an uploaded spreadsheet.
// Listed services are overwritten, unlisted ones are untouched. Rejected
// input rows are reported alongside, they never block the valid ones.
func (s *AllocationService) ImportFile(ctx context.Context, filename string, data []byte) (AllocationImportResult, error) {
	table, err := importer.ReadTable(filename, bytes.NewReader(data))
	if err != nil {
		return AllocationImportResult{}, err
	}

	rows, rejected, err := importer.ParseAllocationRows(table)
	if err != nil {
		return AllocationImportResult{}, err
	}

	if len(rows) > 0 {
		if err := s.storage.ReplaceAllocationRows(ctx, rows); err != nil {
			return AllocationImportResult{}, err
		}
	}

	slog.InfoContext(ctx, "Allocation base imported",
		"filename", filename,
		"updated", len(rows),
		"rejected", len(rejected))

	return AllocationImportResult{Updated: len(rows), Rejected: rejected}, nil
}
