package core

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrUnreadableFile = errors.New("unreadable file")
	ErrNoHeaderRow    = errors.New("no header row")
	ErrMissingUID     = errors.New("missing UID column")
)

type (
	// Date wraps time.Time so optional calendar dates marshal as plain
	// "YYYY-MM-DD" strings, or null when unset.
	Date struct {
		time.Time
	}

	// NormalizedRecord is the canonical shape a spreadsheet row is converted
	// into. Months are keyed "Apr".."Mar"; CustomFields preserves values from
	// columns the mapper left unmapped, keyed by their original header text.
	NormalizedRecord struct {
		RowIndex        int
		UID             string
		ParentUID       string
		Description     string
		Tower           string
		BudgetHead      string
		Vendor          string
		StartDate       Date
		EndDate         Date
		RenewalDate     Date
		ContractID      string
		POEntity        string
		AllocationBasis string
		AllocationType  string
		ServiceType     string
		InitiativeType  string
		Priority        string
		Total           float64
		Months          map[string]float64
		CustomFields    map[string]string
	}

	// RejectedRow carries every validation error for one input row, with the
	// 1-based spreadsheet row index and the UID when one was extractable.
	RejectedRow struct {
		RowIndex int      `json:"rowIndex"`
		UID      string   `json:"uid,omitempty"`
		Errors   []string `json:"errors"`
	}

	// ImportReport is the outcome of one pass over a file. It always accounts
	// for every data row: TotalRows == len(Accepted) + len(Rejected).
	ImportReport struct {
		TotalRows int                `json:"totalRows"`
		Accepted  []NormalizedRecord `json:"accepted"`
		Rejected  []RejectedRow      `json:"rejected"`
	}

	// ImportJob is the persisted audit record of one commit. Dry runs never
	// create one. Immutable after creation.
	ImportJob struct {
		ID            string    `json:"id"`
		UserName      string    `json:"userName"`
		Filename      string    `json:"filename"`
		ImportType    string    `json:"importType"`
		TotalRows     int       `json:"totalRows"`
		AcceptedRows  int       `json:"acceptedRows"`
		RejectedRows  int       `json:"rejectedRows"`
		Status        JobStatus `json:"status"`
		FailureReason string    `json:"failureReason,omitempty"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	JobStatus string
)

const (
	JobCompleted JobStatus = "Completed"
	JobFailed    JobStatus = "Failed"
)

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// SumMonths returns the sum of the twelve monthly figures.
func (r NormalizedRecord) SumMonths() float64 {
	var sum float64
	for _, v := range r.Months {
		sum += v
	}
	return sum
}

// MarshalJSON flattens the record: canonical fields by name, months as
// "month_<Mon>" keys, then custom fields. Canonical fields win over custom
// fields with the same name.
func (r NormalizedRecord) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"rowIndex":         r.RowIndex,
		string(FieldUID):   r.UID,
		string(FieldTotal): r.Total,
	}
	setIf := func(f Field, v string) {
		if v != "" {
			m[string(f)] = v
		}
	}
	setIf(FieldParentUID, r.ParentUID)
	setIf(FieldDescription, r.Description)
	setIf(FieldTower, r.Tower)
	setIf(FieldBudgetHead, r.BudgetHead)
	setIf(FieldVendor, r.Vendor)
	setIf(FieldContractID, r.ContractID)
	setIf(FieldPOEntity, r.POEntity)
	setIf(FieldAllocationBasis, r.AllocationBasis)
	setIf(FieldAllocationType, r.AllocationType)
	setIf(FieldServiceType, r.ServiceType)
	setIf(FieldInitiativeType, r.InitiativeType)
	setIf(FieldPriority, r.Priority)
	if !r.StartDate.IsZero() {
		m[string(FieldStartDate)] = r.StartDate.Format("2006-01-02")
	}
	if !r.EndDate.IsZero() {
		m[string(FieldEndDate)] = r.EndDate.Format("2006-01-02")
	}
	if !r.RenewalDate.IsZero() {
		m[string(FieldRenewalDate)] = r.RenewalDate.Format("2006-01-02")
	}
	for mon, v := range r.Months {
		m[string(MonthField(mon))] = v
	}
	for k, v := range r.CustomFields {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return json.Marshal(m)
}
