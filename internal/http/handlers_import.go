package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"opex/internal/core"
	"opex/internal/importer"
)

// maxUploadBytes bounds the multipart body; budget workbooks are small.
const maxUploadBytes = 32 << 20

type commitResponse struct {
	ImportJobID  string            `json:"importJobId"`
	TotalRows    int               `json:"totalRows"`
	AcceptedRows int               `json:"acceptedRows"`
	RejectedRows int               `json:"rejectedRows"`
	Report       core.ImportReport `json:"report"`
}

// handleImport accepts a multipart upload. Form fields: "file" (required),
// "dryRun" ("true" validates without writing), "userName", "importType",
// "customMapping" (JSON object of raw header to canonical field). A dry run
// answers with the resolved mapping and full report; a commit answers with
// the job outcome.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	override, err := parseMappingField(r.FormValue("customMapping"))
	if errors.Is(err, errBadMappingJSON) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if isDryRun(r.FormValue("dryRun")) {
		result, err := s.imports.DryRun(r.Context(), header.Filename, data, override)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"headerMapping": result.Mapping,
			"report":        result.Report,
		})
		return
	}

	userName := strings.TrimSpace(r.FormValue("userName"))
	if userName == "" {
		userName = "unknown"
	}
	importType := strings.TrimSpace(r.FormValue("importType"))
	if importType == "" {
		importType = "budgets"
	}

	result, err := s.imports.Commit(r.Context(), userName, header.Filename, importType, data, override)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	report := result.Report
	if report.Accepted == nil {
		report.Accepted = []core.NormalizedRecord{}
	}
	if report.Rejected == nil {
		report.Rejected = []core.RejectedRow{}
	}
	writeJSON(w, http.StatusCreated, commitResponse{
		ImportJobID:  result.Job.ID,
		TotalRows:    result.Job.TotalRows,
		AcceptedRows: result.Job.AcceptedRows,
		RejectedRows: result.Job.RejectedRows,
		Report:       report,
	})
}

func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.imports.ImportHistory(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imports": jobs})
}

func (s *Server) handleImportDetail(w http.ResponseWriter, r *http.Request) {
	job, rejected, err := s.imports.ImportDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if rejected == nil {
		rejected = []core.RejectedRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job, "rejected": rejected})
}

func (s *Server) handleRejectedCSV(w http.ResponseWriter, r *http.Request) {
	job, csv, err := s.imports.RejectedCSV(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="rejected-`+job.ID+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(csv)
}

func (s *Server) handleLineItems(w http.ResponseWriter, r *http.Request) {
	currency := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	items, err := s.imports.ListLineItems(r.Context(), currency)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	// Conversion always lands in the reporting currency.
	writeJSON(w, http.StatusOK, map[string]any{
		"currency":  core.ReportingCurrency,
		"lineItems": items,
	})
}

func isDryRun(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// errBadMappingJSON distinguishes a syntactically broken customMapping field
// from an override naming an unknown canonical field.
var errBadMappingJSON = errors.New("customMapping is not a valid JSON object")

func parseMappingField(raw string) (map[string]core.Field, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, errBadMappingJSON
	}
	return importer.ParseOverride(m)
}
