package http

import (
	"encoding/json"
	"io"
	"net/http"

	"opex/internal/core"
)

func (s *Server) handleAllocationGrid(w http.ResponseWriter, r *http.Request) {
	grid, err := s.allocations.Grid(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

// handleAllocationUpdate replaces one service's counts. The body carries
// basis, totalCount and counts; the service UID comes from the path.
func (s *Server) handleAllocationUpdate(w http.ResponseWriter, r *http.Request) {
	var row core.AllocationRow
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	row.ServiceUID = r.PathValue("serviceUid")

	updated, err := s.allocations.Update(r.Context(), row)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleAllocationImport(w http.ResponseWriter, r *http.Request) {
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

	result, err := s.allocations.ImportFile(r.Context(), header.Filename, data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if result.Rejected == nil {
		result.Rejected = []core.RejectedRow{}
	}
	writeJSON(w, http.StatusOK, result)
}
