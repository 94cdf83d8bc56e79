package api

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"
)

// ResumeUploadHandler handles resume uploads and ingestion
// @Summary Upload and ingest a resume
// @Description Upload a resume file (PDF/DOCX/TXT), extract facts, queue embedding generation and run duplicate detection
// @Tags resumes
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Resume file (PDF, DOCX or TXT)"
// @Param tenant_id formData string true "Tenant ID"
// @Param candidate_id formData string false "Existing candidate to refresh (omit to create)"
// @Success 200 {object} resume.Result
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /resumes/upload [post]
func (a *API) ResumeUploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if a.ingestor == nil {
		writeError(w, http.StatusServiceUnavailable, "resume ingestion requires a configured LLM provider")
		return
	}

	startTime := time.Now()

	// Parse multipart form (max 10MB)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid (max 10MB)")
		return
	}

	tenantID := r.FormValue("tenant_id")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}
	candidateID := r.FormValue("candidate_id")

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if ext != ".pdf" && ext != ".docx" && ext != ".doc" && ext != ".txt" {
		writeError(w, http.StatusBadRequest, "invalid file type (supported: PDF, DOCX, TXT)")
		return
	}

	parsed, err := a.parser.ParseFile(header.Filename, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to parse resume: %v", err))
		return
	}

	result, err := a.ingestor.Ingest(r.Context(), tenantID, candidateID, parsed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("ingestion failed: %v", err))
		return
	}

	log.Printf("[API] Resume %s ingested for candidate %s in %v",
		header.Filename, result.CandidateID, time.Since(startTime))
	writeJSON(w, http.StatusOK, result)
}
