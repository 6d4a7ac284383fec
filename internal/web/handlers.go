package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/provimport/internal/core"
)

// maxListLimit caps the limit query parameter of the job list.
const maxListLimit = 500

// maxJSONBody bounds JSON request bodies other than extracted batches.
const maxJSONBody = 64 << 10

type extractedRequest struct {
	Source  string                 `json:"source"`
	Records []core.ExtractedRecord `json:"records"`
}

type urlRequest struct {
	URL string `json:"url"`
}

type commitResponse struct {
	JobID     string `json:"jobId"`
	Committed int    `json:"committed"`
}

type duplicatesResponse struct {
	Candidates []core.DuplicateCandidate `json:"candidates"`
}

type jobsResponse struct {
	Jobs []*core.ImportJob `json:"jobs"`
}

type healthResponse struct {
	Status  string             `json:"status"`
	Imports core.LimiterStatus `json:"imports"`
}

// handleHealth reports liveness and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Imports: s.service.Limiter().Status(),
	})
}

// handleTemplate downloads the blank template with its example row.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="provider_import_template.csv"`)
	if err := s.service.Template(w); err != nil {
		// Headers are already sent.
		respondErrorLogOnly(r, err)
	}
}

// handleImportFile validates an uploaded template CSV. A missing or rejected
// file still creates a failed job, returned with 201 like any other job.
func (s *Server) handleImportFile(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, fmt.Errorf("%w: request exceeds %d bytes", core.ErrFileTooLarge, maxSize), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, badRequest("multipart form: %v", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	var (
		name string
		size int64
		body io.Reader = http.NoBody
	)
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		name, size, body = header.Filename, header.Size, file
	case errors.Is(err, http.ErrMissingFile):
		// The service records a failed job for the missing file.
	default:
		respondError(w, r, badRequest("file field: %v", err), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	job, err := s.service.ImportFile(ctx, name, size, body, core.ActorFromContext(ctx))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// handleImportExtracted validates records already produced by an extractor.
func (s *Server) handleImportExtracted(w http.ResponseWriter, r *http.Request) {
	var req extractedRequest
	if err := decodeJSON(w, r, s.cfg.Import.MaxFileSize, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	ctx := r.Context()
	job, err := s.service.ImportExtracted(ctx, req.Source, req.Records, core.ActorFromContext(ctx))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// handleImportURL extracts and validates a roster page.
func (s *Server) handleImportURL(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	ctx := r.Context()
	job, err := s.service.ImportURL(ctx, req.URL, core.ActorFromContext(ctx))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// handleListJobs returns recent jobs, newest first.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, r, badRequest("limit must be a positive integer"), http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	jobs, err := s.service.ListJobs(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if jobs == nil {
		jobs = []*core.ImportJob{}
	}
	writeJSON(w, http.StatusOK, jobsResponse{Jobs: jobs})
}

// handleGetJob returns a single job.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleErrorReport downloads a job's errors and warnings as CSV.
func (s *Server) handleErrorReport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.service.GetJob(r.Context(), jobID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="import_%s_errors.csv"`, job.ID))
	if err := core.WriteErrorReport(w, job.Errors); err != nil {
		respondErrorLogOnly(r, err)
	}
}

// handleCommitJob writes a job's accepted records to the provider store.
func (s *Server) handleCommitJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	n, err := s.service.CommitJob(r.Context(), jobID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, commitResponse{JobID: jobID, Committed: n})
}

// handleCheckDuplicates compares one record against stored providers.
func (s *Server) handleCheckDuplicates(w http.ResponseWriter, r *http.Request) {
	var rec core.Record
	if err := decodeJSON(w, r, maxJSONBody, &rec); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	candidates, err := s.service.CheckDuplicates(r.Context(), rec)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if candidates == nil {
		candidates = []core.DuplicateCandidate{}
	}
	writeJSON(w, http.StatusOK, duplicatesResponse{Candidates: candidates})
}

// decodeJSON reads a single JSON value of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request exceeds %d bytes", core.ErrFileTooLarge, limit)
		}
		return badRequest("decode body: %v", err)
	}
	if dec.More() {
		return badRequest("body must contain a single JSON object")
	}
	return nil
}
