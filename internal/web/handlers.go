package web

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/smartalloc/portal/internal/allocator"
	"github.com/smartalloc/portal/internal/analytics"
	"github.com/smartalloc/portal/internal/csvio"
	"github.com/smartalloc/portal/internal/logging"
	"github.com/smartalloc/portal/internal/model"
	"github.com/smartalloc/portal/internal/session"
	"github.com/smartalloc/portal/internal/web/templates"
)

// handleIndex renders whichever view the state machine is in. The machine's
// State() self-corrects to Upload when a stale trigger left it on Results or
// Analytics without a batch, so the batch is always present for those views.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.machine.State()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	switch st.View {
	case session.ViewResults:
		templates.ResultsPage(st.Batch.Allocations, "").Render(r.Context(), w)
	case session.ViewAnalytics:
		templates.AnalyticsPage(analytics.Summarize(*st.Batch)).Render(r.Context(), w)
	default:
		templates.UploadPage(st.Error, "", "").Render(r.Context(), w)
	}
}

// handleAllocate runs one allocation round: read both files, parse them into
// typed records, call the remote service, and hand the outcome to the state
// machine. The machine's token makes the round's resolution discardable if a
// reset happens while the service call is outstanding.
func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		s.respondError(w, r, &allocator.Error{
			Kind:    allocator.KindValidation,
			Message: "file too large or invalid form",
			Err:     err,
		}, http.StatusBadRequest)
		return
	}

	candidates := readUpload(r, "candidates")
	internships := readUpload(r, "internships")

	tok, err := s.machine.Begin()
	if err != nil {
		// A submission is already outstanding; the UI disables the button,
		// so this is a stale or duplicated form post.
		s.respondError(w, r, err, http.StatusConflict)
		return
	}

	logger := logging.WithFields(r.Context(), "run_id", tok.RunID.String())
	logger.Info("allocation submitted")

	batch, err := s.runAllocation(r.Context(), candidates, internships)
	if err != nil {
		userMsg := allocator.MapError(err)
		logger.Warn("allocation failed", "error", err, "code", userMsg.Code)
		s.machine.Resolve(tok, nil, userMsg.Message)
	} else {
		logger.Info("allocation complete",
			"allocations", len(batch.Allocations),
			"candidates", len(batch.Candidates),
			"internships", len(batch.Internships),
		)
		if !s.machine.Resolve(tok, batch, "") {
			logger.Info("allocation outcome discarded after reset")
		}
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// runAllocation validates the uploads, parses both CSVs into typed records,
// and submits the raw files to the allocation service. The parsed records
// are threaded into the batch here because the service response carries only
// the allocations.
func (s *Server) runAllocation(ctx context.Context, candidates, internships *allocator.Upload) (*model.AllocationBatch, error) {
	if err := allocator.ValidateUploads(candidates, internships); err != nil {
		return nil, err
	}

	var (
		cands   []model.Candidate
		interns []model.Internship
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		cands, err = csvio.ReadCandidates(bytes.NewReader(candidates.Data))
		return err
	})
	g.Go(func() error {
		var err error
		interns, err = csvio.ReadInternships(bytes.NewReader(internships.Data))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, &allocator.Error{
			Kind:    allocator.KindParse,
			Message: "Failed to process files: " + err.Error(),
			Err:     err,
		}
	}

	allocs, err := s.client.Submit(ctx, candidates, internships)
	if err != nil {
		return nil, err
	}

	return &model.AllocationBatch{
		Allocations: allocs,
		Candidates:  cands,
		Internships: interns,
	}, nil
}

// readUpload pulls one named file out of the multipart form. A missing or
// empty part comes back nil; presence validation happens in the allocator.
func readUpload(r *http.Request, field string) *allocator.Upload {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		return nil
	}
	return &allocator.Upload{Filename: header.Filename, Data: data}
}

// handleViewAnalytics moves Results -> Analytics.
func (s *Server) handleViewAnalytics(w http.ResponseWriter, r *http.Request) {
	s.machine.ViewAnalytics()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleViewResults moves Analytics -> Results.
func (s *Server) handleViewResults(w http.ResponseWriter, r *http.Request) {
	s.machine.Back()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleReset discards the batch and any error and returns to Upload.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.machine.Reset()
	logging.FromContext(r.Context()).Info("session reset")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleResultsTable renders the filtered results table fragment.
func (s *Server) handleResultsTable(w http.ResponseWriter, r *http.Request) {
	st := s.machine.State()
	if st.Batch == nil {
		writeError(w, http.StatusNotFound, "no allocation results")
		return
	}

	query := r.URL.Query().Get("q")
	filtered := analytics.FilterAllocations(st.Batch.Allocations, query)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.ResultsTable(filtered).Render(r.Context(), w)
}

// handleAnalyticsJSON returns the aggregated summaries as JSON.
func (s *Server) handleAnalyticsJSON(w http.ResponseWriter, r *http.Request) {
	st := s.machine.State()
	if st.Batch == nil {
		writeError(w, http.StatusNotFound, "no allocation results")
		return
	}
	writeJSON(w, analytics.Summarize(*st.Batch))
}

// handleExportAllocations downloads the current allocations as CSV.
func (s *Server) handleExportAllocations(w http.ResponseWriter, r *http.Request) {
	st := s.machine.State()
	if st.Batch == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="allocations.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"Candidate", "Internship", "Score", "Reason", "Category", "Location"})
	for _, a := range st.Batch.Allocations {
		cw.Write([]string{
			a.Candidate,
			a.Internship,
			strconv.FormatFloat(a.Score, 'f', -1, 64),
			a.Reason,
			a.Category,
			a.Location,
		})
	}
	cw.Flush()
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// writeError writes a minimal JSON error response.
func writeError(w http.ResponseWriter, statusCode int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}
