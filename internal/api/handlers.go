package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/safescan/internal/jobstore"
	"github.com/sells-group/safescan/internal/model"
)

var errIngredientNotFound = eris.New("api: ingredient not found")

// ResearchAccepted is the reply to a deep research request.
type ResearchAccepted struct {
	JobID          string          `json:"job_id"`
	Status         model.JobStatus `json:"status"`
	Message        string          `json:"message"`
	CheckStatusURL string          `json:"check_status_url"`
}

// IngredientInfo is the reply to an ingredient lookup.
type IngredientInfo struct {
	Ingredient  string      `json:"ingredient"`
	MatchedAs   string      `json:"matched_as"`
	Grade       model.Grade `json:"grade"`
	HazardScore int         `json:"hazard_score"`
	Reason      string      `json:"reason"`
	Category    string      `json:"category,omitempty"`
	Source      string      `json:"source,omitempty"`
	Concerns    []string    `json:"concerns"`
	HiddenTruth string      `json:"hidden_truth,omitempty"`
}

// CleanupResult is the reply to an expired-job sweep.
type CleanupResult struct {
	Backend string `json:"backend"`
	Deleted int    `json:"deleted"`
	Message string `json:"message"`
}

type narrator interface {
	Narrative(key string) (string, bool)
}

type degrader interface {
	Degraded() bool
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.deps.Store != nil {
		body["store"] = s.deps.Store.Backend()
		if d, ok := s.deps.Store.(degrader); ok {
			body["degraded"] = d.Degraded()
		}
	}
	if s.deps.Catalog != nil {
		body["tier_db_version"] = s.deps.Catalog.Stats().Version
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req model.ScanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.deps.Scorer.Score(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeepResearch(w http.ResponseWriter, r *http.Request) {
	var req model.ResearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	job, err := s.deps.Jobs.Start(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResearchAccepted{
		JobID:          job.ID,
		Status:         job.Status,
		Message:        "Deep research started. This may take 30-60 seconds.",
		CheckStatusURL: s.deps.StatusPath + job.ID,
	})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Jobs.Get(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleIngredient(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entry, matched, ok := s.deps.Catalog.Search(name)
	if !ok {
		writeError(w, eris.Wrapf(errIngredientNotFound, "%q", name))
		return
	}
	info := IngredientInfo{
		Ingredient:  name,
		MatchedAs:   matched,
		Grade:       entry.Tier,
		HazardScore: entry.Hazard,
		Reason:      entry.Reason,
		Category:    entry.Category,
		Source:      entry.Source,
		Concerns:    entry.Concerns,
	}
	if info.Concerns == nil {
		info.Concerns = []string{}
	}
	if n, ok := s.deps.Catalog.(narrator); ok && entry.Narrative != "" {
		info.HiddenTruth, _ = n.Narrative(entry.Narrative)
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.Stats())
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	backend := s.deps.Store.Backend()
	res := CleanupResult{Backend: backend}

	sweeper, ok := s.deps.Store.(jobstore.Sweeper)
	if !ok || backend == jobstore.DriverRedis || backend == jobstore.DriverMemory {
		res.Message = fmt.Sprintf("Jobs expire automatically on the %s backend.", backend)
		writeJSON(w, http.StatusOK, res)
		return
	}
	n, err := sweeper.DeleteExpired(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	res.Deleted = n
	res.Message = fmt.Sprintf("Removed %d expired jobs.", n)
	zap.L().Info("api: expired jobs swept", zap.String("backend", backend), zap.Int("deleted", n))
	writeJSON(w, http.StatusOK, res)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return eris.Wrap(model.ErrInvalidRequest, "invalid request body: "+err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// writeError maps err to a status code and writes {"error": "..."}.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, jobstore.ErrNotFound), errors.Is(err, errIngredientNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
