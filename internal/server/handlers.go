package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/sqlint/internal/state"
	"github.com/leapstack-labs/sqlint/pkg/lint"
)

// LintRequest is the body of POST /v1/lint.
type LintRequest struct {
	SQL      string `json:"sql"`
	Filename string `json:"filename,omitempty"`
}

// BatchRequest is the body of POST /v1/lint/batch.
type BatchRequest struct {
	Files []lint.SourceFile `json:"files"`
}

// BatchResponse is the reply to POST /v1/lint/batch.
type BatchResponse struct {
	Results []lint.LintResult `json:"results"`
	Summary lint.Summary      `json:"summary"`
	RunID   string            `json:"runId,omitempty"`
}

// RuleView describes a registered rule and whether the server runs it.
type RuleView struct {
	lint.RuleInfo
	Enabled bool `json:"enabled"`
}

// RunView is a stored run with its messages.
type RunView struct {
	state.Run
	Messages []state.StoredMessage `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	var req LintRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.SQL == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("sql is required"))
		return
	}
	if req.Filename == "" {
		req.Filename = DefaultFilename
	}

	s.writeJSON(w, http.StatusOK, s.linter.Lint(req.SQL, s.cfg, req.Filename))
}

func (s *Server) handleLintBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Files) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("files is required"))
		return
	}
	for i := range req.Files {
		if req.Files[i].Filename == "" {
			req.Files[i].Filename = fmt.Sprintf("file%d.sql", i+1)
		}
	}

	results, err := s.linter.LintFilesParallel(r.Context(), req.Files, s.cfg)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	resp := BatchResponse{Results: results, Summary: lint.Summarize(results)}
	if run := s.record(r, results); run != nil {
		resp.RunID = run.ID
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRules(w http.ResponseWriter, _ *http.Request) {
	enabled := s.enabledRules()
	rules := s.registry.GetAll()
	views := make([]RuleView, len(rules))
	for i, rule := range rules {
		views[i] = RuleView{RuleInfo: rule.Info(), Enabled: enabled[rule.Name]}
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleRule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rule, ok := s.registry.Get(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", lint.ErrRuleNotFound, name))
		return
	}
	s.writeJSON(w, http.StatusOK, RuleView{RuleInfo: rule.Info(), Enabled: s.enabledRules()[name]})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, errors.New("history is disabled"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []state.Run{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, errors.New("history is disabled"))
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, state.ErrRunNotFound) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}
	msgs, err := s.store.GetRunMessages(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RunView{Run: *run, Messages: msgs})
}

func (s *Server) enabledRules() map[string]bool {
	enabled := make(map[string]bool)
	if s.cfg != nil {
		for _, name := range s.cfg.RuleNames() {
			enabled[name] = true
		}
	}
	return enabled
}

// record stores results when history is enabled. Failures are logged and
// never fail the request.
func (s *Server) record(r *http.Request, results []lint.LintResult) *state.Run {
	if s.store == nil {
		return nil
	}
	run, err := s.store.RecordRun(r.Context(), results, "serve")
	if err != nil {
		s.logger.Warn("failed to record run", "error", err)
		return nil
	}
	return run
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
