package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/agents"
	"github.com/chromara/hq/internal/contacts"
	queuememory "github.com/chromara/hq/internal/queue/memory"
)

var errValidation = errors.New("validation failed")

type lookupRequest struct {
	Company string `json:"company"`
	URL     string `json:"url"`
}

type competitorsRequest struct {
	URLs []string `json:"urls"`
}

type patentsRequest struct {
	Queries []string `json:"queries"`
}

func (s *Server) lookupContacts(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.URL != "" {
		if err := validateURL(req.URL); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	res, err := s.deps.Contacts.Lookup(r.Context(), ownerFrom(r.Context()), req.Company, req.URL)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listLookups(w http.ResponseWriter, r *http.Request) {
	window, ok := s.window(w, r)
	if !ok {
		return
	}
	var company string
	if raw := r.URL.Query().Get("domain"); strings.TrimSpace(raw) != "" {
		domain, err := contacts.NormalizeDomain(raw)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: %v", errValidation, err))
			return
		}
		company = contacts.RegistrableDomain(domain)
	}
	lookups, err := s.deps.Lookups.ListLookups(r.Context(), company, window)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lookups": lookups})
}

func (s *Server) submitCompetitors(w http.ResponseWriter, r *http.Request) {
	var req competitorsRequest
	if !s.decode(w, r, &req) {
		return
	}
	inputs, err := s.cleanInputs("urls", req.URLs)
	if err == nil {
		for _, u := range inputs {
			if err = validateURL(u); err != nil {
				break
			}
		}
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.submitRun(w, r, agent.KindCompetitorScrape, inputs)
}

func (s *Server) submitPatents(w http.ResponseWriter, r *http.Request) {
	var req patentsRequest
	if !s.decode(w, r, &req) {
		return
	}
	inputs, err := s.cleanInputs("queries", req.Queries)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.submitRun(w, r, agent.KindPatentSearch, inputs)
}

func (s *Server) submitRun(w http.ResponseWriter, r *http.Request, kind agent.Kind, inputs []string) {
	if !s.kinds[kind] {
		writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("%s agent unavailable", kind))
		return
	}
	runID, err := s.enqueueRun(r.Context(), kind, ownerFrom(r.Context()), inputs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) enqueueRun(ctx context.Context, kind agent.Kind, owner string, inputs []string) (string, error) {
	runID, err := s.deps.IDs.NewID()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	now := s.deps.Clock.Now()
	run := agent.Run{
		ID:        runID,
		Kind:      kind,
		OwnerID:   owner,
		Status:    agent.RunQueued,
		Inputs:    inputs,
		Submitted: now,
	}
	if err := s.deps.Runs.CreateRun(ctx, run); err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()
	item := agent.QueueItem{
		RunID:     runID,
		Kind:      kind,
		OwnerID:   owner,
		Inputs:    inputs,
		Submitted: now.Unix(),
	}
	if err := s.deps.Queue.Enqueue(queueCtx, item); err != nil {
		outcome := agent.Outcome{Failures: []agent.UnitFailure{}}
		if cerr := s.deps.Runs.CompleteRun(context.WithoutCancel(ctx), runID, agent.RunFailed, outcome,
			"not enqueued: "+err.Error(), s.deps.Clock.Now()); cerr != nil {
			s.logger.Warn("mark unqueued run failed", zap.String("run_id", runID), zap.Error(cerr))
		}
		return "", fmt.Errorf("enqueue run: %w", err)
	}
	return runID, nil
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	window, ok := s.window(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := agent.RunFilter{
		Kind:   agent.Kind(q.Get("kind")),
		Status: agent.RunStatus(q.Get("status")),
		Limit:  window.Limit,
		Offset: window.Offset,
	}
	switch filter.Status {
	case "", agent.RunQueued, agent.RunRunning, agent.RunCompleted, agent.RunFailed:
	default:
		writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(string(filter.Status)))
		return
	}
	runs, err := s.deps.Runs.ListRuns(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.deps.Runs.GetRun(r.Context(), chi.URLParam(r, "run_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) listInsights(w http.ResponseWriter, r *http.Request) {
	window, ok := s.window(w, r)
	if !ok {
		return
	}
	insights, err := s.deps.Insights.ListInsights(r.Context(), window)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": insights})
}

func (s *Server) listPatents(w http.ResponseWriter, r *http.Request) {
	window, ok := s.window(w, r)
	if !ok {
		return
	}
	patents, err := s.deps.Patents.ListPatents(r.Context(), window)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patents": patents})
}

func (s *Server) generateContent(w http.ResponseWriter, r *http.Request) {
	var req agents.ContentRequest
	if !s.decode(w, r, &req) {
		return
	}
	draft, err := s.deps.Content.Generate(r.Context(), ownerFrom(r.Context()), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, draft)
}

// fail maps err onto a status code. Unclassified errors are logged and
// reported as 500 without detail.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errValidation), errors.Is(err, agents.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, agent.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, agents.ErrUnavailable),
		errors.Is(err, queuememory.ErrFull),
		errors.Is(err, agent.ErrQueueClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func (s *Server) window(w http.ResponseWriter, r *http.Request) (agent.Window, bool) {
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return agent.Window{}, false
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return agent.Window{}, false
	}
	return agent.Window{Limit: limit, Offset: offset}, true
}

func (s *Server) cleanInputs(field string, raw []string) ([]string, error) {
	inputs := make([]string, 0, len(raw))
	for _, in := range raw {
		if in = strings.TrimSpace(in); in != "" {
			inputs = append(inputs, in)
		}
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: %s required", errValidation, field)
	}
	if limit := s.cfg.Runs.MaxInputs; limit > 0 && len(inputs) > limit {
		return nil, fmt.Errorf("%w: at most %d %s per run", errValidation, limit, field)
	}
	return inputs, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute http(s) URL", errValidation, raw)
	}
	return nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
