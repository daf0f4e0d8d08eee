// Package api exposes the scraping service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maltedev/aliexpress-scraper/internal/antibot"
	"github.com/maltedev/aliexpress-scraper/internal/scraper"
	"github.com/maltedev/aliexpress-scraper/internal/storage"
	"github.com/maltedev/aliexpress-scraper/internal/summary"
)

type Handlers struct {
	service *scraper.Service
	store   *storage.Store
	logger  *slog.Logger
}

// NewHandlers wires the service into HTTP. store may be nil when persistence
// is disabled; the run endpoints then report 503.
func NewHandlers(service *scraper.Service, store *storage.Store, logger *slog.Logger) *Handlers {
	return &Handlers{
		service: service,
		store:   store,
		logger:  logger.With("component", "api"),
	}
}

type scrapeRequest struct {
	Query string `json:"query"`
}

type scrapeResponse struct {
	RunID   string           `json:"run_id,omitempty"`
	Result  json.RawMessage  `json:"result"`
	Summary *summary.Summary `json:"summary,omitempty"`
}

// Scrape handles POST /api/scrape. The crawl runs synchronously within the
// request; callers are expected to set generous client timeouts.
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		h.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.service.Scrape(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, antibot.ErrDetected) {
			h.writeError(w, http.StatusBadGateway, "crawl blocked by anti-bot protection")
			return
		}
		h.logger.Error("scrape failed", "query", req.Query, "error", err)
		h.writeError(w, http.StatusInternalServerError, "scrape failed")
		return
	}

	resp := scrapeResponse{}
	if s, err := h.service.Summarize(r.Context(), result); err == nil {
		resp.Summary = s
	} else {
		h.logger.Warn("summary failed", "query", req.Query, "error", err)
	}

	if h.store != nil {
		if id, err := h.store.SaveRun(r.Context(), result); err == nil {
			resp.RunID = id.String()
		} else {
			h.logger.Error("failed to persist run", "query", req.Query, "error", err)
		}
	}

	doc, err := json.Marshal(result)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "encode result")
		return
	}
	resp.Result = doc

	h.writeJSON(w, http.StatusOK, resp)
}

// ListRuns handles GET /api/runs.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}
	runs, err := h.store.ListRuns(r.Context(), 50)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.writeError(w, http.StatusInternalServerError, "list runs")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// GetRun handles GET /api/runs/{runID}.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
