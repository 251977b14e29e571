// Package handler exposes the research pipeline over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"zonescout/internal/research/models"
	dErrors "zonescout/pkg/domain-errors"
	"zonescout/pkg/platform/httputil"
	"zonescout/pkg/platform/sentinel"
)

// Service runs one research pipeline.
type Service interface {
	Run(ctx context.Context, streetName, houseNumber string, userQueries []string) (*models.Result, error)
}

// RunStore reads archived runs.
type RunStore interface {
	FindByID(ctx context.Context, runID string) (*models.Result, error)
}

// HealthChecker reports whether a downstream dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// Handler wires research endpoints to the research service.
type Handler struct {
	service  Service
	runs     RunStore
	registry HealthChecker
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithRegistryHealth reports the official registry's reachability on GET /health.
func WithRegistryHealth(c HealthChecker) Option {
	return func(h *Handler) {
		h.registry = c
	}
}

// New constructs a research handler with its dependencies.
func New(service Service, runs RunStore, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		runs:    runs,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts research endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Post("/analyze", h.HandleAnalyze)
	r.Get("/runs/{id}", h.HandleGetRun)
}

// HandleHealth handles GET /health. The process is healthy while it can
// serve; an unreachable registry only degrades runs, so it is reported but
// does not flip ok.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{OK: true}
	if h.registry != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		resp.Registry = RegistryStatusOK
		if err := h.registry.Health(ctx); err != nil {
			h.logger.WarnContext(ctx, "registry health check failed",
				"request_id", middleware.GetReqID(r.Context()),
				"error", err,
			)
			resp.Registry = RegistryStatusUnavailable
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleAnalyze handles POST /analyze requests.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[AnalyzeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Run(ctx, req.StreetName, req.HouseNumber, req.UserQuestions)
	if err != nil {
		h.logger.ErrorContext(ctx, "research run failed",
			"request_id", requestID,
			"street_name", req.StreetName,
			"house_number", req.HouseNumber,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "research run completed",
		"request_id", requestID,
		"run_id", result.RunID,
		"address", result.Address,
		"stop_reason", result.StopReason,
		"warnings", len(result.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleGetRun handles GET /runs/{id} requests.
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := strings.TrimSpace(chi.URLParam(r, "id"))
	if runID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "run id is required"))
		return
	}

	result, err := h.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "run not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load research run",
			"request_id", middleware.GetReqID(ctx),
			"run_id", runID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
