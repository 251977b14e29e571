package httptransport

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"zonescout/internal/platform/metrics"
	"zonescout/internal/platform/middleware"
	"zonescout/pkg/testutil"
)

type pingRoutes struct{}

func (pingRoutes) Register(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	r.Post("/echo", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
}

func newRouter() http.Handler {
	reg := prometheus.NewRegistry()
	return NewRouter(Options{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		RequestTimeout: time.Minute,
	}, pingRoutes{})
}

func TestRouterServesGroupsAndMetrics(t *testing.T) {
	r := newRouter()

	rec := testutil.Serve(r, testutil.NewRequest(t, http.MethodGet, "/ping"))
	assert.Equal(t, "pong", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = testutil.Serve(r, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "zonescout_http_requests_total")
}

func TestRouterRequiresJSONBodies(t *testing.T) {
	r := newRouter()

	req := testutil.NewRequestWithBody(t, http.MethodPost, "/echo", "x")
	req.Header.Set("Content-Type", "text/plain")
	assert.Equal(t, http.StatusUnsupportedMediaType, testutil.Serve(r, req).Code)

	rec := testutil.Serve(r, testutil.NewJSONRequest(t, http.MethodPost, "/echo", map[string]string{}))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
