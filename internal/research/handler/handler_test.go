package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"zonescout/internal/research/handler/mocks"
	"zonescout/internal/research/models"
	dErrors "zonescout/pkg/domain-errors"
	"zonescout/pkg/platform/sentinel"
	"zonescout/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mock_handler.go -package=mocks Service,RunStore,HealthChecker

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	runs    *mocks.MockRunStore
	router  http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.runs = mocks.NewMockRunStore(s.ctrl)

	h := New(s.service, s.runs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	return testutil.Serve(s.router, req)
}

func sampleResult() *models.Result {
	zone := "C4-2D-SN"
	rec := models.NewRecord()
	rec.Zoning.BaseZone = &zone
	return &models.Result{
		RunID:       "3f2b1c9e-0000-4000-8000-000000000001",
		Address:     "1600 Vine Street, Los Angeles, CA",
		StreetName:  "Vine Street",
		HouseNumber: "1600",
		Record:      rec,
		Narrative:   "# 1600 Vine Street",
		Iterations:  2,
		StopReason:  models.StopSufficient,
		StartedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:    2500 * time.Millisecond,
	}
}

// =============================================================================
// GET /health
// =============================================================================

func (s *HandlerSuite) TestHealth() {
	rec := s.serve(testutil.NewRequest(s.T(), http.MethodGet, "/health"))

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"ok":true}`, rec.Body.String())
}

func (s *HandlerSuite) TestHealthReportsRegistry() {
	checker := mocks.NewMockHealthChecker(s.ctrl)
	h := New(s.service, s.runs, slog.New(slog.NewTextHandler(io.Discard, nil)), WithRegistryHealth(checker))
	r := chi.NewRouter()
	h.Register(r)

	s.Run("reachable registry", func() {
		checker.EXPECT().Health(gomock.Any()).Return(nil)

		body := testutil.DecodeJSON[HealthResponse](s.T(), testutil.Serve(r, testutil.NewRequest(s.T(), http.MethodGet, "/health")), http.StatusOK)
		s.Equal(HealthResponse{OK: true, Registry: RegistryStatusOK}, body)
	})

	s.Run("unreachable registry keeps the process healthy", func() {
		checker.EXPECT().Health(gomock.Any()).Return(errors.New("dial tcp: connection refused"))

		body := testutil.DecodeJSON[HealthResponse](s.T(), testutil.Serve(r, testutil.NewRequest(s.T(), http.MethodGet, "/health")), http.StatusOK)
		s.Equal(HealthResponse{OK: true, Registry: RegistryStatusUnavailable}, body)
	})
}

// =============================================================================
// POST /analyze
// =============================================================================

func (s *HandlerSuite) TestAnalyzeSuccess() {
	s.service.EXPECT().
		Run(gomock.Any(), "Vine Street", "1600", []string{"Is there an ADU permit?"}).
		Return(sampleResult(), nil)

	rec := s.serve(testutil.NewJSONRequest(s.T(), http.MethodPost, "/analyze", map[string]any{
		"street_name":    "  Vine Street ",
		"house_number":   "1600",
		"user_questions": []string{"Is there an ADU permit?"},
	}))

	body := testutil.DecodeJSON[map[string]any](s.T(), rec, http.StatusOK)
	s.Equal("1600 Vine Street, Los Angeles, CA", body["address"])
	s.Equal("sufficient", body["stop_reason"])
	s.Equal(float64(2500), body["duration_ms"])
	s.Equal([]any{}, body["warnings"])
	s.Equal([]any{}, body["sources"])
	record := body["record"].(map[string]any)
	s.Equal("C4-2D-SN", record["zoning"].(map[string]any)["base_zone"])
}

func (s *HandlerSuite) TestAnalyzeValidation() {
	cases := []struct {
		name string
		body string
		code string
	}{
		{"missing body", ``, "bad_request"},
		{"malformed JSON", `{"street_name":`, "bad_request"},
		{"blank street", `{"street_name":"  ","house_number":"1600"}`, "validation_error"},
		{"blank house number", `{"street_name":"Vine Street","house_number":""}`, "validation_error"},
		{"street too long", `{"street_name":"` + strings.Repeat("a", 201) + `","house_number":"1"}`, "validation_error"},
		{"too many questions", `{"street_name":"Vine","house_number":"1","user_questions":[` +
			strings.TrimSuffix(strings.Repeat(`"q",`, 13), ",") + `]}`, "validation_error"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			rec := s.serve(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/analyze", tc.body))

			testutil.AssertError(s.T(), rec, http.StatusBadRequest, tc.code)
		})
	}
}

func (s *HandlerSuite) TestAnalyzeServiceErrors() {
	s.Run("domain error keeps its status", func() {
		s.service.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidation, "street_name is required"))

		rec := s.serve(testutil.NewJSONRequest(s.T(), http.MethodPost, "/analyze",
			map[string]string{"street_name": "Vine", "house_number": "1"}))

		testutil.AssertError(s.T(), rec, http.StatusBadRequest, "validation_error")
	})

	s.Run("unexpected error is hidden", func() {
		s.service.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("pq: connection refused"))

		rec := s.serve(testutil.NewJSONRequest(s.T(), http.MethodPost, "/analyze",
			map[string]string{"street_name": "Vine", "house_number": "1"}))

		s.NotContains(rec.Body.String(), "connection refused")
		body := testutil.AssertError(s.T(), rec, http.StatusInternalServerError, "internal_error")
		s.Empty(body.ErrorDescription)
	})
}

// =============================================================================
// GET /runs/{id}
// =============================================================================

func (s *HandlerSuite) TestGetRun() {
	want := sampleResult()
	s.runs.EXPECT().FindByID(gomock.Any(), want.RunID).Return(want, nil)

	rec := s.serve(testutil.NewRequest(s.T(), http.MethodGet, "/runs/"+want.RunID))

	body := testutil.DecodeJSON[AnalyzeResponse](s.T(), rec, http.StatusOK)
	s.Equal(want.RunID, body.RunID)
	s.Equal(want.Narrative, body.Narrative)
}

func (s *HandlerSuite) TestGetRunNotFound() {
	s.runs.EXPECT().FindByID(gomock.Any(), "missing").Return(nil, sentinel.ErrNotFound)

	rec := s.serve(testutil.NewRequest(s.T(), http.MethodGet, "/runs/missing"))

	testutil.AssertError(s.T(), rec, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestGetRunDirectWithURLParams() {
	h := New(s.service, s.runs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.runs.EXPECT().FindByID(gomock.Any(), "abc").Return(nil, errors.New("timeout"))

	req := testutil.WithURLParams(
		httptest.NewRequest(http.MethodGet, "/runs/abc", nil).WithContext(context.Background()),
		map[string]string{"id": "abc"},
	)
	rec := httptest.NewRecorder()
	h.HandleGetRun(rec, req)

	testutil.AssertError(s.T(), rec, http.StatusInternalServerError, "internal_error")
}

func (s *HandlerSuite) TestGetRunBlankID() {
	h := New(s.service, s.runs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	req := testutil.WithURLParams(httptest.NewRequest(http.MethodGet, "/runs/", nil), map[string]string{"id": " "})
	rec := httptest.NewRecorder()
	h.HandleGetRun(rec, req)

	testutil.AssertError(s.T(), rec, http.StatusBadRequest, "bad_request")
}
