// Package search runs web search rounds against Tavily.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"zonescout/internal/evidence/registry/providers"
	"zonescout/internal/platform/config"
	"zonescout/internal/platform/httpclient"
	"zonescout/internal/research/models"
	"zonescout/pkg/platform/circuit"
	"zonescout/pkg/platform/sentinel"
	pstrings "zonescout/pkg/platform/strings"
)

const providerID = "tavily"

// ErrAllQueriesFailed is returned when a round had queries and none succeeded.
var ErrAllQueriesFailed = errors.New("search: every query failed")

// Tavily calls the Tavily search API.
type Tavily struct {
	apiKey      string
	endpoint    string
	depth       string
	maxResults  int
	maxQueries  int
	maxDomains  int
	concurrency int
	retries     int
	retryDelay  time.Duration

	client  *http.Client
	limiter *rate.Limiter
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Tavily client.
type Option func(*Tavily)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tavily) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(t *Tavily) {
		t.metrics = m
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Tavily) {
		if c != nil {
			t.client = c
		}
	}
}

// WithRetryDelay sets the initial backoff after a 429. Doubles per retry.
func WithRetryDelay(d time.Duration) Option {
	return func(t *Tavily) {
		t.retryDelay = d
	}
}

// NewTavily constructs a Tavily client from configuration.
func NewTavily(cfg config.Search, opts ...Option) *Tavily {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	t := &Tavily{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		endpoint:    cfg.Endpoint,
		depth:       cfg.Depth,
		maxResults:  cfg.MaxResults,
		maxQueries:  cfg.MaxQueries,
		maxDomains:  cfg.MaxDomains,
		concurrency: max(1, cfg.Concurrency),
		retries:     2,
		retryDelay:  time.Second,
		client: httpclient.New(httpclient.Timeouts{
			Connect: time.Duration(cfg.ConnectTimeoutSec) * time.Second,
			Read:    time.Duration(cfg.ReadTimeoutSec) * time.Second,
			Total:   time.Duration(cfg.RequestTimeoutSec) * time.Second,
		}),
		limiter: rate.NewLimiter(limit, 1),
		breaker: circuit.New(providerID,
			circuit.WithFailureThreshold(cfg.BreakerThreshold),
			circuit.WithCooldown(time.Duration(cfg.BreakerCooldownSec)*time.Second),
		),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Search runs every query and returns the concatenated results in query
// order. A failed query is logged and skipped; an error is returned only when
// every query failed. A missing API key yields no results and no error.
func (t *Tavily) Search(ctx context.Context, queries, domains []string) ([]models.EvidenceItem, error) {
	if t.apiKey == "" {
		t.logger.WarnContext(ctx, "tavily API key is not set; skipping web search")
		return []models.EvidenceItem{}, nil
	}

	queries = t.prepareQueries(queries)
	domains = t.prepareDomains(domains)
	if len(queries) == 0 {
		return []models.EvidenceItem{}, nil
	}

	perQuery := make([][]models.EvidenceItem, len(queries))
	errs := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for i, q := range queries {
		g.Go(func() error {
			start := time.Now()
			items, err := t.searchOne(gctx, q, domains)
			t.metrics.ObserveQuery(outcome(err), time.Since(start))
			if err != nil {
				t.logger.ErrorContext(gctx, "tavily query failed",
					"query", q,
					"category", providers.GetCategory(err),
					"error", err,
				)
				errs[i] = err
				return nil
			}
			perQuery[i] = items
			return nil
		})
	}
	_ = g.Wait()

	results := []models.EvidenceItem{}
	failed := 0
	for i := range queries {
		if errs[i] != nil {
			failed++
			continue
		}
		results = append(results, perQuery[i]...)
	}
	if failed == len(queries) {
		return results, fmt.Errorf("%w: %w", ErrAllQueriesFailed, errors.Join(errs...))
	}
	return results, nil
}

// prepareQueries caps the list first, then drops blanks.
func (t *Tavily) prepareQueries(queries []string) []string {
	if t.maxQueries > 0 && len(queries) > t.maxQueries {
		queries = queries[:t.maxQueries]
	}
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

func (t *Tavily) prepareDomains(domains []string) []string {
	domains = pstrings.DedupeAndTrimLower(domains)
	if t.maxDomains > 0 && len(domains) > t.maxDomains {
		domains = domains[:t.maxDomains]
	}
	return domains
}

type searchRequest struct {
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeAnswer  bool     `json:"include_answer"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (t *Tavily) searchOne(ctx context.Context, query string, domains []string) ([]models.EvidenceItem, error) {
	if !t.breaker.Allow() {
		return nil, providers.NewProviderError(providers.ErrorProviderOutage, providerID, "circuit open", sentinel.ErrUnavailable)
	}

	payload, err := json.Marshal(searchRequest{
		Query:          query,
		SearchDepth:    t.depth,
		MaxResults:     t.maxResults,
		IncludeAnswer:  false,
		IncludeDomains: domains,
	})
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, providerID, "encode request", err)
	}

	delay := t.retryDelay
	for attempt := 0; ; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, providers.TransportError(ctx, providerID, err)
		}

		items, err := t.post(ctx, payload)
		if err == nil {
			t.recordSuccess(ctx)
			return items, nil
		}
		if providers.IsRetryable(err) {
			t.recordFailure(ctx)
		}
		if providers.GetCategory(err) != providers.ErrorRateLimited || attempt >= t.retries {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, providers.TransportError(ctx, providerID, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (t *Tavily) post(ctx context.Context, payload []byte) ([]models.EvidenceItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, providerID, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, providers.TransportError(ctx, providerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, providers.NewProviderError(providers.CategoryForStatus(resp.StatusCode), providerID,
			fmt.Sprintf("tavily http %d", resp.StatusCode), nil)
	}

	var parsed searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&parsed); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerID, "invalid JSON response", err)
	}

	items := make([]models.EvidenceItem, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		items = append(items, models.EvidenceItem{Title: r.Title, URL: r.URL, Content: r.Content, Score: r.Score})
	}
	return items, nil
}

func (t *Tavily) recordSuccess(ctx context.Context) {
	if _, change := t.breaker.RecordSuccess(); change.Closed {
		t.logger.InfoContext(ctx, "tavily circuit closed")
		t.metrics.SetBreakerOpen(false)
	}
}

func (t *Tavily) recordFailure(ctx context.Context) {
	if _, change := t.breaker.RecordFailure(); change.Opened {
		t.logger.WarnContext(ctx, "tavily circuit opened; web search paused")
		t.metrics.SetBreakerOpen(true)
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(providers.GetCategory(err))
}
