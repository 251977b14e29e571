// Package zimas is the parcel provider backed by the ZIMAS scraping service.
// The service drives the browser session against zimas.lacity.org and returns
// the text of each requested panel; this package only speaks its HTTP API.
package zimas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"zonescout/internal/evidence/registry/providers"
	"zonescout/internal/research/models"
)

// Reserved evidence data keys. Every other key is a panel name.
const (
	DataNotes    = "notes"
	DataSources  = "sources"
	DataEvidence = "evidence"
)

// DefaultNotes is used when the scraper returns no notes of its own.
const DefaultNotes = "Official scrape completed; panel values may be partial."

// Source is cited for every snapshot this provider returns.
var Source = models.Source{Name: "ZIMAS", URL: "https://zimas.lacity.org/"}

const maxBodyBytes = 4 << 20

// Provider looks up parcels through the scraper service.
type Provider struct {
	id      string
	baseURL string
	apiKey  string
	panels  []string
	client  *http.Client
	now     func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithAPIKey sets the key sent in the X-API-Key header.
func WithAPIKey(key string) Option {
	return func(p *Provider) {
		p.apiKey = key
	}
}

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithPanels overrides the panels requested for each parcel.
func WithPanels(panels []string) Option {
	return func(p *Provider) {
		if len(panels) > 0 {
			p.panels = append([]string{}, panels...)
		}
	}
}

// New creates a provider for the scraper service at baseURL.
func New(id, baseURL string, panels []string, opts ...Option) *Provider {
	p := &Provider{
		id:      id,
		baseURL: strings.TrimRight(baseURL, "/"),
		panels:  append([]string{}, panels...),
		client:  &http.Client{Timeout: 3 * time.Minute},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) ID() string {
	return p.id
}

func (p *Provider) Capabilities() providers.Capabilities {
	fields := make([]providers.FieldCapability, 0, len(p.panels))
	for _, panel := range p.panels {
		fields = append(fields, providers.FieldCapability{FieldName: panel, Available: true})
	}
	return providers.Capabilities{
		Protocol: providers.ProtocolHTTP,
		Type:     providers.ProviderTypeParcel,
		Fields:   fields,
		Version:  "v1",
		Filters:  []string{providers.FilterStreetName, providers.FilterHouseNumber},
	}
}

// Lookup fetches the configured panels for one parcel.
func (p *Provider) Lookup(ctx context.Context, filters map[string]string) (*providers.Evidence, error) {
	street := strings.TrimSpace(filters[providers.FilterStreetName])
	number := strings.TrimSpace(filters[providers.FilterHouseNumber])
	if street == "" || number == "" {
		return nil, providers.NewProviderError(providers.ErrorBadData, p.id,
			"street_name and house_number filters are required", nil)
	}

	q := url.Values{}
	q.Set("street_name", street)
	q.Set("house_number", number)
	for _, panel := range p.panels {
		q.Add("panel", panel)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/parcels?"+q.Encode(), nil)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, p.id, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, providers.TransportError(ctx, p.id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, providers.TransportError(ctx, p.id, err)
	}

	evidence, err := p.parseResponse(resp.StatusCode, body)
	if err != nil {
		return nil, err
	}
	return evidence, nil
}

// Health checks the scraper service's health endpoint.
func (p *Provider) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return providers.TransportError(ctx, p.id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return providers.NewProviderError(providers.CategoryForStatus(resp.StatusCode), p.id,
			fmt.Sprintf("health check returned status %d", resp.StatusCode), nil)
	}
	return nil
}

type parcelResponse struct {
	Address  string                `json:"address"`
	Panels   map[string]*string    `json:"panels"`
	Notes    string                `json:"notes"`
	Sources  []models.Source       `json:"sources"`
	Evidence []models.EvidenceItem `json:"evidence"`
}

func (p *Provider) parseResponse(status int, body []byte) (*providers.Evidence, error) {
	if status != http.StatusOK {
		return nil, providers.NewProviderError(providers.CategoryForStatus(status), p.id,
			fmt.Sprintf("unexpected status %d", status), nil)
	}

	var parsed parcelResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, p.id, "invalid JSON response", err)
	}
	if parsed.Panels == nil {
		return nil, providers.NewProviderError(providers.ErrorContractMismatch, p.id, "response has no panels", nil)
	}

	data := make(map[string]any, len(p.panels)+3)
	found := 0
	for _, panel := range p.panels {
		value := cleanPanel(parsed.Panels[panel])
		data[panel] = value
		if value != nil {
			found++
		}
	}

	notes := strings.TrimSpace(parsed.Notes)
	if notes == "" {
		notes = DefaultNotes
	}
	data[DataNotes] = notes

	sources := make([]models.Source, 0, len(parsed.Sources)+1)
	sources = append(sources, Source)
	for _, s := range parsed.Sources {
		if s.URL != "" && s.URL != Source.URL {
			sources = append(sources, s)
		}
	}
	data[DataSources] = sources
	data[DataEvidence] = parsed.Evidence

	confidence := 0.0
	if len(p.panels) > 0 {
		confidence = float64(found) / float64(len(p.panels))
	}

	return &providers.Evidence{
		ProviderID:   p.id,
		ProviderType: providers.ProviderTypeParcel,
		Confidence:   confidence,
		Data:         data,
		CheckedAt:    p.now(),
		Metadata:     map[string]string{"address": parsed.Address},
	}, nil
}

// cleanPanel trims panel text; blank panels count as not found.
func cleanPanel(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
