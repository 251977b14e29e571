package zimas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonescout/internal/evidence/registry/providers"
	"zonescout/internal/evidence/registry/providers/contract"
	"zonescout/internal/platform/config"
	"zonescout/internal/research/models"
)

func newScraper(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func parcelHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		assert.Equal(t, "/v1/parcels", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"address": fmt.Sprintf("%s %s", r.URL.Query().Get("house_number"), r.URL.Query().Get("street_name")),
			"panels": map[string]any{
				"Address / Legal":     "PIN 123-456\nLot 7",
				"Planning and Zoning": "Zoning: R1-1",
				"Assessor":            "   ",
				"Housing":             nil,
			},
			"evidence": []map[string]any{{"title": "ZIMAS", "url": "https://zimas.lacity.org/", "content": "R1-1", "score": 0.5}},
		})
	}
}

func TestProviderLookup(t *testing.T) {
	srv := newScraper(t, parcelHandler(t))
	p := New("zimas", srv.URL, config.DefaultRegistryPanels, WithAPIKey("secret"))

	ev, err := p.Lookup(context.Background(), map[string]string{
		providers.FilterStreetName:  "N Spring St",
		providers.FilterHouseNumber: "200",
	})
	require.NoError(t, err)

	assert.Equal(t, "Zoning: R1-1", *ev.Data["Planning and Zoning"].(*string))
	assert.Nil(t, ev.Data["Assessor"], "blank panel is not found")
	assert.Contains(t, ev.Data, "Case Numbers", "missing panels are present with nil value")
	assert.Nil(t, ev.Data["Case Numbers"])
	assert.Equal(t, DefaultNotes, ev.Data[DataNotes])
	assert.Equal(t, []models.Source{Source}, ev.Data[DataSources])
	assert.Len(t, ev.Data[DataEvidence], 1)
	assert.InDelta(t, 2.0/6.0, ev.Confidence, 0.0001)
	assert.Equal(t, "200 N Spring St", ev.Metadata["address"])

	require.NoError(t, p.Health(context.Background()))
}

func TestProviderContract(t *testing.T) {
	srv := newScraper(t, parcelHandler(t))
	p := New("zimas", srv.URL, config.DefaultRegistryPanels, WithAPIKey("secret"))

	(&contract.CapabilityTest{Provider: p}).Run(t)

	suite := &contract.ContractSuite{
		ProviderID: "zimas",
		Tests: []contract.ContractTest{
			{
				Name:         "returns parcel evidence with every panel",
				Provider:     p,
				Input:        map[string]string{"street_name": "Main St", "house_number": "1"},
				ExpectedType: providers.ProviderTypeParcel,
			},
		},
	}
	suite.Run(t)
}

func TestProviderErrorContract(t *testing.T) {
	statusServer := func(status int) *httptest.Server {
		return newScraper(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		})
	}
	input := map[string]string{"street_name": "Main St", "house_number": "1"}

	tests := []contract.ErrorContractTest{
		{
			Name:          "missing filters are bad data",
			Provider:      New("zimas", "http://unused.invalid", config.DefaultRegistryPanels),
			Input:         map[string]string{"street_name": "Main St"},
			ExpectedError: providers.ErrorBadData,
		},
		{
			Name:          "server error is a retryable outage",
			Provider:      New("zimas", statusServer(http.StatusBadGateway).URL, config.DefaultRegistryPanels),
			Input:         input,
			ExpectedError: providers.ErrorProviderOutage,
			ExpectedRetry: true,
		},
		{
			Name:          "unknown parcel is not found",
			Provider:      New("zimas", statusServer(http.StatusNotFound).URL, config.DefaultRegistryPanels),
			Input:         input,
			ExpectedError: providers.ErrorNotFound,
		},
		{
			Name:          "rejected key is an authentication failure",
			Provider:      New("zimas", statusServer(http.StatusUnauthorized).URL, config.DefaultRegistryPanels),
			Input:         input,
			ExpectedError: providers.ErrorAuthentication,
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, tt.Run)
	}
}

func TestProviderRespectsContextCancellation(t *testing.T) {
	srv := newScraper(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	p := New("zimas", srv.URL, config.DefaultRegistryPanels)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	test := contract.ErrorContractTest{
		Provider:      p,
		Ctx:           ctx,
		Input:         map[string]string{"street_name": "Main St", "house_number": "1"},
		ExpectedError: providers.ErrorTimeout,
		ExpectedRetry: true,
	}
	test.Run(t)
}

func TestParseResponse(t *testing.T) {
	p := New("zimas", "http://unused.invalid", []string{"Housing"})

	t.Run("invalid JSON is bad data", func(t *testing.T) {
		_, err := p.parseResponse(http.StatusOK, []byte("<html>"))
		assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
	})

	t.Run("missing panels is a contract mismatch", func(t *testing.T) {
		_, err := p.parseResponse(http.StatusOK, []byte(`{"address":"x"}`))
		assert.Equal(t, providers.ErrorContractMismatch, providers.GetCategory(err))
	})

	t.Run("scraper notes and extra sources are kept", func(t *testing.T) {
		ev, err := p.parseResponse(http.StatusOK, []byte(`{
			"panels": {"Housing": "RSO: Yes"},
			"notes": "Housing panel loaded slowly.",
			"sources": [{"name":"ZIMAS","url":"https://zimas.lacity.org/"},{"name":"LAHD","url":"https://housing.lacity.org/"}]
		}`))
		require.NoError(t, err)
		assert.Equal(t, "Housing panel loaded slowly.", ev.Data[DataNotes])
		assert.Equal(t, []models.Source{Source, {Name: "LAHD", URL: "https://housing.lacity.org/"}}, ev.Data[DataSources])
		assert.Equal(t, 1.0, ev.Confidence)
	})
}
