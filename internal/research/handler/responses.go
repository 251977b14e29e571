package handler

import (
	"time"

	"zonescout/internal/research/models"
)

// AnalyzeResponse is the HTTP response for POST /analyze and GET /runs/{id}.
type AnalyzeResponse struct {
	RunID       string                `json:"run_id"`
	Address     string                `json:"address"`
	StreetName  string                `json:"street_name"`
	HouseNumber string                `json:"house_number"`
	Record      models.Record         `json:"record"`
	Evidence    []models.EvidenceItem `json:"evidence"`
	Narrative   string                `json:"narrative"`
	Sources     []models.Source       `json:"sources"`
	Warnings    []string              `json:"warnings"`
	Iterations  int                   `json:"iterations"`
	StopReason  string                `json:"stop_reason"`
	StartedAt   time.Time             `json:"started_at"`
	DurationMS  int64                 `json:"duration_ms"`
}

// HealthResponse is the HTTP response for GET /health.
type HealthResponse struct {
	OK       bool   `json:"ok"`
	Registry string `json:"registry,omitempty"`
}

// Registry health values.
const (
	RegistryStatusOK          = "ok"
	RegistryStatusUnavailable = "unavailable"
)

// FromResult converts a research result to an HTTP response.
func FromResult(result *models.Result) *AnalyzeResponse {
	return &AnalyzeResponse{
		RunID:       result.RunID,
		Address:     result.Address,
		StreetName:  result.StreetName,
		HouseNumber: result.HouseNumber,
		Record:      result.Record,
		Evidence:    orEmpty(result.Evidence),
		Narrative:   result.Narrative,
		Sources:     orEmpty(result.Sources),
		Warnings:    orEmpty(result.Warnings),
		Iterations:  result.Iterations,
		StopReason:  string(result.StopReason),
		StartedAt:   result.StartedAt,
		DurationMS:  result.Duration.Milliseconds(),
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
