package handler

import (
	"strings"

	dErrors "zonescout/pkg/domain-errors"
)

const (
	maxStreetNameLength  = 200
	maxHouseNumberLength = 20
	maxUserQuestions     = 12
	maxQuestionLength    = 300
)

// AnalyzeRequest is the HTTP request body for POST /analyze.
type AnalyzeRequest struct {
	StreetName    string   `json:"street_name"`
	HouseNumber   string   `json:"house_number"`
	UserQuestions []string `json:"user_questions,omitempty"`
}

// Validate trims and bounds the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *AnalyzeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// Size validation (fail fast)
	if len(r.StreetName) > maxStreetNameLength {
		return dErrors.New(dErrors.CodeValidation, "street_name must be at most 200 characters")
	}
	if len(r.HouseNumber) > maxHouseNumberLength {
		return dErrors.New(dErrors.CodeValidation, "house_number must be at most 20 characters")
	}
	if len(r.UserQuestions) > maxUserQuestions {
		return dErrors.New(dErrors.CodeValidation, "at most 12 user_questions are allowed")
	}
	for _, q := range r.UserQuestions {
		if len(q) > maxQuestionLength {
			return dErrors.New(dErrors.CodeValidation, "each user question must be at most 300 characters")
		}
	}

	// Required fields
	r.StreetName = strings.TrimSpace(r.StreetName)
	r.HouseNumber = strings.TrimSpace(r.HouseNumber)
	if r.StreetName == "" {
		return dErrors.New(dErrors.CodeValidation, "street_name is required")
	}
	if r.HouseNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "house_number is required")
	}
	return nil
}
