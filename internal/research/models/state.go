package models

import (
	"strings"
	"time"
)

// StopConditionEnough is the planner's signal that the record is sufficient.
const StopConditionEnough = "enough"

// StopConditionError marks a planning round that failed.
const StopConditionError = "error"

// StopReason explains why the research loop ended.
type StopReason string

const (
	StopNone          StopReason = ""
	StopSufficient    StopReason = "sufficient"
	StopMaxIterations StopReason = "max_iterations"
	StopError         StopReason = "error"
)

// PlanResult is the planner's output for one round.
type PlanResult struct {
	Queries       []string `json:"queries"`
	DomainFilter  []string `json:"include_domains"`
	StopCondition string   `json:"stop_condition"`
}

// Sufficient reports whether the planner declared the record complete.
func (p PlanResult) Sufficient() bool {
	return strings.EqualFold(strings.TrimSpace(p.StopCondition), StopConditionEnough)
}

// ErrorPlan is returned when planning fails: nothing to search, not sufficient.
func ErrorPlan() PlanResult {
	return PlanResult{Queries: []string{}, DomainFilter: []string{}, StopCondition: StopConditionError}
}

// Stage names a step of the research pipeline for error reporting.
type Stage string

const (
	StageCollection    Stage = "collection"
	StagePlanning      Stage = "planning"
	StageSearch        Stage = "search"
	StageExtraction    Stage = "extraction"
	StageSummarization Stage = "summarization"
)

// StageError is a recoverable failure recorded against a stage.
type StageError struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

func (e StageError) Error() string {
	return string(e.Stage) + ": " + e.Message
}

// IterationState is the loop bookkeeping for one run.
type IterationState struct {
	Iteration     int
	Queries       []string
	DomainFilter  []string
	StopCondition string
	StopReason    StopReason
	Errors        []StageError
}

// ApplyPlan records the planner's output for the current round.
func (s *IterationState) ApplyPlan(plan PlanResult) {
	s.Queries = plan.Queries
	s.DomainFilter = plan.DomainFilter
	s.StopCondition = plan.StopCondition
}

// Sufficient reports whether the last plan declared the record complete.
func (s *IterationState) Sufficient() bool {
	return PlanResult{StopCondition: s.StopCondition}.Sufficient()
}

// AddError records a stage failure. Nil errors are ignored.
func (s *IterationState) AddError(stage Stage, err error) {
	if err == nil {
		return
	}
	s.Errors = append(s.Errors, StageError{Stage: stage, Message: err.Error()})
}

// Summary is the summarizer's output.
type Summary struct {
	Narrative string
	Sources   []Source
	Warnings  []string
}

// Result is the outcome of one research run.
type Result struct {
	RunID       string
	Address     string
	StreetName  string
	HouseNumber string
	Record      Record
	Evidence    []EvidenceItem
	// CarriedEvidence came with the registry snapshot and was offered to
	// every extraction pass.
	CarriedEvidence []EvidenceItem
	Narrative       string
	Sources         []Source
	Warnings        []string
	Iterations      int
	StopReason      StopReason
	StartedAt       time.Time
	Duration        time.Duration
}
