package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	PlanRequestedEvent = "plan.requested"
	ModelBuiltEvent    = "model.built"
	ModelSolvedEvent   = "model.solved"
	PlanExtractedEvent = "plan.extracted"
	PlanFailedEvent    = "plan.failed"
)

// PlanningEventTypes lists every event a planning run can emit
var PlanningEventTypes = []string{
	PlanRequestedEvent, ModelBuiltEvent, ModelSolvedEvent, PlanExtractedEvent, PlanFailedEvent,
}

type PlanRequested struct {
	RunID    uuid.UUID `json:"run_id"`
	Name     string    `json:"name,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Nodes    int       `json:"nodes"`
	Products int       `json:"products"`
	Demand   int       `json:"demand_entries"`
	Solver   string    `json:"solver"`
}

type ModelBuilt struct {
	RunID       uuid.UUID     `json:"run_id"`
	Variables   int           `json:"variables"`
	Integers    int           `json:"integers"`
	Constraints int           `json:"constraints"`
	Warnings    []string      `json:"warnings,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

type ModelSolved struct {
	RunID     uuid.UUID     `json:"run_id"`
	Status    string        `json:"status"`
	Objective float64       `json:"objective"`
	Gap       float64       `json:"gap"`
	Nodes     int           `json:"nodes"`
	Elapsed   time.Duration `json:"elapsed"`
}

type PlanExtracted struct {
	RunID         uuid.UUID `json:"run_id"`
	TotalCost     string    `json:"total_cost"`
	FillRate      float64   `json:"fill_rate"`
	TotalProduced float64   `json:"total_produced"`
	TotalShortage float64   `json:"total_shortage"`
}

// PlanFailed is emitted when a run stops before producing a plan
type PlanFailed struct {
	RunID uuid.UUID `json:"run_id"`
	Stage string    `json:"stage"`
	Error string    `json:"error"`
}
