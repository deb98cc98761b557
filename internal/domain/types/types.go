// Package types contains the view types shared by the service and its
// HTTP bindings.
package types

import (
	"github.com/okian/ecotrack/internal/domain/footprint"
	"github.com/okian/ecotrack/internal/domain/model"
)

// State is the display state of the estimator.
type State string

// Display states.
const (
	StateIdle        State = "idle"
	StateResultShown State = "result_shown"
)

// RawInput carries the unparsed text of the three form fields.
type RawInput struct {
	Transport   string
	Meals       string
	Electricity string
}

// Outcome is what a host UI needs to render after a submit, load or reset.
type Outcome struct {
	State State
	// Message is the text for the result region.
	Message string
	// ErrorText is the text for the message region; empty when there is
	// nothing to report.
	ErrorText string
	Errors    []footprint.ValidationError

	Total  float64
	Tier   footprint.Tier
	Record *model.EstimateRecord

	// Persisted reports whether Record reached the session log.
	// PersistErr holds the reason when it did not.
	Persisted  bool
	PersistErr error
}

// Valid reports whether the outcome carries no validation errors.
func (o Outcome) Valid() bool { return len(o.Errors) == 0 }

// Idle returns the outcome of a reset: the prompt and no message.
func Idle() Outcome {
	return Outcome{State: StateIdle, Message: footprint.IdlePrompt}
}
