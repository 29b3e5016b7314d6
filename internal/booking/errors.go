package booking

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition is returned when an event is not allowed in the
	// current state.
	ErrInvalidTransition = errors.New("booking: transition not allowed in current state")
	// ErrNotSelectable is returned for dates that are past or have no slots.
	ErrNotSelectable = errors.New("booking: date is not selectable")
	// ErrUnknownSlot is returned when a slot is not offered on the selected date.
	ErrUnknownSlot = errors.New("booking: slot not offered on the selected date")
	// ErrUnknownService is returned for ids that are not enabled services.
	ErrUnknownService = errors.New("booking: unknown service")
	// ErrFieldDisabled is returned when writing a field or checkbox that is
	// not shown.
	ErrFieldDisabled = errors.New("booking: field is not enabled")
	// ErrNavigateTooFar is returned when one navigation moves more than
	// MaxNavigateSteps months or weeks.
	ErrNavigateTooFar = errors.New("booking: navigation step out of range")
)

// TransitionError records a rejected event.
type TransitionError struct {
	Event string
	State State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("booking: %s not allowed in state %s", e.Event, e.State)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Problem identifies one failing form input.
type Problem struct {
	Field   string `json:"field"`
	Kind    string `json:"kind"` // "field" or "checkbox"
	Message string `json:"message"`
}

// ValidationError lists every required input that blocked submission.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Field+": "+p.Message)
	}
	return fmt.Sprintf("booking: validation failed: %s", strings.Join(msgs, "; "))
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, p := range e.Problems {
		if p.Field == field {
			return true
		}
	}
	return false
}

// SubmissionError means both booking endpoints failed. Status and Body come
// from the last response; Status is 0 when the request never got one.
type SubmissionError struct {
	Status int
	Body   string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("booking: submission failed: %v", e.Err)
	}
	return fmt.Sprintf("booking: submission failed with status %d: %s", e.Status, e.Body)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
