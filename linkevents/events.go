// Package linkevents parses the events an embedded provider widget
// posts back to the service when the user finishes with it.
package linkevents

import (
	"encoding/json"
	"errors"
	"io"
)

// Outcome is the widget's report of how the session ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
)

var (
	ErrMalformed      = errors.New("malformed widget event")
	ErrUnknownOutcome = errors.New("unknown widget event outcome")
)

// Event is the payload the client posts after the widget closes. The
// state string is the same opaque value handed out when the attempt
// started.
type Event struct {
	Outcome     Outcome           `json:"event"`
	State       string            `json:"state"`
	PublicToken string            `json:"public_token,omitempty"`
	ErrorCode   string            `json:"error_code,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ParseEvent decodes and validates a widget event. Each outcome has a
// fixed shape; anything outside it is rejected rather than guessed at.
func ParseEvent(r io.Reader) (Event, error) {
	var ev Event
	decoder := json.NewDecoder(io.LimitReader(r, 1<<20))
	if err := decoder.Decode(&ev); err != nil {
		return Event{}, ErrMalformed
	}

	switch ev.Outcome {
	case OutcomeSuccess:
		if ev.PublicToken == "" {
			return Event{}, ErrMalformed
		}
	case OutcomeError:
		if ev.ErrorCode == "" {
			return Event{}, ErrMalformed
		}
	case OutcomeCancelled:
		// No proof or error accompanies a cancellation.
	default:
		return Event{}, ErrUnknownOutcome
	}

	if ev.State == "" {
		return Event{}, ErrMalformed
	}
	return ev, nil
}
