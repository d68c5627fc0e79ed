// Package event defines the immutable event record exchanged between
// cellwarden components and its JSON wire codec.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Result carries the outcome of a processed event. It is present on
// replies only.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Event is the record exchanged between components. Once created, fields
// are never mutated; replies are new records built with Reply.
type Event struct {
	ID                 int64          `json:"id"`
	Source             string         `json:"source"`
	SourceAddress      string         `json:"source_address"`
	SourcePort         int            `json:"source_port"`
	Destination        string         `json:"destination"`
	DestinationAddress string         `json:"destination_address"`
	DestinationPort    int            `json:"destination_port"`
	Type               string         `json:"event_type"`
	Data               map[string]any `json:"data,omitempty"`
	Result             *Result        `json:"result,omitempty"`

	// MaxProcessingTime is the number of seconds after which the sender
	// considers this event lost.
	MaxProcessingTime float64   `json:"maximum_processing_time"`
	Timestamp         time.Time `json:"timestamp"`
}

// Validate checks the fields an ingress endpoint requires before the
// event may be enqueued.
func (e *Event) Validate() error {
	if e == nil {
		return ErrNilEvent
	}
	if e.ID < 0 {
		return fmt.Errorf("%w: negative id %d", ErrInvalidEvent, e.ID)
	}
	if e.Source == "" {
		return fmt.Errorf("%w: empty source", ErrInvalidEvent)
	}
	if e.Type == "" {
		return fmt.Errorf("%w: empty event_type", ErrInvalidEvent)
	}
	return nil
}

// Reply builds the reply record for this event: it carries the original
// id, swaps the source and destination coordinates, and attaches the
// result. The reply's Data map, if any, travels inside the result.
func (e *Event) Reply(result Result) *Event {
	return &Event{
		ID:                 e.ID,
		Source:             e.Destination,
		SourceAddress:      e.DestinationAddress,
		SourcePort:         e.DestinationPort,
		Destination:        e.Source,
		DestinationAddress: e.SourceAddress,
		DestinationPort:    e.SourcePort,
		Type:               e.Type,
		Result:             &result,
		MaxProcessingTime:  e.MaxProcessingTime,
		Timestamp:          time.Now(),
	}
}

// IsReply reports whether this event is a reply (carries a result).
func (e *Event) IsReply() bool {
	return e.Result != nil
}

// IsReplyTo reports whether this event is the reply correlated with the
// given outbound event: same id, coordinates swapped.
func (e *Event) IsReplyTo(sent *Event) bool {
	return e.IsReply() &&
		e.ID == sent.ID &&
		e.Source == sent.Destination &&
		e.Destination == sent.Source
}

// DestinationURL returns the HTTP ingress URL for the event destination.
func (e *Event) DestinationURL() string {
	return fmt.Sprintf("http://%s:%d/event", e.DestinationAddress, e.DestinationPort)
}

// Marshal encodes the event to its JSON wire form.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal decodes an event from its JSON wire form.
func Unmarshal(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	return &e, nil
}

// Ack is the synchronous HTTP response body returned by the /event
// ingress endpoint. The semantic reply travels asynchronously.
type Ack struct {
	ID       int64 `json:"id"`
	Received bool  `json:"received"`
}

// String implements fmt.Stringer for log output.
func (e *Event) String() string {
	kind := "event"
	if e.IsReply() {
		kind = "reply"
	}
	return fmt.Sprintf("%s[%s #%d %s->%s]", kind, e.Type, e.ID, e.Source, e.Destination)
}
