package models

import "encoding/json"

// MessagePart is one ordered fragment of a single assistant reply. Each
// part becomes its own chat bubble on the client before grouping.
type MessagePart struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	IsComplete bool   `json:"isComplete"`
	PartIndex  int    `json:"partIndex"`
	TotalParts int    `json:"totalParts"`
}

// StreamSignal is a non-part control event on the push channel.
// Type "complete" closes out a successful turn.
type StreamSignal struct {
	Type string `json:"type"`
}

const SignalComplete = "complete"

// StreamEvent is one element of the push channel for a chat turn: either
// a MessagePart, a StreamSignal, or a terminal error.
type StreamEvent struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// PartEvent wraps a MessagePart for the wire.
func PartEvent(part MessagePart) StreamEvent {
	return StreamEvent{Success: true, Data: part}
}

// CompleteEvent is the explicit completion signal, always the last event
// of a successful stream.
func CompleteEvent() StreamEvent {
	return StreamEvent{Success: true, Data: StreamSignal{Type: SignalComplete}}
}

// ErrorEvent is the terminal error signal emitted instead of a completion
// signal when a stream aborts mid-flight.
func ErrorEvent(err *ChatError) StreamEvent {
	return StreamEvent{Success: false, Error: err.APIError()}
}

// RawStreamEvent is the decode-side view of a StreamEvent: Data is kept
// raw so the consumer can distinguish parts from signals.
type RawStreamEvent struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
}
