// Package protocol implements the wire codec (component E): the
// versioned envelope, its four payload types, delimiter framing, size
// validation, and request-id generation. Framing mirrors the
// teacher's length-prefixed message wrapper in
// cmd/agent/main.go's readMessage/writeMessage in spirit — validate
// size before allocating/parsing — but the actual terminator is the
// project's required `\r\n\r\n` delimiter rather than a binary length
// prefix, since the wire grammar here is explicitly delimiter-based.
package protocol

import (
	"github.com/google/uuid"
)

// ProtocolVersion is the only version this codec emits or accepts.
const ProtocolVersion = 1

// MessageType tags the envelope's payload shape.
type MessageType uint8

const (
	MessageCommand   MessageType = 1
	MessageResponse  MessageType = 2
	MessageError     MessageType = 3
	MessageHeartbeat MessageType = 4
)

// Delimiter terminates every message on the wire.
const Delimiter = "\r\n\r\n"

// MaxMessageSize is the hard bound on a serialized message, delimiter
// included.
const MaxMessageSize = 1 << 20 // 1 MiB = 1_048_576

// DefaultTimeoutMS is applied to a Command payload when timeout_ms is
// omitted or zero.
const DefaultTimeoutMS = 30_000

// Envelope is the outer JSON object. Payload is re-marshaled/parsed
// according to MessageType by the Serialize*/Parse* functions in this
// package; callers work with the typed payload structs below, not
// Envelope directly.
type Envelope struct {
	ProtocolVersion uint32      `json:"protocol_version"`
	MessageType     MessageType `json:"message_type"`
	Payload         interface{} `json:"payload"`
}

// CommandPayload is message_type 1.
type CommandPayload struct {
	RequestID  string            `json:"request_id"`
	Command    string            `json:"command"`
	Parameters map[string]string `json:"parameters,omitempty"`
	TimeoutMS  uint32            `json:"timeout_ms,omitempty"`
	Timestamp  int64             `json:"timestamp"`
}

// ResponsePayload is message_type 2.
type ResponsePayload struct {
	RequestID       string                 `json:"request_id"`
	Success         bool                   `json:"success"`
	Output          string                 `json:"output"`
	ErrorMessage    string                 `json:"error_message"`
	ExecutionTimeMS uint32                 `json:"execution_time_ms"`
	SessionData     map[string]interface{} `json:"session_data,omitempty"`
	Timestamp       int64                  `json:"timestamp"`
}

// ErrorPayload is message_type 3.
type ErrorPayload struct {
	RequestID    string                 `json:"request_id,omitempty"`
	ErrorCode    uint32                 `json:"error_code"`
	Category     ErrorCategory          `json:"category"`
	ErrorMessage string                 `json:"error_message"`
	Suggestion   string                 `json:"suggestion"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Timestamp    int64                  `json:"timestamp"`
}

// HeartbeatPayload is message_type 4.
type HeartbeatPayload struct {
	SessionInfo map[string]interface{} `json:"session_info,omitempty"`
	Timestamp   int64                  `json:"timestamp"`
}

// NewRequestID produces an opaque unique request/connection
// identifier. The spec leaves the exact scheme open but calls out a
// hyphenated 36-character hex layout as an acceptable baseline, which
// is exactly what uuid.New().String() produces.
func NewRequestID() string {
	return uuid.New().String()
}
