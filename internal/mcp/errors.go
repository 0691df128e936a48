// errors.go — Structured error codes for MCP tool responses.
// Error codes are self-describing snake_case strings so an LLM can act on
// them without a lookup table. Session protocol errors are never retryable:
// the client has to change state (or its arguments) first.
package mcp

import (
	"encoding/json"
	"fmt"
)

const (
	// Input errors — the client can fix arguments and retry immediately
	ErrInvalidJSON  = "invalid_json"
	ErrInvalidParam = "invalid_param"

	// Session protocol errors — state left unchanged, never auto-retried
	ErrAlreadyEnabled    = "already_enabled"
	ErrNotEnabled        = "not_enabled"
	ErrInvalidTransition = "invalid_transition"
	ErrNoActiveCapture   = "no_active_capture"

	// Resource errors — the browser environment could not be created,
	// destroyed, or read; transient, retry with backoff
	ErrResourceUnavailable = "resource_unavailable"

	// Internal errors — do not retry
	ErrInternal = "internal_error"
)

// StructuredError is embedded in MCP text content. Every field is
// self-describing so the calling agent can act on it directly.
type StructuredError struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	Retry        string `json:"retry"`
	Retryable    bool   `json:"retryable"`
	RetryAfterMs int    `json:"retry_after_ms,omitempty"`
}

// StructuredErrorResponse constructs an MCP error result. Format:
//
//	Error: no_active_capture — Start a capture with capture_control(action: "record") first
//	{"error":"no_active_capture","message":"...","retry":"..."}
//
// The retry string is a plain-English instruction the client can follow directly.
func StructuredErrorResponse(code, message, retry string) json.RawMessage {
	se := StructuredError{
		Error:     code,
		Message:   message,
		Retry:     retry,
		Retryable: code == ErrResourceUnavailable,
	}
	if se.Retryable {
		se.RetryAfterMs = 2000
	}

	// Error impossible: StructuredError is a flat struct
	seJSON, _ := json.Marshal(se)
	text := fmt.Sprintf("Error: %s — %s\n%s", code, retry, string(seJSON))

	result := MCPToolResult{
		Content: []MCPContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
	return SafeMarshal(result, `{"content":[{"type":"text","text":"Internal error: failed to marshal result"}],"isError":true}`)
}
