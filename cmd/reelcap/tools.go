// tools.go — MCP tool definitions and dispatch.
// Three tools: capture_enable (one-time session setup), capture_control
// (record/pause/resume/stop), capture_status (read-only). Dispatch is a
// single switch on tool name; every error leaves the session state
// unchanged and reports a structured code the calling agent can act on.
package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/reelcap/reelcap/internal/mcp"
	"github.com/reelcap/reelcap/internal/overlay"
	"github.com/reelcap/reelcap/internal/recorder"
)

// ToolHandler dispatches MCP tool calls to the recorder.
type ToolHandler struct {
	controller *recorder.Controller
	reporter   *recorder.Reporter
}

// NewToolHandler creates the tool dispatch layer.
func NewToolHandler(controller *recorder.Controller, reporter *recorder.Reporter) *ToolHandler {
	return &ToolHandler{controller: controller, reporter: reporter}
}

// ToolsList returns the tool definitions for tools/list.
func (t *ToolHandler) ToolsList() []MCPTool {
	return []MCPTool{
		{
			Name:        "capture_enable",
			Description: "Enable video capture for this browser session. Creates the capture-ready browser environment and the in-page recording indicator. Call once per session; capture settings cannot be changed afterwards.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"position": map[string]any{
						"type":        "string",
						"description": "Corner for the recording indicator (default top-right)",
						"enum":        []string{"top-left", "top-right", "bottom-left", "bottom-right"},
					},
					"auto_start": map[string]any{
						"type":        "boolean",
						"description": "Start recording immediately after enabling",
					},
				},
			},
		},
		{
			Name:        "capture_control",
			Description: "Control the active capture. record starts a new recording (finalizing any in-flight one first), pause and stop finalize the current video file, resume starts a new file. Each record..stop span produces one file.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"action": map[string]any{
						"type":        "string",
						"description": "Capture action to perform",
						"enum":        []string{"record", "pause", "resume", "stop"},
					},
				},
				"required": []string{"action"},
			},
		},
		{
			Name:        "capture_status",
			Description: "Report the capture session status: state, elapsed time, and finalized artifact details. Read-only and always safe to call.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

// HandleToolCall dispatches a tool call by name. The bool is false for an
// unknown tool so the protocol layer can answer with -32601.
func (t *ToolHandler) HandleToolCall(name string, arguments json.RawMessage) (json.RawMessage, bool) {
	switch name {
	case "capture_enable":
		return t.handleEnable(arguments), true
	case "capture_control":
		return t.handleControl(arguments), true
	case "capture_status":
		return t.handleStatus(), true
	}
	return nil, false
}

func (t *ToolHandler) handleEnable(arguments json.RawMessage) json.RawMessage {
	var args struct {
		Position  string `json:"position"`
		AutoStart bool   `json:"auto_start"`
	}
	warnings, err := mcp.UnmarshalWithWarnings(arguments, &args, map[string]bool{
		"position": true, "auto_start": true,
	})
	if err != nil {
		return mcp.StructuredErrorResponse(mcp.ErrInvalidJSON,
			"capture_enable arguments are not valid JSON: "+err.Error(),
			"Fix the arguments object and retry")
	}
	for _, w := range warnings {
		log.Warningf("capture_enable: %s", w)
	}

	pos, err := overlay.ParsePosition(args.Position)
	if err != nil {
		return mcp.StructuredErrorResponse(mcp.ErrInvalidParam, err.Error(),
			"Use one of: top-left, top-right, bottom-left, bottom-right")
	}

	res, err := t.controller.Enable(pos, args.AutoStart)
	if err != nil {
		return toolError(err)
	}

	summary := fmt.Sprintf("Capture enabled, session %s", res.SessionID)
	if res.CaptureStarted {
		summary += ", recording"
	}
	return mcp.JSONResponse(summary, res)
}

func (t *ToolHandler) handleControl(arguments json.RawMessage) json.RawMessage {
	var args struct {
		Action string `json:"action"`
	}
	warnings, err := mcp.UnmarshalWithWarnings(arguments, &args, map[string]bool{
		"action": true,
	})
	if err != nil {
		return mcp.StructuredErrorResponse(mcp.ErrInvalidJSON,
			"capture_control arguments are not valid JSON: "+err.Error(),
			"Fix the arguments object and retry")
	}
	for _, w := range warnings {
		log.Warningf("capture_control: %s", w)
	}

	action, err := recorder.ParseAction(args.Action)
	if err != nil {
		return mcp.StructuredErrorResponse(mcp.ErrInvalidParam, err.Error(),
			"Use one of: record, pause, resume, stop")
	}

	res, err := t.controller.Handle(action)
	if err != nil {
		return toolError(err)
	}

	summary := fmt.Sprintf("%s: %s -> %s", action, res.PreviousState, res.CurrentState)
	return mcp.JSONResponse(summary, res)
}

func (t *ToolHandler) handleStatus() json.RawMessage {
	if !t.reporter.EnvironmentAlive() {
		return mcp.StructuredErrorResponse(mcp.ErrResourceUnavailable,
			"the browser environment is gone; the session cannot capture",
			"Wait briefly and retry; restart the server if this persists")
	}
	st := t.reporter.Report()
	summary := fmt.Sprintf("Session %s", st.State)
	if !st.Enabled {
		summary = "Capture not enabled"
	}
	return mcp.JSONResponse(summary, st)
}

// toolError maps recorder errors onto structured MCP error responses.
func toolError(err error) json.RawMessage {
	var rej *recorder.Rejection
	if errors.As(err, &rej) {
		return mcp.StructuredErrorResponse(rej.Code, rej.Message, retryHint(rej.Code))
	}
	var res *recorder.ResourceError
	if errors.As(err, &res) {
		return mcp.StructuredErrorResponse(mcp.ErrResourceUnavailable, res.Error(),
			"Wait briefly and retry; restart the server if this persists")
	}
	return mcp.StructuredErrorResponse(mcp.ErrInternal, err.Error(), "Do not retry; report this")
}

// retryHint returns the plain-English recovery instruction for a protocol
// rejection.
func retryHint(code string) string {
	switch code {
	case mcp.ErrAlreadyEnabled:
		return "Capture is already set up; use capture_control to drive it"
	case mcp.ErrNotEnabled:
		return "Call capture_enable first"
	case mcp.ErrInvalidTransition:
		return "Start a capture with capture_control(action: \"record\") instead"
	case mcp.ErrNoActiveCapture:
		return "Start a capture with capture_control(action: \"record\") first"
	}
	return "Check capture_status and adjust the request"
}
