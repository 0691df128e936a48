// handler.go — MCP protocol handler for JSON-RPC 2.0 requests.
// Routes protocol methods (initialize, tools/list, tools/call) and leaves
// tool semantics to the tool handler.
package main

import (
	"encoding/json"

	"github.com/reelcap/reelcap/internal/mcp"
)

// Protocol types are defined in internal/mcp; aliased here so the transport
// code reads the same as the dispatch code.
type (
	JSONRPCRequest  = mcp.JSONRPCRequest
	JSONRPCResponse = mcp.JSONRPCResponse
	JSONRPCError    = mcp.JSONRPCError
	MCPTool         = mcp.MCPTool
)

const (
	mcpProtocolVersionLatest = "2025-06-18"
	mcpProtocolVersionLegacy = "2024-11-05"
)

// serverInstructions is sent once per session in the initialize response.
const serverInstructions = `Reelcap records the controlled browser session to a video file.

Workflow:
- capture_enable: create the capture-ready browser session (once per process). Pass auto_start=true to begin recording immediately.
- capture_control: drive the recording with action=record|pause|resume|stop. Each record..stop span produces one video file; resume starts a new file.
- capture_status: read the session state, elapsed time, and finalized artifact details at any time.

Recordings stop automatically at the configured maximum duration.`

// MCPHandler handles MCP protocol messages.
type MCPHandler struct {
	tools   *ToolHandler
	version string
}

// NewMCPHandler creates the protocol handler over a tool handler.
func NewMCPHandler(tools *ToolHandler, version string) *MCPHandler {
	return &MCPHandler{tools: tools, version: version}
}

// mcpMethodHandler handles a specific MCP method.
type mcpMethodHandler func(h *MCPHandler, req JSONRPCRequest) JSONRPCResponse

// mcpMethodHandlers maps MCP method names to their handlers.
var mcpMethodHandlers = map[string]mcpMethodHandler{
	"initialize": func(h *MCPHandler, req JSONRPCRequest) JSONRPCResponse { return h.handleInitialize(req) },
	"tools/list": func(h *MCPHandler, req JSONRPCRequest) JSONRPCResponse { return h.handleToolsList(req) },
	"tools/call": func(h *MCPHandler, req JSONRPCRequest) JSONRPCResponse { return h.handleToolsCall(req) },
}

// mcpStaticResponses maps MCP methods to static JSON result bodies.
var mcpStaticResponses = map[string]string{
	"initialized":  `{}`,
	"ping":         `{}`,
	"prompts/list": `{"prompts":[]}`,
}

// HandleRequest processes an MCP request and returns a response.
// Returns nil for notifications (which should not receive a response).
func (h *MCPHandler) HandleRequest(req JSONRPCRequest) *JSONRPCResponse {
	if req.HasInvalidID() {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      nil,
			Error: &JSONRPCError{
				Code:    -32600,
				Message: "Invalid Request: id must be string or number when present",
			},
		}
	}

	// Notifications do not get responses per JSON-RPC 2.0.
	if !req.HasID() {
		return nil
	}

	if req.JSONRPC != "2.0" {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &JSONRPCError{Code: -32600, Message: `Invalid Request: jsonrpc must be "2.0"`},
		}
	}

	if handler, ok := mcpMethodHandlers[req.Method]; ok {
		resp := handler(h, req)
		return &resp
	}

	if staticResult, ok := mcpStaticResponses[req.Method]; ok {
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(staticResult)}
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Error:   &JSONRPCError{Code: -32601, Message: "Method not found: " + req.Method},
	}
}

// negotiateProtocolVersion returns the protocol version selected for
// initialize. Supports latest and one legacy version.
func negotiateProtocolVersion(rawParams json.RawMessage) string {
	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if len(rawParams) > 0 {
		_ = json.Unmarshal(rawParams, &params)
	}

	switch params.ProtocolVersion {
	case mcpProtocolVersionLatest, mcpProtocolVersionLegacy:
		return params.ProtocolVersion
	default:
		return mcpProtocolVersionLatest
	}
}

func (h *MCPHandler) handleInitialize(req JSONRPCRequest) JSONRPCResponse {
	result := mcp.MCPInitializeResult{
		ProtocolVersion: negotiateProtocolVersion(req.Params),
		ServerInfo: mcp.MCPServerInfo{
			Name:    "reelcap",
			Version: h.version,
		},
		Capabilities: mcp.MCPCapabilities{
			Tools: mcp.MCPToolsCapability{},
		},
		Instructions: serverInstructions,
	}

	// Error impossible: MCPInitializeResult is a simple struct
	resultJSON, _ := json.Marshal(result)
	return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: resultJSON}
}

func (h *MCPHandler) handleToolsList(req JSONRPCRequest) JSONRPCResponse {
	result := mcp.MCPToolsListResult{Tools: h.tools.ToolsList()}
	// Error impossible: MCPToolsListResult is a simple struct
	resultJSON, _ := json.Marshal(result)
	return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: resultJSON}
}

func (h *MCPHandler) handleToolsCall(req JSONRPCRequest) JSONRPCResponse {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return JSONRPCResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &JSONRPCError{Code: -32602, Message: "Invalid params: " + err.Error()},
		}
	}

	result, handled := h.tools.HandleToolCall(params.Name, params.Arguments)
	if !handled {
		return JSONRPCResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &JSONRPCError{Code: -32601, Message: "Unknown tool: " + params.Name},
		}
	}
	return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}
