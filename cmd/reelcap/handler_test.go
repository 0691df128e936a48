package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/reelcap/reelcap/internal/browser"
	"github.com/reelcap/reelcap/internal/mcp"
	"github.com/reelcap/reelcap/internal/overlay"
	"github.com/reelcap/reelcap/internal/recorder"
)

// memPage / memEnvironment / memFactory stand in for the rod backend. Close
// writes the artifact file the way the real teardown path runs the encoder.
type memPage struct {
	url string
}

func (p *memPage) URL() string { return p.url }

func (p *memPage) Eval(js string, args ...any) error { return nil }

func (p *memPage) EvalOnNewDocument(js string) error { return nil }

func (p *memPage) Close() error { return nil }

type memEnvironment struct {
	mu       sync.Mutex
	artifact string
	pages    []browser.Page
	hooks    []func(browser.Page)
	closed   bool
}

func (e *memEnvironment) Pages() []browser.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]browser.Page{}, e.pages...)
}

func (e *memEnvironment) OpenPage(url string) (browser.Page, error) {
	e.mu.Lock()
	p := &memPage{url: url}
	e.pages = append(e.pages, p)
	hooks := append([]func(browser.Page){}, e.hooks...)
	e.mu.Unlock()
	for _, h := range hooks {
		h(p)
	}
	return p, nil
}

func (e *memEnvironment) OnPage(hook func(browser.Page)) {
	e.mu.Lock()
	e.hooks = append(e.hooks, hook)
	e.mu.Unlock()
}

func (e *memEnvironment) ArtifactRef() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.artifact == "" || len(e.pages) == 0 {
		return "", false
	}
	return e.artifact, true
}

func (e *memEnvironment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.artifact != "" && len(e.pages) > 0 {
		if err := os.WriteFile(e.artifact, []byte("webm"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type memFactory struct {
	mu      sync.Mutex
	counter int
}

func (f *memFactory) Create(spec *browser.CaptureSpec) (browser.Environment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	env := &memEnvironment{}
	if spec != nil {
		f.counter++
		env.artifact = fmt.Sprintf("%s/capture-%d.webm", spec.Dir, f.counter)
	}
	return env, nil
}

func newTestHandler(t *testing.T) *MCPHandler {
	t.Helper()
	session := recorder.NewSession()
	resources := recorder.NewResourceManager(&memFactory{})
	controller := recorder.NewController(session, resources, overlay.New(), recorder.ControllerOptions{
		OutputDir: t.TempDir(),
		Width:     1280,
		Height:    720,
		FPS:       15,
	})
	reporter := recorder.NewReporter(session, resources, 1280, 720)
	return NewMCPHandler(NewToolHandler(controller, reporter), version)
}

func request(t *testing.T, id any, method string, params string) JSONRPCRequest {
	t.Helper()
	idJSON, _ := json.Marshal(id)
	payload := fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"method":%q`, idJSON, method)
	if params != "" {
		payload += `,"params":` + params
	}
	payload += "}"

	var req JSONRPCRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		t.Fatalf("build request: %v", err)
	}
	return req
}

// callTool runs a tools/call request and returns the text content.
func callTool(t *testing.T, h *MCPHandler, name, arguments string) (string, bool) {
	t.Helper()
	params := fmt.Sprintf(`{"name":%q,"arguments":%s}`, name, arguments)
	resp := h.HandleRequest(request(t, 1, "tools/call", params))
	if resp == nil || resp.Error != nil {
		t.Fatalf("tools/call %s: %+v", name, resp)
	}
	var result mcp.MCPToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal tool result: %v", err)
	}
	if len(result.Content) != 1 {
		t.Fatalf("content blocks = %d", len(result.Content))
	}
	return result.Content[0].Text, result.IsError
}

func TestInitialize(t *testing.T) {
	h := newTestHandler(t)
	resp := h.HandleRequest(request(t, 1, "initialize", `{"protocolVersion":"2024-11-05"}`))
	if resp == nil || resp.Error != nil {
		t.Fatalf("initialize: %+v", resp)
	}
	var result mcp.MCPInitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.ProtocolVersion != "2024-11-05" {
		t.Fatalf("negotiated %q", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "reelcap" {
		t.Fatalf("server name %q", result.ServerInfo.Name)
	}

	// Unknown requested version falls back to latest.
	resp = h.HandleRequest(request(t, 2, "initialize", `{"protocolVersion":"1999-01-01"}`))
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.ProtocolVersion != mcpProtocolVersionLatest {
		t.Fatalf("negotiated %q for unknown version", result.ProtocolVersion)
	}
}

func TestNotificationsGetNoResponse(t *testing.T) {
	h := newTestHandler(t)
	var req JSONRPCRequest
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"initialized"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp := h.HandleRequest(req); resp != nil {
		t.Fatalf("notification got response: %+v", resp)
	}
}

func TestInvalidIDRejected(t *testing.T) {
	h := newTestHandler(t)
	var req JSONRPCRequest
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":null,"method":"ping"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	resp := h.HandleRequest(req)
	if resp == nil || resp.Error == nil || resp.Error.Code != -32600 {
		t.Fatalf("null id: %+v", resp)
	}
}

func TestUnknownMethod(t *testing.T) {
	h := newTestHandler(t)
	resp := h.HandleRequest(request(t, 1, "resources/list", ""))
	if resp == nil || resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("unknown method: %+v", resp)
	}
}

func TestStaticResponses(t *testing.T) {
	h := newTestHandler(t)
	resp := h.HandleRequest(request(t, 1, "ping", ""))
	if resp == nil || resp.Error != nil || string(resp.Result) != `{}` {
		t.Fatalf("ping: %+v", resp)
	}
	resp = h.HandleRequest(request(t, 2, "prompts/list", ""))
	if string(resp.Result) != `{"prompts":[]}` {
		t.Fatalf("prompts/list: %s", resp.Result)
	}
}

func TestToolsList(t *testing.T) {
	h := newTestHandler(t)
	resp := h.HandleRequest(request(t, 1, "tools/list", ""))
	if resp == nil || resp.Error != nil {
		t.Fatalf("tools/list: %+v", resp)
	}
	var result mcp.MCPToolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range result.Tools {
		names[tool.Name] = true
		if tool.InputSchema["type"] != "object" {
			t.Fatalf("tool %s schema type = %v", tool.Name, tool.InputSchema["type"])
		}
	}
	for _, want := range []string{"capture_enable", "capture_control", "capture_status"} {
		if !names[want] {
			t.Fatalf("missing tool %s in %v", want, names)
		}
	}
}

func TestUnknownTool(t *testing.T) {
	h := newTestHandler(t)
	resp := h.HandleRequest(request(t, 1, "tools/call", `{"name":"capture_rewind","arguments":{}}`))
	if resp == nil || resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("unknown tool: %+v", resp)
	}
}

// Status is read-only and safe before enable.
func TestStatusBeforeEnable(t *testing.T) {
	h := newTestHandler(t)
	text, isErr := callTool(t, h, "capture_status", `{}`)
	if isErr {
		t.Fatalf("status errored: %s", text)
	}
	if !strings.Contains(text, `"enabled":false`) || !strings.Contains(text, `"state":"idle"`) {
		t.Fatalf("status text = %q", text)
	}
}

func TestControlBeforeEnableRejected(t *testing.T) {
	h := newTestHandler(t)
	text, isErr := callTool(t, h, "capture_control", `{"action":"record"}`)
	if !isErr {
		t.Fatalf("control before enable succeeded: %s", text)
	}
	if !strings.Contains(text, "not_enabled") {
		t.Fatalf("text = %q", text)
	}
}

func TestInvalidActionRejected(t *testing.T) {
	h := newTestHandler(t)
	if _, isErr := callTool(t, h, "capture_enable", `{}`); isErr {
		t.Fatal("enable failed")
	}
	text, isErr := callTool(t, h, "capture_control", `{"action":"rewind"}`)
	if !isErr || !strings.Contains(text, "invalid_param") {
		t.Fatalf("invalid action: isErr=%v text=%q", isErr, text)
	}
}

func TestInvalidPositionRejected(t *testing.T) {
	h := newTestHandler(t)
	text, isErr := callTool(t, h, "capture_enable", `{"position":"center"}`)
	if !isErr || !strings.Contains(text, "invalid_param") {
		t.Fatalf("invalid position: isErr=%v text=%q", isErr, text)
	}
}

func TestFullCaptureFlow(t *testing.T) {
	h := newTestHandler(t)

	text, isErr := callTool(t, h, "capture_enable", `{"position":"bottom-left"}`)
	if isErr {
		t.Fatalf("enable: %s", text)
	}
	if !strings.Contains(text, `"position":"bottom-left"`) {
		t.Fatalf("enable text = %q", text)
	}

	// Enable is once per process.
	text, isErr = callTool(t, h, "capture_enable", `{}`)
	if !isErr || !strings.Contains(text, "already_enabled") {
		t.Fatalf("second enable: isErr=%v text=%q", isErr, text)
	}

	text, isErr = callTool(t, h, "capture_control", `{"action":"record"}`)
	if isErr {
		t.Fatalf("record: %s", text)
	}
	if !strings.Contains(text, `"current_state":"recording"`) {
		t.Fatalf("record text = %q", text)
	}

	text, isErr = callTool(t, h, "capture_status", `{}`)
	if isErr || !strings.Contains(text, `"state":"recording"`) {
		t.Fatalf("status while recording: %q", text)
	}

	text, isErr = callTool(t, h, "capture_control", `{"action":"stop"}`)
	if isErr {
		t.Fatalf("stop: %s", text)
	}
	if !strings.Contains(text, `"output_path"`) || !strings.Contains(text, ".webm") {
		t.Fatalf("stop text = %q", text)
	}

	text, isErr = callTool(t, h, "capture_status", `{}`)
	if isErr || !strings.Contains(text, `"state":"stopped"`) || !strings.Contains(text, `"artifact"`) {
		t.Fatalf("status after stop: %q", text)
	}
}

func TestEnableAutoStartFlow(t *testing.T) {
	h := newTestHandler(t)
	text, isErr := callTool(t, h, "capture_enable", `{"auto_start":true}`)
	if isErr {
		t.Fatalf("enable: %s", text)
	}
	if !strings.Contains(text, `"capture_started":true`) {
		t.Fatalf("enable text = %q", text)
	}
	text, _ = callTool(t, h, "capture_status", `{}`)
	if !strings.Contains(text, `"state":"recording"`) {
		t.Fatalf("status = %q", text)
	}
}
