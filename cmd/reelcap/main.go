// main.go — reelcap MCP server entrypoint.
// Runs the MCP protocol over stdin/stdout: one JSON-RPC message per line in,
// one JSON line out. Everything human-readable goes to stderr; stdout is
// reserved for the protocol.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/op/go-logging"
	"github.com/spf13/cobra"

	"github.com/reelcap/reelcap/internal/browser"
	"github.com/reelcap/reelcap/internal/config"
	"github.com/reelcap/reelcap/internal/overlay"
	"github.com/reelcap/reelcap/internal/recorder"
)

const version = "0.1.0"

var log = logging.MustGetLogger("reelcap")

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "reelcap",
	Short: "MCP server for browser session video capture",
	Long: `Reelcap records a controlled browser session to video. It exposes three
MCP tools over stdio: capture_enable, capture_control, and capture_status.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the reelcap version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reelcap v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (JSON, optional)")
	rootCmd.AddCommand(versionCmd)
}

// InitLogger configures the shared go-logging backend. Logs go to stderr
// only; stdout carries the MCP protocol.
func InitLogger(logLevel string) error {
	baseBackend := logging.NewLogBackend(os.Stderr, "", 0)
	format := logging.MustStringFormatter(
		`%{time:2006-01-02 15:04:05} %{level:.5s}     %{message}`,
	)
	backendFormatter := logging.NewBackendFormatter(baseBackend, format)

	backendLeveled := logging.AddModuleLevel(backendFormatter)
	logLevelCode, err := logging.LogLevel(logLevel)
	if err != nil {
		return err
	}
	backendLeveled.SetLevel(logLevelCode, "")

	logging.SetBackend(backendLeveled)
	return nil
}

func serve() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := InitLogger(cfg.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log.Debugf("config: %+v", cfg)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	factory := &browser.RodFactory{
		Bin:      cfg.BrowserBin,
		Headless: cfg.Headless,
		Width:    cfg.ViewportWidth,
		Height:   cfg.ViewportHeight,
		Encoder:  &browser.FFmpegEncoder{},
	}
	session := recorder.NewSession()
	resources := recorder.NewResourceManager(factory)
	controller := recorder.NewController(session, resources, overlay.New(), recorder.ControllerOptions{
		OutputDir:   cfg.OutputDir,
		Width:       cfg.ViewportWidth,
		Height:      cfg.ViewportHeight,
		FPS:         cfg.FPS,
		MaxDuration: cfg.MaxDuration(),
	})
	reporter := recorder.NewReporter(session, resources, cfg.ViewportWidth, cfg.ViewportHeight)

	tools := NewToolHandler(controller, reporter)
	handler := NewMCPHandler(tools, version)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.Infof("received %s, shutting down", s)
		controller.Shutdown()
		os.Exit(0)
	}()

	log.Infof("reelcap v%s ready on stdio", version)
	runStdio(handler, os.Stdin)

	// stdin closed: the MCP client disconnected.
	log.Infof("stdin closed, shutting down")
	controller.Shutdown()
	return nil
}

// runStdio reads newline-delimited JSON-RPC messages from r and writes one
// JSON line per response to stdout. Notifications produce no output.
func runStdio(handler *MCPHandler, r *os.File) {
	scanner := bufio.NewScanner(r)

	// Large tool arguments fit comfortably; the default 64KB does not.
	const maxScanTokenSize = 10 * 1024 * 1024
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			errResp := JSONRPCResponse{
				JSONRPC: "2.0",
				ID:      nil,
				Error: &JSONRPCError{
					Code:    -32700,
					Message: "Parse error: " + err.Error(),
				},
			}
			respJSON, _ := json.Marshal(errResp)
			fmt.Println(string(respJSON))
			continue
		}

		resp := handler.HandleRequest(req)
		if resp == nil {
			continue
		}
		respJSON, _ := json.Marshal(resp)
		fmt.Println(string(respJSON))
	}
	if err := scanner.Err(); err != nil {
		log.Errorf("stdin read: %v", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "reelcap: %v\n", err)
		os.Exit(1)
	}
}
