// Command nova-mcp serves Nova's tools over MCP on stdio.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/vthunder/nova/internal/app"
	"github.com/vthunder/nova/internal/config"
	"github.com/vthunder/nova/internal/logging"
	"github.com/vthunder/nova/internal/mcptools"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// stdout carries JSON-RPC; logs already go to stderr
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "nova-mcp:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(config.SurfaceMCP); err != nil {
		fmt.Fprintln(os.Stderr, "nova-mcp: invalid configuration:", err)
		os.Exit(1)
	}
	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "nova-mcp:", err)
		os.Exit(1)
	}
	defer a.Close()

	logging.Info("mcp", "starting nova-mcp %s", version)
	if err := server.ServeStdio(mcptools.NewServer(a.Engine, a.Sessions, version)); err != nil {
		logging.Error("mcp", "server error: %v", err)
	}
}
