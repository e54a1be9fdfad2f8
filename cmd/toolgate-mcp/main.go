// toolgate-mcp - serve the toolgate tool catalog over MCP stdio.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/GeorgeMargineanu/toolgate/internal/app"
	"github.com/GeorgeMargineanu/toolgate/internal/infra/config"
	"github.com/GeorgeMargineanu/toolgate/internal/mcpserver"
	"github.com/GeorgeMargineanu/toolgate/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("toolgate-mcp", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	configPath := fs.String("config", "", "Path to YAML config file")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	if err := serve(*configPath); err != nil {
		fmt.Fprintf(out, "toolgate-mcp: %v\n", err) //nolint:errcheck
		return 1
	}
	return 0
}

func serve(configPath string) error {
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	// stdout carries the MCP stream; all logging goes to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	rt, err := app.NewRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	return mcpserver.New(rt.Registry, rt.AuditStore, logger).Serve()
}
