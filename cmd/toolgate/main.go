// toolgate - LLM-driven tool dispatch service.
// Entry point: parse flags, wire dependencies, serve until signalled.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GeorgeMargineanu/toolgate/internal/api"
	"github.com/GeorgeMargineanu/toolgate/internal/app"
	"github.com/GeorgeMargineanu/toolgate/internal/infra/config"
	"github.com/GeorgeMargineanu/toolgate/internal/server"
	"github.com/GeorgeMargineanu/toolgate/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("toolgate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config", "", "Path to YAML config file")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	if *showHelp {
		printHelp(out)
		return 0
	}

	if err := serve(*configPath); err != nil {
		fmt.Fprintf(out, "toolgate: %v\n", err) //nolint:errcheck
		return 1
	}
	return 0
}

func serve(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	rt, err := app.NewRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Host
	srvCfg.Port = cfg.Port
	srv := server.NewServer(api.NewRouter(rt.Engine, rt.AuditStore, rt.Registry), srvCfg)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr()))
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-errCh
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func printHelp(out io.Writer) {
	helpText := `toolgate - LLM-driven tool dispatch service

Usage:
  toolgate [options]

Options:
  --version        Show version information
  --config PATH    Load settings from a YAML file (env vars still win)
  --help           Show this help message

With no options the server starts on the configured address.

Examples:
  toolgate --version
  toolgate --config /etc/toolgate/config.yaml
  TOOLGATE_PORT=9090 toolgate`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
