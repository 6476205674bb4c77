package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"fichecode/internal/assistant"
	"fichecode/internal/config"
	"fichecode/internal/flow"
	"fichecode/internal/server"
	"fichecode/internal/urlpack"
)

const serveUsage = `Usage:
  fichecode serve [--config <path>] [--port <port>]

Flags:
  --config string   Path to YAML configuration file (built-in defaults when omitted)
  --port   int      Override server port from configuration`

func serve(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, serveUsage)
	}

	var cfgPath string
	var overridePort int
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override server port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort <= 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	fl, err := newFlow(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, fl)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newFlow(cfg config.Config) (*flow.Flow, error) {
	registry := assistant.NewRegistry()
	if err := assistant.RegisterConfigured(cfg.Assistants, registry); err != nil {
		return nil, err
	}
	return flow.New(registry, urlpack.New(cfg.Share.URLWarnLength, slog.Default()))
}
