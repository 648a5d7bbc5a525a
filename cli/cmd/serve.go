package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/codestory/cli/config"
	"github.com/pithecene-io/codestory/metrics"
	"github.com/pithecene-io/codestory/server"
)

// ServeCommand returns the serve command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web UI and JSON API",
		Flags: append(ConfigFlags(),
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Listen address (overrides listen, default " + config.DefaultListen + ")",
			},
			TUIFlag,
		),
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for serve command", exitUsageError)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	collector := metrics.NewCollector(cfg.LLM.Model, cfg.Adapter.Type)
	analyzer, err := newAnalyzer(cfg, collector, logger)
	if err != nil {
		return err
	}
	defer closeAnalyzer(analyzer, logger)

	srv, err := server.New(server.Options{
		Addr:     cfg.Listen,
		Analyzer: analyzer,
		Metrics:  collector,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOf(c), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("codestory listening", map[string]any{
		"listen":  cfg.Listen,
		"model":   cfg.LLM.Model,
		"adapter": cfg.Adapter.Type,
	})
	if err := srv.Run(ctx); err != nil {
		return cli.Exit(err.Error(), exitAnalysisError)
	}
	logger.Info("codestory stopped", nil)
	return nil
}

func contextOf(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}
