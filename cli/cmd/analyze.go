package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/codestory/analysis"
	"github.com/pithecene-io/codestory/cli/render"
	"github.com/pithecene-io/codestory/cli/tui"
	"github.com/pithecene-io/codestory/iox"
	"github.com/pithecene-io/codestory/log"
	"github.com/pithecene-io/codestory/report"
)

// AnalyzeCommand returns the analyze command.
// It runs one analysis without the web UI.
func AnalyzeCommand() *cli.Command {
	flags := append(ConfigFlags(), OutputFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:    "language",
			Aliases: []string{"l"},
			Usage:   "Language hint passed to the model",
		},
		&cli.StringFlag{
			Name:    "export",
			Aliases: []string{"o"},
			Usage:   "Also write the explanation as Markdown to this path",
		},
	)
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Explain a source file",
		ArgsUsage: "FILE|-",
		Flags:     flags,
		Action:    analyzeAction,
	}
}

func analyzeAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("analyze requires exactly one FILE argument (use - for stdin)", exitUsageError)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
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

	source, err := readSource(c.Args().First(), c.App.Reader, int64(cfg.Limits.MaxSourceBytes))
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	analyzer, err := newAnalyzer(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer closeAnalyzer(analyzer, logger)

	result, err := analyzer.Analyze(contextOf(c), analysis.Request{
		Code:     source,
		Language: c.String("language"),
	})
	if errors.Is(err, analysis.ErrEmptySource) || errors.Is(err, analysis.ErrSourceTooLarge) {
		return cli.Exit(err.Error(), exitUsageError)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("analysis failed: %v", err), exitAnalysisError)
	}

	if path := c.String("export"); path != "" {
		if err := os.WriteFile(path, []byte(report.Markdown(result)), 0o644); err != nil {
			return cli.Exit(fmt.Sprintf("export failed: %v", err), exitAnalysisError)
		}
	}

	return showResult(c, r, result)
}

// showResult opens the walkthrough for --tui and renders result otherwise.
// Without a terminal, --tui prints the first screen instead.
func showResult(c *cli.Context, r *render.Renderer, result *analysis.Result) error {
	if !c.Bool("tui") {
		return r.Render((*resultView)(result))
	}
	if render.IsTerminal(c.App.Writer) {
		return tui.Run(result)
	}
	screen, err := tui.RenderStatic(result)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, screen)
	return err
}

// readSource reads path, or in when path is "-".
func readSource(path string, in io.Reader, limit int64) (string, error) {
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open source: %w", err)
		}
		defer iox.DiscardClose(f)
		in = f
	}
	data, err := iox.ReadAtMost(in, limit)
	if errors.Is(err, iox.ErrTooLarge) {
		return "", fmt.Errorf("source exceeds %d bytes", limit)
	}
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(data), nil
}

func closeAnalyzer(a *analysis.Analyzer, logger *log.Logger) {
	if err := a.Close(); err != nil {
		logger.Warn("adapter close failed", map[string]any{"error": err.Error()})
	}
}
