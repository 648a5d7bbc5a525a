package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/codestory/align"
	"github.com/pithecene-io/codestory/analysis"
	"github.com/pithecene-io/codestory/cli/render"
	"github.com/pithecene-io/codestory/types"
)

// AlignCommand returns the align command.
// It aligns a saved model answer against a source file without calling
// the model.
func AlignCommand() *cli.Command {
	return &cli.Command{
		Name:  "align",
		Usage: "Align saved annotations against a source file (no model call)",
		Flags: append(OutputFlags(),
			&cli.StringFlag{
				Name:     "source",
				Usage:    "Path to the source file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "annotations",
				Usage:    "Path to a JSON annotations array or a full model answer",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "steps",
				Usage: "Walkthrough length (default: the answer's walkthrough, else the annotation count)",
			},
		),
		Action: alignAction,
	}
}

func alignAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	source, err := os.ReadFile(c.String("source"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("read source: %v", err), exitUsageError)
	}
	exp, err := readAnnotations(c.String("annotations"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	steps := len(exp.Walkthrough)
	if steps == 0 {
		steps = len(exp.Annotations)
	}
	if c.IsSet("steps") {
		if steps = c.Int("steps"); steps < 0 {
			return cli.Exit(fmt.Sprintf("--steps must be >= 0, got %d", steps), exitUsageError)
		}
	}

	snap := align.Build(string(source), steps, exp.Annotations)
	if !c.Bool("tui") {
		return r.Render(alignView{View: snap.View()})
	}

	for i := len(exp.Walkthrough); i < steps; i++ {
		exp.Walkthrough = append(exp.Walkthrough, fmt.Sprintf("Step %d", i+1))
	}
	exp.Walkthrough = exp.Walkthrough[:steps]
	return showResult(c, r, &analysis.Result{
		ID:          "offline",
		Model:       "offline",
		Source:      string(source),
		Explanation: exp,
		Alignment:   snap,
	})
}

// readAnnotations reads a bare annotations array or a full model answer.
func readAnnotations(path string) (*types.Explanation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read annotations: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "[") {
		text = `{"annotations":` + text + `}`
	}
	exp, err := analysis.DecodeExplanation(text)
	if err != nil {
		return nil, fmt.Errorf("annotations %s: %w", path, err)
	}
	return exp, nil
}
