// Package cmd provides CLI commands for the codestory binary.
package cmd

import "github.com/urfave/cli/v2"

// Exit codes.
const (
	exitSuccess       = 0
	exitAnalysisError = 1
	exitUsageError    = 2
)

// Shared output flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag opens the interactive walkthrough.
	// Only valid for commands that produce an analysis (analyze, align).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Open the interactive walkthrough (analyze, align only)",
	}
)

// Shared configuration flags.
var (
	// ConfigFlag points at a codestory.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to codestory.yaml",
		EnvVars: []string{"CODESTORY_CONFIG"},
	}

	// ModelFlag overrides llm.model.
	ModelFlag = &cli.StringFlag{
		Name:  "model",
		Usage: "Model name (overrides llm.model)",
	}

	// LogLevelFlag overrides log.level.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error (overrides log.level)",
	}
)

// OutputFlags returns the shared output flags.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// ConfigFlags returns the flags that feed the loaded configuration.
func ConfigFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		ModelFlag,
		LogLevelFlag,
	}
}
