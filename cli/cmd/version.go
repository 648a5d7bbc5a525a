package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/codestory/cli/render"
	"github.com/pithecene-io/codestory/types"
)

// VersionResponse is the response for the version command.
// The CLI, HTTP API and completion events share one version.
type VersionResponse struct {
	Version         string `json:"version" yaml:"version"`
	ContractVersion string `json:"contract_version" yaml:"contract_version"`
	Commit          string `json:"commit" yaml:"commit"`
}

// VersionCommand returns the version command.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  OutputFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return cli.Exit(err.Error(), exitUsageError)
		}

		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version command", exitUsageError)
		}

		return r.Render(VersionResponse{
			Version:         types.Version,
			ContractVersion: types.ContractVersion,
			Commit:          commit,
		})
	}
}
