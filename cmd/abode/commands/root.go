// Package commands provides the CLI command definitions for abode.
package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// Styles for CLI output.
var (
	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// App holds the shared CLI state.
type App struct {
	Version string
	Commit  string
	Date    string
}

// New creates the root CLI command with all subcommands.
func New(version, commit, date string) *cli.Command {
	app := &App{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	return &cli.Command{
		Name:    "abode",
		Usage:   "archive chat history and search it",
		Version: version,
		Description: `abode archives Discord guilds, channels, messages, users, and
   emoji into PostgreSQL and exposes a labelled search language over
   them.

   Use 'abode serve' to run the archiver and search API, and
   'abode query' to search from the terminal.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				Value:   "config.toml",
				Sources: cli.EnvVars("ABODE_CONFIG_PATH"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetLevel(log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			app.serveCommand(),
			app.queryCommand(),
			app.backfillCommand(),
			app.versionCommand(),
		},
	}
}

// versionCommand shows version information.
func (a *App) versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "show version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Printf("%s version %s\n", logoStyle.Render("abode"), a.Version)
			fmt.Printf("  commit: %s\n", mutedStyle.Render(a.Commit))
			fmt.Printf("  built:  %s\n", mutedStyle.Render(a.Date))
			return nil
		},
	}
}
