// Package commands provides the CLI command definitions for the bridge.
package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/mr-karan/mattermost-bridge/internal/app"
	"github.com/mr-karan/mattermost-bridge/internal/config"
)

// Styles for CLI output
var (
	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// CLI holds state shared by subcommands.
type CLI struct {
	Version string
	Commit  string
	Date    string
}

// New creates the root CLI command with all subcommands.
func New(version, commit, date string) *cli.Command {
	c := &CLI{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	return &cli.Command{
		Name:    "bridge",
		Usage:   "forward GCP Monitoring and Sentry alerts to Mattermost",
		Version: version,
		Description: `Receives alert webhooks, routes them by application and environment,
   and posts a Markdown summary to the matching Mattermost channel.

   Configuration is read from the TOML file given with --config and from
   BRIDGE_* environment variables (nested keys joined with "__").`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				Sources: cli.EnvVars("BRIDGE_CONFIG"),
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
			c.serveCommand(),
			c.previewCommand(),
			c.routesCommand(),
			c.sendCommand(),
			c.healthCommand(),
			c.versionCommand(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return c.serve(ctx, cmd)
		},
	}
}

// loadApp builds and initializes the application from the global flags.
func (c *CLI) loadApp(cmd *cli.Command) (*app.App, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	a, err := app.NewWithConfig(cfg, app.Options{
		Version: c.Version,
		Debug:   cmd.Bool("debug"),
	})
	if err != nil {
		return nil, err
	}
	if err := a.Initialize(); err != nil {
		return nil, err
	}
	return a, nil
}

// versionCommand shows version information
func (c *CLI) versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "show version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Printf("%s version %s\n", logoStyle.Render("bridge"), c.Version)
			fmt.Printf("  commit: %s\n", mutedStyle.Render(c.Commit))
			fmt.Printf("  built:  %s\n", mutedStyle.Render(c.Date))
			return nil
		},
	}
}
