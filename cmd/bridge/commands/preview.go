package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
)

var previewBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#6B7280")).
	Padding(0, 1)

// previewCommand renders a payload file without posting it.
func (c *CLI) previewCommand() *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "show where a payload would be routed and how it would render",
		ArgsUsage: "<file|->",
		Description: `Runs a saved webhook body through classification, routing and
rendering. Nothing is sent to Mattermost.

Examples:
   bridge preview incident.json
   cat event.json | bridge preview -`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("payload file is required (use - for stdin)")
			}
			raw, err := readPayload(path)
			if err != nil {
				return err
			}

			a, err := c.loadApp(cmd)
			if err != nil {
				return err
			}

			p, err := a.Preview(raw)
			if err != nil {
				fmt.Println(errorStyle.Render("rejected: " + err.Error()))
				return err
			}

			fmt.Printf("%s %s\n", mutedStyle.Render("origin: "), p.Origin)
			fmt.Printf("%s %s\n", mutedStyle.Render("route:  "), p.Key)
			channel := successStyle.Render(p.Destination.Channel)
			if p.Fallback {
				channel = warnStyle.Render(p.Destination.Channel + " (fallback)")
			}
			fmt.Printf("%s %s\n\n", mutedStyle.Render("channel:"), channel)
			fmt.Println(previewBoxStyle.Render(p.Text))
			return nil
		},
	}
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return raw, nil
}
