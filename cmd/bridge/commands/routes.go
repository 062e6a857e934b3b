package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"
)

// routesCommand prints the effective routing table.
func (c *CLI) routesCommand() *cli.Command {
	return &cli.Command{
		Name:  "routes",
		Usage: "list the configured routing table",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := c.loadApp(cmd)
			if err != nil {
				return err
			}

			fallbackKey, _ := a.Registry.Fallback()
			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(mutedStyle).
				Headers("APPLICATION", "ENVIRONMENT", "CHANNEL", "USERNAME", "")
			for _, key := range a.Registry.Keys() {
				dest, _ := a.Registry.Resolve(key)
				marker := ""
				if key == fallbackKey {
					marker = "fallback"
				}
				t.Row(key.Application, key.Environment, dest.Channel, dest.Username, marker)
			}
			fmt.Println(t.Render())
			return nil
		},
	}
}
