package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mr-karan/mattermost-bridge/internal/cli/client"
)

var remoteFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "server",
		Usage:   "bridge base URL",
		Value:   "http://localhost:8000",
		Sources: cli.EnvVars("BRIDGE_SERVER_URL"),
	},
	&cli.StringFlag{
		Name:    "token",
		Usage:   "auth token expected by the bridge",
		Sources: cli.EnvVars("BRIDGE_AUTH__TOKEN"),
	},
	&cli.DurationFlag{
		Name:  "timeout",
		Usage: "request timeout",
		Value: 30 * time.Second,
	},
}

func newRemoteClient(cmd *cli.Command) (*client.Client, error) {
	return client.New(client.Options{
		URL:     cmd.String("server"),
		Token:   cmd.String("token"),
		Timeout: cmd.Duration("timeout"),
	})
}

// sendCommand replays a saved payload against a running bridge.
func (c *CLI) sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "post a payload to a running bridge",
		ArgsUsage: "<file|->",
		Description: `Posts a saved webhook body to /webhook exactly as a provider would.

Examples:
   bridge send --token $TOKEN incident.json
   cat event.json | bridge send --server https://bridge.internal -`,
		Flags: remoteFlags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("payload file is required (use - for stdin)")
			}
			raw, err := readPayload(path)
			if err != nil {
				return err
			}

			cl, err := newRemoteClient(cmd)
			if err != nil {
				return err
			}
			id, err := cl.SendWebhook(ctx, raw)
			if err != nil {
				fmt.Println(errorStyle.Render("rejected: " + err.Error()))
				return err
			}
			fmt.Printf("%s %s\n", successStyle.Render("accepted"), mutedStyle.Render("dispatch_id="+id))
			return nil
		},
	}
}

// healthCommand checks a running bridge.
func (c *CLI) healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "check a running bridge",
		Flags: remoteFlags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cl, err := newRemoteClient(cmd)
			if err != nil {
				return err
			}
			h, err := cl.Health(ctx)
			if err != nil {
				fmt.Println(errorStyle.Render("unhealthy: " + err.Error()))
				return err
			}
			fmt.Printf("%s %s\n", successStyle.Render(h.Status), mutedStyle.Render(h.App))
			return nil
		},
	}
}
