package commands

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// serveCommand runs the webhook server. It is also the default action.
func (c *CLI) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "start the webhook server",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return c.serve(ctx, cmd)
		},
	}
}

func (c *CLI) serve(ctx context.Context, cmd *cli.Command) error {
	a, err := c.loadApp(cmd)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
