// Package dispatch runs the classify, extract, route, render and deliver
// pipeline for one inbound alert.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mr-karan/mattermost-bridge/internal/mattermost"
	"github.com/mr-karan/mattermost-bridge/internal/metrics"
	"github.com/mr-karan/mattermost-bridge/internal/payload"
	"github.com/mr-karan/mattermost-bridge/pkg/models"
)

// maxLoggedPayload caps the payload bytes attached to failure logs.
const maxLoggedPayload = 2048

// Resolver maps a routing key to a destination, falling back when the key is unknown.
type Resolver interface {
	Resolve(key models.RoutingKey) (models.Destination, bool)
}

// Renderer produces message text for a classified alert.
type Renderer interface {
	Render(alert payload.Alert, raw []byte) string
}

// Sender delivers a message and reports success.
type Sender interface {
	Deliver(ctx context.Context, msg models.Message) bool
}

// Options holds the dispatcher's collaborators.
type Options struct {
	Resolver Resolver
	Renderer Renderer
	Sender   Sender
	Logger   *slog.Logger
	// IconURL is attached to every message when set.
	IconURL string
}

// Dispatcher is safe for concurrent use; it holds no per-request state.
type Dispatcher struct {
	resolver Resolver
	renderer Renderer
	sender   Sender
	iconURL  string
	log      *slog.Logger
}

// Outcome describes what happened to one payload.
type Outcome struct {
	ID          string
	Origin      models.Origin
	Key         models.RoutingKey
	Destination models.Destination
	Fallback    bool
	Delivered   bool
	// Err is the terminal error, if any: payload.ErrInvalidPayload,
	// payload.ErrUnclassifiableOrigin, payload.ErrMissingField or
	// mattermost.ErrDeliveryFailed.
	Err error
}

// Unclassifiable reports whether the payload was rejected before extraction.
func (o Outcome) Unclassifiable() bool {
	return errors.Is(o.Err, payload.ErrUnclassifiableOrigin) || errors.Is(o.Err, payload.ErrInvalidPayload)
}

func New(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		resolver: opts.Resolver,
		renderer: opts.Renderer,
		sender:   opts.Sender,
		iconURL:  opts.IconURL,
		log:      logger.With("component", "dispatcher"),
	}
}

// Dispatch forwards raw to exactly one destination or abandons it with a
// logged reason. It never panics and never returns an error; callers inspect
// the Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) (out Outcome) {
	out.ID = uuid.NewString()
	log := d.log.With("dispatch_id", out.ID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("dispatch panicked", "panic", r, "payload", truncate(raw))
			out.Delivered = false
			out.Err = fmt.Errorf("dispatch panicked: %v", r)
		}
	}()

	log.Debug("payload received", "payload", truncate(raw))

	origin, err := payload.Classify(raw)
	if err != nil {
		log.Warn("could not classify payload", "error", err, "payload", truncate(raw))
		metrics.RecordDispatch("", metrics.OutcomeUnclassifiable)
		out.Err = err
		return out
	}
	out.Origin = origin

	alert, err := payload.Extract(origin, raw)
	if err != nil {
		log.Warn("could not extract routing attributes", "origin", origin, "error", err, "payload", truncate(raw))
		metrics.RecordDispatch(origin, metrics.OutcomeMissingField)
		out.Err = err
		return out
	}
	out.Key = alert.RoutingKey()

	dest, found := d.resolver.Resolve(out.Key)
	if !found {
		log.Warn("no destination for routing key, using fallback",
			"origin", origin,
			"application", out.Key.Application,
			"environment", out.Key.Environment,
			"fallback_channel", dest.Channel)
		metrics.RecordFallback()
	}
	out.Destination = dest
	out.Fallback = !found

	msg := models.Message{
		Destination: dest,
		Text:        d.renderer.Render(alert, raw),
		IconURL:     d.iconURL,
	}

	out.Delivered = d.sender.Deliver(ctx, msg)
	if !out.Delivered {
		log.Error("alert not delivered",
			"origin", origin,
			"kind", alert.Kind(),
			"routing_key", out.Key.String(),
			"channel", dest.Channel)
		metrics.RecordDispatch(origin, metrics.OutcomeDeliveryFailed)
		out.Err = fmt.Errorf("%w: channel %s", mattermost.ErrDeliveryFailed, dest.Channel)
		return out
	}

	log.Info("alert dispatched",
		"origin", origin,
		"kind", alert.Kind(),
		"routing_key", out.Key.String(),
		"channel", dest.Channel,
		"fallback", out.Fallback)
	metrics.RecordDispatch(origin, metrics.OutcomeDelivered)
	return out
}

func truncate(raw []byte) string {
	if len(raw) <= maxLoggedPayload {
		return string(raw)
	}
	return string(raw[:maxLoggedPayload]) + "...(truncated)"
}
