package dispatch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/mr-karan/mattermost-bridge/internal/mattermost"
	"github.com/mr-karan/mattermost-bridge/internal/payload"
	"github.com/mr-karan/mattermost-bridge/internal/render"
	"github.com/mr-karan/mattermost-bridge/internal/routing"
	"github.com/mr-karan/mattermost-bridge/pkg/models"
)

type recordingSender struct {
	mu     sync.Mutex
	msgs   []models.Message
	result bool
}

func (s *recordingSender) Deliver(_ context.Context, msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.result
}

type panickingRenderer struct{}

func (panickingRenderer) Render(payload.Alert, []byte) string { panic("formatter exploded") }

func newRegistry(t *testing.T) *routing.Registry {
	t.Helper()
	reg, err := routing.New([]routing.Route{
		{
			Key:         models.RoutingKey{Application: "planscape", Environment: "dev"},
			Destination: models.Destination{Webhook: "hook-dev", Channel: "planscape-alerts-dev", Username: "Bridge"},
		},
		{
			Key:         models.RoutingKey{Application: "planscape", Environment: "production"},
			Destination: models.Destination{Webhook: "hook-prod", Channel: "planscape-alerts-production", Username: "Bridge"},
		},
	}, models.RoutingKey{Application: "planscape", Environment: "dev"})
	if err != nil {
		t.Fatalf("routing.New() error = %v", err)
	}
	return reg
}

func newDispatcher(t *testing.T, sender Sender, logs *bytes.Buffer) *Dispatcher {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(Options{
		Resolver: newRegistry(t),
		Renderer: render.New(logger),
		Sender:   sender,
		Logger:   logger,
		IconURL:  "https://example.com/icon.png",
	})
}

func TestDispatch_GCPProduction(t *testing.T) {
	sender := &recordingSender{result: true}
	var logs bytes.Buffer
	d := newDispatcher(t, sender, &logs)

	body := `{"incident": {"resource": {"labels": {"application": "planscape", "env": "production"}}, "summary": "disk full"}}`
	out := d.Dispatch(context.Background(), []byte(body))

	if out.Err != nil {
		t.Fatalf("Dispatch() error = %v", out.Err)
	}
	if !out.Delivered || out.Fallback {
		t.Errorf("Dispatch() outcome = %+v, want delivered without fallback", out)
	}
	if out.Origin != models.OriginGCP {
		t.Errorf("Origin = %q, want GCP", out.Origin)
	}
	if out.ID == "" {
		t.Error("expected a dispatch id")
	}
	if len(sender.msgs) != 1 {
		t.Fatalf("sent %d messages, want exactly 1", len(sender.msgs))
	}
	msg := sender.msgs[0]
	if msg.Webhook != "hook-prod" || msg.Channel != "planscape-alerts-production" || msg.Username != "Bridge" {
		t.Errorf("message destination = %+v, want planscape production", msg.Destination)
	}
	if msg.IconURL != "https://example.com/icon.png" {
		t.Errorf("IconURL = %q", msg.IconURL)
	}
	if !strings.Contains(msg.Text, "disk full") || !strings.Contains(msg.Text, "[GCP ERROR]") {
		t.Errorf("message text = %q", msg.Text)
	}
	if strings.Contains(logs.String(), "level=WARN") {
		t.Errorf("unexpected warning in logs: %s", logs.String())
	}
}

func TestDispatch_SentryFixedRoute(t *testing.T) {
	sender := &recordingSender{result: true}
	d := newDispatcher(t, sender, &bytes.Buffer{})

	out := d.Dispatch(context.Background(), []byte(`{"event": {"title": "NullPointerException", "environment": "production"}}`))

	if out.Err != nil || !out.Delivered {
		t.Fatalf("Dispatch() outcome = %+v", out)
	}
	if out.Key != payload.SentryRoutingKey {
		t.Errorf("Key = %v, want %v", out.Key, payload.SentryRoutingKey)
	}
	if len(sender.msgs) != 1 || sender.msgs[0].Channel != "planscape-alerts-dev" {
		t.Fatalf("messages = %+v, want one message to planscape-alerts-dev", sender.msgs)
	}
	if !strings.Contains(sender.msgs[0].Text, "NullPointerException") {
		t.Errorf("message text = %q", sender.msgs[0].Text)
	}
}

func TestDispatch_UnknownRoutingKeyUsesFallback(t *testing.T) {
	sender := &recordingSender{result: true}
	var logs bytes.Buffer
	d := newDispatcher(t, sender, &logs)

	body := `{"incident": {"resource": {"labels": {"application": "unknown-app", "env": "qa"}}, "summary": "cpu high"}}`
	out := d.Dispatch(context.Background(), []byte(body))

	if out.Err != nil || !out.Delivered {
		t.Fatalf("Dispatch() outcome = %+v", out)
	}
	if !out.Fallback {
		t.Error("Fallback = false, want true")
	}
	if len(sender.msgs) != 1 || sender.msgs[0].Webhook != "hook-dev" {
		t.Fatalf("messages = %+v, want one message to the fallback hook", sender.msgs)
	}
	got := logs.String()
	if !strings.Contains(got, "using fallback") || !strings.Contains(got, "application=unknown-app") || !strings.Contains(got, "environment=qa") {
		t.Errorf("expected fallback warning with routing key, logs: %s", got)
	}
}

func TestDispatch_AbandonedPayloads(t *testing.T) {
	tests := []struct {
		name               string
		body               string
		wantErr            error
		wantUnclassifiable bool
	}{
		{name: "unclassifiable", body: `{"alert": {}}`, wantErr: payload.ErrUnclassifiableOrigin, wantUnclassifiable: true},
		{name: "not json", body: `not json`, wantErr: payload.ErrInvalidPayload, wantUnclassifiable: true},
		{name: "missing application", body: `{"incident": {"resource": {"labels": {"env": "dev"}}}}`, wantErr: payload.ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{result: true}
			var logs bytes.Buffer
			d := newDispatcher(t, sender, &logs)

			out := d.Dispatch(context.Background(), []byte(tt.body))

			if !errors.Is(out.Err, tt.wantErr) {
				t.Errorf("Dispatch() error = %v, want %v", out.Err, tt.wantErr)
			}
			if out.Unclassifiable() != tt.wantUnclassifiable {
				t.Errorf("Unclassifiable() = %v, want %v", out.Unclassifiable(), tt.wantUnclassifiable)
			}
			if out.Delivered || len(sender.msgs) != 0 {
				t.Errorf("expected nothing to be sent, got %d messages", len(sender.msgs))
			}
			if !strings.Contains(logs.String(), "payload=") {
				t.Errorf("expected payload context in logs: %s", logs.String())
			}
		})
	}
}

func TestDispatch_DeliveryFailure(t *testing.T) {
	sender := &recordingSender{result: false}
	var logs bytes.Buffer
	d := newDispatcher(t, sender, &logs)

	out := d.Dispatch(context.Background(), []byte(`{"event": {"title": "boom"}}`))

	if !errors.Is(out.Err, mattermost.ErrDeliveryFailed) {
		t.Errorf("Dispatch() error = %v, want ErrDeliveryFailed", out.Err)
	}
	if out.Delivered {
		t.Error("Delivered = true, want false")
	}
	if len(sender.msgs) != 1 {
		t.Errorf("expected a single delivery attempt, got %d", len(sender.msgs))
	}
	if !strings.Contains(logs.String(), "alert not delivered") {
		t.Errorf("expected delivery failure to be logged: %s", logs.String())
	}
}

func TestDispatch_RecoversFromPanic(t *testing.T) {
	sender := &recordingSender{result: true}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	d := New(Options{Resolver: newRegistry(t), Renderer: panickingRenderer{}, Sender: sender, Logger: logger})

	out := d.Dispatch(context.Background(), []byte(`{"event": {"title": "boom"}}`))

	if out.Err == nil || out.Delivered {
		t.Errorf("Dispatch() outcome = %+v, want error and no delivery", out)
	}
	if len(sender.msgs) != 0 {
		t.Errorf("expected no delivery after panic, got %d", len(sender.msgs))
	}
}

func TestDispatch_Concurrent(t *testing.T) {
	sender := &recordingSender{result: true}
	d := newDispatcher(t, sender, &bytes.Buffer{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(context.Background(), []byte(`{"event": {"title": "concurrent"}}`))
		}()
	}
	wg.Wait()

	if len(sender.msgs) != 20 {
		t.Errorf("sent %d messages, want 20", len(sender.msgs))
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", maxLoggedPayload+10)
	got := truncate([]byte(long))
	if !strings.HasSuffix(got, "...(truncated)") || len(got) != maxLoggedPayload+len("...(truncated)") {
		t.Errorf("truncate() len = %d", len(got))
	}
	if truncate([]byte("short")) != "short" {
		t.Error("truncate() changed a short payload")
	}
}
