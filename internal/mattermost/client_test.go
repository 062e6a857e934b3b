package mattermost

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mr-karan/mattermost-bridge/pkg/models"
)

func testMessage() models.Message {
	return models.Message{
		Destination: models.Destination{Webhook: "abc123", Channel: "planscape-alerts-dev", Username: "Bridge"},
		Text:        "#### :red_circle: [GCP ERROR] disk full",
	}
}

func TestDeliver_Success(t *testing.T) {
	var (
		gotPath string
		gotBody webhookPayload
		gotType string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseURL: server.URL + "/", Timeout: time.Second})
	if !client.Deliver(context.Background(), testMessage()) {
		t.Fatal("Deliver() = false, want true")
	}

	if gotPath != "/hooks/abc123" {
		t.Errorf("request path = %q, want %q", gotPath, "/hooks/abc123")
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotType)
	}
	if gotBody.Channel != "planscape-alerts-dev" || gotBody.Username != "Bridge" {
		t.Errorf("payload = %+v, want channel and username set", gotBody)
	}
	if !strings.Contains(gotBody.Text, "disk full") {
		t.Errorf("payload text = %q", gotBody.Text)
	}
}

func TestSend_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantErr: "status 500 (boom)",
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
			wantErr: "status 400",
		},
		{
			name: "non 200 success code",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
			},
			wantErr: "status 202",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(ClientOptions{BaseURL: server.URL, Timeout: time.Second})
			err := client.Send(context.Background(), testMessage())
			if !errors.Is(err, ErrDeliveryFailed) {
				t.Fatalf("Send() error = %v, want ErrDeliveryFailed", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Send() error = %q, want containing %q", err, tt.wantErr)
			}
			if client.Deliver(context.Background(), testMessage()) {
				t.Error("Deliver() = true, want false")
			}
		})
	}
}

func TestDeliver_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(ClientOptions{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	if client.Deliver(context.Background(), testMessage()) {
		t.Error("Deliver() = true on timeout, want false")
	}
}

func TestSend_ConnectionRefusedRedactsHook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(ClientOptions{BaseURL: url, Timeout: time.Second})
	err := client.Send(context.Background(), testMessage())
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("Send() error = %v, want ErrDeliveryFailed", err)
	}
	if strings.Contains(err.Error(), "abc123") {
		t.Errorf("Send() error leaks webhook identifier: %q", err)
	}
}

func TestSend_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(ClientOptions{BaseURL: server.URL, Timeout: time.Second})
	if client.Deliver(ctx, testMessage()) {
		t.Error("Deliver() = true with cancelled context, want false")
	}
}

func TestSend_EmptyWebhook(t *testing.T) {
	client := NewClient(ClientOptions{BaseURL: "http://localhost"})
	msg := testMessage()
	msg.Webhook = ""
	if err := client.Send(context.Background(), msg); !errors.Is(err, ErrDeliveryFailed) {
		t.Errorf("Send() error = %v, want ErrDeliveryFailed", err)
	}
}

func TestHookURL(t *testing.T) {
	tests := []struct {
		base    string
		webhook string
		want    string
	}{
		{"https://chat.example.com", "abc", "https://chat.example.com/hooks/abc"},
		{"https://chat.example.com/", "abc", "https://chat.example.com/hooks/abc"},
		{" https://chat.example.com// ", "/abc/", "https://chat.example.com/hooks/abc"},
	}

	for _, tt := range tests {
		c := NewClient(ClientOptions{BaseURL: tt.base})
		if got := c.HookURL(tt.webhook); got != tt.want {
			t.Errorf("HookURL(%q) with base %q = %q, want %q", tt.webhook, tt.base, got, tt.want)
		}
	}
}
