package payload

import (
	"github.com/tidwall/gjson"

	"github.com/mr-karan/mattermost-bridge/pkg/models"
)

// SentryRoutingKey is the routing key for every Sentry event. Sentry payloads
// carry no per-tenant routing information, so all events land in one place.
var SentryRoutingKey = models.RoutingKey{Application: "planscape", Environment: "dev"}

// SentryEvent is a Sentry issue alert notification.
type SentryEvent struct {
	Project     string
	Title       string
	Environment string
	Level       string
	Culprit     string
	Message     string
	URL         string
}

func (s *SentryEvent) Origin() models.Origin         { return models.OriginSentry }
func (s *SentryEvent) Kind() models.AlertKind        { return models.AlertKindError }
func (s *SentryEvent) RoutingKey() models.RoutingKey { return SentryRoutingKey }

func extractSentry(root gjson.Result) *SentryEvent {
	return &SentryEvent{
		Project:     firstOf(root, "project_name", "project_slug", "project"),
		Title:       firstOf(root, "event.title"),
		Environment: firstOf(root, "event.environment"),
		Level:       firstOf(root, "level", "event.level"),
		Culprit:     firstOf(root, "culprit", "event.culprit"),
		Message:     firstOf(root, "message", "event.message", "event.logentry.formatted"),
		URL:         firstOf(root, "url", "event.web_url"),
	}
}
