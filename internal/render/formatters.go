package render

import (
	"fmt"
	"strings"

	"github.com/mr-karan/mattermost-bridge/internal/payload"
)

func formatGCPError(alert payload.Alert, _ []byte) (string, error) {
	g, ok := alert.(*payload.GCPIncident)
	if !ok {
		return "", fmt.Errorf("gcp formatter: unexpected alert type %T", alert)
	}
	title := g.Summary
	if title == "" {
		title = g.PolicyName
	}
	if title == "" {
		return "", fmt.Errorf("%w: incident.summary", ErrFieldMissing)
	}

	var b strings.Builder
	b.WriteString(header(g.Origin(), g.Kind(), title))
	b.WriteString("\n\n")
	b.WriteString(fieldTable(
		[]string{"Project", "Resource", "Title", "Environment", "Link"},
		[]string{g.ProjectID, g.Resource, title, g.Environment, link("View incident", g.URL)},
	))
	b.WriteString("\n")
	return b.String(), nil
}

func formatSentryError(alert payload.Alert, _ []byte) (string, error) {
	s, ok := alert.(*payload.SentryEvent)
	if !ok {
		return "", fmt.Errorf("sentry formatter: unexpected alert type %T", alert)
	}
	if s.Title == "" {
		return "", fmt.Errorf("%w: event.title", ErrFieldMissing)
	}

	var b strings.Builder
	b.WriteString(header(s.Origin(), s.Kind(), s.Title))
	b.WriteString("\n\n")
	b.WriteString(fieldTable(
		[]string{"Project", "Title", "Environment", "Link"},
		[]string{s.Project, s.Title, s.Environment, link("View issue", s.URL)},
	))
	b.WriteString("\n")

	message := s.Message
	if message == "" {
		message = s.Culprit
	}
	if message != "" {
		b.WriteString("\n```\n")
		b.WriteString(strings.ReplaceAll(message, "```", "'''"))
		b.WriteString("\n```\n")
	}
	return b.String(), nil
}
