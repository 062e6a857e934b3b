// Package render turns classified alert payloads into Mattermost Markdown.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mr-karan/mattermost-bridge/internal/metrics"
	"github.com/mr-karan/mattermost-bridge/internal/payload"
	"github.com/mr-karan/mattermost-bridge/pkg/models"
)

// GenericMarker prefixes messages rendered without a provider specific formatter.
const GenericMarker = "[GENERIC/UNKNOWN]"

// ErrFieldMissing is returned by formatters when a field they need is absent.
var ErrFieldMissing = errors.New("field missing for formatter")

// Formatter renders one origin and alert kind. raw is the original request body.
type Formatter func(alert payload.Alert, raw []byte) (string, error)

// Renderer selects a formatter by origin and alert kind. The lookup table is
// fixed at construction and safe for concurrent use.
type Renderer struct {
	formatters map[models.Origin]map[models.AlertKind]Formatter
	log        *slog.Logger
}

// New returns a renderer with the GCP and Sentry formatters registered.
func New(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		formatters: map[models.Origin]map[models.AlertKind]Formatter{
			models.OriginGCP: {
				models.AlertKindError: formatGCPError,
			},
			models.OriginSentry: {
				models.AlertKindError: formatSentryError,
			},
		},
		log: logger.With("component", "renderer"),
	}
}

// Render returns the message text for alert. It never returns an empty string:
// unknown combinations and failing formatters fall back to Generic.
func (r *Renderer) Render(alert payload.Alert, raw []byte) string {
	if alert == nil {
		return Generic(raw)
	}
	f, ok := r.lookup(alert.Origin(), alert.Kind())
	if !ok {
		r.log.Debug("no formatter registered, using generic", "origin", alert.Origin(), "kind", alert.Kind())
		return Generic(raw)
	}

	text, err := f(alert, raw)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("formatter produced empty text")
	}
	if err != nil {
		r.log.Warn("formatter failed, degrading to generic output",
			"origin", alert.Origin(),
			"kind", alert.Kind(),
			"error", err)
		metrics.RecordRenderDegraded(alert.Origin())
		return Generic(raw)
	}
	return text
}

func (r *Renderer) lookup(origin models.Origin, kind models.AlertKind) (Formatter, bool) {
	kinds, ok := r.formatters[origin]
	if !ok {
		return nil, false
	}
	f, ok := kinds[kind]
	return f, ok
}

// Generic dumps raw verbatim inside a code block.
func Generic(raw []byte) string {
	body := bytes.TrimSpace(raw)
	if len(body) == 0 {
		body = []byte("{}")
	}
	var b strings.Builder
	b.WriteString(GenericMarker)
	b.WriteString("\n```\n")
	b.Write(body)
	b.WriteString("\n```\n")
	return b.String()
}

// header is the severity tagged first line of a message.
func header(origin models.Origin, kind models.AlertKind, title string) string {
	return fmt.Sprintf("#### %s [%s %s] %s", severityTag(kind), origin, kind, cell(title))
}

func severityTag(kind models.AlertKind) string {
	switch kind {
	case models.AlertKindError:
		return ":red_circle:"
	default:
		return ":large_blue_circle:"
	}
}

// fieldTable renders a single row Markdown table with the given columns.
func fieldTable(columns, values []string) string {
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = cell(v)
	}
	pad := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.MarkdownBorder()).
		BorderTop(false).
		BorderBottom(false).
		StyleFunc(func(row, col int) lipgloss.Style { return pad }).
		Headers(columns...).
		Row(row...)
	return t.String()
}

// cell makes v safe inside a Markdown table cell.
func cell(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	v = strings.ReplaceAll(v, "\r\n", " ")
	v = strings.ReplaceAll(v, "\n", " ")
	return strings.ReplaceAll(v, "|", `\|`)
}

func link(label, url string) string {
	if url == "" {
		return ""
	}
	return fmt.Sprintf("[%s](%s)", label, url)
}
