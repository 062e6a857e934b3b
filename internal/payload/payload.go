// Package payload classifies raw alert webhooks by provider and turns them into
// typed views carrying the routing key and display fields.
package payload

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mr-karan/mattermost-bridge/pkg/models"
)

var (
	// ErrInvalidPayload is returned when the body is not a JSON object.
	ErrInvalidPayload = errors.New("payload is not a JSON object")
	// ErrUnclassifiableOrigin is returned when no known provider shape matches.
	ErrUnclassifiableOrigin = errors.New("cannot determine origin from payload")
	// ErrMissingField is returned when a field required for routing is absent.
	ErrMissingField = errors.New("required field missing")
)

// Alert is the typed view of a classified payload.
type Alert interface {
	Origin() models.Origin
	Kind() models.AlertKind
	RoutingKey() models.RoutingKey
}

// Classify inspects the top-level keys of raw. An "incident" key means GCP and
// is checked before "event", which means Sentry.
func Classify(raw []byte) (models.Origin, error) {
	if !gjson.ValidBytes(raw) {
		return "", ErrInvalidPayload
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return "", ErrInvalidPayload
	}

	switch {
	case root.Get("incident").Exists():
		return models.OriginGCP, nil
	case root.Get("event").Exists():
		return models.OriginSentry, nil
	default:
		return "", ErrUnclassifiableOrigin
	}
}

// Extract builds the typed view of raw for an already classified origin.
func Extract(origin models.Origin, raw []byte) (Alert, error) {
	root := gjson.ParseBytes(raw)
	switch origin {
	case models.OriginGCP:
		return extractGCP(root)
	case models.OriginSentry:
		return extractSentry(root), nil
	default:
		return nil, fmt.Errorf("%w: unsupported origin %q", ErrUnclassifiableOrigin, origin)
	}
}

// required returns the string at path, failing when it is absent or blank.
func required(root gjson.Result, path string) (string, error) {
	v := root.Get(path)
	if !v.Exists() || v.Type == gjson.Null || strings.TrimSpace(v.String()) == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingField, path)
	}
	return v.String(), nil
}

// firstOf returns the first non-empty string found at paths.
func firstOf(root gjson.Result, paths ...string) string {
	for _, p := range paths {
		v := root.Get(p)
		if v.Exists() && v.Type != gjson.Null {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}
