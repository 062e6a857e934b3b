package models

// Origin identifies the monitoring provider that produced an inbound alert.
type Origin string

const (
	// OriginGCP is Google Cloud Monitoring; its payloads carry a top-level "incident" object.
	OriginGCP Origin = "GCP"
	// OriginSentry is Sentry error tracking; its payloads carry a top-level "event" object.
	OriginSentry Origin = "SENTRY"
)

// Origins lists every known origin in classification order.
func Origins() []Origin {
	return []Origin{OriginGCP, OriginSentry}
}

// Valid reports whether o is one of the known origins.
func (o Origin) Valid() bool {
	switch o {
	case OriginGCP, OriginSentry:
		return true
	default:
		return false
	}
}

// AlertKind classifies the severity or type of an alert.
type AlertKind string

const (
	AlertKindError AlertKind = "ERROR"
)

// RoutingKey selects a destination in the routing registry.
type RoutingKey struct {
	Application string `json:"application"`
	Environment string `json:"environment"`
}

func (k RoutingKey) String() string {
	return k.Application + "/" + k.Environment
}

// Destination is a Mattermost incoming webhook together with the channel and
// display name used when posting through it.
type Destination struct {
	Webhook  string `json:"webhook"`
	Channel  string `json:"channel"`
	Username string `json:"username"`
}

// Message is a fully rendered post ready for delivery.
type Message struct {
	Destination
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}
