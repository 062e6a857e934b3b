package payload

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/mr-karan/mattermost-bridge/pkg/models"
)

// GCPIncident is a Cloud Monitoring incident notification.
type GCPIncident struct {
	Application   string
	Environment   string
	IncidentID    string
	ProjectID     string
	Resource      string
	PolicyName    string
	ConditionName string
	Summary       string
	State         string
	URL           string
	StartedAt     time.Time
}

func (g *GCPIncident) Origin() models.Origin  { return models.OriginGCP }
func (g *GCPIncident) Kind() models.AlertKind { return models.AlertKindError }

func (g *GCPIncident) RoutingKey() models.RoutingKey {
	return models.RoutingKey{Application: g.Application, Environment: g.Environment}
}

func extractGCP(root gjson.Result) (*GCPIncident, error) {
	app, err := required(root, "incident.resource.labels.application")
	if err != nil {
		return nil, err
	}
	env, err := required(root, "incident.resource.labels.env")
	if err != nil {
		return nil, err
	}

	incident := root.Get("incident")
	g := &GCPIncident{
		Application:   app,
		Environment:   env,
		IncidentID:    firstOf(incident, "incident_id"),
		ProjectID:     firstOf(incident, "scoping_project_id", "resource.labels.project_id"),
		Resource:      firstOf(incident, "resource_display_name", "resource_name", "resource.type"),
		PolicyName:    firstOf(incident, "policy_name"),
		ConditionName: firstOf(incident, "condition_name"),
		Summary:       firstOf(incident, "summary"),
		State:         firstOf(incident, "state"),
		URL:           firstOf(incident, "url"),
	}
	if ts := incident.Get("started_at"); ts.Type == gjson.Number && ts.Int() > 0 {
		g.StartedAt = time.Unix(ts.Int(), 0).UTC()
	}
	return g, nil
}
