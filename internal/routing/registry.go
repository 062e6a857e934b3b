// Package routing resolves an alert's application and environment to the
// Mattermost destination it should be posted to.
package routing

import (
	"fmt"
	"sort"

	"github.com/mr-karan/mattermost-bridge/pkg/models"
)

// Route binds a routing key to a destination.
type Route struct {
	Key         models.RoutingKey
	Destination models.Destination
}

// Registry is an immutable routing table with a designated fallback destination.
// It is safe for concurrent use.
type Registry struct {
	routes      map[models.RoutingKey]models.Destination
	fallbackKey models.RoutingKey
	fallback    models.Destination
}

// New builds a registry from routes. The fallback key must be one of the routes.
func New(routes []Route, fallback models.RoutingKey) (*Registry, error) {
	r := &Registry{
		routes:      make(map[models.RoutingKey]models.Destination, len(routes)),
		fallbackKey: fallback,
	}
	for _, route := range routes {
		if route.Destination.Webhook == "" {
			return nil, fmt.Errorf("route %s: webhook identifier is required", route.Key)
		}
		if route.Destination.Channel == "" {
			return nil, fmt.Errorf("route %s: channel is required", route.Key)
		}
		if _, ok := r.routes[route.Key]; ok {
			return nil, fmt.Errorf("route %s declared more than once", route.Key)
		}
		r.routes[route.Key] = route.Destination
	}

	dest, ok := r.routes[fallback]
	if !ok {
		return nil, fmt.Errorf("fallback route %s is not configured", fallback)
	}
	r.fallback = dest
	return r, nil
}

// Resolve returns the destination for key. When key is not configured it
// returns the fallback destination and false.
func (r *Registry) Resolve(key models.RoutingKey) (models.Destination, bool) {
	if dest, ok := r.routes[key]; ok {
		return dest, true
	}
	return r.fallback, false
}

// Fallback returns the fallback routing key and destination.
func (r *Registry) Fallback() (models.RoutingKey, models.Destination) {
	return r.fallbackKey, r.fallback
}

// Keys returns the configured routing keys in application, environment order.
func (r *Registry) Keys() []models.RoutingKey {
	keys := make([]models.RoutingKey, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Application != keys[j].Application {
			return keys[i].Application < keys[j].Application
		}
		return keys[i].Environment < keys[j].Environment
	})
	return keys
}
