// Package config loads the bridge configuration from defaults, a TOML file and
// BRIDGE_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
// Nested keys are separated by a double underscore, e.g. BRIDGE_AUTH__TOKEN.
const EnvPrefix = "BRIDGE_"

// Config is the complete process configuration. It is loaded once at startup
// and treated as read-only afterwards.
type Config struct {
	App        AppConfig                         `koanf:"app"`
	Server     ServerConfig                      `koanf:"server"`
	Auth       AuthConfig                        `koanf:"auth"`
	Mattermost MattermostConfig                  `koanf:"mattermost"`
	Routes     map[string]map[string]RouteConfig `koanf:"routes"`
	Fallback   FallbackConfig                    `koanf:"fallback"`
}

// AppConfig holds process identity and logging settings.
type AppConfig struct {
	Name      string `koanf:"name"`
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"` // text, json, logfmt
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Address      string        `koanf:"address"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	BodyLimit    int           `koanf:"body_limit"`
	Metrics      bool          `koanf:"metrics"`
}

// AuthConfig holds the shared secret expected in the auth_token query parameter.
type AuthConfig struct {
	Token string `koanf:"token"`
}

// MattermostConfig holds outbound delivery settings.
type MattermostConfig struct {
	BaseURL               string        `koanf:"base_url"`
	Timeout               time.Duration `koanf:"timeout"`
	Username              string        `koanf:"username"`
	IconURL               string        `koanf:"icon_url"`
	TLSInsecureSkipVerify bool          `koanf:"tls_insecure_skip_verify"`
}

// RouteConfig describes the destination for one application environment.
type RouteConfig struct {
	Webhook  string `koanf:"webhook"`
	Channel  string `koanf:"channel"`
	Username string `koanf:"username"`
}

// FallbackConfig names the route used when an alert's routing key is unknown.
type FallbackConfig struct {
	Application string `koanf:"application"`
	Environment string `koanf:"environment"`
}

// Route is a flattened routing table entry.
type Route struct {
	Application string
	Environment string
	RouteConfig
}

// Load reads configuration from path (optional) and the environment on top of
// the built-in defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(defaults{}, nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings that the rest of the process cannot recover from.
// Route completeness is enforced by the routing registry.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.App.Name) == "" {
		errs = append(errs, errors.New("app.name is required"))
	}
	if c.Mattermost.BaseURL == "" {
		errs = append(errs, errors.New("mattermost.base_url is required"))
	} else if u, err := url.Parse(c.Mattermost.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("mattermost.base_url %q is not an http(s) URL", c.Mattermost.BaseURL))
	}
	if c.Mattermost.Timeout <= 0 {
		errs = append(errs, errors.New("mattermost.timeout must be positive"))
	}
	if len(c.Routes) == 0 {
		errs = append(errs, errors.New("at least one route is required"))
	}
	if c.Fallback.Application == "" || c.Fallback.Environment == "" {
		errs = append(errs, errors.New("fallback.application and fallback.environment are required"))
	}
	return errors.Join(errs...)
}

// RouteTable flattens Routes into a deterministic list. Routes without an
// explicit username inherit mattermost.username.
func (c *Config) RouteTable() []Route {
	var routes []Route
	for app, envs := range c.Routes {
		for envName, rc := range envs {
			if rc.Username == "" {
				rc.Username = c.Mattermost.Username
			}
			routes = append(routes, Route{Application: app, Environment: envName, RouteConfig: rc})
		}
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Application != routes[j].Application {
			return routes[i].Application < routes[j].Application
		}
		return routes[i].Environment < routes[j].Environment
	})
	return routes
}

// envToKey converts an environment variable name to a config key,
// e.g. BRIDGE_MATTERMOST__BASE_URL -> mattermost.base_url.
func envToKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// defaults implements koanf.Provider for the built-in configuration so that
// file and environment values merge key by key on top of it.
type defaults struct{}

func (defaults) ReadBytes() ([]byte, error) {
	return nil, errors.New("defaults provider does not support ReadBytes")
}

func (defaults) Read() (map[string]any, error) {
	return map[string]any{
		"app": map[string]any{
			"name":       "mattermost-bridge",
			"log_level":  "info",
			"log_format": "text",
		},
		"server": map[string]any{
			"address":       ":8000",
			"read_timeout":  "10s",
			"write_timeout": "15s",
			"body_limit":    1 << 20,
			"metrics":       true,
		},
		"mattermost": map[string]any{
			"timeout":  "10s",
			"username": "Bridge",
		},
		"routes": map[string]any{
			"planscape": map[string]any{
				"dev":        map[string]any{"channel": "planscape-alerts-dev"},
				"staging":    map[string]any{"channel": "planscape-alerts-dev"},
				"production": map[string]any{"channel": "planscape-alerts-production"},
			},
		},
		"fallback": map[string]any{
			"application": "planscape",
			"environment": "dev",
		},
	}, nil
}
