// Package config defines the orchestrator configuration schema, its
// loaders (TOML and JSON) and validation.
package config

import (
	"maps"
	"slices"
	"time"
)

const (
	// DefaultName is the orchestrator's logical component name.
	DefaultName = "orchestrator"

	// DefaultTickInterval is the period of the orchestrator scenario tick.
	DefaultTickInterval = Duration(2 * time.Second)

	// DefaultMaxConcurrentScenarios caps simultaneous scenario executions
	// across all scenarios.
	DefaultMaxConcurrentScenarios = 8

	// DefaultPollTimeout bounds a CMD_GET_STATE round trip.
	DefaultPollTimeout = Duration(3 * time.Second)
)

// Config is the root orchestrator configuration.
type Config struct {
	// Name is the orchestrator's logical name in event traffic.
	Name string `toml:"name" json:"name"`

	// Address and Port are the orchestrator's own event ingress coordinates.
	Address string `toml:"address" json:"address"`
	Port    int    `toml:"port"    json:"port"`

	TickInterval           Duration `toml:"tick_interval"            json:"tick_interval"`
	PollTimeout            Duration `toml:"poll_timeout"             json:"poll_timeout"`
	MaxConcurrentScenarios *int     `toml:"max_concurrent_scenarios" json:"max_concurrent_scenarios"`

	// SnapshotDirectory enables best-effort queue snapshots when set.
	SnapshotDirectory string `toml:"snapshot_directory" json:"snapshot_directory"`

	BuiltinScenariosDirectory string `toml:"builtin_scenarios_directory" json:"builtin_scenarios_directory"`
	ScenariosDirectory        string `toml:"scenarios_directory"         json:"scenarios_directory"`

	Clients    map[string]ClientConfig    `toml:"clients"    json:"clients"`
	Components map[string]ComponentConfig `toml:"components" json:"components"`

	SMTP *SMTPConfig `toml:"smtp" json:"smtp,omitempty"`
	SMS  *SMSConfig  `toml:"sms"  json:"sms,omitempty"`
	Lynx *LynxConfig `toml:"lynx" json:"lynx,omitempty"`
}

// ClientConfig describes one supervised component.
type ClientConfig struct {
	Address   string   `toml:"address"    json:"address"`
	Port      int      `toml:"port"       json:"port"`
	Groups    []string `toml:"groups"     json:"groups,omitempty"`
	DependsOn []string `toml:"depends_on" json:"depends_on,omitempty"`
}

// ComponentConfig is the raw configuration of a named external resource.
// The "type" key selects the component implementation; the rest is
// implementation-specific.
type ComponentConfig map[string]any

// Type returns the component type tag, or "" when absent.
func (c ComponentConfig) Type() string {
	t, _ := c["type"].(string)
	return t
}

// String returns a string-typed config key, or "" when absent.
func (c ComponentConfig) String(key string) string {
	v, _ := c[key].(string)
	return v
}

// Int returns an integer-typed config key, tolerating the float64 that
// JSON decoding produces.
func (c ComponentConfig) Int(key string) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// SMTPConfig configures the send_email action kind.
type SMTPConfig struct {
	Host             string `toml:"host"               json:"host"`
	Port             int    `toml:"port"               json:"port"`
	Username         string `toml:"username"           json:"username"`
	Password         string `toml:"password"           json:"password"`
	StartTLS         bool   `toml:"starttls"           json:"starttls"`
	TLS              bool   `toml:"tls"                json:"tls"`
	From             string `toml:"from"               json:"from"`
	MaxErrorAttempts int    `toml:"max_error_attempts" json:"max_error_attempts"`
}

// SMSConfig configures the send_sms action kinds.
type SMSConfig struct {
	Enabled          bool   `toml:"enabled"            json:"enabled"`
	URL              string `toml:"url"                json:"url"`
	Login            string `toml:"login"              json:"login"`
	Password         string `toml:"password"           json:"password"`
	ServiceID        string `toml:"serviceId"          json:"serviceId"`
	Source           string `toml:"source"             json:"source"`
	MaxErrorAttempts int    `toml:"max_error_attempts" json:"max_error_attempts"`
}

// LynxConfig configures the lynx_refund action kinds.
type LynxConfig struct {
	BaseURL          string `toml:"base_url"           json:"base_url"`
	APIKey           string `toml:"api_key"            json:"api_key"`
	MaxErrorAttempts int    `toml:"max_error_attempts" json:"max_error_attempts"`
}

// setDefaults fills in unset fields after loading.
func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Address == "" {
		c.Address = "127.0.0.1"
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = DefaultPollTimeout
	}
	if c.MaxConcurrentScenarios == nil {
		n := DefaultMaxConcurrentScenarios
		c.MaxConcurrentScenarios = &n
	}
	if c.Clients == nil {
		c.Clients = map[string]ClientConfig{}
	}
	if c.Components == nil {
		c.Components = map[string]ComponentConfig{}
	}
}

// ClientNames returns the configured client names in sorted order.
func (c *Config) ClientNames() []string {
	return slices.Sorted(maps.Keys(c.Clients))
}

// Groups returns the mapping from group name to member client names,
// members sorted.
func (c *Config) Groups() map[string][]string {
	groups := map[string][]string{}
	for name, client := range c.Clients {
		for _, g := range client.Groups {
			groups[g] = append(groups[g], name)
		}
	}
	for g := range groups {
		slices.Sort(groups[g])
	}
	return groups
}
