package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration wraps time.Duration so configuration and scenario files can
// express intervals as strings like "30s" or "5m". Bare numbers decode as
// seconds for compatibility with older scenario files.
type Duration time.Duration

// String returns the string representation of Duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// Seconds returns the duration as seconds.
func (d Duration) Seconds() float64 {
	return time.Duration(d).Seconds()
}

// AsDuration converts a config.Duration to a time.Duration.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

// FromDuration creates a config.Duration from a time.Duration.
func FromDuration(d time.Duration) Duration {
	return Duration(d)
}

// ParseDuration parses a duration string and returns a config.Duration.
func ParseDuration(s string) (Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return Duration(d), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, used by the TOML
// decoder and by JSON string values.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON accepts either a duration string or a bare number of
// seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		return d.UnmarshalText([]byte(asString))
	}
	var asSeconds float64
	if err := json.Unmarshal(data, &asSeconds); err == nil {
		*d = Duration(time.Duration(asSeconds * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %s", data)
}

// MarshalJSON renders the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
