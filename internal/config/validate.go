package config

import (
	"errors"
	"fmt"
)

// Validate performs comprehensive validation of the configuration.
func (c *Config) Validate() error {
	errz := []error{}

	if c.Port <= 0 || c.Port > 65535 {
		errz = append(errz, fmt.Errorf("orchestrator port %d out of range", c.Port))
	}
	if c.MaxConcurrentScenarios != nil && *c.MaxConcurrentScenarios < 0 {
		errz = append(errz, fmt.Errorf("max_concurrent_scenarios must not be negative"))
	}

	addrs := make(map[string]string, len(c.Clients))
	for name, client := range c.Clients {
		if client.Address == "" {
			errz = append(errz, fmt.Errorf("client %q has an empty address", name))
			continue
		}
		if client.Port <= 0 || client.Port > 65535 {
			errz = append(errz, fmt.Errorf("client %q port %d out of range", name, client.Port))
		}
		endpoint := fmt.Sprintf("%s:%d", client.Address, client.Port)
		if other, dup := addrs[endpoint]; dup {
			errz = append(errz, fmt.Errorf("clients %q and %q share endpoint %s", other, name, endpoint))
		} else {
			addrs[endpoint] = name
		}
		for _, dep := range client.DependsOn {
			if _, ok := c.Clients[dep]; !ok {
				errz = append(errz, fmt.Errorf("client %q depends on unknown client %q", name, dep))
			}
		}
	}
	if err := c.validateDependencyCycles(); err != nil {
		errz = append(errz, err)
	}

	for name, comp := range c.Components {
		if comp.Type() == "" {
			errz = append(errz, fmt.Errorf("component %q has no type", name))
		}
	}

	if len(errz) > 0 {
		return fmt.Errorf("%w: %w", ErrFailedToValidateConfig, errors.Join(errz...))
	}
	return nil
}

// validateDependencyCycles rejects circular depends_on chains, which
// would make shutdown ordering undefined.
func (c *Config) validateDependencyCycles() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(c.Clients))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("dependency cycle involving client %q", name)
		case done:
			return nil
		}
		state[name] = visiting
		for _, dep := range c.Clients[name].DependsOn {
			if _, ok := c.Clients[dep]; !ok {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, name := range c.ClientNames() {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
