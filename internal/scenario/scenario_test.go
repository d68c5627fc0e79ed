package scenario

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cellwarden/cellwarden/internal/config"
)

func validScenario() *Scenario {
	return &Scenario{
		Name:    "restart_io",
		Trigger: Trigger{Type: TriggerAutomatic, Conditions: map[string]any{"always": map[string]any{}}},
		Actions: []ActionConfig{{"type": "send_command"}},
	}
}

func TestScenario_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr bool
	}{
		{"Valid", func(*Scenario) {}, false},
		{"ManualTrigger", func(s *Scenario) { s.Trigger = Trigger{Type: TriggerManual} }, false},
		{"NoName", func(s *Scenario) { s.Name = "" }, true},
		{"NoTriggerType", func(s *Scenario) { s.Trigger.Type = "" }, true},
		{"UnknownTriggerType", func(s *Scenario) { s.Trigger.Type = "cron" }, true},
		{"NegativeMaxExecutions", func(s *Scenario) { s.MaxExecutions = -1 }, true},
		{"NegativeCooldown", func(s *Scenario) { s.Cooldown = config.Duration(-time.Second) }, true},
		{"ActionWithoutType", func(s *Scenario) { s.Actions = []ActionConfig{{"client": "x"}} }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := validScenario()
			tc.mutate(s)
			err := s.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrScenarioValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScenario_EffectivePriority(t *testing.T) {
	s := validScenario()
	assert.Equal(t, DefaultPriority, s.EffectivePriority())

	p := 5
	s.Priority = &p
	assert.Equal(t, 5, s.EffectivePriority())
}

func TestScenario_EffectiveMaxConcurrent(t *testing.T) {
	s := validScenario()
	assert.Equal(t, DefaultMaxConcurrentExecutions, s.EffectiveMaxConcurrent())

	n := 3
	s.MaxConcurrentExecutions = &n
	assert.Equal(t, 3, s.EffectiveMaxConcurrent())

	zero := 0
	s.MaxConcurrentExecutions = &zero
	assert.Equal(t, DefaultMaxConcurrentExecutions, s.EffectiveMaxConcurrent())
}

func TestActionConfig_Type(t *testing.T) {
	assert.Equal(t, "send_email", ActionConfig{"type": "send_email"}.Type())
	assert.Equal(t, "", ActionConfig{}.Type())
	assert.Equal(t, "", ActionConfig{"type": 7}.Type())
}
