package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCounters_Threshold(t *testing.T) {
	c := NewErrorCounters()
	c.SetLimit("send_email", 3)

	assert.False(t, c.Exhausted("send_email"))
	c.Failure("send_email")
	c.Failure("send_email")
	assert.False(t, c.Exhausted("send_email"))
	assert.Equal(t, 3, c.Failure("send_email"))
	assert.True(t, c.Exhausted("send_email"))
}

func TestErrorCounters_SuccessResets(t *testing.T) {
	c := NewErrorCounters()
	c.SetLimit("send_sms", 2)

	c.Failure("send_sms")
	c.Failure("send_sms")
	assert.True(t, c.Exhausted("send_sms"))

	c.Success("send_sms")
	assert.False(t, c.Exhausted("send_sms"))
	assert.Equal(t, 0, c.Count("send_sms"))
}

func TestErrorCounters_NoLimitNeverExhausts(t *testing.T) {
	c := NewErrorCounters()
	for range 100 {
		c.Failure("lynx_refund")
	}
	assert.False(t, c.Exhausted("lynx_refund"))

	c.SetLimit("lynx_refund", 0)
	assert.False(t, c.Exhausted("lynx_refund"), "non-positive limit disables skipping")
}

func TestErrorCounters_ResetAll(t *testing.T) {
	c := NewErrorCounters()
	c.SetLimit("send_email", 1)
	c.SetLimit("send_sms", 1)
	c.Failure("send_email")
	c.Failure("send_sms")

	c.ResetAll()

	assert.False(t, c.Exhausted("send_email"))
	assert.False(t, c.Exhausted("send_sms"))

	// Limits survive a reset.
	c.Failure("send_email")
	assert.True(t, c.Exhausted("send_email"))
}

func TestErrorCounters_KindsAreIndependent(t *testing.T) {
	c := NewErrorCounters()
	c.SetLimit("send_email", 1)
	c.SetLimit("send_sms", 1)

	c.Failure("send_email")
	assert.True(t, c.Exhausted("send_email"))
	assert.False(t, c.Exhausted("send_sms"))
}
