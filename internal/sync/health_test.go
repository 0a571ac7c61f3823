package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookHealth_HealthyWhileUnderThreshold(t *testing.T) {
	h := NewWebhookHealth(100, 10)

	for i := 0; i < 9; i++ {
		h.Record(true)
	}
	status := h.Status()
	assert.True(t, status.Healthy)
	assert.Equal(t, 9, status.Failed)
	assert.Equal(t, 9, status.Processed)

	h.Record(true)
	status = h.Status()
	assert.False(t, status.Healthy, "threshold is reached at maxFailed")
	assert.Equal(t, 10, status.Failed)
}

func TestWebhookHealth_WindowRollsOver(t *testing.T) {
	h := NewWebhookHealth(10, 3)

	// Fill the window with failures, then push them out with successes
	for i := 0; i < 10; i++ {
		h.Record(true)
	}
	assert.False(t, h.Status().Healthy)

	for i := 0; i < 10; i++ {
		h.Record(false)
	}
	status := h.Status()
	assert.True(t, status.Healthy)
	assert.Equal(t, 0, status.Failed)
	assert.Equal(t, 10, status.Processed, "processed caps at window size")
}

func TestWebhookHealth_EmptyWindowIsHealthy(t *testing.T) {
	h := NewWebhookHealth(100, 10)
	status := h.Status()
	assert.True(t, status.Healthy)
	assert.Equal(t, 0, status.Processed)
	assert.Equal(t, 100, status.Window)
}

func TestWebhookHealth_DefaultsOnZeroConfig(t *testing.T) {
	h := NewWebhookHealth(0, 0)
	status := h.Status()
	assert.Equal(t, 100, status.Window)
}
