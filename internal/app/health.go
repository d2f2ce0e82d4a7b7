package app

import (
	"sync/atomic"

	"glm-relay/internal/proxy"
)

// Health tracks whether the gateway is ready to accept traffic. Safe for
// concurrent use.
type Health struct {
	ready atomic.Bool
}

var _ proxy.ReadinessChecker = (*Health)(nil)

// NewHealth returns a Health that starts out not ready.
func NewHealth() *Health {
	return &Health{}
}

// SetReady flips the readiness state.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady implements proxy.ReadinessChecker.
func (h *Health) IsReady() bool {
	return h.ready.Load()
}
