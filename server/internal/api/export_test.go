package api

import "time"

// SetClock overrides the handler's clock in tests.
func (h *Handler) SetClock(now func() time.Time) { h.now = now }
