package fakebackend

import (
	"log/slog"
	"time"
)

// Housekeeping periodically drops expired refresh sessions so a long-running
// development server does not grow without bound.
type Housekeeping struct {
	Server   *Server
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeeping returns a sweeper for s. A non-positive interval defaults
// to one hour.
func NewHousekeeping(s *Server, logger *slog.Logger, interval time.Duration) *Housekeeping {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Housekeeping{
		Server:   s,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the sweeper in the background until Stop.
func (h *Housekeeping) Start() {
	go h.run()
	h.Logger.Info("housekeeping started", "interval", h.Interval)
}

// Stop blocks until an in-progress sweep finished.
func (h *Housekeeping) Stop() {
	close(h.stopCh)
	<-h.doneCh
	h.Logger.Info("housekeeping stopped")
}

func (h *Housekeeping) run() {
	defer close(h.doneCh)

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	h.Sweep()

	for {
		select {
		case <-ticker.C:
			h.Sweep()
		case <-h.stopCh:
			return
		}
	}
}

// Sweep removes expired refresh sessions once and returns how many went.
func (h *Housekeeping) Sweep() int {
	n := h.Server.deleteExpiredRefreshTokens()
	h.Logger.Debug("housekeeping sweep completed", "expired_refresh_tokens", n)
	return n
}
