package server

import (
	"context"
	"time"

	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

// invitationSweeper periodically deletes invitations past their expiry. The
// mongo driver also has a TTL index, so the sweep is a no-op there most of
// the time.
type invitationSweeper struct {
	invitations ports.InvitationService
	interval    time.Duration
	logger      *logger.Logger
}

func newInvitationSweeper(invitations ports.InvitationService, interval time.Duration, log *logger.Logger) *invitationSweeper {
	return &invitationSweeper{
		invitations: invitations,
		interval:    interval,
		logger:      log.WithComponent("invitation_sweeper"),
	}
}

// run blocks until ctx is cancelled.
func (w *invitationSweeper) run(ctx context.Context) {
	if w.interval <= 0 {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *invitationSweeper) sweep(ctx context.Context) {
	if _, err := w.invitations.PurgeExpired(ctx); err != nil {
		w.logger.Errorw("Failed to purge expired invitations", "error", err)
	}
}
