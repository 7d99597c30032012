package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

type purgeCounter struct {
	ports.InvitationService
	calls atomic.Int32
	err   error
}

func (p *purgeCounter) PurgeExpired(ctx context.Context) (int64, error) {
	p.calls.Add(1)
	return 0, p.err
}

func TestSweeperDisabled(t *testing.T) {
	svc := &purgeCounter{}
	w := newInvitationSweeper(svc, 0, logger.NewNop())

	done := make(chan struct{})
	go func() {
		w.run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper with zero interval should return immediately")
	}
	assert.Zero(t, svc.calls.Load())
}

func TestSweeperRunsUntilCancelled(t *testing.T) {
	svc := &purgeCounter{}
	w := newInvitationSweeper(svc, 5*time.Millisecond, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return svc.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestSweeperLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	svc := &purgeCounter{err: errors.New("db down")}
	w := newInvitationSweeper(svc, time.Minute, logger.FromZap(zap.New(core)))

	w.sweep(context.Background())

	entries := logs.FilterMessage("Failed to purge expired invitations").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "invitation_sweeper", entries[0].ContextMap()["component"])
	}
}
