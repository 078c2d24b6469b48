package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Pruner is the minimal interface the maintenance loop needs from the rate
// limiter: drop window entries that have aged out and report how many.
type Pruner interface {
	Prune(ctx context.Context) int
}

// Maintenance periodically prunes the rate-limit window so a long-idle
// process does not keep stale timestamps in the store. The limiter also
// prunes opportunistically on every check; this loop just bounds staleness.
type Maintenance struct {
	interval time.Duration
	pruner   Pruner
	log      *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMaintenance(interval time.Duration, pruner Pruner, log *zerolog.Logger) *Maintenance {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Maintenance{
		interval: interval,
		pruner:   pruner,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start begins the loop in a background goroutine. Calling Start twice has
// no effect.
func (m *Maintenance) Start(parentCtx context.Context) {
	if m.ctx != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	m.ctx = ctx
	m.cancel = cancel

	go m.loop()
}

func (m *Maintenance) loop() {
	ticker := time.NewTicker(m.interval)
	defer func() {
		ticker.Stop()
		close(m.done)
	}()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if n := m.pruner.Prune(m.ctx); n > 0 {
				m.log.Debug().Int("pruned", n).Msg("rate-limit window maintenance")
			}
		}
	}
}

// Stop cancels the loop and waits for it to exit.
func (m *Maintenance) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}
