// Package ratelimit caps outbound message volume over a sliding window of
// persisted attempt timestamps. Attempts are counted when a send is accepted,
// not when it succeeds.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"obsidian-chat/internal/domain/ports/repository"
)

type Result struct {
	Limited    bool
	RetryAfter time.Duration
}

type Limiter struct {
	mu     sync.Mutex
	repo   repository.StateRepository
	max    int
	window time.Duration
	now    func() time.Time
	log    *zerolog.Logger
}

func New(repo repository.StateRepository, max int, window time.Duration, log *zerolog.Logger) *Limiter {
	return &Limiter{repo: repo, max: max, window: window, now: time.Now, log: log}
}

// Check prunes timestamps that fell out of the window, then compares what
// remains to the cap. When limited, RetryAfter is the time until the oldest
// remaining timestamp exits the window, rounded up to whole seconds.
// The pruned list is written back opportunistically even when not limited.
func (l *Limiter) Check(ctx context.Context) Result {
	if l.repo.DevMode(ctx) {
		l.log.Debug().Msg("dev mode active, skipping rate limit check")
		return Result{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	stamps := l.repo.LoadTimestamps(ctx)
	recent := l.recent(stamps, now)

	if len(recent) >= l.max {
		oldest := time.UnixMilli(recent[0])
		retry := l.window - now.Sub(oldest)
		return Result{Limited: true, RetryAfter: ceilSeconds(retry)}
	}

	if len(recent) != len(stamps) {
		if err := l.repo.SaveTimestamps(ctx, recent); err != nil {
			l.log.Warn().Err(err).Msg("failed to persist pruned rate-limit window")
		}
	}
	return Result{}
}

// Record appends the current time and keeps only the most recent max entries.
func (l *Limiter) Record(ctx context.Context) {
	if l.repo.DevMode(ctx) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := append(l.repo.LoadTimestamps(ctx), l.now().UnixMilli())
	if len(stamps) > l.max {
		stamps = stamps[len(stamps)-l.max:]
	}
	if err := l.repo.SaveTimestamps(ctx, stamps); err != nil {
		l.log.Warn().Err(err).Msg("failed to persist rate-limit window")
	}
}

// Prune drops entries older than the window and reports how many went away.
// The background maintenance worker calls this so a long-idle process does
// not keep stale stamps on disk.
func (l *Limiter) Prune(ctx context.Context) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.repo.LoadTimestamps(ctx)
	recent := l.recent(stamps, l.now())
	dropped := len(stamps) - len(recent)
	if dropped > 0 {
		if err := l.repo.SaveTimestamps(ctx, recent); err != nil {
			l.log.Warn().Err(err).Msg("failed to persist pruned rate-limit window")
			return 0
		}
	}
	return dropped
}

func (l *Limiter) recent(stamps []int64, now time.Time) []int64 {
	out := make([]int64, 0, len(stamps))
	for _, ts := range stamps {
		if now.Sub(time.UnixMilli(ts)) < l.window {
			out = append(out, ts)
		}
	}
	return out
}

func ceilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Second
	}
	return ((d + time.Second - 1) / time.Second) * time.Second
}
