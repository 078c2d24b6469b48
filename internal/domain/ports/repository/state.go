package repository

import (
	"context"

	"obsidian-chat/internal/domain/model"
)

// Prefs are the scalar flags persisted alongside the session list.
type Prefs struct {
	AcknowledgedWelcome bool       `json:"acknowledged_welcome"`
	DefaultMode         model.Mode `json:"default_mode"`
	ProModalShown       bool       `json:"pro_modal_shown"`
}

// StateRepository is the key-value persistence boundary.
//
// Loads must tolerate missing or corrupt data by returning zero values, never
// an error the caller has to branch on: the application keeps operating on
// in-memory state when durable storage misbehaves. Save errors are returned
// so callers can log them, but nothing more.
type StateRepository interface {
	SaveSessions(ctx context.Context, sessions []*model.Session) error
	LoadSessions(ctx context.Context) []*model.Session

	SavePrefs(ctx context.Context, prefs Prefs) error
	LoadPrefs(ctx context.Context) Prefs

	// SaveTimestamps / LoadTimestamps persist the rate-limit window as unix
	// milliseconds.
	SaveTimestamps(ctx context.Context, stamps []int64) error
	LoadTimestamps(ctx context.Context) []int64

	// DevMode reports the out-of-band rate-limit override. There is no
	// setter on purpose: the flag is flipped by editing the backing store
	// directly, never through the application surface.
	DevMode(ctx context.Context) bool
}
