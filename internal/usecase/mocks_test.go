package usecase

import (
	"context"
	"sync"

	"obsidian-chat/internal/domain/model"
	"obsidian-chat/internal/domain/ports/adapter"
	"obsidian-chat/internal/domain/ports/repository"
)

// memStateRepo is a small in-memory StateRepository used by unit tests.
type memStateRepo struct {
	mu       sync.Mutex
	sessions []*model.Session
	prefs    repository.Prefs
	stamps   []int64
	dev      bool
	saveErr  error // used by tests to simulate persistence failures
	saves    int
}

var _ repository.StateRepository = (*memStateRepo)(nil)

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{prefs: repository.Prefs{DefaultMode: model.ModeLite}}
}

func (m *memStateRepo) SaveSessions(ctx context.Context, sessions []*model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	cp := make([]*model.Session, len(sessions))
	for i, s := range sessions {
		cp[i] = s.Clone()
	}
	m.sessions = cp
	return nil
}

func (m *memStateRepo) LoadSessions(ctx context.Context) []*model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*model.Session, len(m.sessions))
	for i, s := range m.sessions {
		cp[i] = s.Clone()
	}
	return cp
}

func (m *memStateRepo) SavePrefs(ctx context.Context, prefs repository.Prefs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = prefs
	return nil
}

func (m *memStateRepo) LoadPrefs(ctx context.Context) repository.Prefs {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs
}

func (m *memStateRepo) SaveTimestamps(ctx context.Context, stamps []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stamps = append([]int64(nil), stamps...)
	return nil
}

func (m *memStateRepo) LoadTimestamps(ctx context.Context) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.stamps...)
}

func (m *memStateRepo) DevMode(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dev
}

// fakeGateway returns canned results and can block either call on a channel
// to model a slow network.
type fakeGateway struct {
	mu sync.Mutex

	reply       adapter.Reply
	err         error
	primaryGate chan struct{} // Primary blocks until closed, when non-nil

	suggestions []string
	suggGate    chan struct{} // Suggestions blocks until closed, when non-nil

	primaryCalls   int
	lastHistoryLen int
	lastMode       model.Mode
}

var _ adapter.ChatGateway = (*fakeGateway)(nil)

func (f *fakeGateway) Primary(ctx context.Context, history []model.Message, text string, mode model.Mode, image *model.ImagePart) (adapter.Reply, error) {
	f.mu.Lock()
	f.primaryCalls++
	f.lastHistoryLen = len(history)
	f.lastMode = mode
	gate := f.primaryGate
	reply, err := f.reply, f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return reply, err
}

func (f *fakeGateway) Suggestions(ctx context.Context, history []model.Message) []string {
	f.mu.Lock()
	gate := f.suggGate
	out := append([]string(nil), f.suggestions...)
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return out
}
