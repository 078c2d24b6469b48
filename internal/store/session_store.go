// Package store owns the in-memory session collection: the single source of
// truth for everything rendered. All mutations pass through one mutex (a
// strict single-writer queue) and every durable change is re-serialized to
// the persistence boundary synchronously. Readers always receive deep
// copies, so no observer can see a partially applied transition.
package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"obsidian-chat/internal/domain"
	"obsidian-chat/internal/domain/model"
	"obsidian-chat/internal/domain/ports/repository"
	"obsidian-chat/internal/infra/metrics"
)

type SessionStore struct {
	mu       sync.Mutex
	repo     repository.StateRepository
	log      *zerolog.Logger
	sessions []*model.Session // newest first
	activeID string
	prefs    repository.Prefs
}

func New(repo repository.StateRepository, log *zerolog.Logger) *SessionStore {
	return &SessionStore{repo: repo, log: log}
}

// Bootstrap loads persisted state and guarantees at least one session
// exists. When sessions were restored, the most recent one becomes active
// and its mode becomes the process default, mirroring how the last view is
// restored after a reload.
func (s *SessionStore) Bootstrap(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs = s.repo.LoadPrefs(ctx)
	s.sessions = s.repo.LoadSessions(ctx)

	if len(s.sessions) == 0 {
		sess := model.NewSession(s.prefs.DefaultMode)
		s.sessions = []*model.Session{sess}
		s.activeID = sess.ID
		s.persistSessions(ctx)
		return
	}
	s.activeID = s.sessions[0].ID
	if mode := s.sessions[0].Mode; mode != s.prefs.DefaultMode {
		s.prefs.DefaultMode = mode
		s.persistPrefs(ctx)
	}
}

// Snapshot returns deep copies of every session plus the active ID.
func (s *SessionStore) Snapshot() ([]*model.Session, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	return out, s.activeID
}

func (s *SessionStore) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns a copy of the active session, or nil when none exists.
func (s *SessionStore) Active() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.find(s.activeID); sess != nil {
		return sess.Clone()
	}
	return nil
}

func (s *SessionStore) Get(id string) *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.find(id); sess != nil {
		return sess.Clone()
	}
	return nil
}

func (s *SessionStore) Prefs() repository.Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// NewSession prepends a fresh session and makes it active.
func (s *SessionStore) NewSession(ctx context.Context) *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := model.NewSession(s.prefs.DefaultMode)
	s.sessions = append([]*model.Session{sess}, s.sessions...)
	s.activeID = sess.ID
	s.persistSessions(ctx)
	return sess.Clone()
}

// Select makes the named session active and aligns the default mode with
// its stored mode.
func (s *SessionStore) Select(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.find(id)
	if sess == nil {
		return domain.ErrNotFound
	}
	if s.activeID == id {
		return nil
	}
	s.activeID = id
	if sess.Mode != s.prefs.DefaultMode {
		s.prefs.DefaultMode = sess.Mode
		s.persistPrefs(ctx)
	}
	return nil
}

// Delete removes the named session. Deleting the last remaining session
// synthesizes a fresh one so the store is never empty; deleting the active
// session activates the most recent survivor.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, sess := range s.sessions {
		if sess.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrNotFound
	}
	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)

	if len(s.sessions) == 0 {
		sess := model.NewSession(s.prefs.DefaultMode)
		s.sessions = []*model.Session{sess}
		s.activeID = sess.ID
	} else if s.activeID == id {
		s.activeID = s.sessions[0].ID
		if mode := s.sessions[0].Mode; mode != s.prefs.DefaultMode {
			s.prefs.DefaultMode = mode
			s.persistPrefs(ctx)
		}
	}
	s.persistSessions(ctx)
	return nil
}

// SetActiveMode rewrites the active session's mode and the process default
// together.
func (s *SessionStore) SetActiveMode(ctx context.Context, mode model.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.DefaultMode = mode
	s.persistPrefs(ctx)
	if sess := s.find(s.activeID); sess != nil {
		sess.Mode = mode
		s.persistSessions(ctx)
	}
}

func (s *SessionStore) SetAcknowledged(ctx context.Context, ack bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.AcknowledgedWelcome = ack
	s.persistPrefs(ctx)
}

func (s *SessionStore) SetProModalShown(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.ProModalShown = true
	s.persistPrefs(ctx)
}

// AppendTurn atomically appends the user message and the AI placeholder and,
// on the session's first user turn, freezes the title. No suspension point
// exists between the two appends: an observer can never see a user message
// without its paired placeholder.
func (s *SessionStore) AppendTurn(sessionID string, user, placeholder model.Message) (first bool, err error) {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.find(sessionID)
	if sess == nil {
		return false, domain.ErrNotFound
	}
	first = !sess.HasUserMessage()
	if first {
		sess.Title = model.DeriveTitle(user.Text)
	}
	sess.Messages = append(sess.Messages, user, placeholder)
	s.persistSessions(ctx)
	return first, nil
}

// ResolveLast fills the trailing placeholder with the answer and returns a
// copy of the full message list as of that transition.
func (s *SessionStore) ResolveLast(sessionID, text string, sources []model.Source) ([]model.Message, error) {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.find(sessionID)
	if sess == nil {
		return nil, domain.ErrNotFound
	}
	if len(sess.Messages) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	last := &sess.Messages[len(sess.Messages)-1]
	last.Text = text
	last.Sources = append([]model.Source(nil), sources...)
	s.persistSessions(ctx)
	return model.CloneMessages(sess.Messages), nil
}

// DropLast retracts the trailing placeholder after a cancelled send.
func (s *SessionStore) DropLast(sessionID string) error {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.find(sessionID)
	if sess == nil {
		return domain.ErrNotFound
	}
	if len(sess.Messages) == 0 {
		return nil
	}
	sess.Messages = sess.Messages[:len(sess.Messages)-1]
	s.persistSessions(ctx)
	return nil
}

// TruncateBefore rolls the session back to the state before the named
// message: the message itself and everything after it are removed. Unknown
// message IDs are a no-op.
func (s *SessionStore) TruncateBefore(sessionID, messageID string) error {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.find(sessionID)
	if sess == nil {
		return domain.ErrNotFound
	}
	for i, m := range sess.Messages {
		if m.ID == messageID {
			sess.Messages = sess.Messages[:i]
			s.persistSessions(ctx)
			return nil
		}
	}
	return nil
}

// AttachSuggestions merges follow-up suggestions onto whatever is the named
// session's last message at apply time. The target is resolved by session
// ID, never by "current session", so a late merge cannot contaminate a
// different conversation.
func (s *SessionStore) AttachSuggestions(sessionID string, suggestions []string) error {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.find(sessionID)
	if sess == nil {
		return domain.ErrNotFound
	}
	if len(sess.Messages) == 0 {
		return nil
	}
	sess.Messages[len(sess.Messages)-1].Suggestions = append([]string(nil), suggestions...)
	s.persistSessions(ctx)
	return nil
}

func (s *SessionStore) find(id string) *model.Session {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// persistSessions re-serializes the whole list. A failed write is logged
// and counted; the in-memory state stays authoritative.
func (s *SessionStore) persistSessions(ctx context.Context) {
	if err := s.repo.SaveSessions(ctx, s.sessions); err != nil {
		metrics.IncPersistFailure()
		s.log.Error().Err(err).Msg("failed to persist sessions")
	}
}

func (s *SessionStore) persistPrefs(ctx context.Context) {
	if err := s.repo.SavePrefs(ctx, s.prefs); err != nil {
		metrics.IncPersistFailure()
		s.log.Error().Err(err).Msg("failed to persist prefs")
	}
}
