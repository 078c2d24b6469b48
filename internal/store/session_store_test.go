package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"obsidian-chat/internal/config"
	"obsidian-chat/internal/domain"
	"obsidian-chat/internal/domain/model"
	"obsidian-chat/internal/domain/ports/repository"
	"obsidian-chat/internal/infra/logging"
)

type memRepo struct {
	mu       sync.Mutex
	sessions []*model.Session
	prefs    repository.Prefs
	stamps   []int64
	saveErr  error
}

var _ repository.StateRepository = (*memRepo)(nil)

func (m *memRepo) SaveSessions(_ context.Context, sessions []*model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := make([]*model.Session, len(sessions))
	for i, s := range sessions {
		cp[i] = s.Clone()
	}
	m.sessions = cp
	return nil
}

func (m *memRepo) LoadSessions(_ context.Context) []*model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*model.Session, len(m.sessions))
	for i, s := range m.sessions {
		cp[i] = s.Clone()
	}
	return cp
}

func (m *memRepo) SavePrefs(_ context.Context, prefs repository.Prefs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = prefs
	return nil
}

func (m *memRepo) LoadPrefs(_ context.Context) repository.Prefs {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs
}

func (m *memRepo) SaveTimestamps(_ context.Context, stamps []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stamps = append([]int64(nil), stamps...)
	return nil
}

func (m *memRepo) LoadTimestamps(_ context.Context) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.stamps...)
}

func (m *memRepo) DevMode(_ context.Context) bool { return false }

func newTestStore(t *testing.T) (*SessionStore, *memRepo) {
	t.Helper()
	repo := &memRepo{prefs: repository.Prefs{DefaultMode: model.ModeLite}}
	log := logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
	st := New(repo, log)
	st.Bootstrap(context.Background())
	return st, repo
}

func TestBootstrap_SynthesizesFirstSession(t *testing.T) {
	st, repo := newTestStore(t)

	sessions, activeID := st.Snapshot()
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
	if sessions[0].ID != activeID {
		t.Fatalf("fresh session is not active")
	}
	if len(sessions[0].Messages) != 1 || sessions[0].Messages[0].Text != model.WelcomeText {
		t.Fatalf("fresh session must contain only the welcome message")
	}
	if len(repo.LoadSessions(context.Background())) != 1 {
		t.Fatalf("synthesized session was not persisted")
	}
}

func TestBootstrap_RestoresAndAlignsDefaultMode(t *testing.T) {
	repo := &memRepo{prefs: repository.Prefs{DefaultMode: model.ModeLite}}
	older := model.NewSession(model.ModeLite)
	newer := model.NewSession(model.ModePro)
	repo.SaveSessions(context.Background(), []*model.Session{newer, older})

	log := logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
	st := New(repo, log)
	st.Bootstrap(context.Background())

	if st.ActiveID() != newer.ID {
		t.Fatalf("most recent session should be active after restore")
	}
	if st.Prefs().DefaultMode != model.ModePro {
		t.Fatalf("default mode should follow the restored active session")
	}
}

func TestAppendTurn_AtomicWithTitleFreeze(t *testing.T) {
	st, _ := newTestStore(t)
	id := st.ActiveID()

	first, err := st.AppendTurn(id, model.NewUserMessage("what about NVDA?", nil), model.NewPlaceholder())
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !first {
		t.Fatalf("first user turn not reported")
	}
	sess := st.Get(id)
	if sess.Title != "what about NVDA?" {
		t.Fatalf("title = %q", sess.Title)
	}
	if n := len(sess.Messages); n != 3 {
		t.Fatalf("expected welcome+user+placeholder, got %d", n)
	}
	if !sess.Messages[2].IsPlaceholder() {
		t.Fatalf("trailing message is not a placeholder")
	}

	first, err = st.AppendTurn(id, model.NewUserMessage("and TSLA?", nil), model.NewPlaceholder())
	if err != nil || first {
		t.Fatalf("second turn reported first=%v err=%v", first, err)
	}
	if got := st.Get(id).Title; got != "what about NVDA?" {
		t.Fatalf("title changed on second turn: %q", got)
	}
}

func TestAppendTurn_UnknownSession(t *testing.T) {
	st, _ := newTestStore(t)
	if _, err := st.AppendTurn("missing", model.NewUserMessage("x", nil), model.NewPlaceholder()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveLast_FillsPlaceholder(t *testing.T) {
	st, _ := newTestStore(t)
	id := st.ActiveID()
	st.AppendTurn(id, model.NewUserMessage("q", nil), model.NewPlaceholder())

	sources := []model.Source{{URI: "https://example.com", Title: "Example"}}
	full, err := st.ResolveLast(id, "the answer", sources)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	last := full[len(full)-1]
	if last.Text != "the answer" || len(last.Sources) != 1 {
		t.Fatalf("placeholder not filled: %+v", last)
	}
	if last.IsPlaceholder() {
		t.Fatalf("resolved message still reads as a placeholder")
	}
}

func TestDropLast_RetractsPlaceholder(t *testing.T) {
	st, _ := newTestStore(t)
	id := st.ActiveID()
	st.AppendTurn(id, model.NewUserMessage("q", nil), model.NewPlaceholder())

	if err := st.DropLast(id); err != nil {
		t.Fatalf("drop: %v", err)
	}
	msgs := st.Get(id).Messages
	if len(msgs) != 2 || msgs[1].Sender != model.SenderUser {
		t.Fatalf("unexpected messages after drop: %d", len(msgs))
	}
}

func TestTruncateBefore_RollsBackTheTurn(t *testing.T) {
	st, _ := newTestStore(t)
	id := st.ActiveID()
	user := model.NewUserMessage("q", nil)
	st.AppendTurn(id, user, model.NewPlaceholder())

	if err := st.TruncateBefore(id, user.ID); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	msgs := st.Get(id).Messages
	if len(msgs) != 1 || msgs[0].Text != model.WelcomeText {
		t.Fatalf("rollback should leave only the welcome message, got %d", len(msgs))
	}

	// Unknown message IDs leave the session untouched.
	if err := st.TruncateBefore(id, "no-such-message"); err != nil {
		t.Fatalf("truncate unknown: %v", err)
	}
	if n := len(st.Get(id).Messages); n != 1 {
		t.Fatalf("unknown-id truncate mutated the session")
	}
}

func TestAttachSuggestions_TargetsLastMessageAtApplyTime(t *testing.T) {
	st, _ := newTestStore(t)
	id := st.ActiveID()
	st.AppendTurn(id, model.NewUserMessage("q", nil), model.NewPlaceholder())
	st.ResolveLast(id, "a", nil)

	if err := st.AttachSuggestions(id, []string{"one", "two"}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	msgs := st.Get(id).Messages
	if got := msgs[len(msgs)-1].Suggestions; len(got) != 2 {
		t.Fatalf("suggestions = %v", got)
	}

	if err := st.AttachSuggestions("gone", []string{"x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a vanished session, got %v", err)
	}
}

func TestSelect_AlignsDefaultMode(t *testing.T) {
	st, _ := newTestStore(t)
	liteID := st.ActiveID()

	st.SetActiveMode(context.Background(), model.ModePro)
	pro := st.NewSession(context.Background())
	if pro.Mode != model.ModePro {
		t.Fatalf("new session should inherit the default mode")
	}

	if err := st.Select(context.Background(), liteID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if st.Prefs().DefaultMode != model.ModeLite {
		t.Fatalf("selecting a lite session should reset the default mode")
	}

	if err := st.Select(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_ActivatesSurvivorOrSynthesizes(t *testing.T) {
	st, _ := newTestStore(t)
	firstID := st.ActiveID()
	second := st.NewSession(context.Background())

	if err := st.Delete(context.Background(), second.ID); err != nil {
		t.Fatalf("delete active: %v", err)
	}
	if st.ActiveID() != firstID {
		t.Fatalf("survivor should become active")
	}

	if err := st.Delete(context.Background(), firstID); err != nil {
		t.Fatalf("delete last: %v", err)
	}
	sessions, activeID := st.Snapshot()
	if len(sessions) != 1 || sessions[0].ID == firstID || sessions[0].ID != activeID {
		t.Fatalf("deleting the last session must synthesize a fresh active one")
	}

	if err := st.Delete(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshot_ReturnsDeepCopies(t *testing.T) {
	st, _ := newTestStore(t)
	sessions, _ := st.Snapshot()
	sessions[0].Messages[0].Text = "tampered"
	sessions[0].Title = "tampered"

	fresh, _ := st.Snapshot()
	if fresh[0].Messages[0].Text != model.WelcomeText || fresh[0].Title != model.DefaultTitle {
		t.Fatalf("snapshot aliases store internals")
	}
}

func TestPersistFailure_KeepsMemoryAuthoritative(t *testing.T) {
	st, repo := newTestStore(t)
	id := st.ActiveID()
	repo.saveErr = errors.New("disk full")

	if _, err := st.AppendTurn(id, model.NewUserMessage("q", nil), model.NewPlaceholder()); err != nil {
		t.Fatalf("append should survive a persistence failure: %v", err)
	}
	if n := len(st.Get(id).Messages); n != 3 {
		t.Fatalf("in-memory state lost after persistence failure")
	}
}
