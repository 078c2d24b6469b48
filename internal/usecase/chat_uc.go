package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"obsidian-chat/internal/domain"
	"obsidian-chat/internal/domain/model"
	"obsidian-chat/internal/domain/ports/adapter"
	"obsidian-chat/internal/infra/logging"
	"obsidian-chat/internal/infra/metrics"
	"obsidian-chat/internal/ratelimit"
	"obsidian-chat/internal/store"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

// ChatUseCase is the session/message orchestration engine: it validates and
// dispatches sends, enforces rate limiting, reconciles gateway results into
// the session store, and handles cancellation and rollback.
type ChatUseCase interface {
	Send(ctx context.Context, text string, image *model.ImagePart) error
	Stop()
	NewSession(ctx context.Context) *model.Session
	SelectSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
	ToggleMode(ctx context.Context) (model.Mode, bool)
	AcknowledgeWelcome(ctx context.Context)
	ResetWelcome(ctx context.Context)
	Snapshot() Snapshot
}

// Snapshot is the render-ready view of engine state.
type Snapshot struct {
	Sessions     []*model.Session `json:"sessions"`
	ActiveID     string           `json:"active_session_id"`
	Mode         model.Mode       `json:"mode"`
	Acknowledged bool             `json:"acknowledged_welcome"`
	Sending      bool             `json:"sending"`
	LastError    string           `json:"last_error,omitempty"`
}

// Notifier receives decorative one-shot UI hints. Correctness never depends
// on it.
type Notifier interface {
	ModeHint(sessionID string)
}

type NoopNotifier struct{}

func (NoopNotifier) ModeHint(string) {}

// flight tracks one in-flight send. Cancellation is cooperative: the flag
// only suppresses applying the result, it does not abort the transport call.
type flight struct {
	cancelled atomic.Bool
}

type chatUC struct {
	store     *store.SessionStore
	ai        adapter.ChatGateway
	limiter   *ratelimit.Limiter
	notifier  Notifier
	log       *zerolog.Logger
	hintDelay time.Duration

	mu      sync.Mutex
	flights map[string]*flight // one per session at most
	lastErr string
}

func NewChatUseCase(st *store.SessionStore, ai adapter.ChatGateway, limiter *ratelimit.Limiter, notifier Notifier, log *zerolog.Logger) *chatUC {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &chatUC{
		store:     st,
		ai:        ai,
		limiter:   limiter,
		notifier:  notifier,
		log:       log,
		hintDelay: 1500 * time.Millisecond,
		flights:   map[string]*flight{},
	}
}

const maxImageBytes = 8 << 20

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// Send runs one full request/response turn against the active session.
//
// Guard rejections (empty input, send already in flight, no session, welcome
// not acknowledged) return sentinel errors the surface treats as silent
// no-ops. Rate-limit, attachment and primary-call failures are user-visible.
// A failed turn is fully transactional: the user message and its placeholder
// are rolled back together.
func (c *chatUC) Send(ctx context.Context, text string, image *model.ImagePart) error {
	log := logging.With(ctx, c.log)
	defer logging.TraceDuration(log, "ChatUC.Send")()

	if res := c.limiter.Check(ctx); res.Limited {
		metrics.IncRateLimitBlock()
		err := &domain.RateLimitError{RetryAfter: res.RetryAfter}
		c.setLastError(err.Error())
		return err
	}

	if strings.TrimSpace(text) == "" && image == nil {
		return domain.ErrEmptyMessage
	}
	if !c.store.Prefs().AcknowledgedWelcome {
		return domain.ErrNotAcknowledged
	}
	sess := c.store.Active()
	if sess == nil {
		return domain.ErrNoActiveSession
	}

	c.mu.Lock()
	if _, busy := c.flights[sess.ID]; busy {
		c.mu.Unlock()
		return domain.ErrSendInFlight
	}
	fl := &flight{}
	c.flights[sess.ID] = fl
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.flights, sess.ID)
		c.mu.Unlock()
	}()

	// Attempts count against the limit immediately, not on success.
	c.limiter.Record(ctx)
	c.clearLastError()

	user := model.NewUserMessage(text, nil)
	if image != nil {
		if err := validateImage(image); err != nil {
			aerr := &domain.AttachmentError{Cause: err}
			c.setLastError(aerr.Error())
			return aerr
		}
		user.Image = image
		user.ImageURL = dataURL(image)
	}
	placeholder := model.NewPlaceholder()

	first, err := c.store.AppendTurn(sess.ID, user, placeholder)
	if err != nil {
		// The session was deleted between the active lookup and the append.
		return domain.ErrNoActiveSession
	}
	if first {
		c.scheduleModeHint(sess.ID)
	}

	// sess still holds the history before this turn; the gateway receives
	// that plus the new input, which together form "everything up to but
	// excluding the placeholder".
	start := time.Now()
	reply, err := c.ai.Primary(ctx, sess.Messages, user.Text, sess.Mode, user.Image)
	metrics.ObserveAICall("primary", time.Since(start), err == nil)

	if fl.cancelled.Load() {
		// The result, if any, is discarded.
		if derr := c.store.DropLast(sess.ID); derr != nil {
			log.Debug().Err(derr).Msg("cancelled send had no session to clean up")
		}
		metrics.IncSend("cancelled")
		return nil
	}

	if err != nil {
		if terr := c.store.TruncateBefore(sess.ID, user.ID); terr != nil {
			log.Debug().Err(terr).Msg("failed send had no session to roll back")
		}
		metrics.IncSend("error")
		sendErr := fmt.Errorf("failed to get a response: %w", err)
		c.setLastError(sendErr.Error())
		log.Error().Err(err).Str("session_id", sess.ID).Msg("primary call failed")
		return sendErr
	}

	full, rerr := c.store.ResolveLast(sess.ID, reply.Text, reply.Sources)
	if rerr != nil {
		// Session vanished mid-flight; nothing to apply.
		metrics.IncSend("cancelled")
		return nil
	}
	metrics.IncSend("ok")

	go c.fetchSuggestions(sess.ID, fl, full)
	return nil
}

// fetchSuggestions is fire-and-forget relative to the primary flow. The
// merge carries the target session's identity and re-validates both the
// cancellation flag and the session's existence at apply time.
func (c *chatUC) fetchSuggestions(sessionID string, fl *flight, history []model.Message) {
	ctx := context.Background()
	start := time.Now()
	suggestions := c.ai.Suggestions(ctx, history)
	metrics.ObserveAICall("suggestions", time.Since(start), len(suggestions) > 0)

	if len(suggestions) == 0 {
		metrics.IncSuggestion("empty")
		return
	}
	if fl.cancelled.Load() {
		metrics.IncSuggestion("stale")
		return
	}
	if err := c.store.AttachSuggestions(sessionID, suggestions); err != nil {
		metrics.IncSuggestion("stale")
		return
	}
	metrics.IncSuggestion("attached")
}

// Stop requests cancellation of the active session's in-flight send. The
// network call is left to finish on its own; its result is discarded.
func (c *chatUC) Stop() {
	id := c.store.ActiveID()
	c.mu.Lock()
	fl := c.flights[id]
	c.mu.Unlock()
	if fl != nil {
		fl.cancelled.Store(true)
	}
}

func (c *chatUC) NewSession(ctx context.Context) *model.Session {
	sess := c.store.NewSession(ctx)
	c.clearLastError()
	return sess
}

func (c *chatUC) SelectSession(ctx context.Context, id string) error {
	if err := c.store.Select(ctx, id); err != nil {
		return err
	}
	// Error and loading indicators belonged to the previous view.
	c.clearLastError()
	return nil
}

func (c *chatUC) DeleteSession(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	c.clearLastError()
	return nil
}

// ToggleMode flips the mode for the active session and the process default
// together. The first ever switch to pro also reports that the one-time
// modal should be shown.
func (c *chatUC) ToggleMode(ctx context.Context) (model.Mode, bool) {
	mode := c.store.Prefs().DefaultMode.Toggle()
	c.store.SetActiveMode(ctx, mode)

	showModal := false
	if mode == model.ModePro && !c.store.Prefs().ProModalShown {
		showModal = true
		c.store.SetProModalShown(ctx)
	}
	return mode, showModal
}

func (c *chatUC) AcknowledgeWelcome(ctx context.Context) {
	c.store.SetAcknowledged(ctx, true)
}

func (c *chatUC) ResetWelcome(ctx context.Context) {
	c.store.SetAcknowledged(ctx, false)
}

func (c *chatUC) Snapshot() Snapshot {
	sessions, activeID := c.store.Snapshot()
	prefs := c.store.Prefs()

	mode := prefs.DefaultMode
	for _, s := range sessions {
		if s.ID == activeID {
			mode = s.Mode
			break
		}
	}

	c.mu.Lock()
	fl := c.flights[activeID]
	sending := fl != nil && !fl.cancelled.Load()
	lastErr := c.lastErr
	c.mu.Unlock()

	return Snapshot{
		Sessions:     sessions,
		ActiveID:     activeID,
		Mode:         mode,
		Acknowledged: prefs.AcknowledgedWelcome,
		Sending:      sending,
		LastError:    lastErr,
	}
}

// scheduleModeHint fires the decorative hint once per first-message event,
// after a short delay.
func (c *chatUC) scheduleModeHint(sessionID string) {
	time.AfterFunc(c.hintDelay, func() {
		c.notifier.ModeHint(sessionID)
	})
}

func (c *chatUC) setLastError(msg string) {
	c.mu.Lock()
	c.lastErr = msg
	c.mu.Unlock()
}

func (c *chatUC) clearLastError() {
	c.setLastError("")
}

func validateImage(img *model.ImagePart) error {
	if !allowedImageTypes[img.MIMEType] {
		return fmt.Errorf("unsupported image type %q", img.MIMEType)
	}
	if len(img.Data) == 0 {
		return fmt.Errorf("empty image payload")
	}
	if len(img.Data) > maxImageBytes {
		return fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return nil
}

// dataURL builds the locally displayable reference for an attachment.
func dataURL(img *model.ImagePart) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
