package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Mode selects response verbosity and tool access for a session.
type Mode string

const (
	ModeLite Mode = "lite"
	ModePro  Mode = "pro"
)

// NormalizeMode maps unknown or empty values to the lite default, so that
// corrupt persisted data never yields an invalid mode.
func NormalizeMode(m Mode) Mode {
	if m == ModePro {
		return ModePro
	}
	return ModeLite
}

func (m Mode) Toggle() Mode {
	if m == ModePro {
		return ModeLite
	}
	return ModePro
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Source is a grounded web citation, unique by URI within a message.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// ImagePart carries an inline image attachment. Data marshals as base64.
type ImagePart struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type Message struct {
	ID     string `json:"id"`
	Sender Sender `json:"sender"`
	Text   string `json:"text"`

	Sources []Source `json:"sources,omitempty"`

	// ImageURL is a display-only reference; it does not survive a restart.
	ImageURL string     `json:"imageUrl,omitempty"`
	Image    *ImagePart `json:"image,omitempty"`

	Suggestions []string `json:"suggestions,omitempty"`
}

// IsPlaceholder reports whether m is an in-flight AI message that has not
// been resolved yet.
func (m Message) IsPlaceholder() bool {
	return m.Sender == SenderAI && m.Text == "" && m.Image == nil
}

// Session is one independent conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Mode      Mode      `json:"mode"`
	Messages  []Message `json:"messages"`
}

const (
	// WelcomeText is the synthetic AI message every new session starts with.
	// It is part of the assistant persona and never sent as a conversational
	// turn.
	WelcomeText = "Please provide the necessary information for me to proceed with the OBSIDIAN Protocol."

	DefaultTitle = "New Chat"

	titleMaxRunes = 40
)

// NewSession creates a session seeded with the welcome message. Session IDs
// are ULIDs: creation-time derived and sortable, so the newest session wins
// any ordering tie without extra bookkeeping.
func NewSession(mode Mode) *Session {
	return &Session{
		ID:        ulid.Make().String(),
		Title:     DefaultTitle,
		CreatedAt: time.Now(),
		Mode:      NormalizeMode(mode),
		Messages:  []Message{NewAIMessage(WelcomeText)},
	}
}

func NewUserMessage(text string, image *ImagePart) Message {
	return Message{ID: uuid.NewString(), Sender: SenderUser, Text: text, Image: image}
}

func NewAIMessage(text string) Message {
	return Message{ID: uuid.NewString(), Sender: SenderAI, Text: text, Sources: []Source{}}
}

// NewPlaceholder creates the empty AI message appended together with a user
// message at send time.
func NewPlaceholder() Message {
	return Message{ID: uuid.NewString(), Sender: SenderAI, Text: "", Sources: []Source{}}
}

// DeriveTitle builds a session title from the first user message: at most
// 40 runes, with an ellipsis when truncated.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleMaxRunes {
		return text
	}
	return string(runes[:titleMaxRunes]) + "..."
}

// HasUserMessage reports whether any user turn exists yet; the title is
// frozen on the first one.
func (s *Session) HasUserMessage() bool {
	for _, m := range s.Messages {
		if m.Sender == SenderUser {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so readers never alias the store's backing
// slices.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Messages = CloneMessages(s.Messages)
	return &cp
}

func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

func (m Message) Clone() Message {
	cp := m
	if m.Sources != nil {
		cp.Sources = append([]Source(nil), m.Sources...)
	}
	if m.Suggestions != nil {
		cp.Suggestions = append([]string(nil), m.Suggestions...)
	}
	if m.Image != nil {
		img := *m.Image
		img.Data = append([]byte(nil), m.Image.Data...)
		cp.Image = &img
	}
	return cp
}
