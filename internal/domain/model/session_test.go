package model

import (
	"strings"
	"testing"
)

func TestNewSession_SeedsWelcome(t *testing.T) {
	s := NewSession(ModePro)
	if s.ID == "" {
		t.Fatalf("missing id")
	}
	if s.Title != DefaultTitle {
		t.Fatalf("title = %q", s.Title)
	}
	if s.Mode != ModePro {
		t.Fatalf("mode = %q", s.Mode)
	}
	if len(s.Messages) != 1 || s.Messages[0].Sender != SenderAI || s.Messages[0].Text != WelcomeText {
		t.Fatalf("welcome message missing: %+v", s.Messages)
	}
	if s.HasUserMessage() {
		t.Fatalf("fresh session reports a user message")
	}
}

func TestNormalizeMode(t *testing.T) {
	if NormalizeMode("pro") != ModePro {
		t.Fatalf("pro should survive normalization")
	}
	for _, m := range []Mode{"", "lite", "turbo", "PRO"} {
		if NormalizeMode(m) != ModeLite {
			t.Fatalf("NormalizeMode(%q) should fall back to lite", m)
		}
	}
}

func TestDeriveTitle(t *testing.T) {
	exact := strings.Repeat("a", 40)
	if got := DeriveTitle(exact); got != exact {
		t.Fatalf("40 runes must pass through unchanged")
	}
	long := strings.Repeat("a", 41)
	if got := DeriveTitle(long); got != exact+"..." {
		t.Fatalf("truncated title = %q", got)
	}
	// Rune boundaries, not bytes.
	wide := strings.Repeat("日", 41)
	if got := DeriveTitle(wide); got != strings.Repeat("日", 40)+"..." {
		t.Fatalf("multibyte truncation broke a rune: %q", got)
	}
	if got := DeriveTitle("short"); got != "short" {
		t.Fatalf("short title = %q", got)
	}
}

func TestIsPlaceholder(t *testing.T) {
	if !NewPlaceholder().IsPlaceholder() {
		t.Fatalf("fresh placeholder not recognized")
	}
	if NewAIMessage("hi").IsPlaceholder() {
		t.Fatalf("resolved AI message misread as placeholder")
	}
	if NewUserMessage("", nil).IsPlaceholder() {
		t.Fatalf("empty user message misread as placeholder")
	}
	withImage := Message{Sender: SenderAI, Image: &ImagePart{MIMEType: "image/png", Data: []byte{1}}}
	if withImage.IsPlaceholder() {
		t.Fatalf("AI message carrying an image misread as placeholder")
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := NewSession(ModeLite)
	orig.Messages = append(orig.Messages, Message{
		ID:          "m",
		Sender:      SenderAI,
		Text:        "answer",
		Sources:     []Source{{URI: "u", Title: "t"}},
		Suggestions: []string{"s1"},
		Image:       &ImagePart{MIMEType: "image/png", Data: []byte{1, 2, 3}},
	})

	cp := orig.Clone()
	cp.Messages[1].Sources[0].URI = "changed"
	cp.Messages[1].Suggestions[0] = "changed"
	cp.Messages[1].Image.Data[0] = 9

	if orig.Messages[1].Sources[0].URI != "u" {
		t.Fatalf("sources are shared between clones")
	}
	if orig.Messages[1].Suggestions[0] != "s1" {
		t.Fatalf("suggestions are shared between clones")
	}
	if orig.Messages[1].Image.Data[0] != 1 {
		t.Fatalf("image bytes are shared between clones")
	}
}
