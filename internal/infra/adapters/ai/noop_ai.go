package ai

import (
	"context"
	"fmt"
	"time"

	"obsidian-chat/internal/domain/model"
	"obsidian-chat/internal/domain/ports/adapter"
)

var _ adapter.ChatGateway = (*NoopGateway)(nil)

// NoopGateway implements adapter.ChatGateway for local/dev runs without an
// API key. It returns canned content after a small delay.
type NoopGateway struct {
	delay time.Duration
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{delay: 150 * time.Millisecond}
}

func (a *NoopGateway) Primary(ctx context.Context, history []model.Message, text string, mode model.Mode, image *model.ImagePart) (adapter.Reply, error) {
	if text == "" && image == nil {
		return adapter.Reply{Sources: []model.Source{}}, nil
	}
	select {
	case <-time.After(a.delay):
	case <-ctx.Done():
		return adapter.Reply{}, ctx.Err()
	}
	return adapter.Reply{
		Text:    fmt.Sprintf("[%s] This is a canned response to: %s", mode, text),
		Sources: []model.Source{},
	}, nil
}

func (a *NoopGateway) Suggestions(ctx context.Context, history []model.Message) []string {
	select {
	case <-time.After(a.delay):
	case <-ctx.Done():
		return nil
	}
	return []string{
		"What is the max risk on this trade?",
		"How does theta decay affect it?",
		"Suggest a more conservative structure",
	}
}
