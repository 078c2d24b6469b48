package ai

import (
	"context"

	"obsidian-chat/internal/domain/model"
	"obsidian-chat/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.ChatGateway = (*limitedGateway)(nil)

// limitedGateway caps concurrent provider calls with a semaphore so a burst
// of sessions cannot stampede the API.
type limitedGateway struct {
	inner adapter.ChatGateway
	sem   chan struct{}
}

func NewLimitedGateway(inner adapter.ChatGateway, maxConcurrent int) adapter.ChatGateway {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedGateway{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedGateway) Primary(ctx context.Context, history []model.Message, text string, mode model.Mode, image *model.ImagePart) (adapter.Reply, error) {
	l.sem <- struct{}{}
	defer func() { <-l.sem }()
	return l.inner.Primary(ctx, history, text, mode, image)
}

func (l *limitedGateway) Suggestions(ctx context.Context, history []model.Message) []string {
	l.sem <- struct{}{}
	defer func() { <-l.sem }()
	return l.inner.Suggestions(ctx, history)
}
