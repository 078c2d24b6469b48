package adapter

import (
	"context"

	"obsidian-chat/internal/domain/model"
)

// Reply is the normalized result of a primary answer call.
type Reply struct {
	Text    string
	Sources []model.Source
}

// ChatGateway is the stateless boundary to the generative-AI provider.
//
// Primary turns the conversation history plus the new user input into one
// answer. History is the conversation before the new turn; text and image
// form the turn itself, so together they cover everything up to but
// excluding the trailing placeholder. Failures propagate as a single
// descriptive error; the gateway never retries.
//
// Suggestions requests 3-4 short follow-up prompts for the full conversation.
// It absorbs every failure and returns nil instead: this path must never feed
// the caller's error channel.
type ChatGateway interface {
	Primary(ctx context.Context, history []model.Message, text string, mode model.Mode, image *model.ImagePart) (Reply, error)
	Suggestions(ctx context.Context, history []model.Message) []string
}
