package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"obsidian-chat/internal/domain/model"
	"obsidian-chat/internal/domain/ports/adapter"
)

var _ adapter.ChatGateway = (*GeminiGateway)(nil)

// GeminiGateway implements the chat gateway using the official SDK. Each
// primary call creates a stateless chat seeded with the mapped history; the
// suggestions call uses a plain generate with a strict JSON response schema.
type GeminiGateway struct {
	client *genai.Client
	model  string
	maxOut int
	log    *zerolog.Logger
}

func NewGeminiGateway(ctx context.Context, apiKey, baseURL, modelName string, maxOut int, log *zerolog.Logger) (*GeminiGateway, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiGateway{client: c, model: modelName, maxOut: maxOut, log: log}, nil
}

// Primary sends the new user turn on top of the mapped history and returns
// the answer with deduplicated citations. history is the conversation before
// the new turn; text/image form the turn itself.
func (g *GeminiGateway) Primary(ctx context.Context, history []model.Message, text string, mode model.Mode, image *model.ImagePart) (adapter.Reply, error) {
	parts := newTurnParts(text, image)
	if len(parts) == 0 {
		// Nothing to say: succeed with an empty reply instead of calling the
		// network.
		return adapter.Reply{Sources: []model.Source{}}, nil
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: systemContent(mode),
	}
	if g.maxOut > 0 {
		cfg.MaxOutputTokens = int32(g.maxOut)
	}
	if mode == model.ModePro {
		// Web grounding is a pro-mode capability only.
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	chat, err := g.client.Chats.Create(ctx, g.model, cfg, toContents(history))
	if err != nil {
		return adapter.Reply{}, fmt.Errorf("gemini: create chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, parts...)
	if err != nil {
		return adapter.Reply{}, fmt.Errorf("gemini: %w", err)
	}

	return adapter.Reply{
		Text:    responseText(resp),
		Sources: groundingSources(resp),
	}, nil
}

// Suggestions asks for 3-4 short follow-up prompts. Every failure on this
// path is absorbed here and collapses to nil.
func (g *GeminiGateway) Suggestions(ctx context.Context, history []model.Message) []string {
	if len(history) == 0 {
		return nil
	}
	contents := toContents(history)
	if len(contents) == 0 {
		return nil
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: promptContent(suggestionsPrompt),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    suggestionsSchema(),
		Temperature:       genai.Ptr[float32](0.7),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		g.log.Warn().Err(err).Msg("suggestions call failed")
		return nil
	}

	raw := strings.TrimSpace(responseText(resp))
	if raw == "" {
		return nil
	}
	var parsed struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		g.log.Warn().Err(err).Msg("suggestions response was not valid JSON")
		return nil
	}
	out := make([]string, 0, len(parsed.Suggestions))
	for _, s := range parsed.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func suggestionsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"suggestions": {
				Type:        genai.TypeArray,
				Description: "A list of 3 to 4 concise, relevant follow-up questions or prompts for the user.",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"suggestions"},
	}
}

func systemContent(mode model.Mode) *genai.Content {
	if mode == model.ModePro {
		return promptContent(proPrompt)
	}
	return promptContent(litePrompt)
}

func promptContent(prompt string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: prompt}}}
}

// toContents maps session messages to role-tagged request content. The
// session's first message is the synthetic welcome and is skipped; empty AI
// placeholders are skipped; entries that end up with no parts are dropped.
func toContents(msgs []model.Message) []*genai.Content {
	if len(msgs) > 0 {
		msgs = msgs[1:]
	}
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		if m.IsPlaceholder() {
			continue
		}
		var parts []*genai.Part
		if m.Text != "" {
			parts = append(parts, &genai.Part{Text: m.Text})
		}
		if m.Image != nil {
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{
					MIMEType: m.Image.MIMEType,
					Data:     m.Image.Data,
				},
			})
		}
		if len(parts) == 0 {
			continue
		}
		role := genai.RoleModel
		if m.Sender == model.SenderUser {
			role = genai.RoleUser
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}

func newTurnParts(text string, image *model.ImagePart) []genai.Part {
	var parts []genai.Part
	if text != "" {
		parts = append(parts, genai.Part{Text: text})
	}
	if image != nil {
		parts = append(parts, genai.Part{
			InlineData: &genai.Blob{MIMEType: image.MIMEType, Data: image.Data},
		})
	}
	return parts
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		if p != nil && p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// groundingSources collects web citations from grounding metadata, deduped
// by URI in first-seen order. The URI doubles as the title when the provider
// supplies none.
func groundingSources(resp *genai.GenerateContentResponse) []model.Source {
	sources := []model.Source{}
	if resp == nil || len(resp.Candidates) == 0 {
		return sources
	}
	gm := resp.Candidates[0].GroundingMetadata
	if gm == nil {
		return sources
	}
	seen := map[string]struct{}{}
	for _, chunk := range gm.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		if _, ok := seen[chunk.Web.URI]; ok {
			continue
		}
		seen[chunk.Web.URI] = struct{}{}
		title := chunk.Web.Title
		if title == "" {
			title = chunk.Web.URI
		}
		sources = append(sources, model.Source{URI: chunk.Web.URI, Title: title})
	}
	return sources
}
