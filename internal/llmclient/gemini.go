// Package llmclient wraps the official genai client behind the
// session.Collaborator capability. It only focuses on the API call
// itself; staleness, invalidation and action application live above it.
package llmclient

import (
	"context"
	"strings"

	genai "google.golang.org/genai"

	"ideaboard/internal/boardctx"
	"ideaboard/internal/session"
)

const DefaultModel = "gemini-2.5-flash"

// GeminiCollaborator opens one genai chat per board conversation.
type GeminiCollaborator struct {
	cli   *genai.Client
	model string
}

// NewGeminiCollaborator builds the collaborator. The genai client reads
// GEMINI_API_KEY from the environment; the apiKey parameter is kept for
// a consistent factory signature.
func NewGeminiCollaborator(ctx context.Context, apiKey, model string) (*GeminiCollaborator, error) {
	_ = apiKey

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &GeminiCollaborator{cli: cli, model: model}, nil
}

func (g *GeminiCollaborator) Name() string { return "Gemini:" + g.model }

// Open starts a chat whose history is the serialized board. Each block
// becomes one part: text blocks as text parts, inline binaries as
// inline-data parts tagged with their MIME type.
func (g *GeminiCollaborator) Open(ctx context.Context, blocks []boardctx.Block, system string) (session.Conversation, error) {
	if g == nil || g.cli == nil {
		return nil, ErrNotConfigured
	}

	parts := make([]*genai.Part, 0, len(blocks)+1)
	for _, b := range blocks {
		if b.Header != "" {
			parts = append(parts, &genai.Part{Text: b.Header})
		}
		switch {
		case b.Inline != nil:
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{
				MIMEType: b.Inline.MIMEType,
				Data:     b.Inline.Data,
			}})
		case b.Text != "":
			parts = append(parts, &genai.Part{Text: b.Text})
		}
	}
	if len(parts) == 0 {
		parts = append(parts, &genai.Part{Text: "(the board is empty)"})
	}

	config := &genai.GenerateContentConfig{
		Tools: boardTools(),
	}
	if strings.TrimSpace(system) != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	history := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
	chat, err := g.cli.Chats.Create(ctx, g.model, config, history)
	if err != nil {
		return nil, err
	}
	return &geminiConversation{chat: chat}, nil
}

type geminiConversation struct {
	chat *genai.Chat
}

func (c *geminiConversation) Send(ctx context.Context, message string) (session.Reply, error) {
	if c == nil || c.chat == nil {
		return session.Reply{}, ErrNotConfigured
	}
	resp, err := c.chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return session.Reply{}, err
	}
	return replyFromResponse(resp)
}

func (c *geminiConversation) Close() error { return nil }

// replyFromResponse flattens the candidate parts into assistant text
// plus the ordered action list parsed from function calls.
func replyFromResponse(resp *genai.GenerateContentResponse) (session.Reply, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return session.Reply{}, ErrEmptyResponse
	}
	var reply session.Reply
	var texts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
		if part.FunctionCall != nil {
			action, err := actionFromCall(part.FunctionCall.Name, part.FunctionCall.Args)
			if err != nil {
				return session.Reply{}, err
			}
			reply.Actions = append(reply.Actions, action)
		}
	}
	reply.Text = strings.TrimSpace(strings.Join(texts, "\n"))
	return reply, nil
}
