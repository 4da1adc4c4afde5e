package ai

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Gemini streams responses from the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

var _ Streamer = (*Gemini)(nil)

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing Gemini API key")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
	}

	g := &Gemini{client: client, model: cfg.Model, logger: cfg.Logger}
	if g.model == "" {
		g.model = DefaultGeminiModel
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g, nil
}

func (g *Gemini) Stream(ctx context.Context, req Request, fn func(Event) error) error {
	model := req.Model
	if model == "" {
		model = g.model
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, a := range req.Attachments {
		parts = append(parts, genai.NewPartFromBytes(a.Data, a.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var config *genai.GenerateContentConfig
	if req.Thinking {
		config = &genai.GenerateContentConfig{
			ThinkingConfig: &genai.ThinkingConfig{IncludeThoughts: true},
		}
	}

	if err := fn(Event{Type: EventMeta, Model: model}); err != nil {
		return err
	}

	var usage *genai.GenerateContentResponseUsageMetadata
	for resp, err := range g.client.Models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			return errors.Wrap(err, "Gemini stream failed")
		}
		if resp.UsageMetadata != nil {
			usage = resp.UsageMetadata
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			e := Event{Type: EventContent, Text: part.Text}
			if part.Thought {
				e.Type = EventThought
			}
			if err := fn(e); err != nil {
				return err
			}
		}
	}

	if usage == nil {
		return nil
	}
	g.logger.Debug("Gemini stream finished", zap.String("model", model), zap.Int32("total_tokens", usage.TotalTokenCount))
	return fn(Event{Type: EventUsage, Usage: &Usage{
		PromptTokens:  int(usage.PromptTokenCount),
		OutputTokens:  int(usage.CandidatesTokenCount),
		ThoughtTokens: int(usage.ThoughtsTokenCount),
		TotalTokens:   int(usage.TotalTokenCount),
	}})
}
