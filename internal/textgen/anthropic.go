package textgen

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Iron-Ham/hivemind/internal/config"
)

// Anthropic generates text with the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
	model  anthropic.Model
	cfg    config.TextGenConfig
}

// NewAnthropic creates an Anthropic generator. The API key comes from
// cfg.APIKey, falling back to ANTHROPIC_API_KEY.
func NewAnthropic(cfg config.TextGenConfig) (*Anthropic, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	return &Anthropic{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		cfg:    cfg,
	}, nil
}

// Generate sends one user message and returns the concatenated text blocks.
func (a *Anthropic) Generate(ctx context.Context, req Request) (*Response, error) {
	return generateWithTimeout(ctx, a.cfg, func(ctx context.Context) (*Response, error) {
		params := anthropic.MessageNewParams{
			Model:     a.model,
			MaxTokens: maxTokens(req, a.cfg),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
			},
		}
		if req.System != "" {
			params.System = []anthropic.TextBlockParam{{Text: req.System}}
		}

		msg, err := a.client.Messages.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("anthropic request failed: %w", err)
		}

		var text strings.Builder
		for _, block := range msg.Content {
			if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
				text.WriteString(variant.Text)
			}
		}
		return &Response{
			Text:         text.String(),
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		}, nil
	})
}
