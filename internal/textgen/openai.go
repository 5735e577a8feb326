package textgen

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Iron-Ham/hivemind/internal/config"
)

// OpenAI generates text with the OpenAI Chat Completions API.
type OpenAI struct {
	client openai.Client
	model  string
	cfg    config.TextGenConfig
}

// NewOpenAI creates an OpenAI generator. The API key comes from cfg.APIKey,
// falling back to OPENAI_API_KEY. A non-default cfg.Endpoint is used as the
// API base URL, which also covers OpenAI-compatible servers.
func NewOpenAI(cfg config.TextGenConfig) (*OpenAI, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("textgen.model is required for the openai provider")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.Endpoint != "" && cfg.Endpoint != config.Default().TextGen.Endpoint {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		cfg:    cfg,
	}, nil
}

// Generate sends an optional system message and one user message.
func (o *OpenAI) Generate(ctx context.Context, req Request) (*Response, error) {
	return generateWithTimeout(ctx, o.cfg, func(ctx context.Context) (*Response, error) {
		var messages []openai.ChatCompletionMessageParamUnion
		if req.System != "" {
			messages = append(messages, openai.SystemMessage(req.System))
		}
		messages = append(messages, openai.UserMessage(req.Prompt))

		completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:               openai.ChatModel(o.model),
			Messages:            messages,
			MaxCompletionTokens: openai.Int(maxTokens(req, o.cfg)),
		})
		if err != nil {
			return nil, fmt.Errorf("openai request failed: %w", err)
		}
		if len(completion.Choices) == 0 {
			return nil, ErrEmptyOutput
		}
		return &Response{
			Text:         completion.Choices[0].Message.Content,
			InputTokens:  completion.Usage.PromptTokens,
			OutputTokens: completion.Usage.CompletionTokens,
		}, nil
	})
}
