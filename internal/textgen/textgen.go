// Package textgen reaches the external text-generation collaborator.
//
// The coordinator treats content generation as an opaque, fallible
// request/response call with a timeout: a prompt goes in, text comes out.
// Three backends are available:
//
//   - anthropic: the Anthropic Messages API
//   - openai: the OpenAI Chat Completions API
//   - bridge: a plain HTTP endpoint accepting {"prompt"} and returning
//     {"output"}, such as a proxy in front of a command-line model client
package textgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/Iron-Ham/hivemind/internal/config"
	"github.com/Iron-Ham/hivemind/internal/errors"
)

// ErrEmptyOutput is returned when a backend answers with no text.
var ErrEmptyOutput = errors.New("text generation returned no output")

// Request is one generation call.
type Request struct {
	System string
	Prompt string
	// MaxTokens overrides the backend default when positive.
	MaxTokens int
}

// Response is the generated text and, when the backend reports it, usage.
type Response struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, req Request) (*Response, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// New returns the Generator selected by cfg.Provider.
func New(cfg config.TextGenConfig) (Generator, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropic(cfg)
	case "openai":
		return NewOpenAI(cfg)
	case "bridge":
		return NewBridge(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown text generation provider %q", errors.ErrInvalidInput, cfg.Provider)
	}
}

// generateWithTimeout bounds a backend call and maps a deadline to
// ErrTimeout.
func generateWithTimeout(ctx context.Context, cfg config.TextGenConfig, call func(context.Context) (*Response, error)) (*Response, error) {
	if timeout := cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := call(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: generation exceeded %s: %v", errors.ErrTimeout, cfg.Timeout(), err)
		}
		return nil, err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, ErrEmptyOutput
	}
	return resp, nil
}

func maxTokens(req Request, cfg config.TextGenConfig) int64 {
	if req.MaxTokens > 0 {
		return int64(req.MaxTokens)
	}
	return int64(cfg.MaxTokens)
}
