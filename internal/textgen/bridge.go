package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Iron-Ham/hivemind/internal/config"
)

// maxBridgeResponse bounds the body read from the bridge.
const maxBridgeResponse = 8 << 20

// Bridge calls an HTTP text-generation endpoint.
//
// Request body:  {"prompt": "...", "system": "...", "max_tokens": N}
// Response body: {"output": "..."} on success, {"error": "..."} otherwise.
type Bridge struct {
	endpoint string
	client   *http.Client
	cfg      config.TextGenConfig
}

type bridgeRequest struct {
	Prompt    string `json:"prompt"`
	System    string `json:"system,omitempty"`
	MaxTokens int64  `json:"max_tokens,omitempty"`
}

type bridgeResponse struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// NewBridge creates a Bridge posting to cfg.Endpoint.
func NewBridge(cfg config.TextGenConfig) (*Bridge, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("textgen.endpoint is required for the bridge provider")
	}
	return &Bridge{
		endpoint: cfg.Endpoint,
		client:   &http.Client{},
		cfg:      cfg,
	}, nil
}

// Generate posts the prompt and returns the bridge's output.
func (b *Bridge) Generate(ctx context.Context, req Request) (*Response, error) {
	return generateWithTimeout(ctx, b.cfg, func(ctx context.Context) (*Response, error) {
		body, err := json.Marshal(bridgeRequest{
			Prompt:    req.Prompt,
			System:    req.System,
			MaxTokens: maxTokens(req, b.cfg),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode bridge request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build bridge request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		httpResp, err := b.client.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("bridge request failed: %w", err)
		}
		defer func() { _ = httpResp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBridgeResponse))
		if err != nil {
			return nil, fmt.Errorf("failed to read bridge response: %w", err)
		}

		var out bridgeResponse
		if err := json.Unmarshal(data, &out); err != nil {
			if httpResp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("bridge returned %s: %s", httpResp.Status, strings.TrimSpace(string(data)))
			}
			return nil, fmt.Errorf("malformed bridge response: %w", err)
		}
		if httpResp.StatusCode != http.StatusOK || out.Error != "" {
			return nil, fmt.Errorf("bridge returned %s: %s", httpResp.Status, out.Error)
		}
		return &Response{Text: out.Output}, nil
	})
}
