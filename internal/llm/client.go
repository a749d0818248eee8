// Package llm talks to a local text-generation service to evaluate
// listings and draft offer messages.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// Provider names.
const (
	ProviderOllama   = "ollama"   // /api/generate
	ProviderChat     = "chat"     // OpenAI-style /v1/chat/completions
	ProviderComplete = "complete" // OpenAI-style /v1/complete
	ProviderNone     = "none"
)

// ErrDisabled is returned when no provider is configured.
var ErrDisabled = errors.New("LLM features are disabled")

// Config holds LLM client configuration.
type Config struct {
	Provider   string        `mapstructure:"provider"`
	BaseURL    string        `mapstructure:"base_url"`    // e.g. "http://localhost:11434"
	SocketPath string        `mapstructure:"socket_path"` // optional unix socket, e.g. Docker Model Runner
	Model      string        `mapstructure:"model"`       // e.g. "llama3.1:8b"
	Timeout    time.Duration `mapstructure:"timeout"`
	Attempts   uint          `mapstructure:"attempts"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// GenerateOptions tune one generation.
type GenerateOptions struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// StatusError is a non-200 response from the service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Code, e.Body)
}

// retryable reports whether err is worth another attempt: transport
// failures, rate limiting and server errors.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return !errors.Is(err, context.Canceled)
}

// Client generates text through the configured provider.
type Client struct {
	httpClient *http.Client
	config     Config
	endpoint   string
}

// New creates a new LLM client.
func New(config Config) (*Client, error) {
	switch config.Provider {
	case ProviderNone, "":
		return nil, ErrDisabled
	case ProviderOllama, ProviderChat, ProviderComplete:
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", config.Provider)
	}
	if config.Model == "" && config.Provider != ProviderComplete {
		return nil, fmt.Errorf("model is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 45 * time.Second
	}
	if config.Attempts == 0 {
		config.Attempts = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}

	base := strings.TrimSuffix(config.BaseURL, "/")
	transport := http.DefaultTransport
	if config.SocketPath != "" {
		socket := config.SocketPath
		transport = &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socket)
			},
		}
		if base == "" {
			base = "http://localhost"
		}
	}
	if base == "" {
		switch config.Provider {
		case ProviderOllama:
			base = "http://localhost:11434"
		default:
			base = "http://localhost:8000"
		}
	}

	var path string
	switch config.Provider {
	case ProviderOllama:
		path = "/api/generate"
	case ProviderChat:
		path = "/v1/chat/completions"
	case ProviderComplete:
		path = "/v1/complete"
	}

	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: config.Timeout},
		config:     config,
		endpoint:   base + path,
	}, nil
}

// ollamaRequest is the request payload for /api/generate.
type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// chatRequest is the request payload for the chat completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"` // Limit response length
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response from the chat completions API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type completeRequest struct {
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type completeResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// Generate sends prompt to the provider and returns the trimmed response.
// Transient failures are retried.
func (c *Client) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	var out string
	err := retry.Do(
		func() error {
			text, err := c.generateOnce(ctx, prompt, opts)
			if err != nil {
				return err
			}
			out = text
			return nil
		},
		retry.Attempts(c.config.Attempts),
		retry.Delay(c.config.RetryDelay),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(c.config.RetryDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			slog.Info("Retrying LLM request after error", "attempt", n+1, "provider", c.config.Provider, "error", err)
		}),
		retry.RetryIf(retryable),
	)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", c.config.Provider, err)
	}
	return out, nil
}

func (c *Client) generateOnce(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	var payload any
	switch c.config.Provider {
	case ProviderOllama:
		payload = ollamaRequest{
			Model:  c.config.Model,
			Prompt: prompt,
			Options: ollamaOptions{
				Temperature: opts.Temperature,
				TopP:        opts.TopP,
				NumPredict:  opts.MaxTokens,
			},
		}
	case ProviderChat:
		payload = chatRequest{
			Model:       c.config.Model,
			Messages:    []chatMessage{{Role: "user", Content: prompt}},
			MaxTokens:   opts.MaxTokens,
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
		}
	default:
		payload = completeRequest{
			Model:       c.config.Model,
			Prompt:      prompt,
			MaxTokens:   opts.MaxTokens,
			Temperature: opts.Temperature,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", retry.Unrecoverable(fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	slog.Debug("LLM request", "provider", c.config.Provider, "endpoint", c.endpoint, "prompt_chars", len(prompt))
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	text, err := c.decode(respBody)
	if err != nil {
		return "", retry.Unrecoverable(err)
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) decode(body []byte) (string, error) {
	switch c.config.Provider {
	case ProviderOllama:
		var r ollamaResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return "", fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if r.Error != "" {
			return "", fmt.Errorf("API error: %s", r.Error)
		}
		if r.Response == "" {
			return "", fmt.Errorf("invalid response format from ollama")
		}
		return r.Response, nil
	case ProviderChat:
		var r chatResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return "", fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if r.Error != nil {
			return "", fmt.Errorf("API error: %s", r.Error.Message)
		}
		if len(r.Choices) == 0 {
			return "", fmt.Errorf("no response returned")
		}
		return r.Choices[0].Message.Content, nil
	default:
		var r completeResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return "", fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if len(r.Choices) == 0 {
			return "", fmt.Errorf("no response returned")
		}
		return r.Choices[0].Text, nil
	}
}
