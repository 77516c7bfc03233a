// Package answer consults an OpenAI-compatible chat-completions backend for
// comprehension-question answers, with deterministic fallbacks for every
// failure mode. The backend is stateless per request; a missing credential
// disables it entirely and the fallbacks carry the session alone.
package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/ifung-0/lightsail-auto/pkg/logging"
)

const (
	// DefaultBaseURL is the OpenRouter API root.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel is a free-tier model that answers fast enough for the
	// reading loop's timing budget.
	DefaultModel = "qwen/qwen-2.5-coder-32b-instruct:free"

	// DefaultTimeout bounds one backend request. A timeout never stalls the
	// reading loop beyond this.
	DefaultTimeout = 20 * time.Second

	// defaultMaxContextTokens caps the question context sent with a request.
	defaultMaxContextTokens = 512
)

// BackendError reports a failed backend request. Callers recover by applying
// the deterministic fallback policy; this error never propagates out of the
// question-answering path.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("answer backend %s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// ErrDisabled is returned when no credential is configured.
var ErrDisabled = fmt.Errorf("answer backend disabled: no API key configured")

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	httpClient       *http.Client
	apiKey           string
	baseURL          string
	model            string
	timeout          time.Duration
	maxContextTokens int
	logger           *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different OpenAI-compatible API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithModel sets the model used for completions.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a backend client. An empty apiKey yields a disabled
// client whose calls all return ErrDisabled.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient:       &http.Client{},
		apiKey:           apiKey,
		baseURL:          DefaultBaseURL,
		model:            DefaultModel,
		timeout:          DefaultTimeout,
		maxContextTokens: defaultMaxContextTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a credential is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Choose asks the backend to pick one of options for the given question and
// returns its index. The question context is token-truncated before sending.
func (c *Client) Choose(ctx context.Context, question string, options []string) (int, error) {
	if !c.Enabled() {
		return 0, ErrDisabled
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Question: %s\n\nOptions:\n", c.truncate(question))
	for i, opt := range options {
		fmt.Fprintf(&prompt, "%d. %s\n", i+1, opt)
	}
	prompt.WriteString("\nReply with ONLY the NUMBER (1, 2, 3, or 4).")

	content, err := c.complete(ctx, prompt.String(), 5)
	if err != nil {
		return 0, err
	}
	if c.logger != nil {
		c.logger.Infof("backend choice reply: %q", content)
	}

	idx, ok := ExtractChoice(content, options)
	if !ok {
		return 0, &BackendError{Op: "choose", Err: fmt.Errorf("no option matched reply %q", content)}
	}
	return idx, nil
}

// FillBlank asks the backend for a single-word fill for blank number n in the
// surrounding context.
func (c *Client) FillBlank(ctx context.Context, contextText string, n int) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	prompt := fmt.Sprintf("Fill in the blank #%d in the following context with a single word:\n%s",
		n, c.truncate(contextText))

	content, err := c.complete(ctx, prompt, 10)
	if err != nil {
		return "", err
	}

	word := FirstWord(content)
	if word == "" {
		return "", &BackendError{Op: "fill", Err: fmt.Errorf("empty reply")}
	}
	return word, nil
}

// ShortAnswer asks the backend for a brief free-text answer.
func (c *Client) ShortAnswer(ctx context.Context, question string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	content, err := c.complete(ctx, fmt.Sprintf("Answer briefly: %s", c.truncate(question)), 120)
	if err != nil {
		return "", err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", &BackendError{Op: "short-answer", Err: fmt.Errorf("empty reply")}
	}
	return content, nil
}

// complete sends a single-turn chat completion and returns the reply text.
func (c *Client) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	}

	reqBody := map[string]interface{}{
		"model":      c.model,
		"messages":   messages,
		"max_tokens": maxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", &BackendError{Op: "encode", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &BackendError{Op: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &BackendError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &BackendError{
			Op:  "request",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &BackendError{Op: "decode", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &BackendError{Op: "decode", Err: fmt.Errorf("response has no choices")}
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
