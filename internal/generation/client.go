// ABOUTME: Chat-completions streaming client for OpenAI and Azure OpenAI
// ABOUTME: Posts the request and turns the SSE response into a chunk channel

package generation

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/2389/coven-chorus/internal/auth"
	"github.com/2389/coven-chorus/internal/message"
)

// DefaultOpenAIBase is used when OpenAI credentials carry no api_base.
const DefaultOpenAIBase = "https://api.openai.com/v1"

const (
	chunkBuffer    = 16
	maxErrorBody   = 4096
	maxSSELineSize = 1 << 20
	doneSentinel   = "[DONE]"
)

// Client is a Generator backed by the chat-completions HTTP API.
type Client struct {
	creds  auth.Credentials
	http   *http.Client
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient validates creds and builds a Client.
func NewClient(creds auth.Credentials, opts ...ClientOption) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}
	c := &Client{
		creds: creds,
		http:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "generation", "service", creds.Service.String())
	return c, nil
}

type wireMessage struct {
	Role    message.Role `json:"role"`
	Content string       `json:"content"`
	Name    string       `json:"name,omitempty"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type wireChunk struct {
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    message.Role `json:"role"`
			Content string       `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

type wireError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// sanitizeName maps an author name onto the service's allowed name alphabet.
func sanitizeName(name string) string {
	if name == "" {
		return ""
	}
	name = invalidNameChars.ReplaceAllString(name, "_")
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}

func (c *Client) endpoint() (string, error) {
	switch c.creds.Service {
	case auth.ServiceOpenAI:
		base := c.creds.APIBase
		if base == "" {
			base = DefaultOpenAIBase
		}
		return strings.TrimSuffix(base, "/") + "/chat/completions", nil
	case auth.ServiceAzureOpenAI:
		u := fmt.Sprintf("%s/openai/deployments/%s/chat/completions",
			strings.TrimSuffix(c.creds.APIBase, "/"), url.PathEscape(c.creds.DeploymentID))
		return u + "?api-version=" + url.QueryEscape(c.creds.APIVersion), nil
	default:
		return "", fmt.Errorf("unknown service %v", c.creds.Service)
	}
}

// CreateStream implements Generator. Errors returned directly mean the
// request never started streaming; later failures arrive as a Chunk with Err.
func (c *Client) CreateStream(ctx context.Context, req *Request) (<-chan *Chunk, error) {
	wr := wireRequest{
		Model:    req.Model.String(),
		Messages: make([]wireMessage, len(req.Messages)),
		Stream:   true,
	}
	for i, m := range req.Messages {
		wr.Messages[i] = wireMessage{Role: m.Role, Content: m.Content, Name: sanitizeName(m.Name)}
	}
	body, err := json.Marshal(wr)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	switch c.creds.Service {
	case auth.ServiceAzureOpenAI:
		httpReq.Header.Set("api-key", c.creds.APIKey)
	default:
		httpReq.Header.Set("Authorization", "Bearer "+c.creds.APIKey)
		if c.creds.OrgID != "" {
			httpReq.Header.Set("OpenAI-Organization", c.creds.OrgID)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, handleErrorResponse(resp)
	}

	c.logger.Debug("stream opened", "model", wr.Model, "messages", len(wr.Messages))

	out := make(chan *Chunk, chunkBuffer)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		if err := c.parseSSEStream(ctx, resp.Body, out); err != nil {
			send(ctx, out, &Chunk{Err: err})
		}
	}()
	return out, nil
}

func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var errResp wireError
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		return fmt.Errorf("generation service error (%d): %s", resp.StatusCode, errResp.Error.Message)
	}
	return fmt.Errorf("generation service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// send delivers a chunk unless ctx is done first.
func send(ctx context.Context, out chan<- *Chunk, chunk *Chunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// parseSSEStream reads data lines until [DONE] or EOF.
func (c *Client) parseSSEStream(ctx context.Context, body io.Reader, out chan<- *Chunk) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == doneSentinel {
			return nil
		}
		if data == "" {
			continue
		}

		var wc wireChunk
		if err := json.Unmarshal([]byte(data), &wc); err != nil {
			return fmt.Errorf("decoding chunk: %w", err)
		}
		chunk := &Chunk{Choices: make([]Choice, 0, len(wc.Choices))}
		for _, ch := range wc.Choices {
			choice := Choice{
				Index: ch.Index,
				Delta: Delta{Role: ch.Delta.Role, Content: ch.Delta.Content},
			}
			if ch.FinishReason != nil {
				choice.FinishReason = *ch.FinishReason
			}
			chunk.Choices = append(chunk.Choices, choice)
		}
		if !send(ctx, out, chunk) {
			return ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading SSE stream: %w", err)
	}
	return nil
}
