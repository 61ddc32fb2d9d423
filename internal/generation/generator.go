// ABOUTME: Generation service contract: requests, streamed chunks, and the Generator interface
// ABOUTME: Also defines the supported model catalog

package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389/coven-chorus/internal/message"
)

// Request is one streaming completion request.
type Request struct {
	Model    Model
	Messages []message.Message
}

// Delta is the incremental part of a choice.
type Delta struct {
	Role    message.Role
	Content string
}

// Choice is one alternative in a chunk.
type Choice struct {
	Index        int
	Delta        Delta
	FinishReason string
}

// Chunk is one event of a stream. Exactly one of Choices or Err is
// meaningful; an empty Choices slice with a nil Err is a no-op.
type Chunk struct {
	Choices []Choice
	Err     error
}

// Content returns the delta content of choice 0. ok is false when the chunk
// carries no such choice.
func (c *Chunk) Content() (delta string, ok bool) {
	for _, ch := range c.Choices {
		if ch.Index == 0 {
			return ch.Delta.Content, true
		}
	}
	return "", false
}

// Generator produces streamed completions.
type Generator interface {
	CreateStream(ctx context.Context, req *Request) (<-chan *Chunk, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req *Request) (<-chan *Chunk, error)

// CreateStream calls f.
func (f GeneratorFunc) CreateStream(ctx context.Context, req *Request) (<-chan *Chunk, error) {
	return f(ctx, req)
}

// Model identifies a chat model.
type Model int

const (
	GPT35Turbo Model = iota
	GPT35Turbo16K
	GPT4
	GPT4_32K
)

// DefaultModel is used when no model has been selected.
const DefaultModel = GPT35Turbo

var modelNames = map[Model]string{
	GPT35Turbo:    "gpt-3.5-turbo",
	GPT35Turbo16K: "gpt-3.5-turbo-16k",
	GPT4:          "gpt-4",
	GPT4_32K:      "gpt-4-32k",
}

func (m Model) String() string {
	if s, ok := modelNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel parses a model identifier.
func ParseModel(s string) (Model, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modelNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown model %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Model) MarshalText() ([]byte, error) {
	if _, ok := modelNames[m]; !ok {
		return nil, fmt.Errorf("unknown model %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Model) UnmarshalText(text []byte) error {
	parsed, err := ParseModel(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// AllModels lists every supported model in catalog order.
func AllModels() []Model {
	return []Model{GPT35Turbo, GPT35Turbo16K, GPT4, GPT4_32K}
}
