// ABOUTME: Tests for the streaming chat-completions client
// ABOUTME: Serves canned SSE bodies from httptest servers

package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chorus/internal/auth"
	"github.com/2389/coven-chorus/internal/message"
)

func sseServer(t *testing.T, check func(r *http.Request, body wireRequest), lines ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if check != nil {
			check(r, body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, l := range lines {
			fmt.Fprintf(w, "%s\n\n", l)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func collect(t *testing.T, ch <-chan *Chunk) (content string, errs []error, empty int) {
	t.Helper()
	var sb strings.Builder
	for chunk := range ch {
		if chunk.Err != nil {
			errs = append(errs, chunk.Err)
			continue
		}
		delta, ok := chunk.Content()
		if !ok {
			empty++
			continue
		}
		sb.WriteString(delta)
	}
	return sb.String(), errs, empty
}

func TestClient_OpenAIStream(t *testing.T) {
	srv := sseServer(t, func(r *http.Request, body wireRequest) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "org-1", r.Header.Get("OpenAI-Organization"))
		assert.True(t, body.Stream)
		assert.Equal(t, "gpt-4", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "Mr_Smith", body.Messages[1].Name)
	},
		`data: {"choices":[]}`,
		`data: {"choices":[{"index":0,"delta":{"role":"assistant"}}]}`,
		`data: {"choices":[{"index":0,"delta":{"content":"Hel"}}]}`,
		`data: {"choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	)

	c, err := NewClient(auth.Credentials{
		Service: auth.ServiceOpenAI,
		APIKey:  "sk-test",
		OrgID:   "org-1",
		APIBase: srv.URL,
	})
	require.NoError(t, err)

	ch, err := c.CreateStream(context.Background(), &Request{
		Model: GPT4,
		Messages: []message.Message{
			message.System("be brief"),
			message.User("hi", "Mr Smith"),
		},
	})
	require.NoError(t, err)

	content, errs, empty := collect(t, ch)
	assert.Equal(t, "Hello", content)
	assert.Empty(t, errs)
	assert.Equal(t, 1, empty)
}

func TestClient_AzureEndpoint(t *testing.T) {
	srv := sseServer(t, func(r *http.Request, _ wireRequest) {
		assert.Equal(t, "/openai/deployments/chat-dep/chat/completions", r.URL.Path)
		assert.Equal(t, "2023-05-15", r.URL.Query().Get("api-version"))
		assert.Equal(t, "az-key", r.Header.Get("api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))
	},
		`data: {"choices":[{"index":0,"delta":{"content":"ok"}}]}`,
		`data: [DONE]`,
	)

	c, err := NewClient(auth.Credentials{
		Service:      auth.ServiceAzureOpenAI,
		APIKey:       "az-key",
		APIBase:      srv.URL,
		APIVersion:   "2023-05-15",
		DeploymentID: "chat-dep",
	})
	require.NoError(t, err)

	ch, err := c.CreateStream(context.Background(), &Request{Model: DefaultModel})
	require.NoError(t, err)
	content, errs, _ := collect(t, ch)
	assert.Equal(t, "ok", content)
	assert.Empty(t, errs)
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(auth.Credentials{Service: auth.ServiceOpenAI, APIKey: "x", APIBase: srv.URL})
	require.NoError(t, err)

	_, err = c.CreateStream(context.Background(), &Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestClient_MalformedChunkEndsWithError(t *testing.T) {
	srv := sseServer(t, nil,
		`data: {"choices":[{"index":0,"delta":{"content":"par"}}]}`,
		`data: {not json`,
		`data: {"choices":[{"index":0,"delta":{"content":"never"}}]}`,
	)
	c, err := NewClient(auth.Credentials{Service: auth.ServiceOpenAI, APIKey: "x", APIBase: srv.URL})
	require.NoError(t, err)

	ch, err := c.CreateStream(context.Background(), &Request{})
	require.NoError(t, err)
	content, errs, _ := collect(t, ch)
	assert.Equal(t, "par", content)
	require.Len(t, errs, 1)
}

func TestNewClient_RejectsInvalidCredentials(t *testing.T) {
	_, err := NewClient(auth.Credentials{Service: auth.ServiceAzureOpenAI, APIKey: "k"})
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "", sanitizeName(""))
	assert.Equal(t, "Alice", sanitizeName("Alice"))
	assert.Equal(t, "Dr__Who_", sanitizeName("Dr. Who?"))
	assert.Len(t, sanitizeName(strings.Repeat("a", 80)), 64)
}

func TestClientConnector(t *testing.T) {
	ctx := context.Background()

	_, err := (&ClientConnector{Provider: auth.None()}).Connect(ctx)
	assert.ErrorIs(t, err, auth.ErrNoCredentials)

	_, err = (&ClientConnector{}).Connect(ctx)
	assert.ErrorIs(t, err, auth.ErrNoCredentials)

	gen, err := (&ClientConnector{Provider: auth.Static(auth.Credentials{
		Service: auth.ServiceOpenAI, APIKey: "sk",
	})}).Connect(ctx)
	require.NoError(t, err)
	assert.IsType(t, &Client{}, gen)
}

func TestModel_Parse(t *testing.T) {
	for _, m := range AllModels() {
		parsed, err := ParseModel(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	m, err := ParseModel("  GPT-4-32K ")
	require.NoError(t, err)
	assert.Equal(t, GPT4_32K, m)

	_, err = ParseModel("gpt-5")
	assert.Error(t, err)
}

func TestModel_Text(t *testing.T) {
	b, err := json.Marshal(map[string]Model{"m": GPT35Turbo16K})
	require.NoError(t, err)
	assert.JSONEq(t, `{"m":"gpt-3.5-turbo-16k"}`, string(b))

	var out map[string]Model
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, GPT35Turbo16K, out["m"])
}
