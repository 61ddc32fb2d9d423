// ABOUTME: Tests for credential validation, providers, and sealing
// ABOUTME: Uses a fake getenv and a temp dotenv file

package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestCredentials_Validate(t *testing.T) {
	assert.NoError(t, Credentials{Service: ServiceOpenAI, APIKey: "sk"}.Validate())
	assert.Error(t, Credentials{Service: ServiceOpenAI}.Validate())
	assert.Error(t, Credentials{Service: ServiceAzureOpenAI, APIKey: "k"}.Validate())
	assert.NoError(t, Credentials{
		Service:      ServiceAzureOpenAI,
		APIKey:       "k",
		APIBase:      "https://x.openai.azure.com",
		APIVersion:   "2023-05-15",
		DeploymentID: "gpt",
	}.Validate())
}

func TestParseService(t *testing.T) {
	s, err := ParseService(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, ServiceOpenAI, s)

	s, err = ParseService(ServiceAzureOpenAI.String())
	require.NoError(t, err)
	assert.Equal(t, ServiceAzureOpenAI, s)

	_, err = ParseService("anthropic")
	assert.Error(t, err)
}

func TestEnvProvider_OpenAI(t *testing.T) {
	p := &EnvProvider{Getenv: fakeEnv(map[string]string{
		EnvOpenAIKey: "sk-test",
		EnvOpenAIOrg: "org-1",
	})}
	creds, err := p.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ServiceOpenAI, creds.Service)
	assert.Equal(t, "sk-test", creds.APIKey)
	assert.Equal(t, "org-1", creds.OrgID)
}

func TestEnvProvider_NoneConfigured(t *testing.T) {
	p := &EnvProvider{Getenv: fakeEnv(nil), File: filepath.Join(t.TempDir(), "missing.env")}
	_, err := p.Credentials(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestEnvProvider_DotenvFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "AZURE_OPENAI_API_KEY=az-key\nAZURE_OPENAI_API_BASE=https://example.openai.azure.com\nAZURE_OPENAI_DEPLOYMENT_ID=chat\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	p := &EnvProvider{File: path, Getenv: fakeEnv(map[string]string{
		EnvAzureDeploymentID: "from-env",
	})}
	creds, err := p.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ServiceAzureOpenAI, creds.Service)
	assert.Equal(t, "az-key", creds.APIKey)
	assert.Equal(t, "from-env", creds.DeploymentID)
	assert.Equal(t, DefaultAzureAPIVersion, creds.APIVersion)
	assert.NoError(t, creds.Validate())
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	want := Credentials{Service: ServiceOpenAI, APIKey: "sk"}

	creds, err := Chain(None(), Static(want)).Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, creds)

	_, err = Chain(None(), None()).Credentials(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)

	boom := errors.New("boom")
	_, err = Chain(ProviderFunc(func(context.Context) (Credentials, error) {
		return Credentials{}, boom
	}), Static(want)).Credentials(ctx)
	assert.ErrorIs(t, err, boom)

	_, err = Chain(Static(Credentials{Service: ServiceOpenAI})).Credentials(ctx)
	assert.Error(t, err)
}

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer("correct horse")
	require.NoError(t, err)

	sealed, err := s.Seal([]byte(`{"api_key":"sk"}`))
	require.NoError(t, err)
	assert.NotContains(t, sealed, "api_key")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"api_key":"sk"}`, string(plain))
}

func TestSealer_WrongPassphrase(t *testing.T) {
	s1, _ := NewSealer("one")
	s2, _ := NewSealer("two")

	sealed, err := s1.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = s2.Open(sealed)
	assert.ErrorIs(t, err, ErrSealCorrupt)

	_, err = s1.Open("!!!")
	assert.ErrorIs(t, err, ErrSealCorrupt)
}

func TestSealer_DerivesKeyOnce(t *testing.T) {
	s, err := NewSealer("correct horse")
	require.NoError(t, err)

	first, err := s.Seal([]byte("one"))
	require.NoError(t, err)
	second, err := s.Seal([]byte("two"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	_, err = s.Open(second)
	require.NoError(t, err)
	assert.Equal(t, 1, s.derived)

	// a fresh sealer adopts the salt of what it opened
	reopened, err := NewSealer("correct horse")
	require.NoError(t, err)
	plain, err := reopened.Open(first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(plain))
	_, err = reopened.Seal([]byte("three"))
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.derived)
}

func TestNewSealer_EmptyPassphrase(t *testing.T) {
	_, err := NewSealer("")
	assert.Error(t, err)
}
