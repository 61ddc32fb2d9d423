// ABOUTME: Environment and dotenv backed credential provider
// ABOUTME: Process environment wins over values read from the dotenv file

package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names read by EnvProvider
const (
	EnvOpenAIKey         = "OPENAI_API_KEY"
	EnvOpenAIOrg         = "OPENAI_ORG_ID"
	EnvOpenAIBase        = "OPENAI_API_BASE"
	EnvAzureKey          = "AZURE_OPENAI_API_KEY"
	EnvAzureBase         = "AZURE_OPENAI_API_BASE"
	EnvAzureVersion      = "AZURE_OPENAI_API_VERSION"
	EnvAzureDeploymentID = "AZURE_OPENAI_DEPLOYMENT_ID"
)

// DefaultAzureAPIVersion is used when no Azure API version is given.
const DefaultAzureAPIVersion = "2023-05-15"

// EnvProvider resolves credentials from the environment and a dotenv file.
type EnvProvider struct {
	// File is an optional dotenv path; a missing file is not an error.
	File string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// NewEnvProvider creates an EnvProvider reading file as fallback.
func NewEnvProvider(file string) *EnvProvider {
	return &EnvProvider{File: file, Getenv: os.Getenv}
}

// Credentials implements Provider. Azure settings win when both are present.
func (p *EnvProvider) Credentials(ctx context.Context) (Credentials, error) {
	lookup, err := p.lookup()
	if err != nil {
		return Credentials{}, err
	}

	if key := lookup(EnvAzureKey); key != "" {
		version := lookup(EnvAzureVersion)
		if version == "" {
			version = DefaultAzureAPIVersion
		}
		return Credentials{
			Service:      ServiceAzureOpenAI,
			APIKey:       key,
			APIBase:      lookup(EnvAzureBase),
			APIVersion:   version,
			DeploymentID: lookup(EnvAzureDeploymentID),
		}, nil
	}

	if key := lookup(EnvOpenAIKey); key != "" {
		return Credentials{
			Service: ServiceOpenAI,
			APIKey:  key,
			OrgID:   lookup(EnvOpenAIOrg),
			APIBase: lookup(EnvOpenAIBase),
		}, nil
	}

	return Credentials{}, ErrNoCredentials
}

func (p *EnvProvider) lookup() (func(string) string, error) {
	getenv := p.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	var file map[string]string
	if p.File != "" {
		var err error
		file, err = godotenv.Read(p.File)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading dotenv file %s: %w", p.File, err)
		}
	}

	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return file[key]
	}, nil
}
