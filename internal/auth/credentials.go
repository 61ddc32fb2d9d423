// ABOUTME: Credential types for the OpenAI and Azure OpenAI generation services
// ABOUTME: Defines the Provider interface and composition helpers

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoCredentials is returned when no provider has credentials configured
var ErrNoCredentials = errors.New("no credentials configured")

// Service identifies a generation service flavour.
type Service int

const (
	ServiceOpenAI Service = iota
	ServiceAzureOpenAI
)

func (s Service) String() string {
	switch s {
	case ServiceOpenAI:
		return "OpenAI"
	case ServiceAzureOpenAI:
		return "AzureOpenAI"
	default:
		return fmt.Sprintf("Service(%d)", int(s))
	}
}

// ParseService accepts the String form, case-insensitively.
func ParseService(s string) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai":
		return ServiceOpenAI, nil
	case "azureopenai", "azure":
		return ServiceAzureOpenAI, nil
	}
	return 0, fmt.Errorf("unknown service %q", s)
}

// Credentials are the connection parameters of one service.
type Credentials struct {
	Service      Service
	APIKey       string
	OrgID        string // OpenAI only
	APIBase      string // optional for OpenAI, required for Azure
	APIVersion   string // Azure only
	DeploymentID string // Azure only
}

// Validate checks the fields required by the service.
func (c Credentials) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	switch c.Service {
	case ServiceOpenAI:
		return nil
	case ServiceAzureOpenAI:
		if c.APIBase == "" {
			return fmt.Errorf("api_base is required for %s", c.Service)
		}
		if c.APIVersion == "" {
			return fmt.Errorf("api_version is required for %s", c.Service)
		}
		if c.DeploymentID == "" {
			return fmt.Errorf("deployment_id is required for %s", c.Service)
		}
		return nil
	default:
		return fmt.Errorf("unknown service %v", c.Service)
	}
}

// Provider resolves credentials.
type Provider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (Credentials, error)

// Credentials calls f.
func (f ProviderFunc) Credentials(ctx context.Context) (Credentials, error) {
	return f(ctx)
}

// Static returns a provider that always yields creds.
func Static(creds Credentials) Provider {
	return ProviderFunc(func(context.Context) (Credentials, error) {
		return creds, nil
	})
}

// None returns a provider that never has credentials.
func None() Provider {
	return ProviderFunc(func(context.Context) (Credentials, error) {
		return Credentials{}, ErrNoCredentials
	})
}

// Chain tries providers in order and returns the first credentials found.
// Providers reporting ErrNoCredentials are skipped; any other error stops
// the chain.
func Chain(providers ...Provider) Provider {
	return ProviderFunc(func(ctx context.Context) (Credentials, error) {
		for _, p := range providers {
			creds, err := p.Credentials(ctx)
			if errors.Is(err, ErrNoCredentials) {
				continue
			}
			if err != nil {
				return Credentials{}, err
			}
			if err := creds.Validate(); err != nil {
				return Credentials{}, fmt.Errorf("invalid %s credentials: %w", creds.Service, err)
			}
			return creds, nil
		}
		return Credentials{}, ErrNoCredentials
	})
}
