// ABOUTME: Connector resolves credentials and builds a Generator for one turn
// ABOUTME: Missing credentials surface as auth.ErrNoCredentials

package generation

import (
	"context"
	"fmt"

	"github.com/2389/coven-chorus/internal/auth"
)

// Connector yields a Generator ready to serve a turn.
type Connector interface {
	Connect(ctx context.Context) (Generator, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) (Generator, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context) (Generator, error) {
	return f(ctx)
}

// Static always connects to gen.
func Static(gen Generator) Connector {
	return ConnectorFunc(func(context.Context) (Generator, error) {
		return gen, nil
	})
}

// ClientConnector builds a Client from whatever Provider returns.
type ClientConnector struct {
	Provider auth.Provider
	Options  []ClientOption
}

// Connect implements Connector.
func (c *ClientConnector) Connect(ctx context.Context) (Generator, error) {
	if c.Provider == nil {
		return nil, auth.ErrNoCredentials
	}
	creds, err := c.Provider.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials: %w", err)
	}
	client, err := NewClient(creds, c.Options...)
	if err != nil {
		return nil, err
	}
	return client, nil
}
