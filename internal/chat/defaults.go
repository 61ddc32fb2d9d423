// ABOUTME: Default chat construction from persona definitions or stored configs
// ABOUTME: Seeds one user agent and one assistant per persona

package chat

import (
	"fmt"
	"sort"

	"github.com/2389/coven-chorus/internal/agent"
)

// Persona is an assistant definition from the persona catalog.
type Persona struct {
	Name         string
	Description  string
	Instructions string
}

// AgentName returns the configuration key for the persona; an empty name maps
// to AssistantDefault.
func (p Persona) AgentName() agent.Name {
	if p.Name == "" {
		return agent.AssistantDefault()
	}
	return agent.Named(p.Name)
}

// DefaultPersonas is the built-in catalog used when none is configured.
func DefaultPersonas() []Persona {
	return []Persona{
		{
			Name:         "Alice",
			Description:  "A friendly generalist who explains things plainly",
			Instructions: "You are a helpful assistant. Give clear, direct answers and use examples when they help.",
		},
		{
			Name:         "Bob",
			Description:  "A skeptical reviewer who looks for holes",
			Instructions: "You are a careful critic. Point out mistakes, missing cases, and weak arguments, including those of the other assistants.",
		},
	}
}

// DefaultWithAgents builds a chat with one assistant per persona and one
// default user. It also returns every created config keyed by name so they
// can be persisted once and recovered later.
func DefaultWithAgents(personas []Persona) (*Chat, map[agent.Name]agent.Config) {
	c := New("")
	configs := make(map[agent.Name]agent.Config, len(personas)+1)

	for _, p := range personas {
		a := agent.NewAssistant(c.Messages, p.AgentName(), p.Instructions, p.Description)
		c.Add(a)
		configs[a.Config.Name] = a.Config
	}

	user := agent.NewUser(agent.UserDefault())
	c.Add(user)
	configs[user.Config.Name] = user.Config

	return c, configs
}

// FromConfigs builds a fresh chat instantiating every stored config. Exactly
// one of the configs must have the User role.
func FromConfigs(topic string, configs map[agent.Name]agent.Config) (*Chat, error) {
	// sorted so assistants are seeded in a predictable order
	names := make([]agent.Name, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].String() < names[j].String() })

	c := New(topic)
	for _, name := range names {
		c.Add(agent.FromConfig(c.Messages, configs[name]))
	}
	if _, err := c.SoleUser(); err != nil {
		return nil, fmt.Errorf("building chat from configs: %w", err)
	}
	return c, nil
}
