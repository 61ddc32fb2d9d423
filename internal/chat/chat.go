// ABOUTME: Chat aggregate: message store, agents, and per-agent linked histories
// ABOUTME: Provides role-filtered enumeration, context building, and integrity checks

package chat

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-chorus/internal/agent"
	"github.com/2389/coven-chorus/internal/message"
)

var (
	// ErrUserCardinality is returned when a chat does not have exactly one user agent
	ErrUserCardinality = errors.New("chat must have exactly one user agent")

	// ErrDanglingReference is returned when a history entry has no message
	ErrDanglingReference = errors.New("history references a missing message")
)

// DefaultTopic is the topic given to chats created without one.
const DefaultTopic = "New Chat"

// ID identifies a chat.
type ID struct {
	u uuid.UUID
}

// NewID mints a fresh random ID.
func NewID() ID {
	return ID{u: uuid.New()}
}

// ParseID parses the string form produced by ID.String.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("parsing chat id %q: %w", s, err)
	}
	return ID{u: u}, nil
}

func (id ID) String() string {
	return id.u.String()
}

// Chat is one conversation.
type Chat struct {
	ID        ID
	Messages  *message.Store
	Topic     string
	CreatedAt time.Time
	Agents    map[agent.ID]*agent.Instance
}

// New creates an empty chat.
func New(topic string) *Chat {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Chat{
		ID:        NewID(),
		Messages:  message.NewStore(),
		Topic:     topic,
		CreatedAt: now(),
		Agents:    make(map[agent.ID]*agent.Instance),
	}
}

// now returns the current time in the form that survives an RFC 3339
// round trip unchanged.
func now() time.Time {
	return time.Now().UTC()
}

// Add registers an agent instance.
func (c *Chat) Add(a *agent.Instance) {
	c.Agents[a.ID] = a
}

// Agent looks up an agent by ID.
func (c *Chat) Agent(id agent.ID) (*agent.Instance, error) {
	a, ok := c.Agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", agent.ErrNotFound, id)
	}
	return a, nil
}

// AgentIDs enumerates every agent.
func (c *Chat) AgentIDs() iter.Seq[agent.ID] {
	return maps.Keys(c.Agents)
}

// UserAgentIDs enumerates agents with the User role.
func (c *Chat) UserAgentIDs() iter.Seq[agent.ID] {
	return c.idsWhere(func(a *agent.Instance) bool { return !a.Config.Role.Dispatchable() })
}

// AssistantAgentIDs enumerates agents the dispatcher asks for replies.
func (c *Chat) AssistantAgentIDs() iter.Seq[agent.ID] {
	return c.idsWhere(func(a *agent.Instance) bool { return a.Config.Role.Dispatchable() })
}

func (c *Chat) idsWhere(keep func(*agent.Instance) bool) iter.Seq[agent.ID] {
	return func(yield func(agent.ID) bool) {
		for id, a := range c.Agents {
			if keep(a) && !yield(id) {
				return
			}
		}
	}
}

// SoleUser returns the single user agent, or ErrUserCardinality.
func (c *Chat) SoleUser() (*agent.Instance, error) {
	var found *agent.Instance
	n := 0
	for id := range c.UserAgentIDs() {
		found = c.Agents[id]
		n++
	}
	if n != 1 {
		return nil, fmt.Errorf("%w: found %d", ErrUserCardinality, n)
	}
	return found, nil
}

// Context resolves an agent's history into the ordered messages sent to the
// generation service.
func (c *Chat) Context(id agent.ID) ([]message.Message, error) {
	a, err := c.Agent(id)
	if err != nil {
		return nil, err
	}
	msgs := make([]message.Message, 0, len(a.History))
	for i, mid := range a.History {
		msg, ok := c.Messages.Get(mid)
		if !ok {
			return nil, fmt.Errorf("%w: agent %s entry %d (%s)", ErrDanglingReference, id, i, mid)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Broadcast appends id to every agent's history.
func (c *Chat) Broadcast(id message.ID) {
	for _, a := range c.Agents {
		a.Push(id)
	}
}

// Validate checks the user cardinality and reference integrity invariants.
func (c *Chat) Validate() error {
	if _, err := c.SoleUser(); err != nil {
		return err
	}
	for aid, a := range c.Agents {
		if a.ID != aid {
			return fmt.Errorf("agent keyed as %s carries id %s", aid, a.ID)
		}
		for i, mid := range a.History {
			if !c.Messages.Contains(mid) {
				return fmt.Errorf("%w: agent %s entry %d (%s)", ErrDanglingReference, aid, i, mid)
			}
		}
	}
	return nil
}

// Clone forks the chat: it gets a new ID and creation time while messages
// and histories are copied by value.
func (c *Chat) Clone() *Chat {
	agents := make(map[agent.ID]*agent.Instance, len(c.Agents))
	for id, a := range c.Agents {
		agents[id] = a.Clone()
	}
	return &Chat{
		ID:        NewID(),
		Messages:  c.Messages.Clone(),
		Topic:     c.Topic,
		CreatedAt: now(),
		Agents:    agents,
	}
}
