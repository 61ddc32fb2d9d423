// ABOUTME: Agent instances and the registry constructors that create them
// ABOUTME: An instance owns its history: ordered references into the chat's message store

package agent

import (
	"github.com/2389/coven-chorus/internal/message"
)

// Inserter is the part of the message store the registry needs.
type Inserter interface {
	Insert(msg message.Message) message.ID
}

// Instance is one participant of one chat.
type Instance struct {
	ID      ID
	Config  Config
	History []message.ID
}

// NewUser creates the human participant with an empty history.
func NewUser(name Name) *Instance {
	return &Instance{
		ID:     NewID(),
		Config: UserConfig(name, "The human participant"),
	}
}

// NewAssistant creates an assistant whose history starts with its rendered
// system prompt, inserted into store.
func NewAssistant(store Inserter, name Name, instructions, description string) *Instance {
	return FromConfig(store, AssistantConfig(name, instructions, description))
}

// FromConfig instantiates cfg for a new chat. Assistants get their system
// prompt inserted into store; users start empty.
func FromConfig(store Inserter, cfg Config) *Instance {
	inst := &Instance{
		ID:     NewID(),
		Config: cfg,
	}
	if cfg.Role.Kind() == KindAssistant {
		inst.History = []message.ID{store.Insert(message.System(cfg.SystemPrompt))}
	}
	return inst
}

// Author is the name stamped on messages this agent writes.
func (a *Instance) Author() string {
	return a.Config.Name.Author()
}

// Compose builds a message authored by this agent with the role its agent
// role maps to.
func (a *Instance) Compose(content string) message.Message {
	return message.Message{
		Role:    a.Config.Role.MessageRole(),
		Content: content,
		Name:    a.Author(),
	}
}

// Push appends id to the history.
func (a *Instance) Push(id message.ID) {
	a.History = append(a.History, id)
}

// Clone returns a copy with an independent history slice.
func (a *Instance) Clone() *Instance {
	c := *a
	c.History = append([]message.ID(nil), a.History...)
	return &c
}
