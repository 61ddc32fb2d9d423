// ABOUTME: Message types shared by every agent history in a chat
// ABOUTME: Defines the opaque ID, the role enum, and constructors for each role

package message

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an ID has no message in the store
var ErrNotFound = errors.New("message not found")

// ID identifies a message. It is opaque in memory; String and ParseID are only
// meant for the persistence boundary and for logging.
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
		return ID{}, fmt.Errorf("parsing message id %q: %w", s, err)
	}
	return ID{u: u}, nil
}

// String returns the canonical UUID text.
func (id ID) String() string {
	return id.u.String()
}

// IsZero reports whether id was never assigned.
func (id ID) IsZero() bool {
	return id.u == uuid.Nil
}

// Role is the speaker role sent to the generation service
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single chat message. Name is the optional author name.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// System builds a system prompt message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a message authored by the human participant.
func User(content, name string) Message {
	return Message{Role: RoleUser, Content: content, Name: name}
}

// Assistant builds a message authored by an AI agent.
func Assistant(content, name string) Message {
	return Message{Role: RoleAssistant, Content: content, Name: name}
}
