// ABOUTME: Opaque agent identifier and the agent name variant
// ABOUTME: Name has a raw string form used only at the persistence boundary

package agent

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an agent ID or name cannot be resolved
var ErrNotFound = errors.New("agent not found")

// ID identifies one agent instance.
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
		return ID{}, fmt.Errorf("parsing agent id %q: %w", s, err)
	}
	return ID{u: u}, nil
}

func (id ID) String() string {
	return id.u.String()
}

// Raw string forms of the default names
const (
	rawUserDefault      = "_USER"
	rawAssistantDefault = "_ASSISTANT"
)

type nameKind int

const (
	nameNamed nameKind = iota
	nameUserDefault
	nameAssistantDefault
)

// Name is the display and configuration-lookup key of an agent. It is
// comparable and safe to use as a map key.
type Name struct {
	kind nameKind
	text string
}

// UserDefault is the name of the unnamed human participant.
func UserDefault() Name {
	return Name{kind: nameUserDefault}
}

// AssistantDefault is the name of an unnamed assistant.
func AssistantDefault() Name {
	return Name{kind: nameAssistantDefault}
}

// Named returns a name carrying display text.
func Named(text string) Name {
	return Name{kind: nameNamed, text: text}
}

// Author returns the display name used as message author, or "" for the
// default names.
func (n Name) Author() string {
	if n.kind == nameNamed {
		return n.text
	}
	return ""
}

// String returns the raw form: "_USER", "_ASSISTANT", or the name text.
func (n Name) String() string {
	switch n.kind {
	case nameUserDefault:
		return rawUserDefault
	case nameAssistantDefault:
		return rawAssistantDefault
	default:
		return n.text
	}
}

// ParseName is the inverse of Name.String.
func ParseName(s string) Name {
	switch s {
	case rawUserDefault:
		return UserDefault()
	case rawAssistantDefault:
		return AssistantDefault()
	default:
		return Named(s)
	}
}
