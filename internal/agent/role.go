// ABOUTME: Closed role variant distinguishing the human user from AI assistants
// ABOUTME: Exposes the two role decisions: message role mapping and dispatch eligibility

package agent

import (
	"fmt"

	"github.com/2389/coven-chorus/internal/message"
)

// RoleKind enumerates the role variants.
type RoleKind int

const (
	KindUser RoleKind = iota
	KindAssistant
)

func (k RoleKind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindAssistant:
		return "assistant"
	default:
		return fmt.Sprintf("RoleKind(%d)", int(k))
	}
}

// Role is either User or Assistant(instructions).
type Role struct {
	kind         RoleKind
	instructions string
}

// UserRole is the role of the human participant.
func UserRole() Role {
	return Role{kind: KindUser}
}

// AssistantRole is the role of an AI agent following instructions.
func AssistantRole(instructions string) Role {
	return Role{kind: KindAssistant, instructions: instructions}
}

// Kind returns the variant tag.
func (r Role) Kind() RoleKind {
	return r.kind
}

// Instructions returns the assistant instructions; ok is false for users.
func (r Role) Instructions() (string, bool) {
	if r.kind != KindAssistant {
		return "", false
	}
	return r.instructions, true
}

// MessageRole maps the agent role to the role its messages carry.
func (r Role) MessageRole() message.Role {
	switch r.kind {
	case KindUser:
		return message.RoleUser
	case KindAssistant:
		return message.RoleAssistant
	default:
		panic(fmt.Sprintf("agent: unhandled role kind %v", r.kind))
	}
}

// Dispatchable reports whether the dispatcher requests replies from the agent.
func (r Role) Dispatchable() bool {
	switch r.kind {
	case KindUser:
		return false
	case KindAssistant:
		return true
	default:
		panic(fmt.Sprintf("agent: unhandled role kind %v", r.kind))
	}
}
