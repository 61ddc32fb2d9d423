// ABOUTME: Rich application state persisted through the adapter
// ABOUTME: Holds settings, agent configs, and every chat

package storage

import (
	"github.com/2389/coven-chorus/internal/agent"
	"github.com/2389/coven-chorus/internal/auth"
	"github.com/2389/coven-chorus/internal/chat"
	"github.com/2389/coven-chorus/internal/generation"
)

// Customization holds presentation preferences.
type Customization struct {
	// WaitingIcons cycle while a reply is streaming.
	WaitingIcons []string
}

// DefaultCustomization returns the customization used on first run.
func DefaultCustomization() Customization {
	return Customization{WaitingIcons: []string{".", "..", "..."}}
}

// State is everything the application persists.
type State struct {
	RunCount      uint64
	Customization Customization
	Configs       map[agent.Name]agent.Config
	Chats         []*chat.Chat

	Auth    *auth.Credentials
	Service *auth.Service
	Model   *generation.Model
}

// SelectedModel returns the chosen model or the default.
func (s *State) SelectedModel() generation.Model {
	if s.Model == nil {
		return generation.DefaultModel
	}
	return *s.Model
}

// Chat returns the chat with id, or nil.
func (s *State) Chat(id chat.ID) *chat.Chat {
	for _, c := range s.Chats {
		if c.ID == id {
			return c
		}
	}
	return nil
}
