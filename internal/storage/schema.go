// ABOUTME: Raw JSON schema for settings, agent configs, and chats
// ABOUTME: Every opaque id and agent name appears here in string form

package storage

import (
	"github.com/2389/coven-chorus/internal/message"
)

// Storage keys
const (
	KeySettings     = "chorus_settings"
	KeyChats        = "chorus_chats"
	KeyAgentConfigs = "chorus_agent_configs"
)

// RawState groups the three persisted documents.
type RawState struct {
	Settings     RawSettings
	Chats        RawChats
	AgentConfigs RawAgentConfigs
}

// RawSettings is the chorus_settings document.
type RawSettings struct {
	RunCount        uint64           `json:"run_count"`
	Customization   RawCustomization `json:"customization"`
	Auth            *RawAuth         `json:"auth,omitempty"`
	SealedAuth      string           `json:"sealed_auth,omitempty"`
	SelectedService string           `json:"selected_service,omitempty"`
	OpenAIModel     string           `json:"openai_model,omitempty"`
}

// RawCustomization holds presentation preferences.
type RawCustomization struct {
	WaitingIcons []string `json:"waiting_icons"`
}

// RawAuth is externally tagged: exactly one field is set.
type RawAuth struct {
	OpenAI      *RawOpenAIAuth `json:"OpenAI,omitempty"`
	AzureOpenAI *RawAzureAuth  `json:"AzureOpenAI,omitempty"`
}

// RawOpenAIAuth is the OpenAI credential variant.
type RawOpenAIAuth struct {
	APIKey  string `json:"api_key"`
	OrgID   string `json:"org_id,omitempty"`
	APIBase string `json:"api_base,omitempty"`
}

// RawAzureAuth is the Azure OpenAI credential variant.
type RawAzureAuth struct {
	APIVersion   string `json:"api_version"`
	DeploymentID string `json:"deployment_id"`
	APIBase      string `json:"api_base"`
	APIKey       string `json:"api_key"`
}

// RawAgentConfigs is the chorus_agent_configs document.
type RawAgentConfigs struct {
	NameToConfigs map[string]RawAgentConfig `json:"name_to_configs"`
}

// RawAgentConfig is one agent config.
type RawAgentConfig struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Role         RawRole `json:"role"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
}

// Raw role type tags
const (
	RoleTypeUser      = "User"
	RoleTypeAssistant = "Assistant"
)

// RawRole is the tagged agent role.
type RawRole struct {
	Type         string `json:"type"`
	Instructions string `json:"instructions,omitempty"`
}

// RawChats is the chorus_chats document.
type RawChats struct {
	Chats []RawChat `json:"chats"`
}

// RawChat is one chat.
type RawChat struct {
	ID       string                      `json:"id"`
	Messages map[string]message.Message `json:"messages"`
	Topic    string                      `json:"topic"`
	Date     string                      `json:"date"`
	Agents   map[string]RawAgentInstance `json:"agents"`
}

// RawAgentInstance is an agent's per-chat data. Its config is looked up by
// Name.
type RawAgentInstance struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	History []string `json:"history"`
}
