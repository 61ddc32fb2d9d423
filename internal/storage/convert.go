// ABOUTME: Conversion between the rich state and the raw schema
// ABOUTME: Ids become strings and agent configs are split from agent instances

package storage

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/2389/coven-chorus/internal/agent"
	"github.com/2389/coven-chorus/internal/auth"
	"github.com/2389/coven-chorus/internal/chat"
	"github.com/2389/coven-chorus/internal/generation"
	"github.com/2389/coven-chorus/internal/message"
)

// ErrMissingConfig is returned when a persisted agent names a config that
// does not exist
var ErrMissingConfig = errors.New("agent config not found")

// dateLayout keeps sub-second precision and the offset so dates survive a
// round trip.
const dateLayout = time.RFC3339Nano

// ToRaw converts the whole state.
func ToRaw(s *State) RawState {
	chats := RawChats{Chats: make([]RawChat, 0, len(s.Chats))}
	for _, c := range s.Chats {
		chats.Chats = append(chats.Chats, ChatToRaw(c))
	}
	return RawState{
		Settings:     SettingsToRaw(s),
		Chats:        chats,
		AgentConfigs: ConfigsToRaw(s.Configs),
	}
}

// FromRaw converts the whole state. Any invalid part fails the conversion.
func FromRaw(raw RawState) (*State, error) {
	s := &State{}
	if err := SettingsFromRaw(raw.Settings, s); err != nil {
		return nil, err
	}
	configs, err := ConfigsFromRaw(raw.AgentConfigs)
	if err != nil {
		return nil, err
	}
	s.Configs = configs

	s.Chats = make([]*chat.Chat, 0, len(raw.Chats.Chats))
	for i, rc := range raw.Chats.Chats {
		c, err := ChatFromRaw(rc, configs)
		if err != nil {
			return nil, fmt.Errorf("chat %d: %w", i, err)
		}
		s.Chats = append(s.Chats, c)
	}
	return s, nil
}

// SettingsToRaw extracts the settings document from s.
func SettingsToRaw(s *State) RawSettings {
	raw := RawSettings{
		RunCount: s.RunCount,
		Customization: RawCustomization{
			WaitingIcons: slices.Clone(s.Customization.WaitingIcons),
		},
	}
	if s.Auth != nil {
		raw.Auth = AuthToRaw(*s.Auth)
	}
	if s.Service != nil {
		raw.SelectedService = s.Service.String()
	}
	if s.Model != nil {
		raw.OpenAIModel = s.Model.String()
	}
	return raw
}

// SettingsFromRaw fills the settings fields of s. A sealed_auth value is not
// handled here; the adapter opens it first.
func SettingsFromRaw(raw RawSettings, s *State) error {
	s.RunCount = raw.RunCount
	s.Customization = Customization{WaitingIcons: slices.Clone(raw.Customization.WaitingIcons)}

	if raw.Auth != nil {
		creds, err := AuthFromRaw(raw.Auth)
		if err != nil {
			return err
		}
		s.Auth = &creds
	}
	if raw.SelectedService != "" {
		svc, err := auth.ParseService(raw.SelectedService)
		if err != nil {
			return fmt.Errorf("selected_service: %w", err)
		}
		s.Service = &svc
	}
	if raw.OpenAIModel != "" {
		m, err := generation.ParseModel(raw.OpenAIModel)
		if err != nil {
			return fmt.Errorf("openai_model: %w", err)
		}
		s.Model = &m
	}
	return nil
}

// AuthToRaw converts credentials to their tagged raw form.
func AuthToRaw(c auth.Credentials) *RawAuth {
	switch c.Service {
	case auth.ServiceAzureOpenAI:
		return &RawAuth{AzureOpenAI: &RawAzureAuth{
			APIVersion:   c.APIVersion,
			DeploymentID: c.DeploymentID,
			APIBase:      c.APIBase,
			APIKey:       c.APIKey,
		}}
	default:
		return &RawAuth{OpenAI: &RawOpenAIAuth{
			APIKey:  c.APIKey,
			OrgID:   c.OrgID,
			APIBase: c.APIBase,
		}}
	}
}

// AuthFromRaw converts the tagged raw form. Exactly one variant must be set.
func AuthFromRaw(raw *RawAuth) (auth.Credentials, error) {
	switch {
	case raw.OpenAI != nil && raw.AzureOpenAI == nil:
		return auth.Credentials{
			Service: auth.ServiceOpenAI,
			APIKey:  raw.OpenAI.APIKey,
			OrgID:   raw.OpenAI.OrgID,
			APIBase: raw.OpenAI.APIBase,
		}, nil
	case raw.AzureOpenAI != nil && raw.OpenAI == nil:
		return auth.Credentials{
			Service:      auth.ServiceAzureOpenAI,
			APIKey:       raw.AzureOpenAI.APIKey,
			APIBase:      raw.AzureOpenAI.APIBase,
			APIVersion:   raw.AzureOpenAI.APIVersion,
			DeploymentID: raw.AzureOpenAI.DeploymentID,
		}, nil
	default:
		return auth.Credentials{}, fmt.Errorf("auth must hold exactly one of OpenAI or AzureOpenAI")
	}
}

// ConfigsToRaw keys configs by raw agent name.
func ConfigsToRaw(configs map[agent.Name]agent.Config) RawAgentConfigs {
	raw := RawAgentConfigs{NameToConfigs: make(map[string]RawAgentConfig, len(configs))}
	for name, cfg := range configs {
		raw.NameToConfigs[name.String()] = ConfigToRaw(cfg)
	}
	return raw
}

// ConfigsFromRaw parses every config and checks each key matches its name.
func ConfigsFromRaw(raw RawAgentConfigs) (map[agent.Name]agent.Config, error) {
	configs := make(map[agent.Name]agent.Config, len(raw.NameToConfigs))
	for key, rc := range raw.NameToConfigs {
		if rc.Name != key {
			return nil, fmt.Errorf("agent config keyed %q is named %q", key, rc.Name)
		}
		cfg, err := ConfigFromRaw(rc)
		if err != nil {
			return nil, fmt.Errorf("agent config %q: %w", key, err)
		}
		configs[cfg.Name] = cfg
	}
	return configs, nil
}

// ConfigToRaw converts one config.
func ConfigToRaw(cfg agent.Config) RawAgentConfig {
	raw := RawAgentConfig{
		Name:         cfg.Name.String(),
		Description:  cfg.Description,
		SystemPrompt: cfg.SystemPrompt,
	}
	switch cfg.Role.Kind() {
	case agent.KindUser:
		raw.Role = RawRole{Type: RoleTypeUser}
	case agent.KindAssistant:
		instr, _ := cfg.Role.Instructions()
		raw.Role = RawRole{Type: RoleTypeAssistant, Instructions: instr}
	default:
		panic(fmt.Sprintf("storage: unhandled role kind %v", cfg.Role.Kind()))
	}
	return raw
}

// ConfigFromRaw converts one config. The stored system prompt is kept as is.
func ConfigFromRaw(raw RawAgentConfig) (agent.Config, error) {
	cfg := agent.Config{
		Name:         agent.ParseName(raw.Name),
		Description:  raw.Description,
		SystemPrompt: raw.SystemPrompt,
	}
	switch raw.Role.Type {
	case RoleTypeUser:
		cfg.Role = agent.UserRole()
	case RoleTypeAssistant:
		cfg.Role = agent.AssistantRole(raw.Role.Instructions)
	default:
		return agent.Config{}, fmt.Errorf("unknown role type %q", raw.Role.Type)
	}
	return cfg, nil
}

// ChatToRaw converts one chat. Agent configs are not embedded.
func ChatToRaw(c *chat.Chat) RawChat {
	entries := c.Messages.Entries()
	raw := RawChat{
		ID:       c.ID.String(),
		Messages: make(map[string]message.Message, len(entries)),
		Topic:    c.Topic,
		Date:     c.CreatedAt.Format(dateLayout),
		Agents:   make(map[string]RawAgentInstance, len(c.Agents)),
	}
	for id, msg := range entries {
		raw.Messages[id.String()] = msg
	}
	for id, a := range c.Agents {
		history := make([]string, len(a.History))
		for i, mid := range a.History {
			history[i] = mid.String()
		}
		raw.Agents[id.String()] = RawAgentInstance{
			ID:      a.ID.String(),
			Name:    a.Config.Name.String(),
			History: history,
		}
	}
	return raw
}

// ChatFromRaw rehydrates a chat, recovering agent configs by name. The
// result is validated.
func ChatFromRaw(raw RawChat, configs map[agent.Name]agent.Config) (*chat.Chat, error) {
	id, err := chat.ParseID(raw.ID)
	if err != nil {
		return nil, err
	}
	created, err := time.Parse(dateLayout, raw.Date)
	if err != nil {
		return nil, fmt.Errorf("parsing chat date %q: %w", raw.Date, err)
	}

	entries := make(map[message.ID]message.Message, len(raw.Messages))
	for key, msg := range raw.Messages {
		mid, err := message.ParseID(key)
		if err != nil {
			return nil, err
		}
		if !msg.Role.Valid() {
			return nil, fmt.Errorf("message %s has unknown role %q", key, msg.Role)
		}
		entries[mid] = msg
	}

	c := &chat.Chat{
		ID:        id,
		Messages:  message.StoreFrom(entries),
		Topic:     raw.Topic,
		CreatedAt: created,
		Agents:    make(map[agent.ID]*agent.Instance, len(raw.Agents)),
	}

	for key, ra := range raw.Agents {
		if ra.ID != key {
			return nil, fmt.Errorf("agent keyed %q carries id %q", key, ra.ID)
		}
		aid, err := agent.ParseID(ra.ID)
		if err != nil {
			return nil, err
		}
		name := agent.ParseName(ra.Name)
		cfg, ok := configs[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingConfig, ra.Name)
		}
		var history []message.ID
		for _, h := range ra.History {
			mid, err := message.ParseID(h)
			if err != nil {
				return nil, err
			}
			history = append(history, mid)
		}
		c.Agents[aid] = &agent.Instance{ID: aid, Config: cfg, History: history}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("chat %s: %w", raw.ID, err)
	}
	return c, nil
}
