// ABOUTME: Adapter reads and writes the state through a key-value store
// ABOUTME: Missing or corrupt keys fall back to defaults that are re-persisted at once

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/coven-chorus/internal/agent"
	"github.com/2389/coven-chorus/internal/auth"
	"github.com/2389/coven-chorus/internal/chat"
	"github.com/2389/coven-chorus/internal/generation"
	"github.com/2389/coven-chorus/internal/kvstore"
)

// errCorrupt marks a value that exists but cannot be used.
var errCorrupt = errors.New("corrupt value")

// Adapter persists State in a kvstore.KV.
type Adapter struct {
	kv     kvstore.KV
	sealer *auth.Sealer
	logger *slog.Logger
	saveMu sync.Mutex
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithSealer seals credentials at rest.
func WithSealer(s *auth.Sealer) Option {
	return func(a *Adapter) { a.sealer = s }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// NewAdapter creates an Adapter over kv.
func NewAdapter(kv kvstore.KV, opts ...Option) *Adapter {
	a := &Adapter{kv: kv}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With("component", "storage")
	return a
}

// GetOrInit loads every key, substituting and persisting defaults for any key
// that is missing or corrupt. personas seed the default chat and configs.
func (a *Adapter) GetOrInit(ctx context.Context, personas []chat.Persona) (*State, error) {
	s := &State{}

	settings, err := a.loadSettings(ctx)
	if err := a.fallback(ctx, KeySettings, err, func() error {
		settings = RawSettings{Customization: RawCustomization{WaitingIcons: DefaultCustomization().WaitingIcons}}
		return a.put(ctx, KeySettings, settings)
	}); err != nil {
		return nil, err
	}
	if err := SettingsFromRaw(settings, s); err != nil {
		return nil, fmt.Errorf("converting settings: %w", err)
	}

	var rawConfigs RawAgentConfigs
	err = a.get(ctx, KeyAgentConfigs, &rawConfigs)
	if err == nil {
		s.Configs, err = ConfigsFromRaw(rawConfigs)
		if err != nil {
			err = fmt.Errorf("%w: %v", errCorrupt, err)
		}
	}
	if err := a.fallback(ctx, KeyAgentConfigs, err, func() error {
		_, s.Configs = chat.DefaultWithAgents(personas)
		return a.put(ctx, KeyAgentConfigs, ConfigsToRaw(s.Configs))
	}); err != nil {
		return nil, err
	}

	var rawChats RawChats
	err = a.get(ctx, KeyChats, &rawChats)
	if err == nil {
		s.Chats = a.rehydrateChats(rawChats, s.Configs)
		if len(s.Chats) == 0 {
			err = fmt.Errorf("%w: no usable chats", errCorrupt)
		}
	}
	if err := a.fallback(ctx, KeyChats, err, func() error {
		c, configs := chat.DefaultWithAgents(personas)
		s.Chats = []*chat.Chat{c}
		if mergeConfigs(s.Configs, configs) {
			if err := a.put(ctx, KeyAgentConfigs, ConfigsToRaw(s.Configs)); err != nil {
				return err
			}
		}
		return a.put(ctx, KeyChats, RawChats{Chats: []RawChat{ChatToRaw(c)}})
	}); err != nil {
		return nil, err
	}

	return s, nil
}

// rehydrateChats converts chats one by one, dropping those that fail.
func (a *Adapter) rehydrateChats(raw RawChats, configs map[agent.Name]agent.Config) []*chat.Chat {
	chats := make([]*chat.Chat, 0, len(raw.Chats))
	for _, rc := range raw.Chats {
		c, err := ChatFromRaw(rc, configs)
		if err != nil {
			a.logger.Error("dropping unreadable chat", "chat_id", rc.ID, "error", err)
			continue
		}
		chats = append(chats, c)
	}
	return chats
}

// mergeConfigs adds configs missing from dst and reports whether dst changed.
func mergeConfigs(dst, src map[agent.Name]agent.Config) bool {
	changed := false
	for name, cfg := range src {
		if _, ok := dst[name]; !ok {
			dst[name] = cfg
			changed = true
		}
	}
	return changed
}

// fallback runs init when err is a missing or corrupt key and returns any
// other error.
func (a *Adapter) fallback(ctx context.Context, key string, err error, init func() error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, kvstore.ErrNotFound):
		a.logger.Info("initializing missing key", "key", key)
	case errors.Is(err, errCorrupt):
		a.logger.Error("replacing corrupt key with default", "key", key, "error", err)
	default:
		return fmt.Errorf("loading %s: %w", key, err)
	}
	if err := init(); err != nil {
		return fmt.Errorf("initializing %s: %w", key, err)
	}
	return nil
}

func (a *Adapter) loadSettings(ctx context.Context) (RawSettings, error) {
	var raw RawSettings
	if err := a.get(ctx, KeySettings, &raw); err != nil {
		return RawSettings{}, err
	}
	if err := a.openAuth(&raw); err != nil {
		a.logger.Error("discarding sealed credentials", "error", err)
	}
	a.dropStale(&raw)
	if err := SettingsFromRaw(raw, &State{}); err != nil {
		return RawSettings{}, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	return raw, nil
}

// dropStale clears individual settings that no longer parse, such as a
// retired model, so they do not cost the run count and credentials.
func (a *Adapter) dropStale(raw *RawSettings) {
	if raw.SelectedService != "" {
		if _, err := auth.ParseService(raw.SelectedService); err != nil {
			a.logger.Warn("ignoring stored service", "value", raw.SelectedService, "error", err)
			raw.SelectedService = ""
		}
	}
	if raw.OpenAIModel != "" {
		if _, err := generation.ParseModel(raw.OpenAIModel); err != nil {
			a.logger.Warn("ignoring stored model", "value", raw.OpenAIModel, "error", err)
			raw.OpenAIModel = ""
		}
	}
	if raw.Auth != nil {
		if _, err := AuthFromRaw(raw.Auth); err != nil {
			a.logger.Error("discarding stored credentials", "error", err)
			raw.Auth = nil
		}
	}
}

// openAuth replaces sealed_auth with the clear auth object. On failure the
// credentials are dropped and the rest of the settings kept.
func (a *Adapter) openAuth(raw *RawSettings) error {
	if raw.SealedAuth == "" {
		return nil
	}
	sealed := raw.SealedAuth
	raw.SealedAuth = ""
	if a.sealer == nil {
		return fmt.Errorf("credentials are sealed but no passphrase is configured")
	}
	plain, err := a.sealer.Open(sealed)
	if err != nil {
		return err
	}
	var ra RawAuth
	if err := json.Unmarshal(plain, &ra); err != nil {
		return fmt.Errorf("decoding sealed credentials: %w", err)
	}
	raw.Auth = &ra
	return nil
}

func (a *Adapter) sealAuth(raw *RawSettings) error {
	if a.sealer == nil || raw.Auth == nil {
		return nil
	}
	plain, err := json.Marshal(raw.Auth)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	sealed, err := a.sealer.Seal(plain)
	if err != nil {
		return fmt.Errorf("sealing credentials: %w", err)
	}
	raw.Auth = nil
	raw.SealedAuth = sealed
	return nil
}

// Save converts s and writes all three keys. The caller must keep s from
// changing during the call.
func (a *Adapter) Save(ctx context.Context, s *State) error {
	return a.SaveRaw(ctx, ToRaw(s))
}

// SaveRaw writes an already converted state. Calls are serialized.
func (a *Adapter) SaveRaw(ctx context.Context, raw RawState) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	settings := raw.Settings
	if settings.Auth != nil {
		// copy so sealing does not touch the caller's value
		ra := *settings.Auth
		settings.Auth = &ra
	}
	if err := a.sealAuth(&settings); err != nil {
		return err
	}
	if err := a.put(ctx, KeySettings, settings); err != nil {
		return err
	}
	if err := a.put(ctx, KeyAgentConfigs, raw.AgentConfigs); err != nil {
		return err
	}
	if err := a.put(ctx, KeyChats, raw.Chats); err != nil {
		return err
	}
	a.logger.Debug("state saved", "chats", len(raw.Chats.Chats), "configs", len(raw.AgentConfigs.NameToConfigs))
	return nil
}

// LoadRaw reads the three documents without any recovery.
func (a *Adapter) LoadRaw(ctx context.Context) (RawState, error) {
	var raw RawState
	if err := a.get(ctx, KeySettings, &raw.Settings); err != nil {
		return RawState{}, err
	}
	if err := a.openAuth(&raw.Settings); err != nil {
		return RawState{}, err
	}
	if err := a.get(ctx, KeyAgentConfigs, &raw.AgentConfigs); err != nil {
		return RawState{}, err
	}
	if err := a.get(ctx, KeyChats, &raw.Chats); err != nil {
		return RawState{}, err
	}
	return raw, nil
}

func (a *Adapter) get(ctx context.Context, key string, v any) error {
	b, err := a.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", errCorrupt, key, err)
	}
	return nil
}

func (a *Adapter) put(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return a.kv.Set(ctx, key, b)
}
