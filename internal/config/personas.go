// ABOUTME: Persona catalog loading from TOML
// ABOUTME: Falls back to the built-in personas when no catalog is configured

package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/2389/coven-chorus/internal/chat"
)

type personaFile struct {
	Persona []personaEntry `toml:"persona"`
}

type personaEntry struct {
	Name         string `toml:"name"`
	Description  string `toml:"description"`
	Instructions string `toml:"instructions"`
}

// LoadPersonas reads the catalog at path. An empty path yields the built-in
// personas.
func LoadPersonas(path string) ([]chat.Persona, error) {
	if path == "" {
		return chat.DefaultPersonas(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading persona catalog: %w", err)
	}

	var file personaFile
	if _, err := toml.Decode(expandEnvVars(string(data)), &file); err != nil {
		return nil, fmt.Errorf("parsing persona catalog: %w", err)
	}
	if len(file.Persona) == 0 {
		return nil, fmt.Errorf("persona catalog %s defines no personas", path)
	}

	seen := make(map[string]bool, len(file.Persona))
	personas := make([]chat.Persona, 0, len(file.Persona))
	for i, p := range file.Persona {
		if p.Instructions == "" {
			return nil, fmt.Errorf("persona %d (%q): instructions are required", i, p.Name)
		}
		key := p.Name
		if seen[key] {
			return nil, fmt.Errorf("persona %q is defined twice", p.Name)
		}
		seen[key] = true
		personas = append(personas, chat.Persona{
			Name:         p.Name,
			Description:  p.Description,
			Instructions: p.Instructions,
		})
	}
	return personas, nil
}

// WritePersonas encodes personas in the catalog format read by LoadPersonas.
func WritePersonas(w io.Writer, personas []chat.Persona) error {
	file := personaFile{Persona: make([]personaEntry, 0, len(personas))}
	for _, p := range personas {
		file.Persona = append(file.Persona, personaEntry{
			Name:         p.Name,
			Description:  p.Description,
			Instructions: p.Instructions,
		})
	}
	return toml.NewEncoder(w).Encode(file)
}
