// ABOUTME: Interactive setup that writes a chorus config file
// ABOUTME: Optionally writes the built-in persona catalog for editing

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/2389/coven-chorus/internal/chat"
	"github.com/2389/coven-chorus/internal/config"
	"github.com/2389/coven-chorus/internal/generation"
	"github.com/2389/coven-chorus/internal/kvstore"
)

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("chorus configuration setup")
	fmt.Println("==========================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	cfg := config.Default(getDataPath())

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Storage Configuration ---")
	cfg.Store.Backend = prompt(reader, "Backend (sqlite/pebble/memory)", cfg.Store.Backend)
	switch cfg.Store.Backend {
	case kvstore.BackendSQLite:
		cfg.Store.Path = prompt(reader, "SQLite database path", cfg.Store.Path)
	case kvstore.BackendPebble:
		cfg.Store.Path = prompt(reader, "Pebble directory", filepath.Join(getDataPath(), "chorus.pebble"))
	default:
		cfg.Store.Path = ""
	}

	fmt.Println("\n--- Generation Configuration ---")
	cfg.Generation.Service = prompt(reader, "Service (openai/azure, empty for any)", "")
	cfg.Generation.Model = prompt(reader, fmt.Sprintf("Model (%s, empty for stored choice)", modelChoices()), "")
	cfg.Generation.StreamTimeoutRaw = prompt(reader, "Per-reply timeout", cfg.Generation.StreamTimeoutRaw)

	fmt.Println("\n--- Credentials ---")
	cfg.Auth.EnvFile = prompt(reader, "Env file with API keys", cfg.Auth.EnvFile)
	cfg.Auth.SecretEnv = prompt(reader, "Env var holding the sealing passphrase", cfg.Auth.SecretEnv)

	fmt.Println("\n--- Personas ---")
	if isYes(prompt(reader, "Write an editable persona catalog?", "no")) {
		cfg.Personas.Path = prompt(reader, "Persona catalog path", filepath.Join(filepath.Dir(outputFile), "personas.toml"))
	}

	fmt.Println("\n--- Logging Configuration ---")
	cfg.Logging.Level = prompt(reader, "Log level (debug/info/warn/error)", cfg.Logging.Level)
	cfg.Logging.Format = prompt(reader, "Log format (text/json)", cfg.Logging.Format)

	fmt.Println("\n--- Metrics ---")
	cfg.Metrics.Enabled = isYes(prompt(reader, "Serve Prometheus metrics?", "no"))
	if cfg.Metrics.Enabled {
		cfg.Metrics.Addr = prompt(reader, "Metrics address", cfg.Metrics.Addr)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	header := "# chorus configuration\n# Generated by chorus init\n\n"

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, append([]byte(header), data...), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Printf("\nConfiguration written to %s\n", color.GreenString(outputFile))

	if cfg.Personas.Path != "" {
		if err := writePersonaCatalog(cfg.Personas.Path); err != nil {
			return err
		}
		fmt.Printf("Persona catalog written to %s\n", color.GreenString(cfg.Personas.Path))
	}
	return nil
}

func writePersonaCatalog(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating persona directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating persona catalog: %w", err)
	}
	defer f.Close()
	return config.WritePersonas(f, chat.DefaultPersonas())
}

// modelChoices lists the supported model names for prompts.
func modelChoices() string {
	models := generation.AllModels()
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.String()
	}
	return strings.Join(names, "/")
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
