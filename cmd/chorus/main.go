// ABOUTME: Entry point for the chorus multi-assistant chat CLI
// ABOUTME: Dispatches subcommands and resolves config and data paths

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

// version is set at build time.
var version = "dev"

const banner = `
       _
   ___| |__   ___  _ __ _   _ ___
  / __| '_ \ / _ \| '__| | | / __|
 | (__| | | | (_) | |  | |_| \__ \
  \___|_| |_|\___/|_|   \__,_|___/
`

// getConfigPath returns the path to the chorus config file.
// Priority: CHORUS_CONFIG env var > XDG_CONFIG_HOME/chorus/chorus.yaml > ~/.config/chorus/chorus.yaml
func getConfigPath() string {
	if envPath := os.Getenv("CHORUS_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "chorus.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "chorus", "chorus.yaml")
}

// getDataPath returns the path to the chorus data directory.
// Priority: XDG_DATA_HOME/chorus > ~/.local/share/chorus
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "chorus")
}

func usage() {
	fmt.Println("Usage: chorus <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  chat                Talk to the assistants in the latest chat")
	fmt.Println("  select N            Talk in chat number N (see chats)")
	fmt.Println("  new [TOPIC]         Start a new chat with the configured assistants")
	fmt.Println("  chats               List chats")
	fmt.Println("  export N [FILE]     Write chat N as an HTML transcript")
	fmt.Println("  login               Store generation service credentials")
	fmt.Println("  init                Create a new config file interactively")
	fmt.Println("  version             Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "chat":
		err = runChat(ctx, "")
	case "select":
		if len(args) < 1 {
			err = fmt.Errorf("usage: chorus select N")
			break
		}
		err = runChat(ctx, args[0])
	case "new":
		err = runNew(ctx, args)
	case "chats":
		err = runChats(ctx)
	case "export":
		err = runExport(ctx, args)
	case "login":
		err = runLogin(ctx)
	case "init":
		err = runInit()
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
