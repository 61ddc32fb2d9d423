// ABOUTME: Subcommands that list, create, export, and authenticate chats
// ABOUTME: Chats are addressed by their 1-based position in the list or by id

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/2389/coven-chorus/internal/auth"
	"github.com/2389/coven-chorus/internal/chat"
	"github.com/2389/coven-chorus/internal/generation"
	"github.com/2389/coven-chorus/internal/storage"
	"github.com/2389/coven-chorus/internal/transcript"
)

// resolveChat finds a chat by 1-based index or id.
func resolveChat(s *storage.State, ref string) (chat.ID, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(s.Chats) {
			return chat.ID{}, fmt.Errorf("no chat number %d (have %d)", n, len(s.Chats))
		}
		return s.Chats[n-1].ID, nil
	}
	id, err := chat.ParseID(ref)
	if err != nil {
		return chat.ID{}, fmt.Errorf("invalid chat reference %q", ref)
	}
	if s.Chat(id) == nil {
		return chat.ID{}, fmt.Errorf("chat %s not found", id)
	}
	return id, nil
}

func printChats(w io.Writer, a *app) {
	selected := a.dispatcher.Selected()
	a.dispatcher.View(func(s *storage.State) {
		for i, c := range s.Chats {
			marker := " "
			if c.ID == selected {
				marker = color.GreenString("*")
			}
			fmt.Fprintf(w, "%s %3d  %s  %s %s\n", marker, i+1,
				color.HiBlackString("%-14s", humanize.Time(c.CreatedAt)),
				c.Topic,
				color.HiBlackString("(%d agents, %d messages)", len(c.Agents), c.Messages.Len()))
		}
	})
}

func runChats(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	printChats(os.Stdout, a)
	return nil
}

func runNew(ctx context.Context, args []string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.dispatcher.NewChat(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Printf("Created chat %s\n", color.CyanString(id.String()))
	return nil
}

func runExport(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: chorus export N [FILE]")
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var w io.Writer = os.Stdout
	if len(args) > 1 {
		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("creating %s: %w", args[1], err)
		}
		defer f.Close()
		w = f
	}

	var exportErr error
	a.dispatcher.View(func(s *storage.State) {
		id, err := resolveChat(s, args[0])
		if err != nil {
			exportErr = err
			return
		}
		exportErr = transcript.WriteHTMLPage(w, s.Chat(id))
	})
	if exportErr != nil {
		return exportErr
	}
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", args[1])
	}
	return nil
}

func runLogin(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	reader := bufio.NewReader(os.Stdin)
	service, err := auth.ParseService(prompt(reader, "Service (openai/azure)", "openai"))
	if err != nil {
		return err
	}

	creds := auth.Credentials{Service: service}
	creds.APIKey = prompt(reader, "API key", "")
	switch service {
	case auth.ServiceOpenAI:
		creds.OrgID = prompt(reader, "Organization ID (optional)", "")
		creds.APIBase = prompt(reader, "API base (optional)", "")
	case auth.ServiceAzureOpenAI:
		creds.APIBase = prompt(reader, "API base", "")
		creds.DeploymentID = prompt(reader, "Deployment ID", "")
		creds.APIVersion = prompt(reader, "API version", auth.DefaultAzureAPIVersion)
	}
	if err := creds.Validate(); err != nil {
		return err
	}

	var current generation.Model
	a.dispatcher.View(func(s *storage.State) {
		current = s.SelectedModel()
	})
	model, err := generation.ParseModel(prompt(reader, fmt.Sprintf("Model (%s)", modelChoices()), current.String()))
	if err != nil {
		return err
	}

	if err := a.dispatcher.Update(ctx, func(s *storage.State) error {
		s.Auth = &creds
		s.Service = &service
		s.Model = &model
		return nil
	}); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	if a.cfg.Auth.SecretEnv == "" || os.Getenv(a.cfg.Auth.SecretEnv) == "" {
		fmt.Println(color.YellowString("Credentials stored unencrypted; set %s to seal them.", a.cfg.Auth.SecretEnv))
	}
	fmt.Println(color.GreenString("Credentials saved for %s", service))
	return nil
}
