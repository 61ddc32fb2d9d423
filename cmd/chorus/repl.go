// ABOUTME: Interactive chat loop that submits turns and prints linearized replies
// ABOUTME: Shows a waiting indicator while assistants stream

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/coven-chorus/internal/dispatch"
	"github.com/2389/coven-chorus/internal/message"
	"github.com/2389/coven-chorus/internal/storage"
	"github.com/2389/coven-chorus/internal/transcript"
)

const replHelp = `Commands:
  /new [TOPIC]   start a new chat
  /chats         list chats
  /select N      switch to chat N
  /history       show the current chat
  /quit          exit`

func runChat(ctx context.Context, ref string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if ref != "" {
		if err := selectRef(a, ref); err != nil {
			return err
		}
	}

	fmt.Print(color.CyanString(banner))
	printHeader(a)
	fmt.Println(color.HiBlackString("Type /help for commands."))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print(color.GreenString("> "))
		var line string
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Println()
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := runReplCommand(ctx, a, line)
			if err != nil {
				fmt.Println(color.RedString("%v", err))
			}
			if quit {
				return nil
			}
			continue
		}

		if err := submit(ctx, a, line); err != nil {
			fmt.Println(color.RedString("%v", err))
		}
	}
}

func runReplCommand(ctx context.Context, a *app, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Println(replHelp)
	case "/chats":
		printChats(os.Stdout, a)
	case "/new":
		if _, err := a.dispatcher.NewChat(ctx, strings.Join(fields[1:], " ")); err != nil {
			return false, err
		}
		printHeader(a)
	case "/select":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /select N")
		}
		if err := selectRef(a, fields[1]); err != nil {
			return false, err
		}
		printHeader(a)
	case "/history":
		return false, printHistory(a)
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
	return false, nil
}

func selectRef(a *app, ref string) error {
	var resolveErr error
	target := a.dispatcher.Selected()
	a.dispatcher.View(func(s *storage.State) {
		target, resolveErr = resolveChat(s, ref)
	})
	if resolveErr != nil {
		return resolveErr
	}
	return a.dispatcher.SelectChat(target)
}

func printHeader(a *app) {
	id := a.dispatcher.Selected()
	a.dispatcher.View(func(s *storage.State) {
		c := s.Chat(id)
		if c == nil {
			return
		}
		var names []string
		for aid := range c.AssistantAgentIDs() {
			if inst, err := c.Agent(aid); err == nil {
				names = append(names, inst.Author())
			}
		}
		slices.Sort(names)
		fmt.Printf("%s %s\n", color.New(color.Bold).Sprint(c.Topic), color.HiBlackString("with %s", strings.Join(names, ", ")))
	})
}

func printHistory(a *app) error {
	id := a.dispatcher.Selected()
	var out string
	var err error
	a.dispatcher.View(func(s *storage.State) {
		c := s.Chat(id)
		if c == nil {
			err = dispatch.ErrChatNotFound
			return
		}
		out, err = transcript.Markdown(c)
	})
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func submit(ctx context.Context, a *app, text string) error {
	turn, events, stop, err := startTurn(ctx, a.dispatcher, text)
	if err != nil {
		if errors.Is(err, dispatch.ErrBusy) {
			return fmt.Errorf("still waiting on the last turn")
		}
		return err
	}
	defer stop()

	result := waitWithIndicator(ctx, a, turn, events)
	printReplies(a, result)
	return nil
}

// startTurn subscribes to the selected chat before submitting, so events
// from streams that end at once are not missed. stop ends the subscription.
func startTurn(ctx context.Context, d *dispatch.Dispatcher, text string) (*dispatch.Turn, <-chan dispatch.Event, context.CancelFunc, error) {
	subCtx, stop := context.WithCancel(context.Background())
	events := d.Subscribe(subCtx, d.Selected())

	turn, err := d.Submit(ctx, text)
	if err != nil {
		stop()
		return nil, nil, nil, err
	}
	return turn, events, stop, nil
}

// waitWithIndicator cycles the configured waiting icons until the turn
// finishes. An interrupt does not abandon the turn; its replies are still
// saved once the streams end.
func waitWithIndicator(ctx context.Context, a *app, turn *dispatch.Turn, events <-chan dispatch.Event) dispatch.TurnResult {
	var icons []string
	a.dispatcher.View(func(s *storage.State) {
		icons = s.Customization.WaitingIcons
	})
	if len(icons) == 0 {
		icons = storage.DefaultCustomization().WaitingIcons
	}

	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	total := len(turn.Pending)
	done := 0
	frame := 0
	interrupted := ctx.Done()
	draw := func() {
		fmt.Printf("\r\033[K%s %s", color.YellowString(icons[frame%len(icons)]), color.HiBlackString("%d/%d replies", done, total))
	}
	draw()

	for {
		select {
		case <-turn.Done():
			fmt.Print("\r\033[K")
			return turn.Wait()
		case ev, ok := <-events:
			if ok && ev.Kind == dispatch.EventReplyDone {
				done++
				draw()
			}
			if !ok {
				events = nil
			}
		case <-ticker.C:
			frame++
			draw()
		case <-interrupted:
			interrupted = nil
			fmt.Print("\r\033[K")
			fmt.Println(color.YellowString("waiting for streams to finish before exiting"))
		}
	}
}

func printReplies(a *app, result dispatch.TurnResult) {
	a.dispatcher.View(func(s *storage.State) {
		c := s.Chat(result.ChatID)
		if c == nil {
			return
		}
		for _, r := range result.Replies {
			inst, err := c.Agent(r.AgentID)
			if err != nil {
				continue
			}
			fmt.Println(color.New(color.FgCyan, color.Bold).Sprint(inst.Author()))
			var msg message.Message
			if !r.MessageID.IsZero() {
				msg, _ = c.Messages.Get(r.MessageID)
			}
			if content := strings.TrimSpace(msg.Content); content != "" {
				fmt.Println(content)
			}
			if r.Err != nil {
				fmt.Println(color.RedString("  (%v)", r.Err))
			}
			fmt.Println()
		}
	})
}
