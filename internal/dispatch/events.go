// ABOUTME: In-memory fan-out of turn events to subscribers of a chat
// ABOUTME: Publishing never blocks; slow subscribers drop events

package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/coven-chorus/internal/agent"
	"github.com/2389/coven-chorus/internal/chat"
	"github.com/2389/coven-chorus/internal/message"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// EventKind tags an Event.
type EventKind int

const (
	EventUserMessage EventKind = iota
	EventReplyStarted
	EventDelta
	EventReplyDone
	EventTurnDone
)

func (k EventKind) String() string {
	switch k {
	case EventUserMessage:
		return "user_message"
	case EventReplyStarted:
		return "reply_started"
	case EventDelta:
		return "delta"
	case EventReplyDone:
		return "reply_done"
	case EventTurnDone:
		return "turn_done"
	default:
		return "unknown"
	}
}

// Event reports progress of a turn. Fields not relevant to Kind are zero.
type Event struct {
	Kind      EventKind
	ChatID    chat.ID
	AgentID   agent.ID
	MessageID message.ID
	Delta     string
	Order     int
	Err       error
}

// EventBroadcaster provides in-memory pub/sub of turn events keyed by chat.
type EventBroadcaster struct {
	mu          sync.RWMutex
	subscribers map[chat.ID]map[string]chan Event
	logger      *slog.Logger
}

// NewEventBroadcaster creates a broadcaster. Pass nil logger for default.
func NewEventBroadcaster(logger *slog.Logger) *EventBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBroadcaster{
		subscribers: make(map[chat.ID]map[string]chan Event),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers for events of chatID. The subscription is removed and
// its channel closed when ctx is cancelled.
func (b *EventBroadcaster) Subscribe(ctx context.Context, chatID chat.ID) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[chatID]; !ok {
		b.subscribers[chatID] = make(map[string]chan Event)
	}
	b.subscribers[chatID][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "chat_id", chatID.String(), "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(chatID, subID)
	}()

	return ch, subID
}

// Publish delivers ev to every subscriber of ev.ChatID. Sends happen under the
// read lock so Unsubscribe cannot close a channel mid-send.
func (b *EventBroadcaster) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers[ev.ChatID] {
		select {
		case ch <- ev:
		default:
			b.logger.Debug("dropped event for slow subscriber",
				"chat_id", ev.ChatID.String(), "sub_id", id, "kind", ev.Kind.String())
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *EventBroadcaster) Unsubscribe(chatID chat.ID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[chatID]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)
	if len(subs) == 0 {
		delete(b.subscribers, chatID)
	}

	b.logger.Debug("subscriber removed", "chat_id", chatID.String(), "sub_id", subID)
}

// Close closes every subscriber channel.
func (b *EventBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for chatID, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, chatID)
	}
	b.logger.Debug("broadcaster closed")
}
