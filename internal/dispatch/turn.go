// ABOUTME: Turn handle returned by Submit and the dispatcher phase enum
// ABOUTME: Wait blocks until replies are linearized and the dispatcher is idle

package dispatch

import (
	"github.com/2389/coven-chorus/internal/agent"
	"github.com/2389/coven-chorus/internal/chat"
	"github.com/2389/coven-chorus/internal/message"
)

// Phase is the dispatcher state.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseDispatching
	PhaseStreamingAll
	PhaseLinearizing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDispatching:
		return "dispatching"
	case PhaseStreamingAll:
		return "streaming_all"
	case PhaseLinearizing:
		return "linearizing"
	default:
		return "unknown"
	}
}

// Reply is one assistant's contribution to a turn. Order is the completion
// rank, -1 until the stream finishes. MessageID is zero if no placeholder
// could be created.
type Reply struct {
	AgentID   agent.ID
	MessageID message.ID
	Order     int
	Err       error
}

// TurnResult is the outcome of a finished turn. Replies are sorted by Order.
type TurnResult struct {
	ChatID      chat.ID
	UserMessage message.ID
	Replies     []Reply
}

// Turn tracks a submitted turn.
type Turn struct {
	ChatID      chat.ID
	UserMessage message.ID
	// Pending lists the placeholders in dispatch order.
	Pending []Reply

	done   chan struct{}
	result TurnResult
}

func newTurn(chatID chat.ID, userMsg message.ID, pending []Reply) *Turn {
	return &Turn{
		ChatID:      chatID,
		UserMessage: userMsg,
		Pending:     pending,
		done:        make(chan struct{}),
	}
}

// Done is closed when the turn has finished.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the turn has finished.
func (t *Turn) Wait() TurnResult {
	<-t.done
	return t.result
}

func (t *Turn) finish(result TurnResult) {
	t.result = result
	close(t.done)
}
