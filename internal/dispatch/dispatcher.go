// ABOUTME: Dispatcher drives a turn: record the user message, fan out to assistants, linearize
// ABOUTME: Owns the streaming flag, phase state machine, chat selection, and persistence checkpoints

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2389/coven-chorus/internal/agent"
	"github.com/2389/coven-chorus/internal/auth"
	"github.com/2389/coven-chorus/internal/chat"
	"github.com/2389/coven-chorus/internal/generation"
	"github.com/2389/coven-chorus/internal/message"
	"github.com/2389/coven-chorus/internal/metrics"
	"github.com/2389/coven-chorus/internal/storage"
)

var (
	// ErrBusy is returned when a turn is already streaming
	ErrBusy = errors.New("a turn is already in progress")

	// ErrChatNotFound is returned when the selected or requested chat does not exist
	ErrChatNotFound = errors.New("chat not found")
)

// saveTimeout bounds each persistence checkpoint.
const saveTimeout = 5 * time.Second

// Saver persists a converted state.
type Saver interface {
	SaveRaw(ctx context.Context, raw storage.RawState) error
}

// Dispatcher runs turns against the selected chat of a state.
type Dispatcher struct {
	mu       sync.RWMutex
	state    *storage.State
	selected chat.ID

	saver     Saver
	saveMu    sync.Mutex
	connector generation.Connector

	streaming atomic.Bool
	phase     atomic.Int32

	streamTimeout time.Duration
	events        *EventBroadcaster
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithMetrics enables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithStreamTimeout bounds each assistant's stream. Zero means no bound.
func WithStreamTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.streamTimeout = timeout }
}

// New creates a Dispatcher. The last chat of state is selected. saver may be
// nil, in which case nothing is persisted.
func New(state *storage.State, saver Saver, connector generation.Connector, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		state:     state,
		saver:     saver,
		connector: connector,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.logger = d.logger.With("component", "dispatcher")
	d.events = NewEventBroadcaster(d.logger)
	if n := len(state.Chats); n > 0 {
		d.selected = state.Chats[n-1].ID
	}
	return d
}

// Phase returns the current state machine phase.
func (d *Dispatcher) Phase() Phase {
	return Phase(d.phase.Load())
}

// Streaming reports whether a turn is in flight. While true, submissions
// and chat switches are rejected with ErrBusy.
func (d *Dispatcher) Streaming() bool {
	return d.streaming.Load()
}

// Selected returns the id of the chat turns are submitted to.
func (d *Dispatcher) Selected() chat.ID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selected
}

// View runs fn with shared access to the state. fn must not retain or
// modify anything it is given.
func (d *Dispatcher) View(fn func(s *storage.State)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.state)
}

// Update runs fn with exclusive access to the state and saves the result.
// It is meant for settings; chats are modified only by turns.
func (d *Dispatcher) Update(ctx context.Context, fn func(s *storage.State) error) error {
	d.mu.Lock()
	err := fn(d.state)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	return d.save(ctx, "update")
}

// Subscribe streams events of chatID until ctx is cancelled.
func (d *Dispatcher) Subscribe(ctx context.Context, chatID chat.ID) <-chan Event {
	ch, _ := d.events.Subscribe(ctx, chatID)
	return ch
}

// Close releases subscriber channels.
func (d *Dispatcher) Close() {
	d.events.Close()
}

// NewChat appends a chat built from the stored agent configs and selects it.
func (d *Dispatcher) NewChat(ctx context.Context, topic string) (chat.ID, error) {
	if !d.streaming.CompareAndSwap(false, true) {
		d.metrics.Rejected("busy")
		return chat.ID{}, ErrBusy
	}
	defer d.streaming.Store(false)

	d.mu.Lock()
	c, err := chat.FromConfigs(topic, d.state.Configs)
	if err != nil {
		d.mu.Unlock()
		return chat.ID{}, err
	}
	d.state.Chats = append(d.state.Chats, c)
	d.selected = c.ID
	d.mu.Unlock()

	d.logger.Info("chat created", "chat_id", c.ID.String(), "agents", len(c.Agents))
	return c.ID, d.save(ctx, "new_chat")
}

// SelectChat makes id the target of subsequent turns.
func (d *Dispatcher) SelectChat(id chat.ID) error {
	if !d.streaming.CompareAndSwap(false, true) {
		d.metrics.Rejected("busy")
		return ErrBusy
	}
	defer d.streaming.Store(false)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Chat(id) == nil {
		return fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}
	d.selected = id
	return nil
}

func (d *Dispatcher) setPhase(p Phase) {
	d.phase.Store(int32(p))
}

// reject releases the streaming flag claimed by Submit.
func (d *Dispatcher) reject(reason string, err error) (*Turn, error) {
	d.setPhase(PhaseIdle)
	d.streaming.Store(false)
	d.metrics.Rejected(reason)
	d.logger.Warn("submission rejected", "reason", reason, "error", err)
	return nil, err
}

// Submit starts a turn on the selected chat. It returns once the user
// message is recorded and checkpointed and every placeholder exists; the
// streams run in the background. Nothing is mutated when an error is
// returned.
func (d *Dispatcher) Submit(ctx context.Context, text string) (*Turn, error) {
	if !d.streaming.CompareAndSwap(false, true) {
		d.metrics.Rejected("busy")
		return nil, ErrBusy
	}
	d.setPhase(PhaseDispatching)
	started := time.Now()

	gen, err := d.connector.Connect(ctx)
	if err != nil {
		reason := "connect"
		if errors.Is(err, auth.ErrNoCredentials) {
			reason = "no_credentials"
		}
		return d.reject(reason, fmt.Errorf("connecting to generation service: %w", err))
	}

	d.mu.Lock()
	c := d.state.Chat(d.selected)
	if c == nil {
		d.mu.Unlock()
		return d.reject("chat", fmt.Errorf("%w: %s", ErrChatNotFound, d.selected))
	}
	user, err := c.SoleUser()
	if err != nil {
		d.mu.Unlock()
		return d.reject("precondition", err)
	}
	assistants := sortedAssistants(c)

	userMsg := c.Messages.Insert(user.Compose(text))
	c.Broadcast(userMsg)
	model := d.state.SelectedModel()
	d.mu.Unlock()

	log := d.logger.With("chat_id", c.ID.String())
	log.Info("turn started", "user_message", userMsg.String(), "assistants", len(assistants))
	d.events.Publish(Event{Kind: EventUserMessage, ChatID: c.ID, AgentID: user.ID, MessageID: userMsg})

	if err := d.save(ctx, "checkpoint"); err != nil {
		log.Error("checkpoint failed, continuing turn", "error", err)
	}

	d.setPhase(PhaseStreamingAll)
	jobs := d.prepare(c, user.ID, assistants)

	pending := make([]Reply, len(jobs))
	for i, j := range jobs {
		pending[i] = j.reply
	}
	turn := newTurn(c.ID, userMsg, pending)

	go d.run(context.WithoutCancel(ctx), turn, c, gen, model, jobs, started)
	return turn, nil
}

// job is one assistant's share of a turn.
type job struct {
	reply   Reply
	context []message.Message
}

func sortedAssistants(c *chat.Chat) []*agent.Instance {
	out := make([]*agent.Instance, 0, len(c.Agents))
	for id := range c.AssistantAgentIDs() {
		out = append(out, c.Agents[id])
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := out[i].Config.Name.String(), out[j].Config.Name.String()
		if ni != nj {
			return ni < nj
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// prepare builds each assistant's context from its own history and inserts
// its placeholder, visible to the assistant itself and to the user only.
func (d *Dispatcher) prepare(c *chat.Chat, userID agent.ID, assistants []*agent.Instance) []job {
	d.mu.Lock()
	defer d.mu.Unlock()

	user := c.Agents[userID]
	jobs := make([]job, 0, len(assistants))
	for _, a := range assistants {
		j := job{reply: Reply{AgentID: a.ID, Order: -1}}
		msgs, err := c.Context(a.ID)
		if err != nil {
			j.reply.Err = err
			jobs = append(jobs, j)
			continue
		}
		j.context = msgs
		j.reply.MessageID = c.Messages.Insert(a.Compose(""))
		a.Push(j.reply.MessageID)
		user.Push(j.reply.MessageID)
		jobs = append(jobs, j)
	}
	return jobs
}

func (d *Dispatcher) run(ctx context.Context, turn *Turn, c *chat.Chat, gen generation.Generator, model generation.Model, jobs []job, started time.Time) {
	var (
		counter atomic.Int64
		wg      sync.WaitGroup
	)
	replies := make([]Reply, len(jobs))
	for i := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			replies[i] = d.stream(ctx, c, gen, model, jobs[i], &counter)
		}()
	}
	wg.Wait()

	d.setPhase(PhaseLinearizing)
	sort.Slice(replies, func(i, j int) bool { return replies[i].Order < replies[j].Order })

	d.mu.Lock()
	linearize(c, replies)
	d.mu.Unlock()

	if err := d.save(ctx, "turn"); err != nil {
		d.logger.Error("saving turn failed", "chat_id", c.ID.String(), "error", err)
	}

	elapsed := time.Since(started)
	d.metrics.TurnDone(elapsed)
	d.logger.Info("turn finished", "chat_id", c.ID.String(), "replies", len(replies), "elapsed", elapsed)

	d.setPhase(PhaseIdle)
	d.streaming.Store(false)
	d.events.Publish(Event{Kind: EventTurnDone, ChatID: c.ID, MessageID: turn.UserMessage})
	turn.finish(TurnResult{ChatID: c.ID, UserMessage: turn.UserMessage, Replies: replies})
}

// stream consumes one assistant's generation into its placeholder and takes
// a completion rank when it ends, whether or not it failed.
func (d *Dispatcher) stream(ctx context.Context, c *chat.Chat, gen generation.Generator, model generation.Model, j job, counter *atomic.Int64) Reply {
	reply := j.reply
	log := d.logger.With("chat_id", c.ID.String(), "agent_id", reply.AgentID.String())

	if reply.Err == nil {
		log = log.With("message_id", reply.MessageID.String())
		d.events.Publish(Event{Kind: EventReplyStarted, ChatID: c.ID, AgentID: reply.AgentID, MessageID: reply.MessageID})

		if d.streamTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.streamTimeout)
			defer cancel()
		}
		reply.Err = d.consume(ctx, c, gen, &generation.Request{Model: model, Messages: j.context}, reply)
	}

	reply.Order = int(counter.Add(1) - 1)
	if reply.Err != nil {
		log.Error("assistant generation failed", "order", reply.Order, "error", reply.Err)
	} else {
		log.Debug("assistant reply complete", "order", reply.Order)
	}
	d.metrics.Reply(reply.Err)
	d.events.Publish(Event{
		Kind:      EventReplyDone,
		ChatID:    c.ID,
		AgentID:   reply.AgentID,
		MessageID: reply.MessageID,
		Order:     reply.Order,
		Err:       reply.Err,
	})
	return reply
}

// consume applies deltas in receipt order. The lock is held only for each
// in-memory append.
func (d *Dispatcher) consume(ctx context.Context, c *chat.Chat, gen generation.Generator, req *generation.Request, reply Reply) error {
	chunks, err := gen.CreateStream(ctx, req)
	if err != nil {
		return fmt.Errorf("creating stream: %w", err)
	}

	var streamErr error
	for chunk := range chunks {
		if chunk.Err != nil {
			if streamErr == nil {
				streamErr = chunk.Err
			}
			continue
		}
		delta, ok := chunk.Content()
		if !ok || delta == "" {
			continue
		}

		d.mu.Lock()
		err := c.Messages.AppendContent(reply.MessageID, delta)
		d.mu.Unlock()
		if err != nil {
			return fmt.Errorf("applying delta: %w", err)
		}

		d.metrics.Delta()
		d.events.Publish(Event{Kind: EventDelta, ChatID: c.ID, AgentID: reply.AgentID, MessageID: reply.MessageID, Delta: delta})
	}
	return streamErr
}

// linearize gives every assistant the turn's replies in completion order.
// Each assistant already holds its own placeholder, which is moved into
// place rather than duplicated. replies must be sorted by Order.
func linearize(c *chat.Chat, replies []Reply) {
	ordered := make([]message.ID, 0, len(replies))
	inTurn := make(map[message.ID]struct{}, len(replies))
	for _, r := range replies {
		if r.MessageID.IsZero() {
			continue
		}
		ordered = append(ordered, r.MessageID)
		inTurn[r.MessageID] = struct{}{}
	}
	if len(ordered) == 0 {
		return
	}

	for id := range c.AssistantAgentIDs() {
		a := c.Agents[id]
		a.History = slices.DeleteFunc(a.History, func(m message.ID) bool {
			_, ok := inTurn[m]
			return ok
		})
		a.History = append(a.History, ordered...)
	}
}

// save snapshots the state under the read lock and writes it. Snapshots are
// serialized so an older one never overwrites a newer one.
func (d *Dispatcher) save(ctx context.Context, reason string) error {
	if d.saver == nil {
		return nil
	}
	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	d.mu.RLock()
	raw := storage.ToRaw(d.state)
	d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	err := d.saver.SaveRaw(ctx, raw)
	d.metrics.Save(err)
	if err != nil {
		return fmt.Errorf("saving state (%s): %w", reason, err)
	}
	d.logger.Debug("state saved", "reason", reason)
	return nil
}
