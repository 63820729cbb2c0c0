package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/smartguide/smartguide/pkg/llm"
	"github.com/smartguide/smartguide/pkg/sse"
)

var (
	// ErrBusy is returned by Send while a previous turn is still loading.
	ErrBusy = errors.New("chat: a response is already in progress")

	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("chat: message is empty")
)

// State is a snapshot of the conversation as presented to the UI.
type State struct {
	Messages []Turn
	Loading  bool

	// Notice is the last relay error shown to the user, if any.
	Notice string
}

// Orchestrator drives a conversation: it appends the user's turn, calls the
// relay, streams the reply into an in-progress assistant turn and keeps the
// loading flag. Only one relay call is in flight at a time.
type Orchestrator struct {
	relay     Relayer
	store     *Store
	logger    *zap.Logger
	observers []func(State)

	mu      sync.Mutex
	loading bool
	notice  string
	cancel  context.CancelFunc
	// cycle is bumped by Clear so a cancelled Send cannot touch newer state.
	cycle uint64
	// inflight is closed when the most recent Send returns.
	inflight chan struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers fn to be called with a fresh State after every
// change. Observers may be called from several goroutines.
func WithObserver(fn func(State)) Option {
	return func(o *Orchestrator) {
		o.observers = append(o.observers, fn)
	}
}

// WithStore uses store instead of a new empty one.
func WithStore(store *Store) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// New creates an Orchestrator that talks to relay.
func New(relay Relayer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		relay:  relay,
		store:  NewStore(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Send submits text as a user turn and blocks until the assistant reply has
// finished streaming, the relay fails or ctx is cancelled. Blank text returns
// ErrEmptyMessage and a call made while another is loading returns ErrBusy;
// neither changes the conversation.
//
// A relay failure is recorded as the state's notice and returned. No partial
// assistant turn is kept for it. When ctx is cancelled the stream is
// abandoned, its connection released and whatever text arrived is kept.
func (o *Orchestrator) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	if o.loading {
		o.mu.Unlock()
		return ErrBusy
	}
	o.loading = true
	o.notice = ""
	o.cancel = cancel
	cycle := o.cycle
	prev := o.inflight
	inflight := make(chan struct{})
	o.inflight = inflight
	o.store.Append(llm.RoleUser, text)
	history := o.store.History()
	o.mu.Unlock()
	defer close(inflight)
	o.notify()

	err := waitFor(ctx, prev)
	if err == nil {
		o.logger.Debug("sending conversation to relay", zap.Int("message_count", len(history)))
		err = o.run(ctx, cycle, history)
	}
	o.finish(cycle, err)
	return err
}

// waitFor blocks until a Send abandoned by Clear has returned, keeping relay
// calls strictly one at a time.
func waitFor(ctx context.Context, prev <-chan struct{}) error {
	if prev == nil {
		return nil
	}
	select {
	case <-prev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run(ctx context.Context, cycle uint64, history []llm.Message) error {
	body, err := o.relay.Stream(ctx, history)
	if err != nil {
		return err
	}

	turn, err := o.beginAssistant(cycle)
	if err != nil {
		body.Close()
		return err
	}
	o.notify()

	for delta, err := range sse.Deltas(ctx, body, sse.WithLogger(o.logger)) {
		if err != nil {
			if ctx.Err() != nil {
				o.settle(turn.ID)
			} else {
				o.store.Discard(turn.ID)
			}
			return err
		}
		if !o.store.AppendDelta(turn.ID, delta) {
			// Cleared underneath us.
			return context.Canceled
		}
		o.notify()
	}

	o.store.Finalize(turn.ID)
	return nil
}

func (o *Orchestrator) beginAssistant(cycle uint64) (Turn, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cycle != cycle {
		return Turn{}, context.Canceled
	}
	return o.store.BeginAssistant()
}

// settle finalizes a turn interrupted by cancellation, dropping it if no text
// arrived.
func (o *Orchestrator) settle(id string) {
	for _, t := range o.store.Messages() {
		if t.ID == id && t.Content == "" {
			o.store.Discard(id)
			return
		}
	}
	o.store.Finalize(id)
}

func (o *Orchestrator) finish(cycle uint64, err error) {
	cancelled := errors.Is(err, context.Canceled)

	o.mu.Lock()
	if o.cycle == cycle {
		o.loading = false
		o.cancel = nil
		if err != nil && !cancelled {
			o.notice = noticeFor(err)
		}
	}
	o.mu.Unlock()

	switch {
	case err == nil:
		o.logger.Debug("assistant turn complete")
	case cancelled:
		o.logger.Debug("assistant turn cancelled")
	default:
		o.logger.Warn("assistant turn failed", zap.Error(err))
	}

	o.notify()
}

// Clear empties the conversation regardless of the loading state. An
// in-flight stream is cancelled and its late deltas are dropped. A Send made
// right after Clear is accepted at once but only reaches the relay after the
// cancelled call has returned.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	o.cycle++
	cancel := o.cancel
	o.cancel = nil
	o.loading = false
	o.notice = ""
	o.store.Clear()
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.notify()
}

// Messages returns the conversation in display order.
func (o *Orchestrator) Messages() []Turn {
	return o.store.Messages()
}

// IsLoading reports whether a Send is in flight.
func (o *Orchestrator) IsLoading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loading
}

// State returns a snapshot of messages, loading flag and notice.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return State{
		Messages: o.store.Messages(),
		Loading:  o.loading,
		Notice:   o.notice,
	}
}

func (o *Orchestrator) notify() {
	if len(o.observers) == 0 {
		return
	}
	st := o.State()
	for _, fn := range o.observers {
		fn(st)
	}
}

func noticeFor(err error) string {
	var relayErr *RelayError
	if errors.As(err, &relayErr) {
		return relayErr.Message
	}
	return err.Error()
}
