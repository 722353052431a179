// Package sync keeps local snapshots of remote table rows consistent with
// the record store by pairing an initial bulk read with a filtered change
// feed subscription. Push events carry no authoritative payload; every event
// triggers a re-fetch of the full snapshot, so a missed or duplicated event
// costs at most one redundant read.
package sync

import (
	"context"
	"encoding/json"
	gosync "sync"

	"go.uber.org/zap"

	"JevanRaksha/pkg/errors"
	"JevanRaksha/pkg/feed"
	"JevanRaksha/pkg/logger"
	"JevanRaksha/pkg/metrics"
	"JevanRaksha/pkg/store"
)

// State is the lifecycle phase of a synchronization hook.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Scope binds a hook to one feed channel and one bulk read.
type Scope[T any] struct {
	// Name labels the hook in logs and metrics.
	Name string

	// Channel and Filter describe the feed subscription.
	Channel string
	Filter  feed.ChangeFilter

	// Fetch performs the bulk read that rebuilds the snapshot.
	Fetch func(ctx context.Context) ([]T, error)

	// Merge, when set, may apply a push event to the current snapshot
	// without a re-fetch. Returning false falls back to the re-fetch path.
	Merge func(current []T, ev feed.Event) ([]T, bool)
}

// Hook mirrors one scoped slice of remote rows. Exactly one feed
// subscription is open per hook; Rescope closes the old subscription before
// opening the new one, and Close makes the terminated state permanent.
type Hook[T any] struct {
	mu    gosync.Mutex
	state State
	data  []T
	err   error

	scope Scope[T]
	feed  feed.Feed
	met   *metrics.Metrics
	sub   feed.Subscription

	// epoch invalidates in-flight fetches across Rescope and Close.
	epoch int

	ctx    context.Context
	cancel context.CancelFunc

	onChange func(State)
}

// NewHook builds an idle hook. Call Start to subscribe and load.
func NewHook[T any](f feed.Feed, met *metrics.Metrics, scope Scope[T]) *Hook[T] {
	return &Hook[T]{scope: scope, feed: f, met: met, state: StateIdle}
}

// OnChange registers a state observer. Set it before Start; the callback
// runs outside the hook lock and must not call back into the hook.
func (h *Hook[T]) OnChange(fn func(State)) { h.onChange = fn }

// Start opens the feed subscription and performs the initial bulk read.
func (h *Hook[T]) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.state == StateTerminated {
		h.mu.Unlock()
		return errors.New("hook is closed")
	}
	if h.state != StateIdle {
		h.mu.Unlock()
		return errors.New("hook already started")
	}
	h.ctx, h.cancel = context.WithCancel(ctx)
	h.state = StateLoading
	epoch := h.epoch
	scope := h.scope
	h.mu.Unlock()
	h.notify(StateLoading)

	if err := h.subscribe(scope, epoch); err != nil {
		return err
	}
	h.refetch(epoch)
	return nil
}

// Rescope rebinds the hook to a new channel and bulk read. The previous
// subscription is closed strictly before the new one opens, so the feed
// never sees both at once.
func (h *Hook[T]) Rescope(scope Scope[T]) error {
	h.mu.Lock()
	if h.state == StateTerminated {
		h.mu.Unlock()
		return errors.New("hook is closed")
	}
	if h.state == StateIdle {
		h.mu.Unlock()
		return errors.New("hook not started")
	}
	old := h.sub
	h.sub = nil
	h.epoch++
	epoch := h.epoch
	h.scope = scope
	h.state = StateLoading
	h.data = nil
	h.err = nil
	h.mu.Unlock()
	h.notify(StateLoading)

	h.drop(old)
	if err := h.subscribe(scope, epoch); err != nil {
		return err
	}
	h.refetch(epoch)
	return nil
}

// Retry re-runs the bulk read after a failure. A no-op in any other state.
func (h *Hook[T]) Retry() {
	h.mu.Lock()
	state, epoch := h.state, h.epoch
	h.mu.Unlock()
	if state == StateError {
		h.refetch(epoch)
	}
}

// Close terminates the hook. Events and fetch results arriving afterwards
// are discarded; the terminated state is a sink.
func (h *Hook[T]) Close() error {
	h.mu.Lock()
	if h.state == StateTerminated {
		h.mu.Unlock()
		return nil
	}
	h.state = StateTerminated
	h.epoch++
	sub := h.sub
	h.sub = nil
	cancel := h.cancel
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.drop(sub)
	h.notify(StateTerminated)
	return nil
}

// State returns the current lifecycle phase.
func (h *Hook[T]) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the fetch error when the hook is in the error state.
func (h *Hook[T]) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Snapshot returns a copy of the current rows.
func (h *Hook[T]) Snapshot() []T {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]T, len(h.data))
	copy(out, h.data)
	return out
}

func (h *Hook[T]) subscribe(scope Scope[T], epoch int) error {
	sub, err := h.feed.Subscribe(scope.Channel, scope.Filter, h.handleEvent)
	if err != nil {
		h.mu.Lock()
		if h.state != StateTerminated && epoch == h.epoch {
			h.state = StateError
			h.err = err
		}
		h.mu.Unlock()
		h.notify(StateError)
		return errors.Wrap(err, "open feed subscription")
	}

	h.mu.Lock()
	if h.state == StateTerminated || epoch != h.epoch {
		h.mu.Unlock()
		_ = sub.Unsubscribe()
		return nil
	}
	h.sub = sub
	h.mu.Unlock()
	if h.met != nil {
		h.met.IncSubscriptions()
	}
	return nil
}

func (h *Hook[T]) drop(sub feed.Subscription) {
	if sub == nil {
		return
	}
	if err := sub.Unsubscribe(); err != nil {
		logger.Warn("unsubscribe failed",
			zap.String("hook", h.scope.Name), zap.Error(err))
	}
	if h.met != nil {
		h.met.DecSubscriptions()
	}
}

// handleEvent runs on the feed read loop and must not block; the re-fetch
// happens on its own goroutine.
func (h *Hook[T]) handleEvent(ev feed.Event) {
	h.mu.Lock()
	if h.state == StateTerminated {
		h.mu.Unlock()
		return
	}
	if h.scope.Merge != nil && ev.Type != feed.EventResync {
		if next, ok := h.scope.Merge(h.data, ev); ok {
			h.data = next
			h.state = StateReady
			h.err = nil
			h.mu.Unlock()
			h.notify(StateReady)
			return
		}
	}
	epoch := h.epoch
	h.mu.Unlock()

	go h.refetch(epoch)
}

// refetch rebuilds the snapshot with the scope's bulk read. Results from a
// superseded epoch, or arriving after Close, are discarded.
func (h *Hook[T]) refetch(epoch int) {
	h.mu.Lock()
	if h.state == StateTerminated || epoch != h.epoch {
		h.mu.Unlock()
		return
	}
	h.state = StateLoading
	fetch := h.scope.Fetch
	name := h.scope.Name
	ctx := h.ctx
	h.mu.Unlock()
	h.notify(StateLoading)
	if h.met != nil {
		h.met.IncSyncRefetch(name)
	}

	rows, err := fetch(ctx)

	h.mu.Lock()
	if h.state == StateTerminated || epoch != h.epoch {
		h.mu.Unlock()
		return
	}
	if err != nil {
		h.state = StateError
		h.err = err
		h.mu.Unlock()
		if h.met != nil {
			h.met.IncSyncError(name)
		}
		logger.Warn("snapshot fetch failed",
			zap.String("hook", name), zap.Error(err))
		h.notify(StateError)
		return
	}
	h.data = rows
	h.err = nil
	h.state = StateReady
	h.mu.Unlock()
	h.notify(StateReady)
}

func (h *Hook[T]) notify(s State) {
	if h.onChange != nil {
		h.onChange(s)
	}
}

func decodeRows[T any](rows []store.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, errors.Wrap(err, "decode row")
		}
		out = append(out, v)
	}
	return out, nil
}
