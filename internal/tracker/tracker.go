package tracker

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Msg interface{ isTrackerMsg() }

type Watch[T any] struct {
	WatcherID string
	Outbox    chan Snapshot[T] // where this watcher wants snapshots
}

type Unwatch struct{ WatcherID string }

// Refresh asks for an immediate fetch.
type Refresh struct{}

type Shutdown struct{}

type GetState[T any] struct {
	Reply chan View[T]
}

type fetched[T any] struct {
	state T
	err   error
}

func (Watch[T]) isTrackerMsg()    {}
func (Unwatch) isTrackerMsg()     {}
func (Refresh) isTrackerMsg()     {}
func (Shutdown) isTrackerMsg()    {}
func (GetState[T]) isTrackerMsg() {}
func (fetched[T]) isTrackerMsg()  {}

// Export fields
type Snapshot[T any] struct {
	Version int
	State   T
}

type View[T any] struct {
	Version     int
	NumWatchers int
	State       T
	LastErr     error
}

// Fetcher loads the current server state.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Tracker polls a fetcher and pushes a new versioned snapshot to watchers
// whenever the state changes.
type Tracker[T any] struct {
	inbox    chan Msg
	state    T
	have     bool
	version  int
	lastErr  error
	watchers map[string]chan Snapshot[T]
	fetch    Fetcher[T]
	interval time.Duration
	inflight bool
	ctx      context.Context
	cancel   context.CancelFunc
	log      *zap.Logger
}

// New starts tracking. interval <= 0 disables polling; only Refresh fetches.
func New[T any](parent context.Context, fetch Fetcher[T], interval time.Duration, logger *zap.Logger) *Tracker[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	t := &Tracker[T]{
		inbox:    make(chan Msg, 64), // Small buffer
		watchers: make(map[string]chan Snapshot[T]),
		fetch:    fetch,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		log:      logger.Named("tracker"),
	}
	go t.loop()
	return t
}

// Expose the inbox so tests or pages can send messages.
func (t *Tracker[T]) Inbox() chan<- Msg { return t.inbox }

func (t *Tracker[T]) send(m Msg) bool {
	if t.ctx.Err() != nil {
		return false
	}
	select {
	case t.inbox <- m:
		return true
	case <-t.ctx.Done():
		return false
	}
}

// Watch registers a watcher. It gets the current snapshot right away if
// one has been fetched.
func (t *Tracker[T]) Watch(buffer int) (string, <-chan Snapshot[T]) {
	id := uuid.NewString()
	out := make(chan Snapshot[T], buffer)
	if !t.send(Watch[T]{WatcherID: id, Outbox: out}) {
		close(out)
	}
	return id, out
}

func (t *Tracker[T]) Unwatch(id string) { t.send(Unwatch{WatcherID: id}) }

func (t *Tracker[T]) Refresh() { t.send(Refresh{}) }

func (t *Tracker[T]) Stop() { t.send(Shutdown{}) }

func (t *Tracker[T]) loop() {
	var tick <-chan time.Time
	if t.interval > 0 {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	t.poll()

	for {
		select {
		case <-t.ctx.Done():
			t.shutdown()
			return

		case <-tick:
			t.poll()

		case m := <-t.inbox:
			switch msg := m.(type) {
			case Watch[T]:
				// Register watcher + send current snapshot immediately
				t.watchers[msg.WatcherID] = msg.Outbox
				if t.have {
					select {
					case msg.Outbox <- Snapshot[T]{Version: t.version, State: t.state}:
					default:
					}
				}

			case Unwatch:
				delete(t.watchers, msg.WatcherID)

			case Refresh:
				t.poll()

			case fetched[T]:
				t.inflight = false
				if msg.err != nil {
					t.lastErr = msg.err
					t.log.Warn("fetch failed", zap.Error(msg.err))
					break
				}
				t.lastErr = nil
				if t.have && reflect.DeepEqual(t.state, msg.state) {
					break
				}
				t.state = msg.state
				t.have = true
				t.version++
				t.broadcast(Snapshot[T]{Version: t.version, State: t.state})

			case GetState[T]:
				msg.Reply <- View[T]{
					Version:     t.version,
					NumWatchers: len(t.watchers),
					State:       t.state,
					LastErr:     t.lastErr,
				}

			case Shutdown:
				t.shutdown()
				return
			}
		}
	}
}

// poll runs one fetch off the loop goroutine; at most one is in flight.
func (t *Tracker[T]) poll() {
	if t.inflight {
		return
	}
	t.inflight = true
	go func() {
		st, err := t.fetch(t.ctx)
		t.send(fetched[T]{state: st, err: err})
	}()
}

func (t *Tracker[T]) shutdown() {
	t.cancel()
	for id, ch := range t.watchers {
		close(ch) // Tell watcher no more snapshots
		delete(t.watchers, id)
	}
}

func (t *Tracker[T]) broadcast(snap Snapshot[T]) {
	for id, ch := range t.watchers {
		select {
		case ch <- snap:
			//ok
		default:
			// Watcher is slow/full - drop them.
			close(ch)
			delete(t.watchers, id)
		}
	}
}
