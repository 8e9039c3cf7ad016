package hub

import (
	"context"
	"sync"

	"github.com/DoyleJ11/underground-client/internal/broadcast"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

type Join struct {
	ListenerID string
	Outbox     chan Delivery // where this listener wants events
}

type Leave struct {
	ListenerID string
}

type Publish struct {
	Event broadcast.Event
}

type GetView struct {
	Reply chan View
}

type ShutdownHub struct{}

func (Join) isHubMsg()        {}
func (Leave) isHubMsg()       {}
func (Publish) isHubMsg()     {}
func (GetView) isHubMsg()     {}
func (ShutdownHub) isHubMsg() {}

// Delivery is one event stamped with the hub's sequence number.
type Delivery struct {
	Seq   int
	Event broadcast.Event
}

type View struct {
	Seq          int
	NumListeners int
}

// Hub fans broadcast events for one room out to whichever page is active.
type Hub struct {
	mu        sync.RWMutex // guards stopped against in-flight Sends
	stopped   bool
	inbox     chan HubMsg
	seq       int
	listeners map[string]chan Delivery
	ctx       context.Context
	cancel    context.CancelFunc
	log       *zap.Logger
}

func NewHub(parent context.Context, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:     make(chan HubMsg, 64),
		listeners: make(map[string]chan Delivery),
		ctx:       ctx,
		cancel:    cancel,
		log:       logger.Named("hub"),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Send delivers m unless the hub has stopped. A Join accepted here is either
// registered or has its outbox closed by shutdown.
func (h *Hub) Send(m HubMsg) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stopped {
		return false
	}
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Listen joins with a fresh ID. The channel closes if the listener falls
// behind or the hub shuts down.
func (h *Hub) Listen(buffer int) (string, <-chan Delivery) {
	id := uuid.NewString()
	out := make(chan Delivery, buffer)
	if !h.Send(Join{ListenerID: id, Outbox: out}) {
		close(out)
	}
	return id, out
}

func (h *Hub) Unlisten(id string) { h.Send(Leave{ListenerID: id}) }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.listeners[msg.ListenerID] = msg.Outbox

			case Leave:
				delete(h.listeners, msg.ListenerID)

			case Publish:
				h.seq++
				h.broadcast(Delivery{Seq: h.seq, Event: msg.Event})

			case GetView:
				msg.Reply <- View{Seq: h.seq, NumListeners: len(h.listeners)}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	// cancel first so a Send blocked on a full inbox lets go of the lock
	h.cancel()
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()

	for id, ch := range h.listeners {
		close(ch) // Tell listener no more events
		delete(h.listeners, id)
	}
	// Joins queued behind the shutdown still get their outbox closed.
	for {
		select {
		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				close(msg.Outbox)
			case GetView:
				select {
				case msg.Reply <- View{Seq: h.seq}:
				default:
				}
			}
		default:
			return
		}
	}
}

func (h *Hub) broadcast(d Delivery) {
	for id, ch := range h.listeners {
		select {
		case ch <- d:
		default:
			// Listener is slow/full - drop it.
			h.log.Warn("dropping slow listener", zap.String("listener", id), zap.Int("seq", d.Seq))
			close(ch)
			delete(h.listeners, id)
		}
	}
}

// Source is anything that can stream a room's broadcast topics.
type Source interface {
	SubscribeAll(roomID string) (map[broadcast.Topic]<-chan broadcast.Event, error)
}

// Attach pumps every topic of src for roomID into the hub until the topics
// close, ctx ends or the hub stops. The returned channel closes when all
// pumps have finished.
func (h *Hub) Attach(ctx context.Context, src Source, roomID string) (<-chan struct{}, error) {
	chans, err := src.SubscribeAll(roomID)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	for topic, ch := range chans {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-ch:
					if !ok {
						h.log.Debug("topic closed", zap.String("topic", string(topic)))
						return
					}
					if !h.Send(Publish{Event: ev}) {
						return
					}
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done, nil
}
