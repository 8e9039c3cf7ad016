package apitest

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/go-stomp/stomp/v3/frame"
	"go.uber.org/zap"
)

// Broker is a minimal STOMP 1.2 broker speaking over a websocket, enough to
// stand in for the backend's /ws endpoint.
type Broker struct {
	mu       sync.Mutex
	sessions map[*session]struct{}
	msgID    atomic.Int64
	log      *zap.Logger
}

type session struct {
	wmu  sync.Mutex
	w    *frame.Writer
	subs map[string]string // subscription id -> destination
}

func NewBroker(logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{sessions: make(map[*session]struct{}), log: logger.Named("broker")}
}

func (s *session) write(f *frame.Frame) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.w.Write(f)
}

func (b *Broker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.CloseNow()

		nc := websocket.NetConn(r.Context(), conn, websocket.MessageText)
		sess := &session{w: frame.NewWriter(nc), subs: make(map[string]string)}
		b.mu.Lock()
		b.sessions[sess] = struct{}{}
		b.mu.Unlock()
		defer func() {
			b.mu.Lock()
			delete(b.sessions, sess)
			b.mu.Unlock()
		}()

		rd := frame.NewReader(nc)
		for {
			f, err := rd.Read()
			if err != nil {
				return
			}
			if f == nil {
				// heart-beat
				continue
			}
			b.handle(sess, f)
		}
	}
}

// handle processes one client frame.
func (b *Broker) handle(sess *session, f *frame.Frame) {
	switch f.Command {
	case frame.CONNECT, frame.STOMP:
		_ = sess.write(frame.New(frame.CONNECTED, frame.Version, "1.2", frame.HeartBeat, "0,0"))
	case frame.SUBSCRIBE:
		b.mu.Lock()
		sess.subs[f.Header.Get(frame.Id)] = f.Header.Get(frame.Destination)
		b.mu.Unlock()
	case frame.UNSUBSCRIBE:
		b.mu.Lock()
		delete(sess.subs, f.Header.Get(frame.Id))
		b.mu.Unlock()
	case frame.DISCONNECT:
		// the client closes the socket once it sees the receipt
		b.mu.Lock()
		clear(sess.subs)
		b.mu.Unlock()
	case frame.SEND:
		b.Broadcast(f.Header.Get(frame.Destination), string(f.Body))
	default:
		b.log.Debug("ignored frame", zap.String("command", f.Command))
	}

	if receipt := f.Header.Get(frame.Receipt); receipt != "" {
		_ = sess.write(frame.New(frame.RECEIPT, frame.ReceiptId, receipt))
	}
}

// Broadcast sends body to every subscriber of dest and returns how many
// subscriptions it reached.
func (b *Broker) Broadcast(dest, body string) int {
	type target struct {
		sess  *session
		subID string
	}
	var targets []target
	b.mu.Lock()
	for sess := range b.sessions {
		for id, d := range sess.subs {
			if d == dest {
				targets = append(targets, target{sess, id})
			}
		}
	}
	b.mu.Unlock()

	sent := 0
	for _, t := range targets {
		f := frame.New(frame.MESSAGE,
			frame.Destination, dest,
			frame.Subscription, t.subID,
			frame.MessageId, strconv.FormatInt(b.msgID.Add(1), 10),
			frame.ContentType, "text/plain;charset=UTF-8",
		)
		f.Body = []byte(body)
		if err := t.sess.write(f); err != nil {
			b.log.Debug("broadcast failed", zap.String("dest", dest), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

func (b *Broker) Subscribers(dest string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for sess := range b.sessions {
		for _, d := range sess.subs {
			if d == dest {
				n++
			}
		}
	}
	return n
}

// WaitSubscribers polls until dest has at least n subscribers.
func (b *Broker) WaitSubscribers(dest string, n int, within time.Duration) bool {
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if b.Subscribers(dest) >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return b.Subscribers(dest) >= n
}
