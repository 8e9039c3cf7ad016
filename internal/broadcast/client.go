package broadcast

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-stomp/stomp/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("broadcast client closed")

const (
	readLimit    = 1 << 20
	closeTimeout = 3 * time.Second
	eventBuffer  = 16
)

// Client is one STOMP session over the backend's SockJS websocket transport.
type Client struct {
	ws    *websocket.Conn
	stomp *stomp.Conn
	log   *zap.Logger

	mu     sync.Mutex
	subs   []*stomp.Subscription
	closed bool
	done   chan struct{}
}

// WebSocketURL maps the backend's http base URL onto its websocket endpoint.
func WebSocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	return u.String(), nil
}

func Dial(ctx context.Context, wsURL string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("broadcast")

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	conn.SetReadLimit(readLimit)

	// The net.Conn outlives ctx; Close tears it down.
	nc := websocket.NetConn(context.Background(), conn, websocket.MessageText)
	sc, err := stomp.Connect(nc,
		stomp.ConnOpt.Host("/"),
		stomp.ConnOpt.HeartBeat(0, 0),
	)
	if err != nil {
		_ = conn.CloseNow()
		return nil, fmt.Errorf("stomp connect: %w", err)
	}

	log.Debug("connected", zap.String("url", wsURL))
	return &Client{ws: conn, stomp: sc, log: log, done: make(chan struct{})}, nil
}

// Subscribe streams decoded events from one room topic. The channel closes
// when the subscription ends.
func (c *Client) Subscribe(topic Topic, roomID string) (<-chan Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	dest := topic.Destination(roomID)
	sub, err := c.stomp.Subscribe(dest, stomp.AckAuto)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", dest, err)
	}
	c.subs = append(c.subs, sub)

	out := make(chan Event, eventBuffer)
	go func() {
		defer close(out)
		for msg := range sub.C {
			if msg.Err != nil {
				c.log.Debug("subscription ended", zap.String("dest", dest), zap.Error(msg.Err))
				return
			}
			ev := Decode(topic, msg.Body)
			c.log.Debug("event", zap.String("dest", dest), zap.String("kind", string(ev.Kind)), zap.String("raw", ev.Raw))
			select {
			case out <- ev:
			case <-c.done:
			}
		}
	}()
	return out, nil
}

// SubscribeAll subscribes to every room topic.
func (c *Client) SubscribeAll(roomID string) (map[Topic]<-chan Event, error) {
	chans := make(map[Topic]<-chan Event, len(Topics))
	for _, t := range Topics {
		ch, err := c.Subscribe(t, roomID)
		if err != nil {
			return nil, err
		}
		chans[t] = ch
	}
	return chans, nil
}

// Close unsubscribes, ends the STOMP session and closes the socket.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		var err error
		for _, sub := range subs {
			err = multierr.Append(err, sub.Unsubscribe())
		}
		err = multierr.Append(err, c.stomp.Disconnect())
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(closeTimeout):
		err = fmt.Errorf("stomp disconnect: timed out after %v", closeTimeout)
		err = multierr.Append(err, c.ws.CloseNow())
	}
	close(c.done)
	return err
}
