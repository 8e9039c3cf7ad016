package phase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/DoyleJ11/underground-client/internal/broadcast"
	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/internal/hub"
	"go.uber.org/zap"
)

var ErrNoRoom = errors.New("page needs a room id")

// Feed is a live broadcast connection for one room.
type Feed interface {
	hub.Source
	Close() error
}

type Dialer func(ctx context.Context) (Feed, error)

// Runner drives pages from a start page until one navigates to exit, the
// player quits or ctx ends. It keeps one broadcast connection per room.
type Runner struct {
	Session Session
	Dial    Dialer
	// Filter narrows the lobby by room name.
	Filter string
}

type attachment struct {
	roomID string
	hub    *hub.Hub
	feed   Feed
	cancel context.CancelFunc
	pumps  <-chan struct{}
}

func (a *attachment) close(log *zap.Logger) {
	a.cancel()
	if err := a.feed.Close(); err != nil {
		log.Debug("close feed", zap.String("room", a.roomID), zap.Error(err))
	}
	<-a.pumps
}

func (r *Runner) attach(ctx context.Context, roomID string) (*attachment, error) {
	feed, err := r.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect broadcast: %w", err)
	}
	actx, cancel := context.WithCancel(ctx)
	h := hub.NewHub(actx, r.Session.logger())
	pumps, err := h.Attach(actx, feed, roomID)
	if err != nil {
		cancel()
		_ = feed.Close()
		return nil, fmt.Errorf("subscribe room %s: %w", roomID, err)
	}
	return &attachment{roomID: roomID, hub: h, feed: feed, cancel: cancel, pumps: pumps}, nil
}

func (r *Runner) Run(ctx context.Context, start engine.Navigation) error {
	log := r.Session.logger().Named("runner")
	var cur *attachment
	defer func() {
		if cur != nil {
			cur.close(log)
		}
	}()

	nav := start
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if nav.Page == engine.PageExit {
			return nil
		}

		switch {
		case nav.Page == engine.PageLobby:
			if cur != nil {
				cur.close(log)
				cur = nil
			}
		case nav.RoomID == "":
			return fmt.Errorf("%s: %w", nav.Page, ErrNoRoom)
		case cur == nil || cur.roomID != nav.RoomID:
			if cur != nil {
				cur.close(log)
				cur = nil
			}
			a, err := r.attach(ctx, nav.RoomID)
			if err != nil {
				return err
			}
			cur = a
		}

		sess := r.Session
		sess.Hub = nil
		if cur != nil {
			sess.Hub = cur.hub
		}

		next, err := r.step(ctx, &sess, nav)
		if errors.Is(err, ErrQuit) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", nav.Page, err)
		}
		log.Info("navigate", zap.String("from", string(nav.Page)), zap.String("to", string(next.Page)), zap.String("room", next.RoomID))
		nav = next
	}
}

// step runs one page. A GAME_END broadcast can cut any in-game page short;
// whichever of the page and the broadcast navigates first wins.
func (r *Runner) step(ctx context.Context, s *Session, nav engine.Navigation) (engine.Navigation, error) {
	pctx, cancel := context.WithCancel(ctx)
	defer cancel()
	navr := engine.NewNavigator()

	res := make(chan error, 1)
	go func() {
		next, err := r.page(pctx, s, nav)
		if err == nil {
			navr.Go(next)
		}
		res <- err
	}()
	if s.Hub != nil && nav.Page != engine.PageGameEnd {
		go watchGameEnd(pctx, s.Hub, nav.RoomID, navr)
	}

	var err error
	select {
	case <-navr.Done():
		cancel()
		<-res
	case err = <-res:
	}
	select {
	case <-navr.Done():
		return navr.Result(), nil
	default:
		return engine.Navigation{}, err
	}
}

func watchGameEnd(ctx context.Context, h *hub.Hub, roomID string, navr *engine.Navigator) {
	id, ch := h.Listen(listenBuffer)
	defer h.Unlisten(id)
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-ch:
			if !ok {
				return
			}
			if d.Event.Kind == broadcast.KindGameEnd {
				navr.Go(engine.Navigation{Page: engine.PageGameEnd, RoomID: roomID, GameEnd: d.Event.GameEnd})
				return
			}
		}
	}
}

func (r *Runner) page(ctx context.Context, s *Session, nav engine.Navigation) (engine.Navigation, error) {
	switch nav.Page {
	case engine.PageLobby:
		return s.Lobby(ctx, r.Filter)
	case engine.PageRoom:
		return s.Room(ctx, nav.RoomID)
	case engine.PageGameStart:
		return s.GameStart(ctx, nav.RoomID)
	case engine.PageFrontPage:
		return s.FrontPage(ctx, nav.RoomID)
	case engine.PageVote:
		return s.Vote(ctx, nav.RoomID)
	case engine.PageMission:
		return s.Mission(ctx, nav.RoomID)
	case engine.PageSkill:
		return s.Skill(ctx, nav.RoomID)
	case engine.PageGameEnd:
		return s.GameEnd(ctx, nav.RoomID, nav.GameEnd)
	}
	return engine.Navigation{}, fmt.Errorf("unknown page %q", nav.Page)
}
