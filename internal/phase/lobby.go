package phase

import (
	"context"
	"fmt"
	"time"

	"github.com/DoyleJ11/underground-client/internal/api"
	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/internal/tracker"
	"github.com/DoyleJ11/underground-client/pkg/types"
	"go.uber.org/zap"
)

// Lobby lists public rooms whose name matches filter and joins the one the
// player picks.
func (s *Session) Lobby(ctx context.Context, filter string) (engine.Navigation, error) {
	if s.Player == "" {
		return engine.Navigation{}, ErrNoPlayer
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tr := tracker.New(ctx, tracker.LobbyFetcher(s.API), s.Timings.LobbyPoll, s.logger())
	defer tr.Stop()
	_, snaps := tr.Watch(4)

	var (
		rooms   []types.Room
		picking <-chan choice[string]
		retry   <-chan time.Time
	)
	offer := func() {
		list := rooms
		picking = ask(ctx, func(ctx context.Context) (string, error) {
			return s.Decider.PickRoom(ctx, list)
		})
	}
	// browse again after a pause; an unchanged list produces no snapshot
	later := func() {
		tr.Refresh()
		retry = time.After(s.Timings.LobbyPoll)
	}

	for {
		select {
		case <-ctx.Done():
			return engine.Navigation{}, ctx.Err()

		case snap, ok := <-snaps:
			if !ok {
				return engine.Navigation{}, fmt.Errorf("lobby: room list stopped")
			}
			rooms = tracker.FilterByName(snap.State, filter)
			s.show(engine.PageLobby, "%d 個公開房間", len(rooms))
			for _, r := range rooms {
				s.show(engine.PageLobby, "房間名稱：%s (%d/%d)", r.RoomName, len(r.Players), r.PlayerCount)
			}
			if picking == nil {
				retry = nil
				offer()
			}

		case <-retry:
			retry = nil
			if picking == nil {
				offer()
			}

		case c := <-picking:
			picking = nil
			if c.err != nil {
				return engine.Navigation{}, c.err
			}
			if c.v == "" {
				later()
				continue
			}
			res, err := s.API.JoinRoom(ctx, c.v, s.Player, "")
			if err == nil && res.Success {
				s.show(engine.PageLobby, "加入房間成功！")
				return engine.Navigation{Page: engine.PageRoom, RoomID: c.v}, nil
			}
			msg := res.Message
			if err != nil {
				msg = api.UserMessage(err)
			}
			if msg == "" {
				msg = "加入房間失敗！"
			}
			s.logger().Info("join failed", zap.String("room", c.v), zap.String("reason", msg))
			s.show(engine.PageLobby, "%s", msg)
			later()
		}
	}
}
