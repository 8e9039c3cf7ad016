package phase

import (
	"context"
	"slices"
	"time"

	"github.com/DoyleJ11/underground-client/internal/api"
	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/internal/tracker"
	"github.com/DoyleJ11/underground-client/pkg/types"
	"go.uber.org/zap"
)

// Room is the waiting room. The host may start once the roster is full.
func (s *Session) Room(ctx context.Context, roomID string) (engine.Navigation, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, leave := s.listen()
	defer leave()

	tr := tracker.New(ctx, tracker.RoomFetcher(s.API, roomID), s.Timings.RoomPoll, s.logger())
	defer tr.Stop()
	_, snaps := tr.Watch(4)

	var (
		room     types.Room
		deciding <-chan choice[RoomAction]
		asked    bool // canStart of the open question
		drop     context.CancelFunc
		retry    <-chan time.Time
	)
	// offer abandons any open question and asks again about the current room.
	offer := func() {
		if drop != nil {
			drop()
		}
		qctx, qcancel := context.WithCancel(ctx)
		drop = qcancel
		r, canStart := room, room.Host() == s.Player && room.Full()
		asked, retry = canStart, nil
		deciding = ask(qctx, func(ctx context.Context) (RoomAction, error) {
			return s.Decider.RoomAction(ctx, r, canStart)
		})
	}
	later := func() { retry = time.After(s.Timings.RoomPoll) }

	for {
		select {
		case <-ctx.Done():
			return engine.Navigation{}, ctx.Err()

		case snap, ok := <-snaps:
			if !ok {
				// dropped as a slow watcher; take a fresh one
				_, snaps = tr.Watch(4)
				continue
			}
			room = snap.State
			s.show(engine.PageRoom, "房間 %s 局主：%s 玩家 %d/%d", room.RoomName, room.Host(), len(room.Players), room.PlayerCount)
			canStart := room.Host() == s.Player && room.Full()
			if deciding == nil || canStart != asked {
				offer()
			}

		case <-retry:
			offer()

		case c := <-deciding:
			deciding = nil
			if c.err != nil {
				return engine.Navigation{}, c.err
			}
			switch c.v {
			case ActionStart:
				if room.Host() != s.Player {
					s.show(engine.PageRoom, "只有房主可以開始遊戲！")
					later()
					continue
				}
				if _, err := s.API.StartGame(ctx, roomID, s.Player); err != nil {
					s.show(engine.PageRoom, "%s", api.UserMessage(err))
				}
				// startGame arrives as a broadcast; ask again if it never does
				later()
			case ActionExit:
				if _, err := s.API.ExitRoom(ctx, roomID, s.Player); err != nil {
					s.logger().Warn("exit room", zap.Error(err))
				}
				return engine.Navigation{Page: engine.PageLobby}, nil
			default:
				later()
			}

		case d, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch {
			case d.Event.Is(types.SigStartGame):
				return engine.Navigation{Page: engine.PageGameStart, RoomID: roomID}, nil
			case d.Event.Is(types.SigRefresh):
				tr.Refresh()
			}
		}
	}
}

// GameStart picks an avatar. When everyone has one, every client asks for
// roles to be dealt and the backend's startRealGame moves the room on.
func (s *Session) GameStart(ctx context.Context, roomID string) (engine.Navigation, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, leave := s.listen()
	defer leave()

	s.show(engine.PageGameStart, "等待其他玩家選擇頭貼...")
	picking := ask(ctx, func(ctx context.Context) (string, error) {
		return s.Decider.Avatar(ctx, Avatars)
	})
	var retry <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return engine.Navigation{}, ctx.Err()

		case <-retry:
			retry = nil
			picking = ask(ctx, func(ctx context.Context) (string, error) {
				return s.Decider.Avatar(ctx, Avatars)
			})

		case c := <-picking:
			picking = nil
			if c.err != nil {
				return engine.Navigation{}, c.err
			}
			if c.v == "" || !slices.Contains(Avatars, c.v) {
				retry = time.After(0)
				continue
			}
			if err := s.API.SelectAvatar(ctx, roomID, s.Player, c.v); err != nil {
				s.show(engine.PageGameStart, "確認失敗，請重試")
				s.logger().Warn("select avatar", zap.Error(err))
				retry = time.After(time.Second)
				continue
			}
			if err := s.Flags.SetAvatar(ctx, roomID, c.v); err != nil {
				s.logger().Warn("store avatar", zap.Error(err))
			}
			s.show(engine.PageGameStart, "已確認頭貼 %s", c.v)

		case d, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			ev := d.Event
			switch {
			case ev.Is(types.SigAvatarSelected):
				s.show(engine.PageGameStart, "%s 已選擇頭貼", ev.Arg)
			case ev.Is(types.SigAllAvatarSelected):
				roles, err := s.API.StartRealGame(ctx, roomID, s.Player)
				if err != nil {
					s.logger().Warn("start real game", zap.Error(err))
					continue
				}
				if mine, ok := roles[s.Player]; ok {
					s.show(engine.PageGameStart, "你是 %s", mine.Name)
				}
			case ev.Is(types.SigStartRealGame):
				return engine.Navigation{Page: engine.PageFrontPage, RoomID: roomID}, nil
			}
		}
	}
}
