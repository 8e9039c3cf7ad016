package phase

import (
	"context"
	"fmt"

	"github.com/DoyleJ11/underground-client/internal/broadcast"
	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/pkg/types"
	"go.uber.org/zap"
)

// table is what the front page knows about the game in progress.
type table struct {
	room    types.Room
	players []types.Player
	roles   types.Roles
	leader  string
	myRole  string
}

// FrontPage is the game board between rounds. The leader picks the
// expedition; everyone else waits for the vote to open.
func (s *Session) FrontPage(ctx context.Context, roomID string) (engine.Navigation, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, leave := s.listen()
	defer leave()

	if _, err := s.API.AssignRoles(ctx, roomID); err != nil {
		s.logger().Warn("assign roles", zap.Error(err))
	}
	var t table
	if err := s.loadTable(ctx, roomID, &t); err != nil {
		return engine.Navigation{}, err
	}
	if end, done := s.missionSummary(ctx, roomID, t.room); done {
		return end, nil
	}

	var picking <-chan choice[[]string]
	offer := func() {
		if t.leader != s.Player || picking != nil {
			return
		}
		n := engine.MaxPick(t.room.CurrentRound, len(t.players))
		candidates := names(t.players)
		s.show(engine.PageFrontPage, "你是隊長，請選擇 %d 名出戰人員", n)
		picking = ask(ctx, func(ctx context.Context) ([]string, error) {
			return s.Decider.Expedition(ctx, candidates, n)
		})
	}
	offer()

	for {
		select {
		case <-ctx.Done():
			return engine.Navigation{}, ctx.Err()

		case c := <-picking:
			picking = nil
			if c.err != nil {
				return engine.Navigation{}, c.err
			}
			n := engine.MaxPick(t.room.CurrentRound, len(t.players))
			if err := engine.ValidateExpedition(c.v, n, names(t.players)); err != nil {
				s.show(engine.PageFrontPage, "請選滿 %d 人！", n)
				offer()
				continue
			}
			if err := s.API.StartVote(ctx, roomID, c.v); err != nil {
				s.show(engine.PageFrontPage, "後端連線失敗，請稍後再試！")
				s.logger().Warn("start vote", zap.Error(err))
				offer()
				continue
			}
			return engine.Navigation{Page: engine.PageVote, RoomID: roomID}, nil

		case d, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			ev := d.Event
			switch {
			case ev.Kind == broadcast.KindGameEnd:
				return engine.Navigation{Page: engine.PageGameEnd, RoomID: roomID, GameEnd: ev.GameEnd}, nil
			case ev.Topic == broadcast.TopicVote:
				return engine.Navigation{Page: engine.PageVote, RoomID: roomID}, nil
			case ev.Kind == broadcast.KindLeader:
				t.leader = ev.Leader
				s.show(engine.PageFrontPage, "隊長：%s", t.leader)
				offer()
			case ev.Is(types.SigAllSkillUsed), ev.Is(types.SigStartRealGame):
				if err := s.loadTable(ctx, roomID, &t); err != nil {
					s.logger().Warn("reload table", zap.Error(err))
					continue
				}
				if end, done := s.missionSummary(ctx, roomID, t.room); done {
					return end, nil
				}
				offer()
			}
		}
	}
}

func (s *Session) loadTable(ctx context.Context, roomID string, t *table) error {
	room, err := s.API.Room(ctx, roomID)
	if err != nil {
		return fmt.Errorf("front page: room: %w", err)
	}
	players, err := s.API.Players(ctx, roomID)
	if err != nil {
		return fmt.Errorf("front page: players: %w", err)
	}
	roles, err := s.API.Roles(ctx, roomID)
	if err != nil {
		return fmt.Errorf("front page: roles: %w", err)
	}
	t.room, t.players, t.roles, t.leader = room, players, roles, roles.CurrentLeader
	t.myRole = roles.AssignedRoles[s.Player].Name

	if t.myRole != "" {
		if err := s.Flags.SetRole(ctx, roomID, t.myRole); err != nil {
			s.logger().Warn("store role", zap.Error(err))
		}
	}
	if err := s.Flags.SetRoomName(ctx, roomID, room.RoomName); err != nil {
		s.logger().Warn("store room name", zap.Error(err))
	}

	seats := engine.SeatOrder(names(players), s.Player)
	for _, name := range seats {
		line := name
		if name == t.leader {
			line += " ★"
		}
		if name == s.Player && t.myRole != "" {
			line += fmt.Sprintf("（角色：%s）", t.myRole)
		}
		s.show(engine.PageFrontPage, "%s", line)
	}
	return nil
}

// missionSummary shows the round label, the running score and last round's
// cards. It reports done once the game is past its final round.
func (s *Session) missionSummary(ctx context.Context, roomID string, room types.Room) (engine.Navigation, bool) {
	total := engine.TotalRounds(room.PlayerCount)
	s.show(engine.PageFrontPage, "第 %d 輪 / 共 %d 輪", room.CurrentRound, total)
	s.show(engine.PageFrontPage, "成功 %d 失敗 %d", room.SuccessCount, room.FailCount)

	skip, err := s.Flags.ConsumeSkipMission(ctx, roomID)
	if err != nil {
		s.logger().Warn("skip mission flag", zap.Error(err))
	}
	if skip {
		return engine.Navigation{}, false
	}
	if rec, ok := room.MissionResults[room.CurrentRound-1]; ok {
		s.show(engine.PageFrontPage, "本回合結果：成功 %d 張，失敗 %d 張", rec.SuccessCount, rec.FailCount)
	}
	if engine.PastFinalRound(room) {
		return engine.Navigation{Page: engine.PageGameEnd, RoomID: roomID}, true
	}
	return engine.Navigation{}, false
}
