package phase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/pkg/types"
	"go.uber.org/zap"
)

const maxCardAttempts = 5

// Mission collects this player's card if they are on the expedition. Everyone
// else reads tips until the backend reports all cards in.
func (s *Session) Mission(ctx context.Context, roomID string) (engine.Navigation, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, leave := s.listen()
	defer leave()

	vs, err := s.API.VoteState(ctx, roomID, s.Player)
	if err != nil {
		s.show(engine.PageMission, "無法取得出戰名單")
		return engine.Navigation{}, fmt.Errorf("mission: vote state: %w", err)
	}
	role := s.myRole(ctx, roomID)

	var (
		carding  <-chan choice[types.Card]
		tips     <-chan time.Time
		tip      string
		attempts int
	)
	pickCard := func() {
		carding = ask(ctx, func(ctx context.Context) (types.Card, error) {
			return s.Decider.Card(ctx, role)
		})
	}
	tipTimer := time.NewTimer(0)
	tipTimer.Stop()
	defer tipTimer.Stop()
	startTips := func() {
		tip = engine.RandomTip(tip)
		s.show(engine.PageMission, "%s", tip)
		tipTimer.Reset(s.tipDelay())
		tips = tipTimer.C
	}

	switch {
	case slices.Contains(vs.Expedition, s.Player) && s.cardSubmitted(ctx, roomID):
		s.show(engine.PageMission, "你已提交任務卡，等待其他玩家...")
		startTips()
	case slices.Contains(vs.Expedition, s.Player):
		s.show(engine.PageMission, "你在出戰名單中，請提交任務卡")
		pickCard()
	default:
		s.show(engine.PageMission, "%s", engine.ImmersiveMessage(role))
		startTips()
	}

	for {
		select {
		case <-ctx.Done():
			return engine.Navigation{}, ctx.Err()

		case c := <-carding:
			carding = nil
			if c.err != nil {
				return engine.Navigation{}, c.err
			}
			attempts++
			if err := s.API.SubmitMissionCard(ctx, roomID, s.Player, c.v); err != nil {
				s.logger().Warn("mission card", zap.Int("attempt", attempts), zap.Error(err))
				// the card may have landed before the error did
				if !s.cardSubmitted(ctx, roomID) {
					s.show(engine.PageMission, "任務卡送出失敗")
					if attempts < maxCardAttempts {
						pickCard()
					}
					continue
				}
			}
			s.show(engine.PageMission, "已送出")
			startTips()

		case <-tips:
			startTips()

		case d, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if d.Event.Is(types.SigAllMissionCards) {
				return engine.Navigation{Page: engine.PageSkill, RoomID: roomID}, nil
			}
		}
	}
}

// cardSubmitted asks the backend whether this round already has our card.
// Errors count as not submitted so the player is asked.
func (s *Session) cardSubmitted(ctx context.Context, roomID string) bool {
	ms, err := s.API.MissionState(ctx, roomID, s.Player)
	if err != nil {
		s.logger().Debug("mission state", zap.Error(err))
		return false
	}
	return ms.MyCard != ""
}

// myRole prefers the stored role and falls back to the roles endpoint.
func (s *Session) myRole(ctx context.Context, roomID string) string {
	if role, err := s.Flags.Role(ctx, roomID); err == nil && role != "" {
		return role
	}
	roles, err := s.API.Roles(ctx, roomID)
	if err != nil {
		s.logger().Warn("roles", zap.Error(err))
		return ""
	}
	role := roles.AssignedRoles[s.Player].Name
	if role != "" {
		if err := s.Flags.SetRole(ctx, roomID, role); err != nil {
			s.logger().Warn("store role", zap.Error(err))
		}
	}
	return role
}

func (s *Session) tipDelay() time.Duration {
	lo, hi := s.Timings.TipMin, s.Timings.TipMax
	if lo <= 0 {
		lo = 8 * time.Second
	}
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}
