package phase

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/DoyleJ11/underground-client/internal/api"
	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxSkillAttempts = 3

// panel is the skill the player may use this round, if any.
type panel struct {
	key        engine.Role
	targets    []string
	ultimate   bool
	candidates []string
}

// Skill runs the post-mission window. It ends on allSkillUsed or when the
// countdown closes the phase.
func (s *Session) Skill(ctx context.Context, roomID string) (engine.Navigation, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, leave := s.listen()
	defer leave()

	roles, err := s.API.Roles(ctx, roomID)
	if err != nil {
		return engine.Navigation{}, fmt.Errorf("skill: roles: %w", err)
	}
	role := roles.AssignedRoles[s.Player].Name
	if role == "" {
		s.show(engine.PageSkill, "無法取得你的角色，請重新進入遊戲")
		return engine.Navigation{}, fmt.Errorf("skill: %s has no role", s.Player)
	}

	countdown := time.NewTimer(s.Timings.SkillCountdown)
	defer countdown.Stop()

	p, err := s.skillPanel(ctx, roomID, role)
	if err != nil {
		s.logger().Warn("skill panel", zap.Error(err))
		s.show(engine.PageSkill, "%s", engine.ImmersiveMessage(role))
	}

	var (
		targeting <-chan choice[string]
		guessing  <-chan choice[map[string]string]
		attempts  int
		guesses   int
	)
	askGuesses := func() <-chan choice[map[string]string] {
		return ask(ctx, func(ctx context.Context) (map[string]string, error) {
			return s.Decider.Guesses(ctx, p.candidates)
		})
	}
	switch {
	case p.ultimate:
		guessing = askGuesses()
	case len(p.targets) > 0:
		targeting = ask(ctx, func(ctx context.Context) (string, error) {
			return s.Decider.Target(ctx, p.key, p.targets)
		})
	}

	var leaving <-chan time.Time
	front := engine.Navigation{Page: engine.PageFrontPage, RoomID: roomID}
	for {
		select {
		case <-ctx.Done():
			return engine.Navigation{}, ctx.Err()

		case <-leaving:
			return front, nil

		case <-countdown.C:
			if err := s.API.FinishSkills(ctx, roomID); err != nil {
				s.logger().Warn("skill finish", zap.Error(err))
			}
			return front, nil

		case c := <-targeting:
			targeting = nil
			if c.err != nil {
				return engine.Navigation{}, c.err
			}
			if c.v == "" {
				s.show(engine.PageSkill, "%s", engine.ImmersiveMessage(role))
				continue
			}
			attempts++
			msg, err := s.useSkill(ctx, roomID, p.key, c.v)
			if err != nil {
				s.show(engine.PageSkill, "使用失敗：%s", api.UserMessage(err))
				if attempts < maxSkillAttempts {
					targeting = ask(ctx, func(ctx context.Context) (string, error) {
						return s.Decider.Target(ctx, p.key, p.targets)
					})
				}
				continue
			}
			s.show(engine.PageSkill, "%s", msg)
			s.show(engine.PageSkill, "%s", engine.ImmersiveMessage(role))

		case c := <-guessing:
			guessing = nil
			if c.err != nil {
				return engine.Navigation{}, c.err
			}
			guesses++
			if !completeGuesses(p.candidates, c.v) {
				s.show(engine.PageSkill, "每個人都要選完。")
				if guesses < maxSkillAttempts {
					guessing = askGuesses()
				}
				continue
			}
			res, err := s.API.CivilianUltimate(ctx, roomID, s.Player, c.v)
			if err != nil {
				s.show(engine.PageSkill, "發動失敗：%s", api.UserMessage(err))
				if guesses < maxSkillAttempts {
					guessing = askGuesses()
				}
				continue
			}
			msg := res.Message
			if msg == "" {
				msg = "已提交。"
			}
			s.show(engine.PageSkill, "%s", msg)

		case d, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if d.Event.Is(types.SigAllSkillUsed) && leaving == nil {
				countdown.Stop()
				targeting, guessing = nil, nil
				s.show(engine.PageSkill, "所有技能發動完畢，返回遊戲畫面...")
				leaving = time.After(s.Timings.SkillNavDelay)
			}
		}
	}
}

// completeGuesses reports whether every candidate got a good or evil guess.
func completeGuesses(candidates []string, guesses map[string]string) bool {
	for _, c := range candidates {
		switch engine.Faction(guesses[c]) {
		case engine.FactionGood, engine.FactionEvil:
		default:
			return false
		}
	}
	return true
}

// skillPanel decides what this player sees: their role's panel when it still
// has a skill this round, the civilian guess on the final round, or the
// immersive waiting line.
func (s *Session) skillPanel(ctx context.Context, roomID, role string) (panel, error) {
	p := panel{key: engine.RoleKey(role)}

	state, err := s.API.SkillState(ctx, roomID)
	if err != nil {
		return p, fmt.Errorf("skill state: %w", err)
	}
	if !slices.Contains(state.RemainingRoles, role) {
		room, err := s.API.Room(ctx, roomID)
		if err != nil {
			return p, fmt.Errorf("room: %w", err)
		}
		if engine.IsCivilian(role) && engine.FinalRound(room) {
			p.ultimate = true
			p.candidates = others(room.Players, s.Player)
			s.show(engine.PageSkill, "最後一回合：猜出每位玩家的陣營")
		}
		s.show(engine.PageSkill, "%s", engine.ImmersiveMessage(role))
		return p, nil
	}

	s.show(engine.PageSkill, "角色：%s", role)
	s.show(engine.PageSkill, "技能結算順序：%s", engine.ResolutionOrder())
	if p.key == engine.RoleEngineer {
		return p, s.engineerPanel(ctx, roomID, role)
	}

	room, err := s.API.Room(ctx, roomID)
	if err != nil {
		return p, fmt.Errorf("room: %w", err)
	}
	used := ""
	switch p.key {
	case engine.RoleLurker, engine.RoleSaboteur:
		if room.UsedSkillMap[s.Player] {
			used = "你已使用過技能，無法再次使用。"
			break
		}
		if rec, ok := room.CurrentMission(); ok {
			p.targets = others(slices.Sorted(maps.Keys(rec.CardMap)), s.Player)
		}
		if len(p.targets) == 0 {
			s.show(engine.PageSkill, "尚無可選擇的對象（可能還未交卡）")
		}
	case engine.RoleMedic:
		if room.MedicSkillUsed[s.Player] {
			used = "你已使用過技能，無法再次使用。"
			break
		}
		p.targets = others(room.Players, s.Player)
	case engine.RoleShadow:
		switch {
		case room.ShadowSkillCount[s.Player] >= 2:
			used = "你已用完兩次技能"
		case slices.Contains(room.ShadowUsedThisRound, s.Player):
			used = "本回合已使用過技能"
		default:
			p.targets = others(room.Players, s.Player)
		}
	case engine.RoleCommander:
		p.targets = others(room.Players, s.Player)
	}
	if used != "" {
		s.show(engine.PageSkill, "%s", used)
	}
	return p, nil
}

// engineerPanel reads this round's card counts unless a shadow blocked it.
func (s *Session) engineerPanel(ctx context.Context, roomID, role string) error {
	var (
		room  types.Room
		state types.SkillState
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		room, err = s.API.Room(gctx, roomID)
		return err
	})
	g.Go(func() error {
		var err error
		state, err = s.API.SkillState(gctx, roomID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("engineer: %w", err)
	}

	if slices.Contains(state.BlockedRoles, role) {
		s.show(engine.PageSkill, "你的技能已被封鎖!")
		return nil
	}
	if rec, ok := room.CurrentMission(); ok {
		s.show(engine.PageSkill, "本回合任務：成功 %d 張，失敗 %d 張", rec.SuccessCount, rec.FailCount)
	} else {
		s.show(engine.PageSkill, "本回合任務：尚未送出")
	}
	return nil
}

func (s *Session) useSkill(ctx context.Context, roomID string, key engine.Role, target string) (string, error) {
	switch key {
	case engine.RoleLurker:
		if _, err := s.API.LurkerToggle(ctx, roomID, s.Player, target); err != nil {
			return "", err
		}
		return "技能使用成功，該玩家卡片屬性已反轉", nil
	case engine.RoleCommander:
		res, err := s.API.CommanderCheck(ctx, roomID, s.Player, target)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s 的陣營是：%s（剩餘次數：%d）", target, res.Faction, res.Remaining), nil
	case engine.RoleSaboteur:
		res, err := s.API.SaboteurNullify(ctx, roomID, s.Player, target)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("已使 %s 的卡片 (%s) 失效！剩餘次數 %d", target, res.Removed, res.Remaining), nil
	case engine.RoleMedic:
		res, err := s.API.MedicProtect(ctx, roomID, s.Player, target)
		if err != nil {
			return "", err
		}
		if res.Protected == "" && res.Message != "" {
			return res.Message, nil
		}
		return fmt.Sprintf("已成功保護 %s（整場限一次）", target), nil
	case engine.RoleShadow:
		if _, err := s.API.ShadowDisable(ctx, roomID, s.Player, target); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s 下一回合無法發動技能", target), nil
	}
	return "", fmt.Errorf("role %s has no targeted skill", key)
}
