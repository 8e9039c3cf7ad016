package phase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/pkg/types"
	"go.uber.org/zap"
)

// ballot is the vote page's view of the server. snap merges every
// vote-result reply; seen is false until one has arrived.
type ballot struct {
	roomID string
	roster int
	voted  bool
	snap   engine.Snapshot
	seen   bool
}

// Vote casts at most one ballot, abstaining explicitly when the countdown
// runs out, then reconciles the outcome with the server.
func (s *Session) Vote(ctx context.Context, roomID string) (engine.Navigation, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, leave := s.listen()
	defer leave()

	players, err := s.API.Players(ctx, roomID)
	if err != nil {
		return engine.Navigation{}, fmt.Errorf("vote: players: %w", err)
	}
	vs, err := s.API.VoteState(ctx, roomID, s.Player)
	if err != nil {
		s.show(engine.PageVote, "無法取得投票資訊")
		return engine.Navigation{}, fmt.Errorf("vote: state: %w", err)
	}

	b := &ballot{roomID: roomID, roster: len(players), voted: vs.HasVoted}
	s.show(engine.PageVote, "出戰名單：%s", strings.Join(vs.Expedition, "、"))
	s.show(engine.PageVote, "同意 %d 反對 %d", vs.Agree, vs.Reject)

	var voting <-chan choice[bool]
	if vs.CanVote && !vs.HasVoted {
		expedition := vs.Expedition
		voting = ask(ctx, func(ctx context.Context) (bool, error) {
			return s.Decider.Vote(ctx, expedition)
		})
	}

	countdown := time.NewTimer(s.Timings.VoteCountdown)
	defer countdown.Stop()

	for {
		select {
		case <-ctx.Done():
			return engine.Navigation{}, ctx.Err()

		case c := <-voting:
			voting = nil
			if c.err != nil {
				return engine.Navigation{}, c.err
			}
			if b.voted {
				continue
			}
			s.show(engine.PageVote, "送出中...")
			if err := s.API.Vote(ctx, roomID, s.Player, c.v); err != nil {
				s.show(engine.PageVote, "投票送出失敗")
				s.logger().Warn("vote", zap.Error(err))
				continue
			}
			b.voted = true
			s.show(engine.PageVote, "你已完成投票，等待其他玩家...")

		case <-countdown.C:
			voting = nil
			if !b.voted {
				if err := s.API.Abstain(ctx, roomID, s.Player); err != nil {
					s.show(engine.PageVote, "棄票送出失敗")
				} else {
					b.voted = true
					s.show(engine.PageVote, "逾時未投，已視為棄票。")
				}
			} else if err := s.API.VoteTimeUp(ctx, roomID); err != nil {
				s.logger().Debug("vote timeup", zap.Error(err))
			}
			if dec, ok := s.awaitResult(ctx, b); ok {
				return s.leaveVote(ctx, b, dec)
			}
			s.show(engine.PageVote, "投票已截止，等待伺服器結算...")

		case d, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			ev := d.Event
			if tally := ev.Tally; tally != nil {
				s.show(engine.PageVote, "同意 %d 反對 %d", tally.Agree, tally.Reject)
				continue
			}
			if !ev.Is(types.SigVotePassed) && !ev.Is(types.SigVoteFailed) {
				continue
			}
			countdown.Stop()
			voting = nil
			if err := s.fetchResult(ctx, b); err == nil {
				return s.leaveVote(ctx, b, engine.Decide(b.snap, b.roster))
			}
			if dec, ok := s.awaitResult(ctx, b); ok {
				return s.leaveVote(ctx, b, dec)
			}
		}
	}
}

func (s *Session) fetchResult(ctx context.Context, b *ballot) error {
	r, err := s.API.VoteResult(ctx, b.roomID)
	if err != nil {
		return err
	}
	b.snap = engine.Merge(b.snap, r)
	b.seen = true
	return nil
}

// awaitResult polls vote-result until the merged snapshot is authoritative
// or the budget runs out, then settles for the last snapshot seen.
func (s *Session) awaitResult(ctx context.Context, b *ballot) (engine.Decision, bool) {
	deadline := time.Now().Add(s.Timings.ResultBudget)
	for time.Now().Before(deadline) {
		if err := s.fetchResult(ctx, b); err != nil {
			s.logger().Debug("vote result", zap.Error(err))
		} else if engine.Authoritative(b.snap) {
			return engine.Decide(b.snap, b.roster), true
		}
		if err := sleep(ctx, s.Timings.ResultPoll); err != nil {
			return engine.Decision{}, false
		}
	}
	if b.seen {
		return engine.Decide(b.snap, b.roster), true
	}
	return engine.Decision{}, false
}

// leaveVote shows the outcome and moves on after the display delay. A failed
// vote skips the mission summary on the next front page.
func (s *Session) leaveVote(ctx context.Context, b *ballot, d engine.Decision) (engine.Navigation, error) {
	verdict := "失敗"
	if d.Passed {
		verdict = "通過"
	}
	s.show(engine.PageVote, "投票結束（同意：%d　反對：%d　棄票：%d　門檻：%d／有效票數：%d）結果：%s",
		d.Agree, d.Reject, d.Abstain, d.Needed, d.Effective(), verdict)

	if err := sleep(ctx, s.Timings.VoteNavDelay); err != nil {
		return engine.Navigation{}, err
	}
	if d.Passed {
		return engine.Navigation{Page: engine.PageMission, RoomID: b.roomID}, nil
	}
	if err := s.Flags.SkipMission(ctx, b.roomID); err != nil {
		s.logger().Warn("store skip mission", zap.Error(err))
	}
	return engine.Navigation{Page: engine.PageFrontPage, RoomID: b.roomID}, nil
}
