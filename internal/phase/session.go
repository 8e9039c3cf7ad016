package phase

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/internal/hub"
	"github.com/DoyleJ11/underground-client/pkg/types"
	"go.uber.org/zap"
)

var ErrNoPlayer = errors.New("no player name; log in or pass --player")

// Backend is the slice of the REST client the pages call.
type Backend interface {
	Rooms(ctx context.Context) ([]types.Room, error)
	Room(ctx context.Context, roomID string) (types.Room, error)
	JoinRoom(ctx context.Context, roomID, player, password string) (types.Result, error)
	ExitRoom(ctx context.Context, roomID, player string) (types.Result, error)
	StartGame(ctx context.Context, roomID, player string) (types.Result, error)
	StartRealGame(ctx context.Context, roomID, player string) (map[string]types.RoleInfo, error)
	SelectAvatar(ctx context.Context, roomID, player, avatar string) error
	AssignRoles(ctx context.Context, roomID string) (types.Roles, error)
	Players(ctx context.Context, roomID string) ([]types.Player, error)
	Roles(ctx context.Context, roomID string) (types.Roles, error)

	StartVote(ctx context.Context, roomID string, expedition []string) error
	Vote(ctx context.Context, roomID, voter string, agree bool) error
	Abstain(ctx context.Context, roomID, voter string) error
	VoteTimeUp(ctx context.Context, roomID string) error
	VoteState(ctx context.Context, roomID, player string) (types.VoteState, error)
	VoteResult(ctx context.Context, roomID string) (types.VoteResult, error)
	SubmitMissionCard(ctx context.Context, roomID, player string, card types.Card) error
	MissionState(ctx context.Context, roomID, player string) (types.MissionState, error)

	SkillState(ctx context.Context, roomID string) (types.SkillState, error)
	FinishSkills(ctx context.Context, roomID string) error
	LurkerToggle(ctx context.Context, roomID, player, target string) (types.LurkerResult, error)
	CommanderCheck(ctx context.Context, roomID, player, target string) (types.CommanderResult, error)
	SaboteurNullify(ctx context.Context, roomID, player, target string) (types.SaboteurResult, error)
	MedicProtect(ctx context.Context, roomID, player, target string) (types.MedicResult, error)
	ShadowDisable(ctx context.Context, roomID, player, target string) (types.ShadowResult, error)
	CivilianUltimate(ctx context.Context, roomID, player string, guesses map[string]string) (types.UltimateResult, error)

	Record(ctx context.Context, roomID string) (types.GameRecord, error)
	EndGame(ctx context.Context, roomID, result string) (types.EndGameResponse, error)
}

// Flags is the local state that survives page changes.
type Flags interface {
	SetAvatar(ctx context.Context, roomID, avatar string) error
	Role(ctx context.Context, roomID string) (string, error)
	SetRole(ctx context.Context, roomID, role string) error
	SetRoomName(ctx context.Context, roomID, name string) error
	SkipMission(ctx context.Context, roomID string) error
	ConsumeSkipMission(ctx context.Context, roomID string) (bool, error)
	RecordSaved(ctx context.Context, roomID string) (bool, error)
	MarkRecordSaved(ctx context.Context, roomID string) error
}

type Timings struct {
	VoteCountdown  time.Duration
	SkillCountdown time.Duration
	ResultPoll     time.Duration
	ResultBudget   time.Duration
	RoomPoll       time.Duration
	LobbyPoll      time.Duration
	VoteNavDelay   time.Duration
	SkillNavDelay  time.Duration
	TipMin, TipMax time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		VoteCountdown:  15 * time.Second,
		SkillCountdown: 20 * time.Second,
		ResultPoll:     300 * time.Millisecond,
		ResultBudget:   4 * time.Second,
		RoomPoll:       3 * time.Second,
		LobbyPoll:      time.Second,
		VoteNavDelay:   3 * time.Second,
		SkillNavDelay:  2 * time.Second,
		TipMin:         8 * time.Second,
		TipMax:         15 * time.Second,
	}
}

// Session is what every page needs. Hub is nil outside a room.
type Session struct {
	API     Backend
	Flags   Flags
	Decider Decider
	View    View
	Hub     *hub.Hub
	Player  string
	Timings Timings
	Log     *zap.Logger
}

func (s *Session) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Session) show(page engine.Page, format string, args ...any) {
	if s.View != nil {
		s.View.Show(page, format, args...)
	}
}

const listenBuffer = 64

// listen joins the room hub. Pages call it before their first request so no
// broadcast slips between the fetch and the subscription.
func (s *Session) listen() (<-chan hub.Delivery, func()) {
	if s.Hub == nil {
		return nil, func() {}
	}
	id, ch := s.Hub.Listen(listenBuffer)
	return ch, func() { s.Hub.Unlisten(id) }
}

type choice[T any] struct {
	v   T
	err error
}

// ask runs a decision off the page goroutine. The page cancels ctx when it
// navigates, which abandons the question.
func ask[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan choice[T] {
	ch := make(chan choice[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- choice[T]{v: v, err: err}
	}()
	return ch
}

// sleep waits d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func others(players []string, me string) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		if p != me {
			out = append(out, p)
		}
	}
	return out
}

func names(players []types.Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.Name
	}
	return out
}
