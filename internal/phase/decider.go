package phase

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/pkg/types"
)

// RoomAction is what the player wants to do in the waiting room.
type RoomAction int

const (
	ActionWait RoomAction = iota
	ActionStart
	ActionExit
)

// Decider supplies every choice a page needs. Implementations must return
// when ctx ends.
type Decider interface {
	// PickRoom returns a room ID to join, "" to keep browsing.
	PickRoom(ctx context.Context, rooms []types.Room) (string, error)
	RoomAction(ctx context.Context, room types.Room, canStart bool) (RoomAction, error)
	Avatar(ctx context.Context, options []string) (string, error)
	Expedition(ctx context.Context, candidates []string, n int) ([]string, error)
	Vote(ctx context.Context, expedition []string) (bool, error)
	Card(ctx context.Context, role string) (types.Card, error)
	// Target returns "" to skip the skill.
	Target(ctx context.Context, role engine.Role, candidates []string) (string, error)
	Guesses(ctx context.Context, players []string) (map[string]string, error)
}

// Avatars are the portraits offered on the game start page.
var Avatars = []string{
	"avatar1.png", "avatar2.png", "avatar3.png", "avatar4.png", "avatar5.png",
	"avatar6.png", "avatar7.png", "avatar8.png", "avatar9.png", "avatar10.png",
}

// AutoDecider plays by itself. Good players always succeed missions; evil
// players fail them with probability FailRate.
type AutoDecider struct {
	mu        sync.Mutex
	rng       *rand.Rand
	AgreeRate float64
	FailRate  float64
}

func NewAutoDecider(seed int64) *AutoDecider {
	if seed == 0 {
		seed = rand.Int64()
	}
	return &AutoDecider{
		rng:       rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1)),
		AgreeRate: 0.6,
		FailRate:  0.5,
	}
}

func (a *AutoDecider) float() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Float64()
}

func (a *AutoDecider) intN(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.IntN(n)
}

func (a *AutoDecider) PickRoom(ctx context.Context, rooms []types.Room) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, r := range rooms {
		if !r.Full() && !r.Started {
			return r.ID, nil
		}
	}
	return "", nil
}

func (a *AutoDecider) RoomAction(ctx context.Context, _ types.Room, canStart bool) (RoomAction, error) {
	if err := ctx.Err(); err != nil {
		return ActionWait, err
	}
	if canStart {
		return ActionStart, nil
	}
	return ActionWait, nil
}

func (a *AutoDecider) Avatar(ctx context.Context, options []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(options) == 0 {
		return "", nil
	}
	return options[a.intN(len(options))], nil
}

func (a *AutoDecider) Expedition(ctx context.Context, candidates []string, n int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pool := slices.Clone(candidates)
	a.mu.Lock()
	a.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	a.mu.Unlock()
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n], nil
}

func (a *AutoDecider) Vote(ctx context.Context, _ []string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return a.float() < a.AgreeRate, nil
}

func (a *AutoDecider) Card(ctx context.Context, role string) (types.Card, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if engine.FactionOf(role) == engine.FactionEvil && a.float() < a.FailRate {
		return types.CardFail, nil
	}
	return types.CardSuccess, nil
}

func (a *AutoDecider) Target(ctx context.Context, _ engine.Role, candidates []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", nil
	}
	return candidates[a.intN(len(candidates))], nil
}

func (a *AutoDecider) Guesses(ctx context.Context, players []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(players))
	for _, p := range players {
		if a.float() < 0.5 {
			out[p] = string(engine.FactionGood)
		} else {
			out[p] = string(engine.FactionEvil)
		}
	}
	return out, nil
}
