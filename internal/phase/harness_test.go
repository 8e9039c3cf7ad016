package phase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/underground-client/internal/api"
	"github.com/DoyleJ11/underground-client/internal/apitest"
	"github.com/DoyleJ11/underground-client/internal/broadcast"
	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/internal/hub"
	"github.com/DoyleJ11/underground-client/internal/store"
	"github.com/DoyleJ11/underground-client/pkg/types"
	"github.com/stretchr/testify/require"
)

// recorder keeps every status line a page showed.
type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) Show(page engine.Page, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf("[%s] %s", page, fmt.Sprintf(format, args...)))
}

func (r *recorder) has(sub string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

func (r *recorder) waitFor(t *testing.T, sub string, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for !r.has(sub) {
		if time.Now().After(deadline) {
			r.mu.Lock()
			got := strings.Join(r.lines, "\n")
			r.mu.Unlock()
			t.Fatalf("timed out waiting for %q; shown so far:\n%s", sub, got)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// scripted answers only what a test sets; anything else blocks until the
// page gives up on the question.
type scripted struct {
	mu    sync.Mutex
	calls map[string]int

	pickRoom   func(rooms []types.Room) (string, error)
	roomAction func(ctx context.Context, room types.Room, canStart bool) (RoomAction, error)
	avatar     func(n int) string
	expedition func(candidates []string, n, call int) []string
	vote       *bool
	card       types.Card
	target     func(role engine.Role, candidates []string) string
	guesses    func(players []string) map[string]string
}

func (d *scripted) count(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calls == nil {
		d.calls = make(map[string]int)
	}
	d.calls[name]++
	return d.calls[name]
}

func (d *scripted) Calls(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[name]
}

func block[T any](ctx context.Context) (T, error) {
	var zero T
	<-ctx.Done()
	return zero, ctx.Err()
}

func (d *scripted) PickRoom(ctx context.Context, rooms []types.Room) (string, error) {
	d.count("pickRoom")
	if d.pickRoom == nil {
		return block[string](ctx)
	}
	return d.pickRoom(rooms)
}

func (d *scripted) RoomAction(ctx context.Context, room types.Room, canStart bool) (RoomAction, error) {
	d.count("roomAction")
	if d.roomAction == nil {
		return block[RoomAction](ctx)
	}
	return d.roomAction(ctx, room, canStart)
}

func (d *scripted) Avatar(ctx context.Context, _ []string) (string, error) {
	n := d.count("avatar")
	if d.avatar == nil {
		return block[string](ctx)
	}
	return d.avatar(n), nil
}

func (d *scripted) Expedition(ctx context.Context, candidates []string, n int) ([]string, error) {
	call := d.count("expedition")
	if d.expedition == nil {
		return block[[]string](ctx)
	}
	return d.expedition(candidates, n, call), nil
}

func (d *scripted) Vote(ctx context.Context, _ []string) (bool, error) {
	d.count("vote")
	if d.vote == nil {
		return block[bool](ctx)
	}
	return *d.vote, nil
}

func (d *scripted) Card(ctx context.Context, _ string) (types.Card, error) {
	d.count("card")
	if d.card == "" {
		return block[types.Card](ctx)
	}
	return d.card, nil
}

func (d *scripted) Target(ctx context.Context, role engine.Role, candidates []string) (string, error) {
	d.count("target")
	if d.target == nil {
		return block[string](ctx)
	}
	return d.target(role, candidates), nil
}

func (d *scripted) Guesses(ctx context.Context, players []string) (map[string]string, error) {
	d.count("guesses")
	if d.guesses == nil {
		return block[map[string]string](ctx)
	}
	return d.guesses(players), nil
}

func fastTimings() Timings {
	return Timings{
		VoteCountdown:  5 * time.Second,
		SkillCountdown: 5 * time.Second,
		ResultPoll:     10 * time.Millisecond,
		ResultBudget:   300 * time.Millisecond,
		RoomPoll:       50 * time.Millisecond,
		LobbyPoll:      50 * time.Millisecond,
		TipMin:         20 * time.Millisecond,
		TipMax:         40 * time.Millisecond,
	}
}

type fixture struct {
	srv   *apitest.Server
	api   *api.Client
	store *store.Store
	view  *recorder
	dec   *scripted
	sess  *Session
}

func newFixture(t *testing.T, player string) *fixture {
	t.Helper()
	srv := apitest.NewServer(t)
	st, err := store.Open(filepath.Join(t.TempDir(), "flags.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{
		srv:   srv,
		api:   api.NewClient(api.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, nil),
		store: st,
		view:  &recorder{},
		dec:   &scripted{},
	}
	f.sess = &Session{
		API:     f.api,
		Flags:   st,
		Decider: f.dec,
		View:    f.view,
		Player:  player,
		Timings: fastTimings(),
	}
	return f
}

// attach wires the session to a live broadcast feed for roomID and waits
// until the broker knows every subscription.
func (f *fixture) attach(t *testing.T, roomID string) {
	t.Helper()
	u, err := broadcast.WebSocketURL(f.srv.URL, "/ws/websocket")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	dctx, dcancel := context.WithTimeout(ctx, 2*time.Second)
	defer dcancel()
	c, err := broadcast.Dial(dctx, u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	h := hub.NewHub(ctx, nil)
	_, err = h.Attach(ctx, c, roomID)
	require.NoError(t, err)
	for _, topic := range broadcast.Topics {
		require.True(t, f.srv.Broker.WaitSubscribers(topic.Destination(roomID), 1, time.Second), "no subscriber on %s", topic)
	}
	f.sess.Hub = h
}

// waitListeners blocks until the hub has n listeners, so a broadcast sent
// next is seen by the page.
func (f *fixture) waitListeners(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		reply := make(chan hub.View, 1)
		if !f.sess.Hub.Send(hub.GetView{Reply: reply}) {
			return false
		}
		select {
		case v := <-reply:
			return v.NumListeners >= n
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

type pageResult struct {
	nav engine.Navigation
	err error
}

// start runs a page in the background with a test deadline.
func start(t *testing.T, fn func(ctx context.Context) (engine.Navigation, error)) (<-chan pageResult, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	out := make(chan pageResult, 1)
	go func() {
		nav, err := fn(ctx)
		out <- pageResult{nav: nav, err: err}
	}()
	return out, cancel
}

func wait(t *testing.T, ch <-chan pageResult) pageResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(6 * time.Second):
		t.Fatalf("page never returned")
		return pageResult{}
	}
}

func run(t *testing.T, fn func(ctx context.Context) (engine.Navigation, error)) pageResult {
	t.Helper()
	ch, _ := start(t, fn)
	return wait(t, ch)
}

// seatRoom builds a started room where everyone already has an avatar.
func seatRoom(id string, players ...string) types.Room {
	avatars := make(map[string]string, len(players))
	for i, p := range players {
		avatars[p] = Avatars[i%len(Avatars)]
	}
	return types.Room{
		ID:           id,
		RoomName:     id + "房間",
		PlayerCount:  len(players),
		RoomType:     types.RoomPublic,
		Started:      true,
		Players:      players,
		AvatarMap:    avatars,
		CurrentRound: 1,
	}
}

func roles(names map[string]string) map[string]types.RoleInfo {
	out := make(map[string]types.RoleInfo, len(names))
	for p, r := range names {
		out[p] = types.RoleInfo{Name: r}
	}
	return out
}

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }
