package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/underground-client/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot[T any](t *testing.T, ch <-chan Snapshot[T], within time.Duration) Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("watcher outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot[T]{} // unreachable
	}
}

func recvNoSnapshot[T any](t *testing.T, ch <-chan Snapshot[T], within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further snapshots possible
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
		// good: no snapshot
	}
}

// viewOf is safe to call from require.Eventually's goroutine.
func viewOf[T any](tr *Tracker[T]) View[T] {
	reply := make(chan View[T], 1)
	tr.Inbox() <- GetState[T]{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(200 * time.Millisecond):
		return View[T]{NumWatchers: -1}
	}
}

// fakeRooms serves whatever room was last set.
type fakeRooms struct {
	mu    sync.Mutex
	room  types.Room
	rooms []types.Room
	err   error
	calls int
}

func (f *fakeRooms) set(r types.Room) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.room = r
}

func (f *fakeRooms) Room(_ context.Context, id string) (types.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return types.Room{}, f.err
	}
	r := f.room
	r.Players = append([]string(nil), f.room.Players...)
	return r, nil
}

func (f *fakeRooms) Rooms(context.Context) ([]types.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rooms, f.err
}

func TestTracker_ChangeBumpsVersion(t *testing.T) {
	src := &fakeRooms{room: types.Room{ID: "r1", Players: []string{"amy"}}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := New(ctx, RoomFetcher(src, "r1"), 0, nil)

	_, out := tr.Watch(4)
	first := recvSnapshot(t, out, 200*time.Millisecond)
	if first.Version != 1 {
		t.Fatalf("after first fetch: want version=1, got %d", first.Version)
	}

	// same state → no broadcast
	tr.Refresh()
	recvNoSnapshot(t, out, 100*time.Millisecond)

	src.set(types.Room{ID: "r1", Players: []string{"amy", "bob"}})
	tr.Refresh()
	next := recvSnapshot(t, out, 200*time.Millisecond)
	if next.Version != 2 {
		t.Fatalf("after change: want version=2, got %d", next.Version)
	}
	assert.Equal(t, []string{"amy", "bob"}, next.State.Players)

	tr.Stop()
}

func TestTracker_LateWatcherGetsCurrentSnapshot(t *testing.T) {
	src := &fakeRooms{room: types.Room{ID: "r1", Players: []string{"amy"}}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := New(ctx, RoomFetcher(src, "r1"), 0, nil)

	_, early := tr.Watch(2)
	recvSnapshot(t, early, 200*time.Millisecond)

	_, late := tr.Watch(2)
	snap := recvSnapshot(t, late, 200*time.Millisecond)
	assert.Equal(t, 1, snap.Version)
}

func TestTracker_PollsOnInterval(t *testing.T) {
	src := &fakeRooms{room: types.Room{ID: "r1"}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := New(ctx, RoomFetcher(src, "r1"), 20*time.Millisecond, nil)

	_, out := tr.Watch(4)
	recvSnapshot(t, out, 200*time.Millisecond)

	src.set(types.Room{ID: "r1", Started: true})
	snap := recvSnapshot(t, out, 500*time.Millisecond)
	assert.True(t, snap.State.Started)
}

func TestTracker_DropSlowWatcher(t *testing.T) {
	src := &fakeRooms{room: types.Room{ID: "r1", CurrentRound: 1}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := New(ctx, RoomFetcher(src, "r1"), 0, nil)

	_, out := tr.Watch(1)
	// leave the first snapshot unread so the buffer stays full
	require.Eventually(t, func() bool { return len(out) == 1 }, time.Second, 5*time.Millisecond)

	src.set(types.Room{ID: "r1", CurrentRound: 2})
	tr.Refresh()

	require.Eventually(t, func() bool {
		return viewOf(tr).NumWatchers == 0
	}, time.Second, 10*time.Millisecond, "expected slow watcher to be dropped")
}

func TestTracker_FetchErrorKeepsState(t *testing.T) {
	src := &fakeRooms{room: types.Room{ID: "r1", RoomName: "a"}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := New(ctx, RoomFetcher(src, "r1"), 0, nil)

	_, out := tr.Watch(2)
	recvSnapshot(t, out, 200*time.Millisecond)

	boom := errors.New("boom")
	src.mu.Lock()
	src.err = boom
	src.mu.Unlock()
	tr.Refresh()

	require.Eventually(t, func() bool {
		return errors.Is(viewOf(tr).LastErr, boom)
	}, time.Second, 10*time.Millisecond)
	v := viewOf(tr)
	assert.Equal(t, 1, v.Version)
	assert.Equal(t, "a", v.State.RoomName)
}

func TestTracker_ShutdownClosesWatchers(t *testing.T) {
	src := &fakeRooms{room: types.Room{ID: "r1"}}
	tr := New(context.Background(), RoomFetcher(src, "r1"), 0, nil)

	_, out := tr.Watch(2)
	recvSnapshot(t, out, 200*time.Millisecond)

	tr.Stop()
	recvNoSnapshot(t, out, 200*time.Millisecond)
	_, ok := <-out
	assert.False(t, ok)
}

func TestLobbyFetcher_PublicOnly(t *testing.T) {
	src := &fakeRooms{rooms: []types.Room{
		{ID: "1", RoomName: "Alpha房間", RoomType: types.RoomPublic},
		{ID: "2", RoomName: "secret房間", RoomType: types.RoomPrivate},
		{ID: "3", RoomName: "alphabet房間", RoomType: types.RoomPublic},
	}}
	rooms, err := LobbyFetcher(src)(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	got := FilterByName(rooms, "ALPHA")
	assert.Len(t, got, 2)
	got = FilterByName(rooms, "bet")
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)
	assert.Len(t, FilterByName(rooms, "  "), 2)
}
