package phase

import (
	"context"
	"net/url"
	"testing"

	"github.com/DoyleJ11/underground-client/internal/apitest"
	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameEnd_SavesOnce(t *testing.T) {
	f := newFixture(t, "amy")
	room := seatRoom("r1", "amy", "bob", "cat")
	room.SuccessCount, room.FailCount = 3, 1
	f.srv.AddRoom(room)

	end := func(ctx context.Context) (engine.Navigation, error) { return f.sess.GameEnd(ctx, "r1", nil) }
	res := run(t, end)
	require.NoError(t, res.err)
	assert.Equal(t, engine.PageExit, res.nav.Page)
	assert.True(t, f.view.has("正方勝利！成功卡 3，失敗卡 1"))

	posts := f.srv.Requests("POST", "/api/room/r1/end-game")
	require.Len(t, posts, 1)
	q, err := url.ParseQuery(posts[0].Query)
	require.NoError(t, err)
	assert.Equal(t, "正方勝利", q.Get("result"))

	saved, err := f.store.RecordSaved(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, saved)

	res = run(t, end)
	require.NoError(t, res.err)
	assert.True(t, f.view.has("戰績已記錄"))
	assert.Len(t, f.srv.Requests("POST", "/api/room/r1/end-game"), 1, "a saved record is never posted twice")
}

func TestGameEnd_UsesStoredRecord(t *testing.T) {
	f := newFixture(t, "amy")
	f.srv.AddRoom(seatRoom("r1", "amy", "bob", "cat"))
	f.srv.Do(func(st *apitest.State) {
		st.Records["r1"] = types.GameRecord{ID: "g1", RoomID: "r1", Result: "反方勝利", SuccessCount: 1, FailCount: 3}
	})

	res := run(t, func(ctx context.Context) (engine.Navigation, error) { return f.sess.GameEnd(ctx, "r1", nil) })
	require.NoError(t, res.err)
	assert.True(t, f.view.has("反方勝利！失敗卡 3，成功卡 1"))
	assert.Empty(t, f.srv.Requests("POST", "/api/room/r1/end-game"))
}

func TestGameEnd_FallsBackToBroadcastPayload(t *testing.T) {
	f := newFixture(t, "amy")
	ended := &types.GameEnd{Type: types.GameEndType, Result: "平手", Success: 2, Fail: 2}

	res := run(t, func(ctx context.Context) (engine.Navigation, error) { return f.sess.GameEnd(ctx, "gone", ended) })
	require.NoError(t, res.err)
	assert.Equal(t, engine.PageExit, res.nav.Page)
	assert.True(t, f.view.has("平手！成功 2、失敗 2"))
}

func TestGameEnd_NothingToShow(t *testing.T) {
	f := newFixture(t, "amy")
	res := run(t, func(ctx context.Context) (engine.Navigation, error) { return f.sess.GameEnd(ctx, "gone", nil) })
	require.Error(t, res.err)
	assert.True(t, f.view.has("無法取得遊戲結果"))
}
