package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/underground-client/internal/apitest"
	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/internal/phase"
	"github.com/DoyleJ11/underground-client/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t   *testing.T
	srv *apitest.Server
	dsn string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	return &cli{t: t, srv: apitest.NewServer(t), dsn: filepath.Join(t.TempDir(), "flags.db")}
}

// run executes one command line against the fake backend. Every run shares
// the same flag store, like separate invocations on one machine.
func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	a := newApp(strings.NewReader(""))
	a.envFiles = []string{filepath.Join(c.t.TempDir(), "missing.env")}
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--server", c.srv.URL, "--dsn", c.dsn, "--log-level", "error"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	a.close()
	return out.String(), err
}

func TestAccountAndRoomFlow(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("register", "bad name", "pw")
	assert.ErrorIs(t, err, engine.ErrInvalidUsername)

	out, err := c.run("register", "amy", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "註冊成功")

	_, err = c.run("create", "夜行")
	assert.ErrorIs(t, err, phase.ErrNoPlayer, "nobody has logged in yet")

	_, err = c.run("login", "amy", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "帳號或密碼錯誤")

	_, err = c.run("login", "amy", "secret1")
	require.NoError(t, err)

	out, err = c.run("create", "夜行", "--players", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "已建立 夜行房間")
	assert.Contains(t, out, c.srv.URL+"/room/")

	out, err = c.run("rooms", "夜")
	require.NoError(t, err)
	assert.Contains(t, out, "夜行房間")
	assert.Contains(t, out, "1/5")

	out, err = c.run("rooms", "nothing-like-it")
	require.NoError(t, err)
	assert.Contains(t, out, "目前沒有公開房間")
}

func TestJoinAndExit(t *testing.T) {
	c := newCLI(t)
	c.srv.AddRoom(types.Room{ID: "r1", RoomName: "r1房間", PlayerCount: 5, RoomType: types.RoomPublic, Players: []string{"amy"}})

	out, err := c.run("join", "r1", "--player", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "加入房間成功")

	_, err = c.run("join", "r1", "--player", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "玩家已經加入房間")

	_, err = c.run("exit", "r1", "--player", "bob")
	require.NoError(t, err)
	room, _ := c.srv.Room("r1")
	assert.Equal(t, []string{"amy"}, room.Players)
}

func TestCreate_Validation(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("create", "小房", "--players", "3", "--player", "amy")
	require.Error(t, err)
	_, err = c.run("create", "小房", "--private", "--player", "amy")
	require.Error(t, err)
	assert.Empty(t, c.srv.Requests("POST", "/api/create-room"))
}

func TestHintAndPasswd(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("register", "amy", "secret1")
	require.NoError(t, err)

	out, err := c.run("hint", "amy")
	require.NoError(t, err)
	assert.Contains(t, out, "s*****1")

	_, err = c.run("passwd", "amy", "fresh22")
	require.NoError(t, err)
	_, err = c.run("login", "amy", "fresh22")
	require.NoError(t, err)
}

func TestShare(t *testing.T) {
	c := newCLI(t)
	png := filepath.Join(t.TempDir(), "invite.png")

	out, err := c.run("share", "r1", "--png", png)
	require.NoError(t, err)
	assert.Contains(t, out, c.srv.URL+"/room/r1")
	assert.Greater(t, strings.Count(out, "\n"), 10, "expected a QR block before the link")

	info, err := os.Stat(png)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRecords(t *testing.T) {
	c := newCLI(t)
	c.srv.Do(func(st *apitest.State) {
		st.Stats["amy"] = types.PlayerStats{TotalGames: 2, Wins: 1, WinRate: 50}
		st.History["amy"] = []types.GameRecord{
			{ID: "g1", Result: "正方勝利", PlayerCount: 5, PlayerResults: map[string]types.PlayerResult{"amy": {Role: "醫護兵", Outcome: "勝利"}}},
			{ID: "g2", Result: "反方勝利", PlayerCount: 5, PlayerResults: map[string]types.PlayerResult{"amy": {Role: "指揮官", Outcome: "落敗"}}},
		}
	})

	out, err := c.run("records", "amy", "--outcome", "win")
	require.NoError(t, err)
	assert.Contains(t, out, "共 2 場，勝 1 場，勝率 50.0%")
	assert.Contains(t, out, "醫護兵")
	assert.NotContains(t, out, "指揮官")

	_, err = c.run("records", "amy", "--outcome", "sometimes")
	assert.Error(t, err)
}

func TestFilterHistory(t *testing.T) {
	recs := []types.GameRecord{
		{ID: "a", PlayerResults: map[string]types.PlayerResult{"amy": {Outcome: "勝利"}}},
		{ID: "b", PlayerResults: map[string]types.PlayerResult{"amy": {Outcome: "落敗"}}},
		{ID: "c", PlayerResults: map[string]types.PlayerResult{"bob": {Outcome: "勝利"}}},
	}
	cases := []struct {
		outcome string
		want    []string
	}{
		{"", []string{"a", "b", "c"}},
		{"all", []string{"a", "b", "c"}},
		{"win", []string{"a"}},
		{"lose", []string{"b"}},
	}
	for _, tc := range cases {
		t.Run(tc.outcome, func(t *testing.T) {
			got, err := filterHistory(recs, "amy", tc.outcome)
			require.NoError(t, err)
			var ids []string
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestPlay_AutoFinishesGame(t *testing.T) {
	c := newCLI(t)
	c.srv.AddRoom(types.Room{
		ID: "r1", RoomName: "r1房間", PlayerCount: 5, Started: true,
		Players: []string{"amy", "bob", "cat", "dan", "eve"}, SuccessCount: 3, FailCount: 2,
	})

	out, err := c.run("play", "r1", "--page", "game-end", "--auto", "--seed", "9", "--player", "amy")
	require.NoError(t, err)
	assert.Contains(t, out, "[game-end] 正方勝利！成功卡 3，失敗卡 2")
	assert.Len(t, c.srv.Requests("POST", "/api/room/r1/end-game"), 1)

	_, err = c.run("play", "r1", "--page", "nowhere", "--player", "amy")
	assert.Error(t, err)
}

func TestBadConfigIsRejected(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("rooms", "--vote-countdown", "0s")
	assert.Error(t, err)
}
