package phase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DoyleJ11/underground-client/internal/apitest"
	"github.com/DoyleJ11/underground-client/internal/broadcast"
	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skillRoom() types.Room {
	r := seatRoom("r1", "amy", "bob", "cat")
	r.CurrentExpedition = []string{"bob", "cat"}
	r.MissionResults = map[int]types.MissionRecord{
		1: {SuccessCount: 1, FailCount: 1, CardMap: map[string]types.Card{"bob": types.CardFail, "cat": types.CardSuccess}},
	}
	return r
}

func TestSkill_CommanderChecksTarget(t *testing.T) {
	f := newFixture(t, "amy")
	f.sess.Timings.SkillCountdown = 300 * time.Millisecond
	var offered []string
	var asked engine.Role
	f.dec.target = func(role engine.Role, candidates []string) string {
		asked, offered = role, candidates
		return "bob"
	}
	room := skillRoom()
	room.AssignedRoles = roles(map[string]string{"amy": "指揮官", "bob": "潛伏者", "cat": "普通倖存者"})
	f.srv.AddRoom(room)

	res := run(t, func(ctx context.Context) (engine.Navigation, error) { return f.sess.Skill(ctx, "r1") })
	require.NoError(t, res.err)
	assert.Equal(t, engine.Navigation{Page: engine.PageFrontPage, RoomID: "r1"}, res.nav)

	assert.Equal(t, engine.RoleCommander, asked)
	assert.Equal(t, []string{"bob", "cat"}, offered)
	assert.True(t, f.view.has("bob 的陣營是：evil（剩餘次數：1）"))
	assert.True(t, f.view.has("技能結算順序：影武者 → 指揮官"))
	assert.Len(t, f.srv.Requests("POST", "/api/room/r1/skill-finish"), 1, "countdown closes the phase")

	got, _ := f.srv.Room("r1")
	assert.Equal(t, 2, got.CurrentRound)
}

func TestSkill_LurkerTargetsThisRoundsCards(t *testing.T) {
	f := newFixture(t, "bob")
	f.sess.Timings.SkillCountdown = 300 * time.Millisecond
	var offered []string
	f.dec.target = func(_ engine.Role, candidates []string) string {
		offered = candidates
		return ""
	}
	room := skillRoom()
	room.AssignedRoles = roles(map[string]string{"amy": "指揮官", "bob": "潛伏者", "cat": "普通倖存者"})
	f.srv.AddRoom(room)

	res := run(t, func(ctx context.Context) (engine.Navigation, error) { return f.sess.Skill(ctx, "r1") })
	require.NoError(t, res.err)
	assert.Equal(t, []string{"cat"}, offered)
	assert.Empty(t, f.srv.Requests("POST", "/api/skill/lurker-toggle"), "an empty target skips the skill")
}

func TestSkill_FailedSkillIsRetried(t *testing.T) {
	f := newFixture(t, "amy")
	f.sess.Timings.SkillCountdown = 500 * time.Millisecond
	f.dec.target = func(engine.Role, []string) string { return "cat" }
	room := skillRoom()
	room.AssignedRoles = roles(map[string]string{"amy": "醫護兵", "bob": "潛伏者", "cat": "普通倖存者"})
	f.srv.AddRoom(room)
	f.srv.Do(func(st *apitest.State) { st.SkillStatus["medic-protect"] = 403 })

	res := run(t, func(ctx context.Context) (engine.Navigation, error) { return f.sess.Skill(ctx, "r1") })
	require.NoError(t, res.err)
	assert.Len(t, f.srv.Requests("POST", "/api/skill/medic-protect"), maxSkillAttempts)
	assert.True(t, f.view.has("使用失敗：技能無法使用"))
}

func TestSkill_EngineerBlockedThenAllSkillUsed(t *testing.T) {
	f := newFixture(t, "amy")
	room := skillRoom()
	room.AssignedRoles = roles(map[string]string{"amy": "偵查官", "bob": "潛伏者", "cat": "影武者"})
	f.srv.AddRoom(room)
	f.srv.Do(func(st *apitest.State) {
		st.SkillStates["r1"] = types.SkillState{RemainingRoles: []string{"偵查官", "潛伏者"}, BlockedRoles: []string{"偵查官"}}
	})
	f.attach(t, "r1")

	done, _ := start(t, func(ctx context.Context) (engine.Navigation, error) { return f.sess.Skill(ctx, "r1") })
	f.view.waitFor(t, "你的技能已被封鎖!", 2*time.Second)
	f.waitListeners(t, 1)

	f.srv.Broker.Broadcast(broadcast.TopicSkill.Destination("r1"), string(types.SigAllSkillUsed))

	res := wait(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, engine.PageFrontPage, res.nav.Page)
	assert.True(t, f.view.has("所有技能發動完畢"))
	assert.False(t, f.view.has("本回合任務："))
	assert.Empty(t, f.srv.Requests("POST", "/api/room/r1/skill-finish"))
}

func TestSkill_EngineerSeesCounts(t *testing.T) {
	f := newFixture(t, "amy")
	f.sess.Timings.SkillCountdown = 200 * time.Millisecond
	room := skillRoom()
	room.AssignedRoles = roles(map[string]string{"amy": "偵查官", "bob": "潛伏者", "cat": "影武者"})
	f.srv.AddRoom(room)

	res := run(t, func(ctx context.Context) (engine.Navigation, error) { return f.sess.Skill(ctx, "r1") })
	require.NoError(t, res.err)
	assert.True(t, f.view.has("本回合任務：成功 1 張，失敗 1 張"))
}

func TestSkill_CivilianGuessesOnFinalRound(t *testing.T) {
	f := newFixture(t, "amy")
	f.sess.Timings.SkillCountdown = 300 * time.Millisecond
	f.dec.guesses = func(players []string) map[string]string {
		out := make(map[string]string, len(players))
		for _, p := range players {
			out[p] = string(engine.FactionEvil)
		}
		return out
	}
	room := seatRoom("r1", "amy", "bob", "cat", "dan", "eve")
	room.CurrentRound, room.MaxRound = 5, 5
	room.AssignedRoles = roles(map[string]string{"amy": "普通倖存者", "bob": "潛伏者", "cat": "破壞者", "dan": "醫護兵", "eve": "指揮官"})
	f.srv.AddRoom(room)
	f.srv.Do(func(st *apitest.State) {
		st.SkillStates["r1"] = types.SkillState{RemainingRoles: []string{}, BlockedRoles: []string{}}
		st.Ultimate = types.UltimateResult{Message: "猜中 2 人"}
	})

	res := run(t, func(ctx context.Context) (engine.Navigation, error) { return f.sess.Skill(ctx, "r1") })
	require.NoError(t, res.err)

	posts := f.srv.Requests("POST", "/api/skill/civilian-ultimate")
	require.Len(t, posts, 1)
	var req types.UltimateRequest
	require.NoError(t, json.Unmarshal(posts[0].Body, &req))
	assert.Equal(t, "amy", req.PlayerName)
	assert.Len(t, req.Guesses, 4)
	assert.NotContains(t, req.Guesses, "amy")
	assert.True(t, f.view.has("猜中 2 人"))
}

func TestSkill_CivilianGuessesAskedAgain(t *testing.T) {
	f := newFixture(t, "amy")
	f.sess.Timings.SkillCountdown = 500 * time.Millisecond
	f.dec.guesses = func(players []string) map[string]string {
		if f.dec.Calls("guesses") == 1 {
			return map[string]string{players[0]: "good", players[1]: ""}
		}
		out := make(map[string]string, len(players))
		for _, p := range players {
			out[p] = string(engine.FactionGood)
		}
		return out
	}
	room := seatRoom("r1", "amy", "bob", "cat", "dan", "eve")
	room.CurrentRound, room.MaxRound = 5, 5
	room.AssignedRoles = roles(map[string]string{"amy": "邪惡平民", "bob": "潛伏者", "cat": "破壞者", "dan": "醫護兵", "eve": "指揮官"})
	f.srv.AddRoom(room)
	f.srv.Do(func(st *apitest.State) {
		st.SkillStates["r1"] = types.SkillState{RemainingRoles: []string{}, BlockedRoles: []string{}}
		st.Ultimate = types.UltimateResult{Message: "猜中 2 人"}
		st.FailUltimate = 1
	})

	res := run(t, func(ctx context.Context) (engine.Navigation, error) { return f.sess.Skill(ctx, "r1") })
	require.NoError(t, res.err)

	assert.Equal(t, 3, f.dec.Calls("guesses"))
	assert.Len(t, f.srv.Requests("POST", "/api/skill/civilian-ultimate"), 2, "the incomplete answer is never posted")
	assert.True(t, f.view.has("每個人都要選完。"))
	assert.True(t, f.view.has("發動失敗"))
	assert.True(t, f.view.has("猜中 2 人"))
}

func TestCompleteGuesses(t *testing.T) {
	candidates := []string{"bob", "cat"}
	cases := []struct {
		name    string
		guesses map[string]string
		want    bool
	}{
		{"all set", map[string]string{"bob": "good", "cat": "evil"}, true},
		{"extra names ignored", map[string]string{"bob": "good", "cat": "evil", "zed": "good"}, true},
		{"missing", map[string]string{"bob": "good"}, false},
		{"blank", map[string]string{"bob": "good", "cat": ""}, false},
		{"unknown faction", map[string]string{"bob": "good", "cat": "maybe"}, false},
		{"right size wrong names", map[string]string{"bob": "good", "zed": "evil"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, completeGuesses(candidates, tc.guesses))
		})
	}
}

func TestSkill_CivilianBeforeFinalRoundJustWaits(t *testing.T) {
	f := newFixture(t, "cat")
	f.sess.Timings.SkillCountdown = 150 * time.Millisecond
	room := skillRoom()
	room.AssignedRoles = roles(map[string]string{"amy": "指揮官", "bob": "潛伏者", "cat": "普通倖存者"})
	f.srv.AddRoom(room)

	res := run(t, func(ctx context.Context) (engine.Navigation, error) { return f.sess.Skill(ctx, "r1") })
	require.NoError(t, res.err)
	assert.Zero(t, f.dec.Calls("guesses"))
	assert.True(t, f.view.has(engine.ImmersiveMessage("普通倖存者")))
}

func TestSkill_NoRoleIsAnError(t *testing.T) {
	f := newFixture(t, "zed")
	f.srv.AddRoom(skillRoom())
	res := run(t, func(ctx context.Context) (engine.Navigation, error) { return f.sess.Skill(ctx, "r1") })
	require.Error(t, res.err)
}
