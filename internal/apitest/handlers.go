package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/DoyleJ11/underground-client/internal/engine"
	"github.com/DoyleJ11/underground-client/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain;charset=UTF-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func (s *Server) publish(topic, roomID string, v any) {
	var body string
	switch m := v.(type) {
	case string:
		body = m
	default:
		b, _ := json.Marshal(m)
		body = string(b)
	}
	s.Broker.Broadcast("/topic/"+topic+"/"+roomID, body)
}

// withRoom looks up the room named by the path or roomId query under lock.
func (s *Server) withRoom(w http.ResponseWriter, r *http.Request, fn func(st *State, room *types.Room)) {
	id := chi.URLParam(r, "roomID")
	if id == "" {
		id = r.URL.Query().Get("roomId")
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	room := s.state.Rooms[id]
	if room == nil {
		writeText(w, http.StatusNotFound, "找不到房間")
		return
	}
	fn(s.state, room)
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	out := make([]types.Room, 0, len(s.state.Rooms))
	for _, room := range s.state.Rooms {
		if !room.Started {
			out = append(out, *room)
		}
	}
	slices.SortFunc(out, func(a, b types.Room) int { return strings.Compare(a.ID, b.ID) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	s.withRoom(w, r, func(_ *State, room *types.Room) {
		writeJSON(w, http.StatusOK, room)
	})
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var req types.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "bad json")
		return
	}
	player := r.URL.Query().Get("playerName")

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	name := req.RoomName + "房間"
	for _, room := range s.state.Rooms {
		if room.RoomName == name {
			writeText(w, http.StatusBadRequest, "房間名稱已存在，請選擇其他名稱！")
			return
		}
	}
	room := &types.Room{
		ID:             uuid.NewString(),
		RoomName:       name,
		PlayerCount:    req.PlayerCount,
		RoomType:       req.RoomType,
		RoomPassword:   req.RoomPassword,
		Players:        []string{player},
		AvatarMap:      map[string]string{},
		MissionResults: map[int]types.MissionRecord{},
		CurrentRound:   1,
	}
	if room.RoomType != types.RoomPrivate {
		room.RoomPassword = ""
	}
	s.state.Rooms[room.ID] = room
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	player := q.Get("playerName")
	s.withRoom(w, r, func(_ *State, room *types.Room) {
		switch {
		case room.RoomType == types.RoomPrivate && q.Get("roomPassword") != room.RoomPassword:
			writeText(w, http.StatusForbidden, "密碼錯誤")
		case len(room.Players) >= room.PlayerCount:
			writeText(w, http.StatusBadRequest, "房間人數已滿")
		case slices.Contains(room.Players, player):
			writeText(w, http.StatusBadRequest, "玩家已經加入房間")
		default:
			room.Players = append(room.Players, player)
			writeJSON(w, http.StatusOK, types.Result{Success: true, Message: "加入房間成功"})
		}
	})
}

func (s *Server) exitRoom(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("playerName")
	s.withRoom(w, r, func(st *State, room *types.Room) {
		i := slices.Index(room.Players, player)
		if i < 0 {
			writeText(w, http.StatusBadRequest, "該玩家不在此房間")
			return
		}
		room.Players = slices.Delete(room.Players, i, i+1)
		if len(room.Players) == 0 {
			delete(st.Rooms, room.ID)
			writeJSON(w, http.StatusOK, types.Result{Success: true, Message: "退出房間成功，房間已刪除"})
			return
		}
		s.publish("room", room.ID, string(types.SigRefresh))
		writeJSON(w, http.StatusOK, types.Result{Success: true, Message: "退出房間成功"})
	})
}

func (s *Server) startGame(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("playerName")
	s.withRoom(w, r, func(_ *State, room *types.Room) {
		if room.Host() != player {
			writeText(w, http.StatusBadRequest, "只有房主可以開始遊戲")
			return
		}
		room.Started = true
		s.publish("room", room.ID, string(types.SigStartGame))
		writeJSON(w, http.StatusOK, types.Result{Success: true, Message: "遊戲開始訊息已廣播"})
	})
}

func (s *Server) selectAvatar(w http.ResponseWriter, r *http.Request) {
	var req types.AvatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "bad json")
		return
	}
	s.withRoom(w, r, func(_ *State, room *types.Room) {
		if !slices.Contains(room.Players, req.PlayerName) {
			writeText(w, http.StatusBadRequest, "該玩家不在此房間")
			return
		}
		room.AvatarMap[req.PlayerName] = req.Avatar
		s.publish("room", room.ID, "avatarSelected:"+req.PlayerName)
		if len(room.AvatarMap) >= room.PlayerCount {
			s.publish("room", room.ID, string(types.SigAllAvatarSelected))
		}
		w.WriteHeader(http.StatusOK)
	})
}

func (st *State) deal(room *types.Room) {
	room.AssignedRoles = make(map[string]types.RoleInfo, len(room.Players))
	for i, p := range room.Players {
		room.AssignedRoles[p] = st.RoleDeck[i%len(st.RoleDeck)]
	}
	if room.CurrentLeader == "" && len(room.Players) > 0 {
		room.CurrentLeader = room.Players[0]
	}
	if room.CurrentRound == 0 {
		room.CurrentRound = 1
	}
}

func (s *Server) startRealGame(w http.ResponseWriter, r *http.Request) {
	s.withRoom(w, r, func(st *State, room *types.Room) {
		if len(room.AssignedRoles) > 0 {
			writeJSON(w, http.StatusConflict, room.AssignedRoles)
			return
		}
		st.deal(room)
		s.publish("room", room.ID, string(types.SigStartRealGame))
		writeJSON(w, http.StatusOK, room.AssignedRoles)
	})
}

func (s *Server) players(w http.ResponseWriter, r *http.Request) {
	s.withRoom(w, r, func(_ *State, room *types.Room) {
		out := make([]types.Player, 0, len(room.AvatarMap))
		for _, p := range room.Players {
			if a, ok := room.AvatarMap[p]; ok {
				out = append(out, types.Player{Name: p, Avatar: a})
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
}

func (s *Server) roles(w http.ResponseWriter, r *http.Request) {
	s.withRoom(w, r, func(_ *State, room *types.Room) {
		writeJSON(w, http.StatusOK, types.Roles{AssignedRoles: room.AssignedRoles, CurrentLeader: room.CurrentLeader})
	})
}

func (s *Server) assignRoles(w http.ResponseWriter, r *http.Request) {
	s.withRoom(w, r, func(st *State, room *types.Room) {
		if len(room.AssignedRoles) == 0 {
			st.deal(room)
		}
		writeJSON(w, http.StatusOK, types.Roles{AssignedRoles: room.AssignedRoles, CurrentLeader: room.CurrentLeader})
	})
}

func (s *Server) startVote(w http.ResponseWriter, r *http.Request) {
	var req types.StartVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "bad json")
		return
	}
	s.withRoom(w, r, func(st *State, room *types.Room) {
		room.CurrentExpedition = req.Expedition
		st.Votes[room.ID] = make(map[string]*bool)
		s.publish("room", room.ID, string(types.SigStartVote))
		s.publish("vote", room.ID, types.VoteTally{Expedition: req.Expedition})
		w.WriteHeader(http.StatusOK)
	})
}

func tally(votes map[string]*bool) (agree, reject, abstain int) {
	for _, v := range votes {
		switch {
		case v == nil:
			abstain++
		case *v:
			agree++
		default:
			reject++
		}
	}
	return
}

// finishVote settles the vote the way the backend does and rotates the leader.
func (s *Server) finishVote(st *State, room *types.Room) {
	votes := st.Votes[room.ID]
	agree, reject, abstain := tally(votes)
	total := len(room.Players)
	snap := engine.Snapshot{Agree: agree, Reject: reject, Abstain: &abstain, TotalEligible: &total}
	d := engine.Decide(snap, total)
	if d.Passed {
		s.publish("vote", room.ID, string(types.SigVotePassed))
	} else {
		s.publish("vote", room.ID, string(types.SigVoteFailed))
	}
	if i := slices.Index(room.Players, room.CurrentLeader); i >= 0 && len(room.Players) > 0 {
		room.CurrentLeader = room.Players[(i+1)%len(room.Players)]
		s.publish("leader", room.ID, room.CurrentLeader)
		s.publish("room", room.ID, string(types.SigLeaderChanged))
	}
}

func (s *Server) vote(w http.ResponseWriter, r *http.Request) {
	var req types.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "bad json")
		return
	}
	s.withRoom(w, r, func(st *State, room *types.Room) {
		votes := st.Votes[room.ID]
		if votes == nil {
			votes = make(map[string]*bool)
			st.Votes[room.ID] = votes
		}
		if _, ok := votes[req.Voter]; ok {
			writeText(w, http.StatusBadRequest, "已經投過票")
			return
		}
		if req.Abstain || req.Agree == nil {
			votes[req.Voter] = nil
		} else {
			agree := *req.Agree
			votes[req.Voter] = &agree
		}
		agree, reject, _ := tally(votes)
		finished := len(votes) >= len(room.Players)
		s.publish("vote", room.ID, types.VoteTally{Agree: agree, Reject: reject, Finished: finished, Expedition: room.CurrentExpedition})
		if finished {
			s.finishVote(st, room)
		}
		writeJSON(w, http.StatusOK, map[string]any{"agree": agree, "reject": reject, "finished": finished})
	})
}

func (s *Server) voteTimeUp(w http.ResponseWriter, r *http.Request) {
	s.withRoom(w, r, func(st *State, room *types.Room) {
		votes := st.Votes[room.ID]
		if votes == nil {
			votes = make(map[string]*bool)
			st.Votes[room.ID] = votes
		}
		if len(votes) >= len(room.Players) {
			// already settled when the last ballot came in
			w.WriteHeader(http.StatusOK)
			return
		}
		for _, p := range room.Players {
			if _, ok := votes[p]; !ok {
				votes[p] = nil
			}
		}
		s.finishVote(st, room)
		w.WriteHeader(http.StatusOK)
	})
}

func (s *Server) voteState(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("player")
	s.withRoom(w, r, func(st *State, room *types.Room) {
		votes := st.Votes[room.ID]
		agree, reject, _ := tally(votes)
		_, voted := votes[player]
		writeJSON(w, http.StatusOK, types.VoteState{
			Agree:      agree,
			Reject:     reject,
			Total:      len(room.Players),
			CanVote:    slices.Contains(room.Players, player) && !voted,
			HasVoted:   voted,
			Expedition: room.CurrentExpedition,
		})
	})
}

func (s *Server) voteResult(w http.ResponseWriter, r *http.Request) {
	s.withRoom(w, r, func(st *State, room *types.Room) {
		if st.VoteResultDown {
			writeText(w, http.StatusServiceUnavailable, "結算中")
			return
		}
		if replies := st.VoteReplies[room.ID]; len(replies) > 0 {
			next := replies[0]
			if len(replies) > 1 {
				st.VoteReplies[room.ID] = replies[1:]
			}
			writeJSON(w, http.StatusOK, next)
			return
		}
		agree, reject, _ := tally(st.Votes[room.ID])
		writeJSON(w, http.StatusOK, map[string]int{"agree": agree, "reject": reject})
	})
}

func (s *Server) missionState(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("player")
	s.withRoom(w, r, func(_ *State, room *types.Room) {
		var mine types.Card
		if rec, ok := room.MissionResults[room.CurrentRound]; ok {
			mine = rec.CardMap[player]
		}
		writeJSON(w, http.StatusOK, types.MissionState{
			Expedition:   room.CurrentExpedition,
			InExpedition: slices.Contains(room.CurrentExpedition, player),
			MyCard:       mine,
			Round:        room.CurrentRound,
		})
	})
}

func (s *Server) missionResult(w http.ResponseWriter, r *http.Request) {
	var req types.MissionCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "bad json")
		return
	}
	s.withRoom(w, r, func(st *State, room *types.Room) {
		if st.FailCards > 0 {
			st.FailCards--
			writeText(w, http.StatusInternalServerError, "暫時無法提交")
			return
		}
		rec := room.MissionResults[room.CurrentRound]
		if rec.CardMap == nil {
			rec.CardMap = make(map[string]types.Card)
		}
		rec.CardMap[req.Player] = req.Result
		room.MissionResults[room.CurrentRound] = rec

		if len(rec.CardMap) >= len(room.CurrentExpedition) {
			rec.SuccessCount, rec.FailCount = 0, 0
			for _, c := range rec.CardMap {
				if c == types.CardSuccess {
					rec.SuccessCount++
				} else {
					rec.FailCount++
				}
			}
			room.MissionResults[room.CurrentRound] = rec
			s.publish("room", room.ID, string(types.SigAllMissionCards))
		}
		w.WriteHeader(http.StatusOK)
	})
}

func (s *Server) skillState(w http.ResponseWriter, r *http.Request) {
	s.withRoom(w, r, func(st *State, room *types.Room) {
		if ss, ok := st.SkillStates[room.ID]; ok {
			writeJSON(w, http.StatusOK, ss)
			return
		}
		ss := types.SkillState{RemainingRoles: []string{}, BlockedRoles: []string{}}
		for _, p := range room.Players {
			if role, ok := room.AssignedRoles[p]; ok && engine.HasSkill(role.Name) {
				ss.RemainingRoles = append(ss.RemainingRoles, role.Name)
			}
		}
		writeJSON(w, http.StatusOK, ss)
	})
}

func (s *Server) skillFinish(w http.ResponseWriter, r *http.Request) {
	s.withRoom(w, r, func(_ *State, room *types.Room) {
		rec, ok := room.MissionResults[room.CurrentRound]
		if !ok || rec.CardMap == nil {
			writeText(w, http.StatusConflict, "尚未結算任務結果")
			return
		}
		room.SuccessCount += rec.SuccessCount
		room.FailCount += rec.FailCount
		room.CurrentRound++
		s.publish("room", room.ID, string(types.SigAllSkillUsed))
		w.WriteHeader(http.StatusOK)
	})
}

func (s *Server) useSkill(w http.ResponseWriter, r *http.Request) {
	skill := chi.URLParam(r, "skill")
	var req types.SkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "bad json")
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if code := s.state.SkillStatus[skill]; code != 0 {
		writeText(w, code, "技能無法使用")
		return
	}
	if reply, ok := s.state.SkillReplies[skill]; ok {
		writeJSON(w, http.StatusOK, reply)
		return
	}
	switch skill {
	case "lurker-toggle":
		writeJSON(w, http.StatusOK, types.LurkerResult{Flipped: req.TargetName, Remaining: 0})
	case "commander-check":
		faction := "unknown"
		if room := s.state.Rooms[req.RoomID]; room != nil {
			faction = string(engine.FactionOf(room.AssignedRoles[req.TargetName].Name))
		}
		writeJSON(w, http.StatusOK, types.CommanderResult{Faction: faction, Remaining: 1})
	case "saboteur-nullify":
		writeJSON(w, http.StatusOK, types.SaboteurResult{Removed: req.TargetName, Remaining: 0})
	case "medic-protect":
		writeJSON(w, http.StatusOK, types.MedicResult{Protected: req.TargetName})
	case "shadow-disable":
		writeJSON(w, http.StatusOK, types.ShadowResult{DisabledTarget: req.TargetName, Remaining: 1})
	default:
		writeText(w, http.StatusNotFound, "unknown skill")
	}
}

func (s *Server) civilianUltimate(w http.ResponseWriter, r *http.Request) {
	var req types.UltimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "bad json")
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if s.state.FailUltimate > 0 {
		s.state.FailUltimate--
		writeText(w, http.StatusInternalServerError, "發動失敗")
		return
	}
	writeJSON(w, http.StatusOK, s.state.Ultimate)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	s.withRoom(w, r, func(st *State, room *types.Room) {
		rec, ok := st.Records[room.ID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})
}

func (s *Server) endGame(w http.ResponseWriter, r *http.Request) {
	result := r.URL.Query().Get("result")
	s.withRoom(w, r, func(st *State, room *types.Room) {
		if rec, ok := st.Records[room.ID]; ok {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "戰績已存在", "recordId": rec.ID})
			return
		}
		good := engine.WinnerOf(result) == engine.WinnerGood
		rec := types.GameRecord{
			ID:            uuid.NewString(),
			RoomID:        room.ID,
			PlayDate:      types.Timestamp{Time: time.Now()},
			PlayerCount:   len(room.Players),
			Result:        result,
			Players:       slices.Clone(room.Players),
			PlayerResults: make(map[string]types.PlayerResult, len(room.Players)),
			SuccessCount:  room.SuccessCount,
			FailCount:     room.FailCount,
		}
		for _, p := range room.Players {
			role := room.AssignedRoles[p].Name
			outcome := "落敗"
			if (engine.FactionOf(role) == engine.FactionGood) == good {
				outcome = "勝利"
			}
			rec.PlayerResults[p] = types.PlayerResult{Role: role, Avatar: "/images/" + room.AvatarMap[p], Outcome: outcome}
		}
		st.Records[room.ID] = rec
		s.publish("room", room.ID, types.GameEnd{Type: types.GameEndType, Result: result, Success: room.SuccessCount, Fail: room.FailCount})
		writeJSON(w, http.StatusOK, types.EndGameResponse{Message: "遊戲結束，紀錄已儲存", RecordID: rec.ID})
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	writeJSON(w, http.StatusOK, s.state.Stats[chi.URLParam(r, "player")])
}

func (s *Server) playerRecords(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	recs := s.state.History[chi.URLParam(r, "player")]
	if recs == nil {
		recs = []types.GameRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req types.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "bad json")
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if pw, ok := s.state.Users[req.Username]; ok && pw == req.Password {
		writeJSON(w, http.StatusOK, types.Result{Success: true, Message: "登入成功！"})
		return
	}
	writeJSON(w, http.StatusOK, types.Result{Success: false, Message: "帳號或密碼錯誤！"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req types.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "bad json")
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if _, ok := s.state.Users[req.Username]; ok {
		writeJSON(w, http.StatusOK, types.Result{Success: false, Message: "帳號已存在！"})
		return
	}
	s.state.Users[req.Username] = req.Password
	writeJSON(w, http.StatusOK, types.Result{Success: true, Message: "註冊成功！"})
}

func (s *Server) passwordHint(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("username")
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	pw, ok := s.state.Users[user]
	if !ok {
		writeText(w, http.StatusNotFound, "User not found")
		return
	}
	hint := pw
	if len(pw) > 2 {
		hint = fmt.Sprintf("%c%s%c", pw[0], strings.Repeat("*", len(pw)-2), pw[len(pw)-1])
	}
	writeJSON(w, http.StatusOK, types.PasswordHint{Hint: hint})
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req types.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.NewPassword == "" {
		writeText(w, http.StatusBadRequest, "Missing parameters")
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if _, ok := s.state.Users[req.Username]; !ok {
		writeText(w, http.StatusNotFound, "User not found")
		return
	}
	s.state.Users[req.Username] = req.NewPassword
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}
