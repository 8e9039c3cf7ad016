package apitest

import (
	"sync"

	"github.com/DoyleJ11/underground-client/pkg/types"
)

// State is everything the fake backend knows. Tests seed and inspect it
// through Server.Do.
type State struct {
	mu       sync.Mutex
	requests []Request

	Rooms map[string]*types.Room
	// Votes per room: voter -> agree, nil for an abstain.
	Votes map[string]map[string]*bool
	// VoteReplies scripts /vote-result per room. Replies are served in
	// order and the last one repeats. Empty means computed counts.
	VoteReplies  map[string][]types.VoteResult
	// VoteResultDown answers /vote-result with a 503.
	VoteResultDown bool
	SkillStates  map[string]types.SkillState
	SkillReplies map[string]any
	SkillStatus  map[string]int
	Ultimate     types.UltimateResult
	Records      map[string]types.GameRecord
	Stats        map[string]types.PlayerStats
	History      map[string][]types.GameRecord
	Users        map[string]string
	RoleDeck     []types.RoleInfo
	// FailCards fails the next n mission-result posts with a 500.
	FailCards int
	// FailUltimate does the same for civilian-ultimate posts.
	FailUltimate int
}

func NewState() *State {
	return &State{
		Rooms:        make(map[string]*types.Room),
		Votes:        make(map[string]map[string]*bool),
		VoteReplies:  make(map[string][]types.VoteResult),
		SkillStates:  make(map[string]types.SkillState),
		SkillReplies: make(map[string]any),
		SkillStatus:  make(map[string]int),
		Records:      make(map[string]types.GameRecord),
		Stats:        make(map[string]types.PlayerStats),
		History:      make(map[string][]types.GameRecord),
		Users:        make(map[string]string),
		RoleDeck: []types.RoleInfo{
			{Name: "偵查官", Image: "goodpeople1.png"},
			{Name: "普通倖存者", Image: "goodpeople4.png"},
			{Name: "潛伏者", Image: "badpeople1.png"},
			{Name: "指揮官", Image: "goodpeople3.png"},
			{Name: "邪惡平民", Image: "badpeople4.png"},
			{Name: "醫護兵", Image: "goodpeople2.png"},
			{Name: "破壞者", Image: "badpeople2.png"},
			{Name: "影武者", Image: "badpeople3.png"},
			{Name: "普通倖存者", Image: "goodpeople4.png"},
		},
	}
}

// Do runs fn with the state locked.
func (s *Server) Do(fn func(st *State)) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	fn(s.state)
}

// AddRoom seeds a room and returns it for further edits under Do.
func (s *Server) AddRoom(room types.Room) {
	s.Do(func(st *State) {
		r := room
		if r.AvatarMap == nil {
			r.AvatarMap = make(map[string]string)
		}
		if r.MissionResults == nil {
			r.MissionResults = make(map[int]types.MissionRecord)
		}
		st.Rooms[r.ID] = &r
	})
}

// Room returns a copy of a seeded room.
func (s *Server) Room(id string) (types.Room, bool) {
	var out types.Room
	var ok bool
	s.Do(func(st *State) {
		if r := st.Rooms[id]; r != nil {
			out, ok = *r, true
		}
	})
	return out, ok
}
