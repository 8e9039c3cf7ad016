package types

// Card is a mission card as the backend spells it.
type Card string

const (
	CardSuccess Card = "SUCCESS"
	CardFail    Card = "FAIL"
)

type RoleInfo struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type MissionRecord struct {
	SuccessCount int             `json:"successCount"`
	FailCount    int             `json:"failCount"`
	CardMap      map[string]Card `json:"cardMap,omitempty"`
}

// Room mirrors GET /api/room/{id}. Only the fields the client reads are kept.
type Room struct {
	ID                  string                `json:"id"`
	RoomName            string                `json:"roomName"`
	PlayerCount         int                   `json:"playerCount"`
	RoomType            string                `json:"roomType"`
	RoomPassword        string                `json:"roomPassword,omitempty"`
	Started             bool                  `json:"started"`
	Players             []string              `json:"players"`
	AvatarMap           map[string]string     `json:"avatarMap,omitempty"`
	AssignedRoles       map[string]RoleInfo   `json:"assignedRoles,omitempty"`
	CurrentRound        int                   `json:"currentRound"`
	MaxRound            int                   `json:"maxRound"`
	CurrentExpedition   []string              `json:"currentExpedition,omitempty"`
	MissionResults      map[int]MissionRecord `json:"missionResults,omitempty"`
	SuccessCount        int                   `json:"successCount"`
	FailCount           int                   `json:"failCount"`
	UsedSkillMap        map[string]bool       `json:"usedSkillMap,omitempty"`
	MedicSkillUsed      map[string]bool       `json:"medicSkillUsed,omitempty"`
	ShadowSkillCount    map[string]int        `json:"shadowSkillCount,omitempty"`
	ShadowUsedThisRound []string              `json:"shadowUsedThisRound,omitempty"`
	CurrentLeader       string                `json:"currentLeader,omitempty"`
	GoodExtraScore      int                   `json:"goodExtraScore"`
	EvilExtraScore      int                   `json:"evilExtraScore"`
}

const (
	RoomPublic  = "public"
	RoomPrivate = "private"
)

// Host is the room creator; the backend keeps it at players[0].
func (r Room) Host() string {
	if len(r.Players) == 0 {
		return ""
	}
	return r.Players[0]
}

func (r Room) Full() bool {
	want := r.PlayerCount
	if want == 0 {
		want = 10
	}
	return len(r.Players) >= want
}

// CurrentMission returns this round's record, if the cards are in.
func (r Room) CurrentMission() (MissionRecord, bool) {
	rec, ok := r.MissionResults[r.CurrentRound]
	return rec, ok
}

type Player struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Role   string `json:"role,omitempty"`
}

// Roles is the body of GET /api/room/{id}/roles and POST .../assign-roles.
type Roles struct {
	AssignedRoles map[string]RoleInfo `json:"assignedRoles"`
	CurrentLeader string              `json:"currentLeader"`
}

type CreateRoomRequest struct {
	RoomName     string `json:"roomName"`
	PlayerCount  int    `json:"playerCount"`
	RoomType     string `json:"roomType"`
	RoomPassword string `json:"roomPassword,omitempty"`
}

type AvatarRequest struct {
	PlayerName string `json:"playerName"`
	Avatar     string `json:"avatar"`
}

// Result is the {success, message} envelope used by join/exit/start and auth.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
