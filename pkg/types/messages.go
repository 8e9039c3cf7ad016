package types

// Server -> Client, STOMP topics
//
// /topic/room/{id}:
//   "startGame" | "refresh" | "avatarSelected:<name>" | "allAvatarSelected"
//   "startRealGame" | "startVote" | "allMissionCardsSubmitted"
//   "votePassed" | "voteFailed" | "leaderChanged"
//   { type: "GAME_END", result: string, success: number, fail: number }
//
// /topic/vote/{id}:
//   { agree: number, reject: number, finished: bool, expedition: string[] }
//
// /topic/skill/{id}:
//   "allSkillUsed"
//
// /topic/leader/{id}:
//   <leader name> (plain text)

type Signal string

const (
	SigStartGame         Signal = "startGame"
	SigRefresh           Signal = "refresh"
	SigAvatarSelected    Signal = "avatarSelected"
	SigAllAvatarSelected Signal = "allAvatarSelected"
	SigStartRealGame     Signal = "startRealGame"
	SigStartVote         Signal = "startVote"
	SigLeaderChanged     Signal = "leaderChanged"
	SigAllMissionCards   Signal = "allMissionCardsSubmitted"
	SigAllSkillUsed      Signal = "allSkillUsed"
	SigVotePassed        Signal = "votePassed"
	SigVoteFailed        Signal = "voteFailed"
)

const GameEndType = "GAME_END"

type GameEnd struct {
	Type    string `json:"type"`
	Result  string `json:"result"`
	Success int    `json:"success"`
	Fail    int    `json:"fail"`
}

// Auth bodies. The backend answers login/register with Result.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type PasswordHint struct {
	Hint string `json:"hint"`
}

type ChangePasswordRequest struct {
	Username    string `json:"username"`
	NewPassword string `json:"newPassword"`
}
