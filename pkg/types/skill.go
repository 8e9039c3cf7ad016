package types

type SkillState struct {
	RemainingRoles []string `json:"remainingRoles"`
	BlockedRoles   []string `json:"blockedRoles"`
}

// SkillRequest is the body shared by every targeted skill endpoint.
type SkillRequest struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	TargetName string `json:"targetName"`
}

type LurkerResult struct {
	Flipped   string `json:"flipped"`
	Remaining int    `json:"remaining"`
}

type CommanderResult struct {
	Faction   string `json:"faction"`
	Remaining int    `json:"remaining"`
}

type SaboteurResult struct {
	Removed   string `json:"removed"`
	Remaining int    `json:"remaining"`
}

// MedicResult carries Protected on success, or Message when the medic was
// shadowed and the charge burned without effect.
type MedicResult struct {
	Protected string `json:"protected,omitempty"`
	Message   string `json:"message,omitempty"`
}

type ShadowResult struct {
	DisabledTarget string `json:"disabledTarget"`
	Remaining      int    `json:"remaining"`
}

type UltimateRequest struct {
	RoomID     string            `json:"roomId"`
	PlayerName string            `json:"playerName"`
	Guesses    map[string]string `json:"guesses"`
}

type UltimateResult struct {
	Message    string `json:"message"`
	AllCorrect bool   `json:"allCorrect"`
	GoodScore  int    `json:"goodScore"`
	EvilScore  int    `json:"evilScore"`
}
