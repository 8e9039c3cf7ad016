package engine

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Role is the ASCII key for a backend role name.
type Role string

const (
	RoleEngineer     Role = "engineer"
	RoleMedic        Role = "medic"
	RoleSaboteur     Role = "saboteur"
	RoleShadow       Role = "shadow"
	RoleLurker       Role = "lurker"
	RoleCommander    Role = "commander"
	RoleCivilianGood Role = "civilian-good"
	RoleCivilianBad  Role = "civilian-bad"
	RoleCivilian     Role = "civilian"
)

type Faction string

const (
	FactionGood    Faction = "good"
	FactionEvil    Faction = "evil"
	FactionUnknown Faction = ""
)

var roleKeys = map[string]Role{
	"偵查官":   RoleEngineer,
	"工程師":   RoleEngineer,
	"醫護兵":   RoleMedic,
	"破壞者":   RoleSaboteur,
	"影武者":   RoleShadow,
	"潛伏者":   RoleLurker,
	"指揮官":   RoleCommander,
	"普通倖存者": RoleCivilianGood,
	"邪惡平民":  RoleCivilianBad,
	"平民":    RoleCivilian,
}

// RoleNames maps a key back to the name the backend uses today.
var RoleNames = map[Role]string{
	RoleEngineer:     "偵查官",
	RoleMedic:        "醫護兵",
	RoleSaboteur:     "破壞者",
	RoleShadow:       "影武者",
	RoleLurker:       "潛伏者",
	RoleCommander:    "指揮官",
	RoleCivilianGood: "普通倖存者",
	RoleCivilianBad:  "邪惡平民",
}

// SkillOrder is the order the backend resolves skills in a round.
var SkillOrder = []Role{RoleShadow, RoleCommander, RoleMedic, RoleLurker, RoleSaboteur, RoleEngineer}

// ResolutionOrder spells SkillOrder with backend names, e.g. for the skill
// page header.
func ResolutionOrder() string {
	out := make([]string, len(SkillOrder))
	for i, r := range SkillOrder {
		out[i] = RoleNames[r]
	}
	return strings.Join(out, " → ")
}

// RoleKey returns the stable key for a role name. Names the client doesn't
// know are normalized and lower-cased so they still compare reliably.
func RoleKey(name string) Role {
	n := norm.NFC.String(strings.TrimSpace(name))
	if r, ok := roleKeys[n]; ok {
		return r
	}
	// Casers keep state, so each call gets its own.
	return Role(cases.Lower(language.Und).String(n))
}

func IsGoodCivilian(name string) bool {
	r := RoleKey(name)
	return r == RoleCivilianGood || r == RoleCivilian
}

func IsBadCivilian(name string) bool { return RoleKey(name) == RoleCivilianBad }

func IsCivilian(name string) bool { return IsGoodCivilian(name) || IsBadCivilian(name) }

// HasSkill reports whether the role acts during the skill phase.
func HasSkill(name string) bool {
	switch RoleKey(name) {
	case RoleLurker, RoleShadow, RoleSaboteur, RoleEngineer, RoleCommander, RoleMedic:
		return true
	}
	return false
}

// FactionOf is the side a role plays for, matching what the commander sees.
func FactionOf(name string) Faction {
	switch RoleKey(name) {
	case RoleEngineer, RoleMedic, RoleCommander, RoleCivilianGood, RoleCivilian, RoleShadow:
		return FactionGood
	case RoleLurker, RoleSaboteur, RoleCivilianBad:
		return FactionEvil
	}
	return FactionUnknown
}

// ImmersiveMessage is the flavour line shown while a role has nothing to do.
func ImmersiveMessage(name string) string {
	if IsGoodCivilian(name) {
		return "您的農作物將在最後迎來豐收，耐心照料這片土地。"
	}
	if IsBadCivilian(name) {
		return "陰影正在集結，等待最後的號角響起。"
	}
	switch RoleKey(name) {
	case RoleEngineer:
		return "你正在校準儀表與管線，等待系統指示。"
	case RoleMedic:
		return "你在整理醫療包與繃帶，靜候下一個訊號。"
	case RoleSaboteur:
		return "你在擦拭工具，默數倒計時的每一刻。"
	case RoleLurker:
		return "你貼近牆角，呼吸如絲，等待破綻。"
	case RoleShadow:
		return "你隱沒在縫隙之中，凝視即將落下的夜幕。"
	case RoleCommander:
		return "你檢閱地圖與旗幟，等待最後的口令。"
	default:
		return "靜待時機，讓命運的指針走到應屬於你的刻度。"
	}
}
