package engine

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/DoyleJ11/underground-client/pkg/types"
)

const (
	ResultGoodWin = "正方勝利"
	ResultEvilWin = "反方勝利"
	ResultDraw    = "平手"
)

type Winner string

const (
	WinnerGood Winner = "good"
	WinnerEvil Winner = "evil"
	WinnerDraw Winner = "draw"
)

func GameResult(success, fail int) string {
	switch {
	case success > fail:
		return ResultGoodWin
	case fail > success:
		return ResultEvilWin
	default:
		return ResultDraw
	}
}

// WinnerOf reads the side out of a result string. The backend also writes
// 好人 for good wins in older records.
func WinnerOf(result string) Winner {
	switch {
	case strings.Contains(result, "正方"), strings.Contains(result, "好人"):
		return WinnerGood
	case strings.Contains(result, "反方"), strings.Contains(result, "壞人"):
		return WinnerEvil
	default:
		return WinnerDraw
	}
}

// SeatOrder lists everyone after me in roster order, wrapping around, with me
// last. If me isn't seated the roster is returned as is.
func SeatOrder(players []string, me string) []string {
	idx := -1
	for i, p := range players {
		if p == me {
			idx = i
			break
		}
	}
	out := make([]string, 0, len(players))
	if idx < 0 {
		return append(out, players...)
	}
	out = append(out, players[idx+1:]...)
	out = append(out, players[:idx]...)
	return append(out, me)
}

// FinalRound reports whether the room is on its last round.
func FinalRound(room types.Room) bool {
	if room.MaxRound > 0 {
		return room.CurrentRound == room.MaxRound
	}
	return room.CurrentRound == TotalRounds(room.PlayerCount)
}

// PastFinalRound is true once the backend has advanced beyond the last round.
func PastFinalRound(room types.Room) bool {
	last := room.MaxRound
	if last <= 0 {
		last = TotalRounds(room.PlayerCount)
	}
	return room.CurrentRound > last
}

var Tips = []string{
	"觀察出戰名單，推測誰最可能被針對。",
	"你也累了嗎?我們一起喝杯咖啡吧!",
	"若你是好人：別急著發言，先聽訊息。",
	"若你是壞人：過度解釋是破綻，適度低調。",
	"1,111,111 x 1,111,111 = 1234567654321",
	"有時候沉默是金...!",
	"領袖選擇有沒有偏向？這也可能是線索。",
	"紙條上寫著：『別急著亮身份，時機很重要。』",
	"我知道你很無聊，你再等一下，等等就好...",
	"真正的好人通常會給出合理但不過度的推理。",
	"過度強調自己清白的人，通常有鬼。",
	"數據和直覺要交替使用，不要只靠一邊。",
	"指揮官跟影武者其實是雙胞胎兄弟。",
}

// RandomTip picks a tip different from current.
func RandomTip(current string) string {
	if len(Tips) == 1 {
		return Tips[0]
	}
	for {
		t := Tips[rand.IntN(len(Tips))]
		if t != current {
			return t
		}
	}
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

func ValidateUsername(name string) error {
	if !usernamePattern.MatchString(name) {
		return ErrInvalidUsername
	}
	return nil
}
