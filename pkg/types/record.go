package types

import "time"

type PlayerResult struct {
	Role    string `json:"role"`
	Avatar  string `json:"avatar"`
	Outcome string `json:"outcome"` // 勝利 | 落敗
}

type GameRecord struct {
	ID            string                  `json:"id"`
	RoomID        string                  `json:"roomId"`
	PlayDate      Timestamp               `json:"playDate"`
	PlayerCount   int                     `json:"playerCount"`
	Result        string                  `json:"result"`
	Players       []string                `json:"players"`
	PlayerResults map[string]PlayerResult `json:"playerResults"`
	SuccessCount  int                     `json:"successCount"`
	FailCount     int                     `json:"failCount"`
}

type PlayerStats struct {
	TotalGames int64   `json:"totalGames"`
	Wins       int64   `json:"wins"`
	WinRate    float64 `json:"winRate"`
}

type EndGameResponse struct {
	Message  string `json:"message"`
	RecordID string `json:"recordId"`
}

// Timestamp accepts the backend's zone-less LocalDateTime as well as RFC 3339.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	var err error
	for _, layout := range timestampLayouts {
		var parsed time.Time
		if parsed, err = time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return err
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}
