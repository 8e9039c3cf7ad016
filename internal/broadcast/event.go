package broadcast

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/DoyleJ11/underground-client/pkg/types"
)

type Topic string

const (
	TopicRoom   Topic = "room"
	TopicVote   Topic = "vote"
	TopicSkill  Topic = "skill"
	TopicLeader Topic = "leader"
)

var Topics = []Topic{TopicRoom, TopicVote, TopicSkill, TopicLeader}

func (t Topic) Destination(roomID string) string {
	return "/topic/" + string(t) + "/" + roomID
}

type Kind string

const (
	KindSignal  Kind = "signal"
	KindGameEnd Kind = "game-end"
	KindTally   Kind = "tally"
	KindLeader  Kind = "leader"
)

// Event is one decoded broadcast.
type Event struct {
	Topic   Topic
	Kind    Kind
	Signal  types.Signal
	Arg     string // player name for avatarSelected:<name>
	GameEnd *types.GameEnd
	Tally   *types.VoteTally
	Leader  string
	Raw     string
}

// Is reports whether e is the plain signal s.
func (e Event) Is(s types.Signal) bool {
	return e.Kind == KindSignal && e.Signal == s
}

// Decode turns a message body into an Event. Unknown JSON and text fall back
// to a signal carrying the raw body, so nothing is silently lost.
func Decode(topic Topic, body []byte) Event {
	raw := string(bytes.TrimSpace(body))
	ev := Event{Topic: topic, Raw: raw}

	if topic == TopicLeader {
		ev.Kind = KindLeader
		ev.Leader = unquote(raw)
		return ev
	}

	if strings.HasPrefix(raw, "{") {
		var peek struct {
			Type  string `json:"type"`
			Agree *int   `json:"agree"`
		}
		if json.Unmarshal(body, &peek) == nil {
			switch {
			case peek.Type == types.GameEndType:
				var ge types.GameEnd
				if json.Unmarshal(body, &ge) == nil {
					ev.Kind = KindGameEnd
					ev.GameEnd = &ge
					return ev
				}
			case peek.Agree != nil:
				var tally types.VoteTally
				if json.Unmarshal(body, &tally) == nil {
					ev.Kind = KindTally
					ev.Tally = &tally
					return ev
				}
			}
		}
	}

	ev.Kind = KindSignal
	sig := unquote(raw)
	if name, arg, ok := strings.Cut(sig, ":"); ok {
		ev.Signal = types.Signal(name)
		ev.Arg = arg
		return ev
	}
	ev.Signal = types.Signal(sig)
	return ev
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var out string
		if json.Unmarshal([]byte(s), &out) == nil {
			return out
		}
	}
	return s
}
