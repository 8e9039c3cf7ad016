package types

// VoteResult is GET /api/room/{id}/vote-result. Every field is optional on
// the wire, and a missing field is not the same as zero.
type VoteResult struct {
	Agree         *int  `json:"agree,omitempty"`
	Reject        *int  `json:"reject,omitempty"`
	Abstain       *int  `json:"abstain,omitempty"`
	TotalEligible *int  `json:"totalEligible,omitempty"`
	Threshold     *int  `json:"threshold,omitempty"`
	Passed        *bool `json:"passed,omitempty"`
	Closed        *bool `json:"closed,omitempty"`
}

// VoteState is GET /api/room/{id}/vote-state?player=.
type VoteState struct {
	Agree      int      `json:"agree"`
	Reject     int      `json:"reject"`
	Total      int      `json:"total"`
	CanVote    bool     `json:"canVote"`
	HasVoted   bool     `json:"hasVoted"`
	Expedition []string `json:"expedition"`
}

// VoteRequest posts either agree/reject or an explicit abstain.
// Abstain is never encoded as agree:false.
type VoteRequest struct {
	Voter   string `json:"voter"`
	Agree   *bool  `json:"agree,omitempty"`
	Abstain bool   `json:"abstain,omitempty"`
}

type StartVoteRequest struct {
	Expedition []string `json:"expedition"`
}

// VoteTally is the running count pushed on /topic/vote/{id}.
type VoteTally struct {
	Agree      int      `json:"agree"`
	Reject     int      `json:"reject"`
	Finished   bool     `json:"finished"`
	Expedition []string `json:"expedition"`
}

type MissionCardRequest struct {
	Player string `json:"player"`
	Result Card   `json:"result"`
}

type MissionState struct {
	Expedition   []string `json:"expedition"`
	InExpedition bool     `json:"inExpedition"`
	MyCard       Card     `json:"myCard,omitempty"`
	Round        int      `json:"round"`
}
