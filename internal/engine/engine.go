package engine

import (
	"errors"

	"github.com/DoyleJ11/underground-client/pkg/types"
)

var ErrWrongExpeditionSize = errors.New("wrong expedition size")
var ErrDuplicateMember = errors.New("duplicate expedition member")
var ErrUnknownPlayer = errors.New("player not in room")
var ErrInvalidUsername = errors.New("username must be letters and digits only")

// Snapshot is the merged view of everything the server has said about the
// current vote. Nil means the server never sent that field.
type Snapshot struct {
	Agree         int
	Reject        int
	Abstain       *int
	TotalEligible *int
	Threshold     *int
	Passed        *bool
	Closed        *bool
}

// Decision is the reconciled vote outcome shown to the player.
type Decision struct {
	Agree   int
	Reject  int
	Abstain int
	Total   int
	Needed  int
	Passed  bool
}

// Effective is the number of ballots that count toward the threshold.
func (d Decision) Effective() int { return d.Total - d.Abstain }

// Merge folds a newer server reply into s. Counts always take the newer
// value; optional fields only move when the newer reply carries them.
func Merge(s Snapshot, r types.VoteResult) Snapshot {
	if r.Agree != nil {
		s.Agree = *r.Agree
	}
	if r.Reject != nil {
		s.Reject = *r.Reject
	}
	if r.Abstain != nil {
		s.Abstain = r.Abstain
	}
	if r.TotalEligible != nil {
		s.TotalEligible = r.TotalEligible
	}
	if r.Threshold != nil {
		s.Threshold = r.Threshold
	}
	if r.Passed != nil {
		s.Passed = r.Passed
	}
	if r.Closed != nil {
		s.Closed = r.Closed
	}
	return s
}

// Authoritative reports whether the server has finished talking about this
// vote, so polling can stop.
func Authoritative(s Snapshot) bool {
	if s.Closed != nil || s.Passed != nil {
		return true
	}
	return s.Abstain != nil && s.TotalEligible != nil
}

// Decide reconciles a snapshot into an outcome. rosterSize stands in for
// totalEligible when the server didn't send one.
func Decide(s Snapshot, rosterSize int) Decision {
	a, r := s.Agree, s.Reject

	total := rosterSize
	if s.TotalEligible != nil {
		total = *s.TotalEligible
	}
	if total < a+r {
		total = a + r
	}

	abstain := total - (a + r)
	if s.Abstain != nil {
		abstain = *s.Abstain
	}
	if abstain < 0 {
		abstain = 0
	}

	var needed int
	if s.Threshold != nil {
		needed = *s.Threshold
	} else {
		effective := max(0, total-abstain)
		needed = (effective + 1) / 2
	}

	passed := a >= needed
	if s.Passed != nil {
		passed = *s.Passed
	}

	return Decision{Agree: a, Reject: r, Abstain: abstain, Total: total, Needed: needed, Passed: passed}
}
