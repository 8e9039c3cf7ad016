package engine

import "slices"

// ExpeditionSizes is the per-round pick size by player count.
var ExpeditionSizes = map[int][]int{
	5: {2, 2, 2, 3, 3},
	6: {2, 2, 3, 3, 4, 3},
	7: {3, 3, 4, 4, 4, 4},
	8: {3, 3, 4, 4, 4, 5, 5},
	9: {4, 4, 4, 5, 5, 5, 5},
}

const (
	defaultPick   = 2
	defaultRounds = 5
)

// MaxPick is how many players the leader must send on round (1-based). A
// round outside the table, on either side, uses the last entry.
func MaxPick(round, playerCount int) int {
	sizes, ok := ExpeditionSizes[playerCount]
	if !ok || len(sizes) == 0 {
		return defaultPick
	}
	i := round - 1
	if i < 0 || i >= len(sizes) {
		i = len(sizes) - 1
	}
	return sizes[i]
}

func TotalRounds(playerCount int) int {
	if sizes, ok := ExpeditionSizes[playerCount]; ok {
		return len(sizes)
	}
	return defaultRounds
}

// ValidateExpedition checks that selection names exactly n distinct players
// from roster.
func ValidateExpedition(selection []string, n int, roster []string) error {
	if len(selection) != n {
		return ErrWrongExpeditionSize
	}
	seen := make(map[string]bool, len(selection))
	for _, name := range selection {
		if seen[name] {
			return ErrDuplicateMember
		}
		seen[name] = true
		if !slices.Contains(roster, name) {
			return ErrUnknownPlayer
		}
	}
	return nil
}
