package brackets

import (
	"errors"
	"math"
)

// ErrInsufficientPlayers is returned when fewer than two players are given.
var ErrInsufficientPlayers = errors.New("at least 2 players are required to build a bracket")

// BracketMatch is one node of the generated match tree, before persistence.
// NextIndex points at the successor match within the returned slice; the
// caller maps indexes to database ids after inserting the matches.
type BracketMatch struct {
	Round       int
	MatchNumber int

	Player1ID *int
	Player2ID *int

	// NextIndex is nil only for the final match.
	NextIndex *int

	// IsBye marks a round-1 match whose second slot stayed empty because of
	// an odd player count. The seated player wins it immediately.
	IsBye bool
}

// BuildSingleElimination constructs the full single-elimination tree for the
// given seeding order. Round 1 pairs consecutive players two at a time; every
// later round is created with both slots empty; round-r match 2i and 2i+1
// both feed round-r+1 match i.
//
// Shuffling for fairness is the caller's job: the builder respects the order
// it is given so that seeding stays testable.
func BuildSingleElimination(playerIDs []int) ([]*BracketMatch, error) {
	n := len(playerIDs)
	if n < 2 {
		return nil, ErrInsufficientPlayers
	}

	rounds := int(math.Ceil(math.Log2(float64(n))))

	matches := make([]*BracketMatch, 0, n-1)

	// Round 1: ceil(n/2) matches. An odd n leaves the last match with an
	// empty second slot, flagged as a bye.
	firstRoundCount := (n + 1) / 2
	for i := 0; i < firstRoundCount; i++ {
		bm := &BracketMatch{
			Round:       1,
			MatchNumber: i + 1,
		}
		p1 := playerIDs[i*2]
		bm.Player1ID = &p1
		if i*2+1 < n {
			p2 := playerIDs[i*2+1]
			bm.Player2ID = &p2
		} else {
			bm.IsBye = true
		}
		matches = append(matches, bm)
	}

	// Subsequent rounds: empty slots, to be filled by advancement.
	prevStart := 0
	prevCount := firstRoundCount
	for round := 2; round <= rounds; round++ {
		count := (prevCount + 1) / 2
		start := len(matches)
		for i := 0; i < count; i++ {
			matches = append(matches, &BracketMatch{
				Round:       round,
				MatchNumber: i + 1,
			})
		}
		for i := 0; i < prevCount; i++ {
			next := start + i/2
			matches[prevStart+i].NextIndex = &next
		}
		prevStart = start
		prevCount = count
	}

	return matches, nil
}
