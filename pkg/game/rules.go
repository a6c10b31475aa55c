package game

// MaxSeats is the fixed table capacity.
const MaxSeats = 5

const (
	// TotalRounds is the number of rounds in a full game.
	TotalRounds = 21

	maxHandCards  = 10
	noTrumpRound  = 11
	allTrumpRound = 12
)

// CardsForRound returns the hand size for a round: 1..10 for rounds 1..10, a
// plateau of 10 for rounds 11 and 12, then back down to 1 by round 21.
func CardsForRound(round int) int {
	if round <= maxHandCards {
		return round
	}
	if round == noTrumpRound || round == allTrumpRound {
		return maxHandCards
	}
	cards := maxHandCards - (round - allTrumpRound)
	if cards < 1 {
		return 1
	}
	return cards
}

// HasTrump reports whether a trump card is drawn for the round. Round 11 is
// the single no-trump round.
func HasTrump(round int) bool {
	return round != noTrumpRound
}

// scoreDelta is the end-of-round score change for a seat that bet b and won
// w tricks. Missing the bid in either direction costs points; hitting it
// exactly pays 10 per trick, or a flat 20 for an exact zero bid.
func scoreDelta(bet, won int) int {
	if bet > won {
		return -bet
	}
	if bet < won {
		return -won
	}
	if bet == 0 {
		return 20
	}
	return bet * 10
}
