package game

import "math/rand"

// Deck is a shuffled set of all 52 rank/suit combinations, drawn from the
// tail until exhausted.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck builds a full deck and shuffles it with the given random number
// generator.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}
	for _, suit := range suits {
		for rank := MinRank; rank <= MaxRank; rank++ {
			d.cards = append(d.cards, Card{rank: rank, suit: suit})
		}
	}
	d.Shuffle()
	return d
}

// Shuffle randomizes the order of the remaining cards.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the last card. An empty deck is a normal end
// state after dealing, so it reports false rather than an error.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card, true
}

// Size returns the number of cards remaining.
func (d *Deck) Size() int {
	return len(d.cards)
}
