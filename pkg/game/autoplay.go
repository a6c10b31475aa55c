package game

// Automatic decisions for computer seats and for human seats whose turn
// timer expired. Both betting and play heuristics evaluate hands with
// TrickValue so trump weighting matches the table's own comparisons.

// autoBet counts the hand's likely winners: aces, any card above 26
// (a strong trump), or a card above 20 when the hand is short. The count is
// clamped to the round's maximum bet.
func (t *Table) autoBetLocked(p *Participant) int {
	trump := t.trumpSuitLocked()
	count := 0
	for _, card := range p.hand {
		value := card.TrickValue(trump, NoSuit)
		if value == RankAce || value > 26 || (value > 20 && len(p.hand) < 3) {
			count++
		}
	}
	if max := CardsForRound(t.round); count > max {
		count = max
	}
	return count
}

// chooseCard picks a card for the seat based on the current trick and the
// seat's progress toward its bet.
func (t *Table) chooseCardLocked(p *Participant) (Card, bool) {
	if len(p.hand) == 0 {
		return Card{}, false
	}
	if t.topIdx < 0 {
		// Leading the trick.
		if p.tricksWon == p.bet {
			return t.lowestLegalLocked(p)
		}
		return t.leadForWinLocked(p)
	}
	if p.tricksWon == p.bet {
		return t.highestUnderTopLocked(p)
	}
	return t.lowestOverTopLocked(p)
}

// leadForWin leads the strongest legal card, preferring to keep trump in
// hand while a non-trump option exists.
func (t *Table) leadForWinLocked(p *Participant) (Card, bool) {
	trump := t.trumpSuitLocked()
	hasNonTrump := false
	for _, card := range p.hand {
		if trump == NoSuit || card.Suit() != trump {
			hasNonTrump = true
			break
		}
	}
	var best Card
	bestValue := -1
	for _, card := range p.hand {
		if !t.isValidPlayLocked(p, card) {
			continue
		}
		if hasNonTrump && trump != NoSuit && card.Suit() == trump {
			continue
		}
		if value := card.TrickValue(trump, t.leadSuit); value > bestValue {
			best = card
			bestValue = value
		}
	}
	if bestValue < 0 {
		return t.lowestOverTopLocked(p)
	}
	return best, true
}

// lowestLegal plays the cheapest legal card.
func (t *Table) lowestLegalLocked(p *Participant) (Card, bool) {
	trump := t.trumpSuitLocked()
	var best Card
	found := false
	bestValue := 0
	for _, card := range p.hand {
		if !t.isValidPlayLocked(p, card) {
			continue
		}
		value := card.TrickValue(trump, t.leadSuit)
		if !found || value < bestValue {
			best = card
			bestValue = value
			found = true
		}
	}
	return best, found
}

// highestUnderTop plays the strongest legal card that still loses to the
// current top, staying safely under once the bet is met. Falls back to the
// lowest legal card when everything would win.
func (t *Table) highestUnderTopLocked(p *Participant) (Card, bool) {
	if t.topIdx < 0 {
		return t.lowestLegalLocked(p)
	}
	trump := t.trumpSuitLocked()
	topValue := t.trick[t.topIdx].Card.TrickValue(trump, t.leadSuit)
	var best Card
	found := false
	bestValue := -1
	for _, card := range p.hand {
		if !t.isValidPlayLocked(p, card) {
			continue
		}
		value := card.TrickValue(trump, t.leadSuit)
		if value < topValue && value > bestValue {
			best = card
			bestValue = value
			found = true
		}
	}
	if !found {
		return t.lowestLegalLocked(p)
	}
	return best, true
}

// lowestOverTop plays the cheapest legal card that overtakes the current
// top, chasing a still-needed trick. Falls back to the lowest legal card
// when nothing can win.
func (t *Table) lowestOverTopLocked(p *Participant) (Card, bool) {
	if t.topIdx < 0 {
		return t.lowestLegalLocked(p)
	}
	trump := t.trumpSuitLocked()
	topValue := t.trick[t.topIdx].Card.TrickValue(trump, t.leadSuit)
	var best Card
	found := false
	bestValue := 0
	for _, card := range p.hand {
		if !t.isValidPlayLocked(p, card) {
			continue
		}
		value := card.TrickValue(trump, t.leadSuit)
		if value > topValue && (!found || value < bestValue) {
			best = card
			bestValue = value
			found = true
		}
	}
	if !found {
		return t.lowestLegalLocked(p)
	}
	return best, true
}
