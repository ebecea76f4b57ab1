package deck

import (
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/rgilks/spf-mcp-sub000/internal/domain"
)

// JokerBonus describes the benefits granted to an actor holding a Joker.
type JokerBonus struct {
	TraitBonus    int  `json:"traitBonus"`
	DamageBonus   int  `json:"damageBonus"`
	CanActAnytime bool `json:"canActAnytime"`
}

// DealResult is the outcome of one Deal call.
type DealResult struct {
	Dealt        map[string]Card       `json:"dealt"`
	JokerDealt   bool                  `json:"jokerDealt"`
	JokerBonuses map[string]JokerBonus `json:"jokerBonuses"`
}

// Snapshot is a read-only copy of deck state for external use.
type Snapshot struct {
	Remaining      []Card          `json:"remaining"`
	Discard        []Card          `json:"discard"`
	Dealt          map[string]Card `json:"dealt"`
	LastJokerRound int             `json:"lastJokerRound"`
	UseJokers      bool            `json:"useJokers"`
}

// Deck is the single physical action deck for one session. Not safe for
// concurrent use on its own; callers serialize access through an actor.
//
// Closure invariant: cards ∪ discard ∪ values(dealt) is always exactly the
// full deck built by the last Reset, with no duplicates.
type Deck struct {
	cards          []Card // draw stack, top at the end
	discard        []Card
	dealt          map[string]Card
	lastJokerRound int
	useJokers      bool
	initialized    bool
	logger         *zap.Logger
}

// New returns an uninitialized deck. Every operation except Reset fails
// until Reset is called.
func New(logger *zap.Logger) *Deck {
	return &Deck{logger: logger}
}

// Reset rebuilds the full deck, shuffles it, and discards all prior state.
// Previously dealt cards are simply gone: the new deck is complete on its
// own.
func (d *Deck) Reset(useJokers bool) Snapshot {
	cards := make([]Card, 0, 54)
	for _, suit := range []Suit{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs} {
		for rank := RankTwo; rank <= RankAce; rank++ {
			cards = append(cards, newCard(rank, suit))
		}
	}
	if useJokers {
		cards = append(cards, newCard(RankJoker, SuitNone), newCard(RankJoker, SuitNone))
	}
	shuffle(cards)

	d.cards = cards
	d.discard = nil
	d.dealt = make(map[string]Card)
	d.lastJokerRound = -1
	d.useJokers = useJokers
	d.initialized = true

	d.logger.Debug("deck reset",
		zap.Int("cards", len(cards)),
		zap.Bool("jokers", useJokers),
	)
	return d.snapshot()
}

// Deal draws one card for each actor in to, in order, plus extra[actor]
// additional draws per actor, keeping only the best card for actors with
// extra draws. round tags any Joker sighting for the end-of-round reshuffle
// rule.
func (d *Deck) Deal(to []string, extra map[string]int, round int) (DealResult, error) {
	if !d.initialized {
		return DealResult{}, domain.NotFound("deck not initialized; reset it first")
	}
	if len(to) == 0 {
		return DealResult{}, domain.Validation("deal requires at least one actor")
	}

	result := DealResult{
		Dealt:        make(map[string]Card, len(to)),
		JokerBonuses: make(map[string]JokerBonus, len(to)),
	}

	for _, actorID := range to {
		card, err := d.draw()
		if err != nil {
			return DealResult{}, err
		}
		if prior, held := d.dealt[actorID]; held {
			// The fresh card becomes canonical; the displaced one goes to
			// discard so the closure invariant stays checkable.
			d.discard = append(d.discard, prior)
		}
		d.dealt[actorID] = card
		if card.IsJoker() {
			result.JokerDealt = true
		}

		for i := 0; i < extra[actorID]; i++ {
			challenger, err := d.draw()
			if err != nil {
				return DealResult{}, err
			}
			if challenger.IsJoker() {
				result.JokerDealt = true
			}
			held := d.dealt[actorID]
			if challenger.Beats(held) {
				d.discard = append(d.discard, held)
				d.dealt[actorID] = challenger
			} else {
				d.discard = append(d.discard, challenger)
			}
		}
	}

	if result.JokerDealt {
		d.lastJokerRound = round
	}

	for _, actorID := range to {
		card := d.dealt[actorID]
		result.Dealt[actorID] = card
		if card.IsJoker() {
			result.JokerBonuses[actorID] = JokerBonus{TraitBonus: 2, DamageBonus: 2, CanActAnytime: true}
		} else {
			result.JokerBonuses[actorID] = JokerBonus{}
		}
	}

	return result, nil
}

// Recall takes back the actor's current card and returns it to the bottom
// of the draw stack. The card was never played, so it does not belong in
// the discard pile.
func (d *Deck) Recall(actorID string) (Card, error) {
	if !d.initialized {
		return Card{}, domain.NotFound("deck not initialized; reset it first")
	}
	card, ok := d.dealt[actorID]
	if !ok {
		return Card{}, domain.NotFound("no card dealt to actor %s", actorID)
	}
	delete(d.dealt, actorID)
	d.cards = append([]Card{card}, d.cards...)
	return card, nil
}

// Dealt returns a copy of the current hand assignments.
func (d *Deck) Dealt() (map[string]Card, error) {
	if !d.initialized {
		return nil, domain.NotFound("deck not initialized; reset it first")
	}
	out := make(map[string]Card, len(d.dealt))
	for k, v := range d.dealt {
		out[k] = v
	}
	return out, nil
}

// LastJokerRound reports the last round in which a Joker left the deck, or
// -1 if none has since the last reset.
func (d *Deck) LastJokerRound() (int, error) {
	if !d.initialized {
		return 0, domain.NotFound("deck not initialized; reset it first")
	}
	return d.lastJokerRound, nil
}

// Snapshot returns a read-only copy of the full deck state.
func (d *Deck) Snapshot() (Snapshot, error) {
	if !d.initialized {
		return Snapshot{}, domain.NotFound("deck not initialized; reset it first")
	}
	return d.snapshot(), nil
}

func (d *Deck) snapshot() Snapshot {
	s := Snapshot{
		Remaining:      append([]Card(nil), d.cards...),
		Discard:        append([]Card(nil), d.discard...),
		Dealt:          make(map[string]Card, len(d.dealt)),
		LastJokerRound: d.lastJokerRound,
		UseJokers:      d.useJokers,
	}
	for k, v := range d.dealt {
		s.Dealt[k] = v
	}
	return s
}

// draw removes the top card, recycling the discard pile into a reshuffled
// draw stack when empty. Exhaustion is only possible when every remaining
// card is in someone's hand.
func (d *Deck) draw() (Card, error) {
	if len(d.cards) == 0 && len(d.discard) > 0 {
		d.cards = d.discard
		d.discard = nil
		shuffle(d.cards)
		d.logger.Debug("recycled discard pile", zap.Int("cards", len(d.cards)))
	}
	if len(d.cards) == 0 {
		return Card{}, domain.StateConflict("deck exhausted: every card is currently dealt")
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card, nil
}

func shuffle(cards []Card) {
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
