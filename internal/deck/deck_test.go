package deck

import (
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/rgilks/spf-mcp-sub000/internal/domain"
)

func newTestDeck() *Deck {
	return New(zap.NewNop())
}

func actorIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("actor-%02d", i)
	}
	return ids
}

// checkClosure asserts that draw stack, discard pile and dealt hands
// together hold exactly want unique cards.
func checkClosure(t *testing.T, d *Deck, want int) {
	t.Helper()
	snap, err := d.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	seen := make(map[string]struct{})
	add := func(c Card) {
		if _, dup := seen[c.ID]; dup {
			t.Fatalf("card id %s (%s) appears twice", c.ID, c)
		}
		seen[c.ID] = struct{}{}
	}
	for _, c := range snap.Remaining {
		add(c)
	}
	for _, c := range snap.Discard {
		add(c)
	}
	for _, c := range snap.Dealt {
		add(c)
	}

	if len(seen) != want {
		t.Fatalf("deck closure broken: %d unique cards, want %d", len(seen), want)
	}
}

func TestResetBuildsFullDeck(t *testing.T) {
	d := newTestDeck()

	snap := d.Reset(false)
	if len(snap.Remaining) != 52 {
		t.Fatalf("expected 52 cards without jokers, got %d", len(snap.Remaining))
	}
	if snap.LastJokerRound != -1 {
		t.Fatalf("expected lastJokerRound -1, got %d", snap.LastJokerRound)
	}
	checkClosure(t, d, 52)

	snap = d.Reset(true)
	if len(snap.Remaining) != 54 {
		t.Fatalf("expected 54 cards with jokers, got %d", len(snap.Remaining))
	}
	jokers := 0
	for _, c := range snap.Remaining {
		if c.IsJoker() {
			jokers++
			if c.Suit != SuitNone {
				t.Fatalf("joker has suit %q", c.Suit)
			}
		}
	}
	if jokers != 2 {
		t.Fatalf("expected 2 jokers, got %d", jokers)
	}
	checkClosure(t, d, 54)
}

func TestOperationsBeforeResetFail(t *testing.T) {
	d := newTestDeck()

	if _, err := d.Deal([]string{"a"}, nil, 1); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("deal before reset: expected not_found, got %v", err)
	}
	if _, err := d.Recall("a"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("recall before reset: expected not_found, got %v", err)
	}
	if _, err := d.Snapshot(); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("snapshot before reset: expected not_found, got %v", err)
	}
}

func TestDealDistinctCards(t *testing.T) {
	d := newTestDeck()
	d.Reset(false)

	to := actorIDs(10)
	result, err := d.Deal(to, nil, 1)
	if err != nil {
		t.Fatalf("deal: %v", err)
	}
	if len(result.Dealt) != 10 {
		t.Fatalf("expected 10 hands, got %d", len(result.Dealt))
	}

	ids := make(map[string]struct{})
	for actor, card := range result.Dealt {
		if _, dup := ids[card.ID]; dup {
			t.Fatalf("actor %s dealt a duplicate card %s", actor, card)
		}
		ids[card.ID] = struct{}{}
	}
	checkClosure(t, d, 52)
}

func TestRedealDiscardsDisplacedCard(t *testing.T) {
	d := newTestDeck()
	d.Reset(false)

	first, err := d.Deal([]string{"a"}, nil, 1)
	if err != nil {
		t.Fatalf("deal: %v", err)
	}
	second, err := d.Deal([]string{"a"}, nil, 2)
	if err != nil {
		t.Fatalf("redeal: %v", err)
	}

	if first.Dealt["a"].ID == second.Dealt["a"].ID {
		t.Fatal("redeal kept the old card")
	}

	snap, _ := d.Snapshot()
	found := false
	for _, c := range snap.Discard {
		if c.ID == first.Dealt["a"].ID {
			found = true
		}
	}
	if !found {
		t.Fatal("displaced card not in discard pile")
	}
	checkClosure(t, d, 52)
}

func TestExtraDrawsKeepBestCard(t *testing.T) {
	d := newTestDeck()
	d.Reset(false)

	result, err := d.Deal([]string{"a"}, map[string]int{"a": 3}, 1)
	if err != nil {
		t.Fatalf("deal: %v", err)
	}

	held := result.Dealt["a"]
	snap, _ := d.Snapshot()
	if len(snap.Discard) != 3 {
		t.Fatalf("expected 3 losing cards in discard, got %d", len(snap.Discard))
	}
	for _, loser := range snap.Discard {
		if loser.Beats(held) {
			t.Fatalf("kept %s but discarded the better %s", held, loser)
		}
	}
	checkClosure(t, d, 52)
}

func TestRecallReturnsCardToDrawStack(t *testing.T) {
	d := newTestDeck()
	d.Reset(false)

	result, err := d.Deal([]string{"a", "b"}, nil, 1)
	if err != nil {
		t.Fatalf("deal: %v", err)
	}

	card, err := d.Recall("a")
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if card.ID != result.Dealt["a"].ID {
		t.Fatalf("recalled %s, expected %s", card, result.Dealt["a"])
	}

	snap, _ := d.Snapshot()
	if _, still := snap.Dealt["a"]; still {
		t.Fatal("actor still holds a card after recall")
	}
	if len(snap.Remaining) != 51 {
		t.Fatalf("expected 51 cards in draw stack, got %d", len(snap.Remaining))
	}
	if len(snap.Discard) != 0 {
		t.Fatal("recalled card must not go to discard")
	}
	checkClosure(t, d, 52)

	if _, err := d.Recall("a"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("second recall: expected not_found, got %v", err)
	}
	if _, err := d.Recall("nobody"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("recall of unknown actor: expected not_found, got %v", err)
	}
}

func TestDealRecyclesDiscardWhenStackEmpty(t *testing.T) {
	d := newTestDeck()
	d.Reset(false)

	// Repeated redeals to the same two actors displace cards into discard;
	// after 26 rounds the draw stack is empty and must recycle.
	to := []string{"a", "b"}
	for round := 1; round <= 40; round++ {
		if _, err := d.Deal(to, nil, round); err != nil {
			t.Fatalf("round %d deal: %v", round, err)
		}
		checkClosure(t, d, 52)
	}

	snap, _ := d.Snapshot()
	if len(snap.Dealt) != 2 {
		t.Fatalf("expected 2 hands, got %d", len(snap.Dealt))
	}
}

func TestJokerDealMarksRoundAndBonuses(t *testing.T) {
	d := newTestDeck()
	d.Reset(true)

	// Deal the entire deck in one call so both jokers are in someone's hand.
	to := actorIDs(54)
	result, err := d.Deal(to, nil, 7)
	if err != nil {
		t.Fatalf("deal: %v", err)
	}
	if !result.JokerDealt {
		t.Fatal("dealt all 54 cards but no joker reported")
	}

	round, err := d.LastJokerRound()
	if err != nil {
		t.Fatalf("lastJokerRound: %v", err)
	}
	if round != 7 {
		t.Fatalf("lastJokerRound = %d, want 7", round)
	}

	jokerHolders := 0
	for actor, card := range result.Dealt {
		bonus := result.JokerBonuses[actor]
		if card.IsJoker() {
			jokerHolders++
			if bonus.TraitBonus != 2 || bonus.DamageBonus != 2 || !bonus.CanActAnytime {
				t.Fatalf("joker holder %s got bonus %+v", actor, bonus)
			}
		} else if bonus.TraitBonus != 0 || bonus.DamageBonus != 0 || bonus.CanActAnytime {
			t.Fatalf("non-joker holder %s got bonus %+v", actor, bonus)
		}
	}
	if jokerHolders != 2 {
		t.Fatalf("expected 2 joker holders, got %d", jokerHolders)
	}
	checkClosure(t, d, 54)
}

func TestDeckExhaustion(t *testing.T) {
	d := newTestDeck()
	d.Reset(false)

	if _, err := d.Deal(actorIDs(52), nil, 1); err != nil {
		t.Fatalf("dealing the whole deck: %v", err)
	}
	// Every card is in a hand; one more draw for a new actor cannot recycle.
	_, err := d.Deal([]string{"one-more"}, nil, 1)
	if !domain.IsKind(err, domain.KindStateConflict) {
		t.Fatalf("expected state_conflict on exhausted deck, got %v", err)
	}
}

func TestResetReplacesEverything(t *testing.T) {
	d := newTestDeck()
	d.Reset(true)
	if _, err := d.Deal(actorIDs(5), nil, 3); err != nil {
		t.Fatalf("deal: %v", err)
	}

	snap := d.Reset(true)
	if len(snap.Dealt) != 0 {
		t.Fatal("reset kept dealt hands")
	}
	if len(snap.Discard) != 0 {
		t.Fatal("reset kept discard pile")
	}
	if snap.LastJokerRound != -1 {
		t.Fatalf("reset kept lastJokerRound %d", snap.LastJokerRound)
	}
	checkClosure(t, d, 54)
}
