package session

import (
	"context"

	"github.com/rgilks/spf-mcp-sub000/internal/actor"
	"github.com/rgilks/spf-mcp-sub000/internal/combat"
	"github.com/rgilks/spf-mcp-sub000/internal/deck"
)

// deckClient adapts a deck actor to the combat.DeckClient interface. Every
// call is one serialized command on the deck's mailbox, so combat and any
// direct deck operations can never interleave mid-mutation.
type deckClient struct {
	deck *actor.Actor[*deck.Deck]
}

func newDeckClient(a *actor.Actor[*deck.Deck]) combat.DeckClient {
	return &deckClient{deck: a}
}

func (c *deckClient) Deal(ctx context.Context, to []string, extra map[string]int, round int) (deck.DealResult, error) {
	var result deck.DealResult
	err := c.deck.Do(ctx, func(d *deck.Deck) error {
		var err error
		result, err = d.Deal(to, extra, round)
		return err
	})
	return result, err
}

func (c *deckClient) Dealt(ctx context.Context) (map[string]deck.Card, error) {
	var dealt map[string]deck.Card
	err := c.deck.Do(ctx, func(d *deck.Deck) error {
		var err error
		dealt, err = d.Dealt()
		return err
	})
	return dealt, err
}

func (c *deckClient) LastJokerRound(ctx context.Context) (int, error) {
	var round int
	err := c.deck.Do(ctx, func(d *deck.Deck) error {
		var err error
		round, err = d.LastJokerRound()
		return err
	})
	return round, err
}

func (c *deckClient) Reset(ctx context.Context, useJokers bool) error {
	return c.deck.Do(ctx, func(d *deck.Deck) error {
		d.Reset(useJokers)
		return nil
	})
}
