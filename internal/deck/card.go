// Package deck models the action deck used for card-based initiative: one
// standard 52-card deck, optionally with two Jokers, dealt to combat
// participants to decide turn order.
package deck

import (
	"fmt"

	"github.com/google/uuid"
)

// Rank is a card rank ordered for initiative: Two lowest, Ace above King,
// Joker above everything.
type Rank int

const (
	RankTwo   Rank = 2
	RankThree Rank = 3
	RankFour  Rank = 4
	RankFive  Rank = 5
	RankSix   Rank = 6
	RankSeven Rank = 7
	RankEight Rank = 8
	RankNine  Rank = 9
	RankTen   Rank = 10
	RankJack  Rank = 11
	RankQueen Rank = 12
	RankKing  Rank = 13
	RankAce   Rank = 14
	RankJoker Rank = 15
)

var rankNames = map[Rank]string{
	RankJack:  "J",
	RankQueen: "Q",
	RankKing:  "K",
	RankAce:   "A",
	RankJoker: "Joker",
}

func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return fmt.Sprintf("%d", int(r))
}

// Suit is a card suit. Ties in rank are broken by suit, Spades highest.
type Suit string

const (
	SuitSpades   Suit = "Spades"
	SuitHearts   Suit = "Hearts"
	SuitDiamonds Suit = "Diamonds"
	SuitClubs    Suit = "Clubs"
	// SuitNone is used only by Jokers.
	SuitNone Suit = ""
)

var suitWeights = map[Suit]int{
	SuitSpades:   4,
	SuitHearts:   3,
	SuitDiamonds: 2,
	SuitClubs:    1,
	SuitNone:     0,
}

// Card is one physical initiative card. Identity lives in ID: two cards
// with equal rank and suit are still distinct physical cards.
type Card struct {
	ID   string `json:"id"`
	Rank Rank   `json:"rank"`
	Suit Suit   `json:"suit,omitempty"`
}

// newCard mints a card with a fresh identity token.
func newCard(rank Rank, suit Suit) Card {
	return Card{ID: uuid.NewString(), Rank: rank, Suit: suit}
}

// IsJoker reports whether the card is a Joker.
func (c Card) IsJoker() bool { return c.Rank == RankJoker }

// InitiativeValue is a total order over cards: higher acts first. Rank
// dominates; suit breaks ties.
func (c Card) InitiativeValue() int {
	return int(c.Rank)*8 + suitWeights[c.Suit]
}

// Beats reports whether c outranks other in initiative order.
func (c Card) Beats(other Card) bool {
	return c.InitiativeValue() > other.InitiativeValue()
}

func (c Card) String() string {
	if c.IsJoker() {
		return "Joker"
	}
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}
