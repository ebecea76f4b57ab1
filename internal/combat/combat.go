// Package combat drives the turn-by-turn state machine for one encounter.
// Acting order comes from initiative cards held by the paired deck; the
// machine supports the hold-a-turn / interrupt-later tactic of card-based
// initiative systems.
package combat

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/rgilks/spf-mcp-sub000/internal/deck"
	"github.com/rgilks/spf-mcp-sub000/internal/domain"
)

// Status is the combat state machine state.
type Status int

const (
	StatusIdle Status = iota
	StatusRoundStart
	StatusTurnActive
	StatusOnHold
	StatusRoundEnd
)

var statusNames = map[Status]string{
	StatusIdle:       "idle",
	StatusRoundStart: "round_start",
	StatusTurnActive: "turn_active",
	StatusOnHold:     "on_hold",
	StatusRoundEnd:   "round_end",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status_%d", int(s))
}

// MarshalText renders the status as its wire name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// InterruptContext records who broke into the order, for downstream opposed
// roll handling. Transient: cleared by the next state-changing call.
type InterruptContext struct {
	InterrupterID string    `json:"interrupterId"`
	TargetID      string    `json:"targetId,omitempty"`
	Type          string    `json:"type,omitempty"`
	At            time.Time `json:"at"`
}

// DeckClient is the combat side of the deck actor. Calls are synchronous
// request/response; combat never touches deck state directly.
type DeckClient interface {
	Deal(ctx context.Context, to []string, extra map[string]int, round int) (deck.DealResult, error)
	Dealt(ctx context.Context) (map[string]deck.Card, error)
	LastJokerRound(ctx context.Context) (int, error)
	Reset(ctx context.Context, useJokers bool) error
}

// Snapshot is a read-only copy of combat state.
type Snapshot struct {
	Status           Status            `json:"status"`
	Round            int               `json:"round"`
	Turn             int               `json:"turn"`
	Participants     []string          `json:"participants"`
	ActiveActorID    string            `json:"activeActorId,omitempty"`
	Hold             []string          `json:"hold"`
	InterruptContext *InterruptContext `json:"interruptContext,omitempty"`
}

// DealOutcome is returned by Deal: the deck's result plus the computed
// acting order for the new round.
type DealOutcome struct {
	Deck      deck.DealResult `json:"deck"`
	TurnOrder []string        `json:"turnOrder"`
	Snapshot  Snapshot        `json:"combat"`
}

// Combat is the state machine for one encounter. Not safe for concurrent
// use on its own; callers serialize access through an actor.
//
// Invariants: the active actor, when set, is a participant and not on
// hold; the hold list is a subset of participants.
type Combat struct {
	status       Status
	round        int
	turn         int
	participants []string
	activeID     string
	hold         []string // in hold order, first held acts first on fallback
	interrupt    *InterruptContext
	// lastActedID anchors the advance scan when the active slot is empty
	// (after a hold). Cleared at round boundaries.
	lastActedID string
	// holdPhase is set once the scan has reached the end of the order and
	// play moved to held actors. From then on advances drain the hold list
	// instead of rescanning positions already played.
	holdPhase bool

	deck      DeckClient
	useJokers bool
	logger    *zap.Logger
}

// New creates an encounter in the idle state. Start must be called before
// any other operation.
func New(deckClient DeckClient, useJokers bool, logger *zap.Logger) *Combat {
	return &Combat{
		status:    StatusIdle,
		deck:      deckClient,
		useJokers: useJokers,
		logger:    logger,
	}
}

// Start unconditionally begins a fresh encounter with the given
// participants, replacing any prior state.
func (c *Combat) Start(participants []string) (Snapshot, error) {
	if len(participants) == 0 {
		return Snapshot{}, domain.Validation("combat requires at least one participant")
	}
	seen := make(map[string]struct{}, len(participants))
	for _, id := range participants {
		if id == "" {
			return Snapshot{}, domain.Validation("participant ids must be non-empty")
		}
		if _, dup := seen[id]; dup {
			return Snapshot{}, domain.Validation("duplicate participant %s", id)
		}
		seen[id] = struct{}{}
	}

	c.status = StatusIdle
	c.round = 0
	c.turn = 0
	c.participants = append([]string(nil), participants...)
	c.activeID = ""
	c.hold = nil
	c.interrupt = nil
	c.lastActedID = ""
	c.holdPhase = false

	c.logger.Info("combat started", zap.Strings("participants", participants))
	return c.snapshot(), nil
}

// Deal opens a new round: one card per participant (plus requested extra
// draws), acting order by card rank, first actor immediately active. Legal
// from idle, round_start and round_end only. On any deck failure no local
// state changes.
func (c *Combat) Deal(ctx context.Context, extra map[string]int) (DealOutcome, error) {
	if len(c.participants) == 0 {
		return DealOutcome{}, domain.NotFound("combat not started")
	}
	switch c.status {
	case StatusIdle, StatusRoundStart, StatusRoundEnd:
	default:
		return DealOutcome{}, domain.StateConflict("cannot deal while status is %s", c.status)
	}
	for id := range extra {
		if !slices.Contains(c.participants, id) {
			return DealOutcome{}, domain.Validation("extra draw for non-participant %s", id)
		}
	}

	nextRound := c.round + 1
	result, err := c.deck.Deal(ctx, c.participants, extra, nextRound)
	if err != nil {
		return DealOutcome{}, domain.Dependency(err, "deck deal failed")
	}

	order := OrderByInitiative(c.participants, result.Dealt)
	if len(order) == 0 {
		return DealOutcome{}, domain.Dependency(nil, "deck dealt no cards")
	}

	c.round = nextRound
	c.turn = 0
	c.hold = nil
	c.interrupt = nil
	c.activeID = order[0]
	c.lastActedID = order[0]
	c.holdPhase = false
	c.status = StatusTurnActive

	c.logger.Info("round dealt",
		zap.Int("round", c.round),
		zap.Strings("order", order),
		zap.String("active", c.activeID),
		zap.Bool("joker", result.JokerDealt),
	)

	return DealOutcome{Deck: result, TurnOrder: order, Snapshot: c.snapshot()}, nil
}

// AdvanceTurn passes the turn to the next participant in initiative order
// who is not on hold. Order is recomputed from live deck state on every
// call, so mid-round recalls and redeals are tolerated. When the scan runs
// off the end: held actors act (in hold order) before the round ends.
func (c *Combat) AdvanceTurn(ctx context.Context) (Snapshot, error) {
	switch c.status {
	case StatusTurnActive, StatusOnHold, StatusRoundStart:
	default:
		return Snapshot{}, domain.StateConflict("cannot advance turn while status is %s", c.status)
	}

	dealt, err := c.deck.Dealt(ctx)
	if err != nil {
		return Snapshot{}, domain.Dependency(err, "deck lookup failed")
	}
	order := OrderByInitiative(c.participants, dealt)

	c.interrupt = nil

	start := 0
	if c.holdPhase {
		start = len(order)
	} else if c.lastActedID != "" {
		if idx := slices.Index(order, c.lastActedID); idx >= 0 {
			start = idx + 1
		}
	}

	next := ""
	for _, id := range order[min(start, len(order)):] {
		if !slices.Contains(c.hold, id) {
			next = id
			break
		}
	}

	c.turn++
	switch {
	case next != "":
		c.activeID = next
		c.lastActedID = next
		c.status = StatusTurnActive
	case len(c.hold) > 0:
		held := c.hold[0]
		c.hold = c.hold[1:]
		c.activeID = held
		c.lastActedID = held
		c.holdPhase = true
		c.status = StatusTurnActive
	default:
		c.activeID = ""
		c.lastActedID = ""
		c.holdPhase = false
		c.status = StatusRoundEnd
	}

	c.logger.Debug("turn advanced",
		zap.Int("turn", c.turn),
		zap.String("active", c.activeID),
		zap.String("status", c.status.String()),
	)
	return c.snapshot(), nil
}

// Hold lets the currently active actor defer their turn. Only the active
// actor may hold.
func (c *Combat) Hold(actorID string) (Snapshot, error) {
	if c.status != StatusTurnActive {
		return Snapshot{}, domain.StateConflict("cannot hold while status is %s", c.status)
	}
	if actorID != c.activeID {
		return Snapshot{}, domain.StateConflict("only the active actor may hold (active: %s)", c.activeID)
	}

	c.interrupt = nil
	c.hold = append(c.hold, actorID)
	c.activeID = ""
	c.status = StatusOnHold

	c.logger.Debug("actor on hold", zap.String("actor", actorID))
	return c.snapshot(), nil
}

// Interrupt lets a holding actor jump back into play ahead of the normal
// order. Legal whenever a turn is live or pending; the interrupt context is
// kept for downstream opposed-roll handling.
func (c *Combat) Interrupt(actorID, targetID, interruptType string) (Snapshot, error) {
	if c.status != StatusTurnActive && c.status != StatusOnHold {
		return Snapshot{}, domain.StateConflict("cannot interrupt while status is %s", c.status)
	}
	idx := slices.Index(c.hold, actorID)
	if idx < 0 {
		return Snapshot{}, domain.StateConflict("actor %s is not on hold", actorID)
	}
	if targetID != "" && !slices.Contains(c.participants, targetID) {
		return Snapshot{}, domain.NotFound("interrupt target %s is not a participant", targetID)
	}

	c.hold = slices.Delete(c.hold, idx, idx+1)
	c.activeID = actorID
	c.lastActedID = actorID
	c.status = StatusTurnActive
	c.interrupt = &InterruptContext{
		InterrupterID: actorID,
		TargetID:      targetID,
		Type:          interruptType,
		At:            time.Now().UTC(),
	}

	c.logger.Info("interrupt",
		zap.String("actor", actorID),
		zap.String("target", targetID),
		zap.String("type", interruptType),
	)
	return c.snapshot(), nil
}

// EndRound closes the current round. If a Joker was dealt this round the
// deck is reshuffled in full before the counters reset, per the dealt-Joker
// rule.
func (c *Combat) EndRound(ctx context.Context) (Snapshot, error) {
	if c.status == StatusIdle {
		return Snapshot{}, domain.StateConflict("cannot end round before combat starts")
	}

	jokerRound, err := c.deck.LastJokerRound(ctx)
	if err != nil {
		return Snapshot{}, domain.Dependency(err, "deck lookup failed")
	}
	if jokerRound == c.round {
		if err := c.deck.Reset(ctx, c.useJokers); err != nil {
			return Snapshot{}, domain.Dependency(err, "deck reshuffle failed")
		}
		c.logger.Info("joker reshuffle", zap.Int("round", c.round))
	}

	c.turn = 0
	c.activeID = ""
	c.lastActedID = ""
	c.holdPhase = false
	c.hold = nil
	c.interrupt = nil
	c.status = StatusRoundStart

	c.logger.Debug("round ended", zap.Int("round", c.round))
	return c.snapshot(), nil
}

// State returns a read-only snapshot.
func (c *Combat) State() Snapshot {
	return c.snapshot()
}

func (c *Combat) snapshot() Snapshot {
	s := Snapshot{
		Status:        c.status,
		Round:         c.round,
		Turn:          c.turn,
		Participants:  append([]string(nil), c.participants...),
		ActiveActorID: c.activeID,
		Hold:          append([]string{}, c.hold...),
	}
	if c.interrupt != nil {
		ic := *c.interrupt
		s.InterruptContext = &ic
	}
	return s
}

// OrderByInitiative orders participants holding cards by initiative value,
// best first. Participants without a card are left out.
func OrderByInitiative(participants []string, dealt map[string]deck.Card) []string {
	order := make([]string, 0, len(participants))
	for _, id := range participants {
		if _, ok := dealt[id]; ok {
			order = append(order, id)
		}
	}
	slices.SortStableFunc(order, func(a, b string) int {
		return dealt[b].InitiativeValue() - dealt[a].InitiativeValue()
	})
	return order
}
