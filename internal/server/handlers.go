package server

import (
	"github.com/labstack/echo/v4"

	"github.com/rgilks/spf-mcp-sub000/internal/combat"
	"github.com/rgilks/spf-mcp-sub000/internal/deck"
	"github.com/rgilks/spf-mcp-sub000/internal/dice"
	"github.com/rgilks/spf-mcp-sub000/internal/domain"
	"github.com/rgilks/spf-mcp-sub000/internal/session"
)

type createSessionRequest struct {
	Name string `json:"name"`
}

type sessionResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return respondErr(c, domain.Validation("invalid request body"))
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	sess, err := s.sessions.Create(ctx, req.Name)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, sessionResponse{
		ID:        sess.ID,
		Name:      sess.Name,
		CreatedAt: sess.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (s *Server) handleGetSession(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, sessionResponse{
		ID:        sess.ID,
		Name:      sess.Name,
		CreatedAt: sess.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// ==================== Combat ====================

type combatStartRequest struct {
	Participants []string `json:"participants"`
}

func (s *Server) handleCombatStart(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req combatStartRequest
	if err := c.Bind(&req); err != nil {
		return respondErr(c, domain.Validation("invalid request body"))
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var snap combat.Snapshot
	err = sess.Combat.Do(ctx, func(cb *combat.Combat) error {
		var err error
		snap, err = cb.Start(req.Participants)
		return err
	})
	if err != nil {
		return respondErr(c, err)
	}

	sess.Events.Publish(session.Event{Type: session.EventCombatStarted, SessionID: sess.ID, Payload: snap})
	return respond(c, snap)
}

type combatDealRequest struct {
	Extra map[string]int `json:"extra,omitempty"`
}

func (s *Server) handleCombatDeal(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req combatDealRequest
	if err := c.Bind(&req); err != nil {
		return respondErr(c, domain.Validation("invalid request body"))
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var outcome combat.DealOutcome
	err = sess.Combat.Do(ctx, func(cb *combat.Combat) error {
		var err error
		outcome, err = cb.Deal(ctx, req.Extra)
		return err
	})
	if err != nil {
		return respondErr(c, err)
	}

	sess.Events.Publish(session.Event{Type: session.EventCardsDealt, SessionID: sess.ID, Payload: outcome})
	return respond(c, outcome)
}

func (s *Server) handleCombatAdvance(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return respondErr(c, err)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var snap combat.Snapshot
	err = sess.Combat.Do(ctx, func(cb *combat.Combat) error {
		var err error
		snap, err = cb.AdvanceTurn(ctx)
		return err
	})
	if err != nil {
		return respondErr(c, err)
	}

	sess.Events.Publish(session.Event{Type: session.EventTurnAdvanced, SessionID: sess.ID, Payload: snap})
	return respond(c, snap)
}

type combatHoldRequest struct {
	ActorID string `json:"actorId"`
}

func (s *Server) handleCombatHold(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req combatHoldRequest
	if err := c.Bind(&req); err != nil || req.ActorID == "" {
		return respondErr(c, domain.Validation("actorId is required"))
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var snap combat.Snapshot
	err = sess.Combat.Do(ctx, func(cb *combat.Combat) error {
		var err error
		snap, err = cb.Hold(req.ActorID)
		return err
	})
	if err != nil {
		return respondErr(c, err)
	}

	sess.Events.Publish(session.Event{Type: session.EventActorHeld, SessionID: sess.ID, Payload: snap})
	return respond(c, snap)
}

type combatInterruptRequest struct {
	ActorID  string `json:"actorId"`
	TargetID string `json:"targetId,omitempty"`
	Type     string `json:"type,omitempty"`
}

func (s *Server) handleCombatInterrupt(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req combatInterruptRequest
	if err := c.Bind(&req); err != nil || req.ActorID == "" {
		return respondErr(c, domain.Validation("actorId is required"))
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var snap combat.Snapshot
	err = sess.Combat.Do(ctx, func(cb *combat.Combat) error {
		var err error
		snap, err = cb.Interrupt(req.ActorID, req.TargetID, req.Type)
		return err
	})
	if err != nil {
		return respondErr(c, err)
	}

	sess.Events.Publish(session.Event{Type: session.EventInterrupt, SessionID: sess.ID, Payload: snap})
	return respond(c, snap)
}

func (s *Server) handleCombatEndRound(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return respondErr(c, err)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var snap combat.Snapshot
	err = sess.Combat.Do(ctx, func(cb *combat.Combat) error {
		var err error
		snap, err = cb.EndRound(ctx)
		return err
	})
	if err != nil {
		return respondErr(c, err)
	}

	sess.Events.Publish(session.Event{Type: session.EventRoundEnded, SessionID: sess.ID, Payload: snap})
	return respond(c, snap)
}

type combatStateResponse struct {
	Combat    combat.Snapshot `json:"combat"`
	TurnOrder []string        `json:"turnOrder,omitempty"`
}

// handleCombatState returns the combat snapshot plus the acting order
// derived from live deck state. The order is computed fresh on every read,
// never cached.
func (s *Server) handleCombatState(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return respondErr(c, err)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var snap combat.Snapshot
	if err := sess.Combat.Do(ctx, func(cb *combat.Combat) error {
		snap = cb.State()
		return nil
	}); err != nil {
		return respondErr(c, err)
	}

	resp := combatStateResponse{Combat: snap}
	var dealt map[string]deck.Card
	if err := sess.Deck.Do(ctx, func(d *deck.Deck) error {
		var err error
		dealt, err = d.Dealt()
		return err
	}); err == nil {
		resp.TurnOrder = combat.OrderByInitiative(snap.Participants, dealt)
	}
	return respond(c, resp)
}

// ==================== Deck ====================

type deckResetRequest struct {
	UseJokers *bool `json:"useJokers,omitempty"`
}

func (s *Server) handleDeckReset(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req deckResetRequest
	if err := c.Bind(&req); err != nil {
		return respondErr(c, domain.Validation("invalid request body"))
	}
	useJokers := true
	if req.UseJokers != nil {
		useJokers = *req.UseJokers
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var snap deck.Snapshot
	if err := sess.Deck.Do(ctx, func(d *deck.Deck) error {
		snap = d.Reset(useJokers)
		return nil
	}); err != nil {
		return respondErr(c, err)
	}

	sess.Events.Publish(session.Event{Type: session.EventDeckReset, SessionID: sess.ID})
	return respond(c, deckStateResponse(snap))
}

type deckDealRequest struct {
	To    []string       `json:"to"`
	Extra map[string]int `json:"extra,omitempty"`
	Round int            `json:"round"`
}

func (s *Server) handleDeckDeal(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req deckDealRequest
	if err := c.Bind(&req); err != nil {
		return respondErr(c, domain.Validation("invalid request body"))
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var result deck.DealResult
	if err := sess.Deck.Do(ctx, func(d *deck.Deck) error {
		var err error
		result, err = d.Deal(req.To, req.Extra, req.Round)
		return err
	}); err != nil {
		return respondErr(c, err)
	}

	sess.Events.Publish(session.Event{Type: session.EventCardsDealt, SessionID: sess.ID, Payload: result})
	return respond(c, result)
}

type deckRecallRequest struct {
	ActorID string `json:"actorId"`
}

func (s *Server) handleDeckRecall(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req deckRecallRequest
	if err := c.Bind(&req); err != nil || req.ActorID == "" {
		return respondErr(c, domain.Validation("actorId is required"))
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var card deck.Card
	if err := sess.Deck.Do(ctx, func(d *deck.Deck) error {
		var err error
		card, err = d.Recall(req.ActorID)
		return err
	}); err != nil {
		return respondErr(c, err)
	}

	sess.Events.Publish(session.Event{Type: session.EventCardRecalled, SessionID: sess.ID, Payload: card})
	return respond(c, map[string]any{"recalled": card})
}

// deckStateView adds derived counts to the raw snapshot for GM clients.
type deckStateView struct {
	deck.Snapshot
	RemainingCount int `json:"remainingCount"`
	DiscardCount   int `json:"discardCount"`
	DealtCount     int `json:"dealtCount"`
}

func deckStateResponse(snap deck.Snapshot) deckStateView {
	return deckStateView{
		Snapshot:       snap,
		RemainingCount: len(snap.Remaining),
		DiscardCount:   len(snap.Discard),
		DealtCount:     len(snap.Dealt),
	}
}

func (s *Server) handleDeckState(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return respondErr(c, err)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var snap deck.Snapshot
	if err := sess.Deck.Do(ctx, func(d *deck.Deck) error {
		var err error
		snap, err = d.Snapshot()
		return err
	}); err != nil {
		return respondErr(c, err)
	}
	return respond(c, deckStateResponse(snap))
}

// ==================== Dice ====================

type diceRollRequest struct {
	Formula string `json:"formula"`
	Explode *bool  `json:"explode,omitempty"`
	WildDie string `json:"wildDie,omitempty"`
	Seed    string `json:"seed,omitempty"`
}

type diceRollResponse struct {
	dice.RollRecord
	Breakdown string `json:"breakdown"`
}

func (s *Server) handleDiceRoll(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req diceRollRequest
	if err := c.Bind(&req); err != nil {
		return respondErr(c, domain.Validation("invalid request body"))
	}

	// Savage-style rolls explode unless the caller says otherwise.
	explode := true
	if req.Explode != nil {
		explode = *req.Explode
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var record dice.RollRecord
	if err := sess.Rng.Do(ctx, func(r *dice.Roller) error {
		var err error
		record, err = r.Roll(ctx, dice.RollRequest{
			Formula: req.Formula,
			Explode: explode,
			WildDie: req.WildDie,
			Seed:    req.Seed,
		})
		return err
	}); err != nil {
		return respondErr(c, err)
	}
	return respond(c, diceRollResponse{RollRecord: record, Breakdown: record.Breakdown()})
}

type diceVerifyRequest struct {
	Seed     string  `json:"seed"`
	Results  [][]int `json:"results"`
	Wild     []int   `json:"wild,omitempty"`
	Modifier int     `json:"modifier"`
	Hash     string  `json:"hash"`
}

func (s *Server) handleDiceVerify(c echo.Context) error {
	sess, err := s.lookup(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req diceVerifyRequest
	if err := c.Bind(&req); err != nil {
		return respondErr(c, domain.Validation("invalid request body"))
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var result dice.VerifyResult
	if err := sess.Rng.Do(ctx, func(r *dice.Roller) error {
		var err error
		result, err = r.Verify(dice.VerifyRequest{
			Seed:     req.Seed,
			Results:  req.Results,
			Wild:     req.Wild,
			Modifier: req.Modifier,
			Hash:     req.Hash,
		})
		return err
	}); err != nil {
		return respondErr(c, err)
	}
	return respond(c, result)
}
