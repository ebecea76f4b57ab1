// Package dice implements deterministic, auditable dice rolling.
//
// Rolls are reproducible: the seed fully determines every die value, and a
// SHA-256 digest over a canonical serialization of (seed, results, wild,
// modifier) binds the published outcome to that seed so any party can
// re-verify it later.
package dice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rgilks/spf-mcp-sub000/internal/domain"
	"go.uber.org/zap"
)

// explosionCap bounds a single die's explosion chain. At cap the chance of
// another maximum face is (1/sides)^cap, which no replay or statistical
// check can distinguish from zero, and the cap itself is deterministic.
const explosionCap = 100

// RollRequest describes one roll invocation.
type RollRequest struct {
	// Formula is a dice expression, e.g. "2d6+1".
	Formula string
	// Explode re-rolls and accumulates any die that lands on its maximum
	// face (an "ace" in Savage terms).
	Explode bool
	// WildDie, if non-empty, is a single-die spec such as "d6" rolled
	// alongside the main dice; the better of the two totals counts.
	WildDie string
	// Seed pins the outcome. Empty means a fresh unpredictable seed.
	Seed string
}

// RollRecord is the immutable audit artifact of one roll.
type RollRecord struct {
	ID       string    `json:"id"`
	Formula  string    `json:"formula"`
	Results  [][]int   `json:"results"`
	Wild     []int     `json:"wild,omitempty"`
	Modifier int       `json:"modifier"`
	Total    int       `json:"total"`
	Seed     string    `json:"seed"`
	Hash     string    `json:"hash"`
	RolledAt time.Time `json:"rolledAt"`
}

// Breakdown renders a human-readable audit line, e.g.
// "2d6+1 → [[4] [6 3]] wild [5] +1 = 14".
func (r RollRecord) Breakdown() string {
	var b strings.Builder
	b.WriteString(r.Formula)
	b.WriteString(" → ")
	b.WriteString(strings.ReplaceAll(fmt.Sprintf("%v", r.Results), ",", ""))
	if r.Wild != nil {
		fmt.Fprintf(&b, " wild %v", r.Wild)
	}
	fmt.Fprintf(&b, " %+d = %d", r.Modifier, r.Total)
	return b.String()
}

// Journal receives finished roll records for the external audit trail.
// Implementations must tolerate being called concurrently.
type Journal interface {
	Append(ctx context.Context, record RollRecord) error
}

// Roller produces and verifies rolls. Zero shared mutable state: every call
// derives a fresh stream, so a Roller is safe behind or without an actor.
type Roller struct {
	journal Journal
	logger  *zap.Logger
}

// NewRoller creates a Roller. journal may be nil to skip auditing.
func NewRoller(journal Journal, logger *zap.Logger) *Roller {
	return &Roller{journal: journal, logger: logger}
}

// Roll evaluates req and returns the completed record.
//
// Total is modifier + sum of the main dice, except when a wild die is
// present: then the better of (main sum, wild sum) counts, modeling the
// wild-die mechanic.
func (r *Roller) Roll(ctx context.Context, req RollRequest) (RollRecord, error) {
	f, err := ParseFormula(req.Formula)
	if err != nil {
		return RollRecord{}, err
	}

	var wildFormula *Formula
	if req.WildDie != "" {
		wf, err := ParseFormula(req.WildDie)
		if err != nil {
			return RollRecord{}, err
		}
		if wf.Count != 1 || wf.Modifier != 0 {
			return RollRecord{}, domain.Validation("wild die %q must be a single unmodified die", req.WildDie)
		}
		wildFormula = &wf
	}

	seed := req.Seed
	if seed == "" {
		seed, err = newSeed()
		if err != nil {
			return RollRecord{}, domain.Internal(err, "generate seed")
		}
	}

	rng := newStream(seed)

	results := make([][]int, f.Count)
	for i := 0; i < f.Count; i++ {
		results[i] = rollChain(rng, f.Sides, req.Explode)
	}

	var wild []int
	if wildFormula != nil {
		wild = rollChain(rng, wildFormula.Sides, req.Explode)
	}

	mainSum := 0
	for _, chain := range results {
		for _, v := range chain {
			mainSum += v
		}
	}
	total := f.Modifier + mainSum
	if wild != nil {
		wildSum := 0
		for _, v := range wild {
			wildSum += v
		}
		if wildSum > mainSum {
			total = f.Modifier + wildSum
		}
	}

	record := RollRecord{
		ID:       uuid.NewString(),
		Formula:  req.Formula,
		Results:  results,
		Wild:     wild,
		Modifier: f.Modifier,
		Total:    total,
		Seed:     seed,
		Hash:     auditHash(seed, results, wild, f.Modifier),
		RolledAt: time.Now().UTC(),
	}

	if r.journal != nil {
		// Audit is best effort: a journal outage must not void the roll.
		if err := r.journal.Append(ctx, record); err != nil {
			r.logger.Warn("roll journal append failed",
				zap.String("roll_id", record.ID),
				zap.Error(err),
			)
		}
	}

	return record, nil
}

// rollChain rolls one die, following its explosion chain while the maximum
// face keeps appearing (if explode is set).
func rollChain(rng *stream, sides int, explode bool) []int {
	chain := []int{rng.die(sides)}
	if !explode || sides == 1 {
		return chain
	}
	for chain[len(chain)-1] == sides && len(chain) < explosionCap {
		chain = append(chain, rng.die(sides))
	}
	return chain
}

// VerifyRequest carries the claimed outcome to re-check.
type VerifyRequest struct {
	Seed     string
	Results  [][]int
	Wild     []int
	Modifier int
	Hash     string
}

// VerifyResult reports the outcome of a verification. A mismatch is a
// normal negative result, not an error.
type VerifyResult struct {
	Valid        bool   `json:"valid"`
	ExpectedHash string `json:"expectedHash"`
	ProvidedHash string `json:"providedHash"`
}

// Verify recomputes the audit hash from the claimed inputs and compares it
// to the provided digest.
func (r *Roller) Verify(req VerifyRequest) (VerifyResult, error) {
	if req.Seed == "" || req.Results == nil || req.Hash == "" {
		return VerifyResult{}, domain.Validation("seed, results and hash are required")
	}
	expected := auditHash(req.Seed, req.Results, req.Wild, req.Modifier)
	return VerifyResult{
		Valid:        expected == req.Hash,
		ExpectedHash: expected,
		ProvidedHash: req.Hash,
	}, nil
}

// auditHash computes the canonical SHA-256 digest binding a roll outcome to
// its seed. The serialization is fixed: four newline-separated fields, in
// order seed, results as compact JSON, wild as compact JSON ("null" when
// absent), modifier as a base-10 integer.
func auditHash(seed string, results [][]int, wild []int, modifier int) string {
	resultsJSON, _ := json.Marshal(results)
	wildJSON := []byte("null")
	if wild != nil {
		wildJSON, _ = json.Marshal(wild)
	}

	h := sha256.New()
	h.Write([]byte(seed))
	h.Write([]byte{'\n'})
	h.Write(resultsJSON)
	h.Write([]byte{'\n'})
	h.Write(wildJSON)
	h.Write([]byte{'\n'})
	h.Write([]byte(strconv.Itoa(modifier)))
	return hex.EncodeToString(h.Sum(nil))
}
