package dice

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/rgilks/spf-mcp-sub000/internal/domain"
)

func newTestRoller() *Roller {
	return NewRoller(nil, zap.NewNop())
}

func TestRollDeterminism(t *testing.T) {
	r := newTestRoller()
	req := RollRequest{Formula: "3d6+2", Explode: true, WildDie: "d6", Seed: "test-seed"}

	first, err := r.Roll(context.Background(), req)
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	second, err := r.Roll(context.Background(), req)
	if err != nil {
		t.Fatalf("roll: %v", err)
	}

	if !reflect.DeepEqual(first.Results, second.Results) {
		t.Fatalf("same seed produced different results: %v vs %v", first.Results, second.Results)
	}
	if !reflect.DeepEqual(first.Wild, second.Wild) {
		t.Fatalf("same seed produced different wild chains: %v vs %v", first.Wild, second.Wild)
	}
	if first.Total != second.Total {
		t.Fatalf("same seed produced different totals: %d vs %d", first.Total, second.Total)
	}
	if first.Hash != second.Hash {
		t.Fatalf("same seed produced different hashes: %s vs %s", first.Hash, second.Hash)
	}
}

func TestRollGeneratesSeedWhenAbsent(t *testing.T) {
	r := newTestRoller()

	a, err := r.Roll(context.Background(), RollRequest{Formula: "1d20"})
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if a.Seed == "" {
		t.Fatal("expected a generated seed")
	}
	b, err := r.Roll(context.Background(), RollRequest{Formula: "1d20"})
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if a.Seed == b.Seed {
		t.Fatalf("two generated seeds collided: %s", a.Seed)
	}
}

func TestRollValueBounds(t *testing.T) {
	r := newTestRoller()

	for i := 0; i < 200; i++ {
		rec, err := r.Roll(context.Background(), RollRequest{
			Formula: "4d8",
			Explode: true,
			Seed:    fmt.Sprintf("bounds-%d", i),
		})
		if err != nil {
			t.Fatalf("roll: %v", err)
		}
		if len(rec.Results) != 4 {
			t.Fatalf("expected 4 dice, got %d", len(rec.Results))
		}
		for _, chain := range rec.Results {
			if len(chain) == 0 {
				t.Fatal("empty explosion chain")
			}
			for j, v := range chain {
				if v < 1 || v > 8 {
					t.Fatalf("die value %d out of [1,8]", v)
				}
				// Every link except the last must be the maximum face.
				if j < len(chain)-1 && v != 8 {
					t.Fatalf("non-terminal chain value %d is not the max face", v)
				}
			}
		}
	}
}

func TestRollNoExplosionWhenDisabled(t *testing.T) {
	r := newTestRoller()

	for i := 0; i < 100; i++ {
		rec, err := r.Roll(context.Background(), RollRequest{
			Formula: "2d4",
			Seed:    fmt.Sprintf("flat-%d", i),
		})
		if err != nil {
			t.Fatalf("roll: %v", err)
		}
		for _, chain := range rec.Results {
			if len(chain) != 1 {
				t.Fatalf("explosion chain of length %d with explode disabled", len(chain))
			}
		}
	}
}

func TestRollFairness(t *testing.T) {
	r := newTestRoller()

	const rolls = 6000
	counts := make(map[int]int)
	for i := 0; i < rolls; i++ {
		rec, err := r.Roll(context.Background(), RollRequest{
			Formula: "1d6",
			Seed:    fmt.Sprintf("fairness-%d", i),
		})
		if err != nil {
			t.Fatalf("roll: %v", err)
		}
		counts[rec.Results[0][0]]++
	}

	// Expected 1000 per face; allow ±20% which is far beyond normal
	// fluctuation for 6000 draws.
	for face := 1; face <= 6; face++ {
		n := counts[face]
		if n < 800 || n > 1200 {
			t.Fatalf("face %d appeared %d times out of %d, outside tolerance", face, n, rolls)
		}
	}
}

func TestRollTotalUsesBetterOfWildAndMain(t *testing.T) {
	r := newTestRoller()

	for i := 0; i < 100; i++ {
		rec, err := r.Roll(context.Background(), RollRequest{
			Formula: "2d6+1",
			Explode: true,
			WildDie: "d6",
			Seed:    fmt.Sprintf("wild-%d", i),
		})
		if err != nil {
			t.Fatalf("roll: %v", err)
		}

		mainSum := 0
		for _, chain := range rec.Results {
			for _, v := range chain {
				mainSum += v
			}
		}
		wildSum := 0
		for _, v := range rec.Wild {
			wildSum += v
		}

		want := rec.Modifier + mainSum
		if wildSum > mainSum {
			want = rec.Modifier + wildSum
		}
		if rec.Total != want {
			t.Fatalf("total %d, want %d (main %d, wild %d, mod %d)", rec.Total, want, mainSum, wildSum, rec.Modifier)
		}
	}
}

func TestRollRejectsBadWildDie(t *testing.T) {
	r := newTestRoller()

	for _, wild := range []string{"2d6", "d6+1", "nonsense"} {
		_, err := r.Roll(context.Background(), RollRequest{Formula: "1d8", WildDie: wild})
		if err == nil {
			t.Fatalf("wild die %q: expected error", wild)
		}
		if !domain.IsKind(err, domain.KindValidation) {
			t.Fatalf("wild die %q: expected validation error, got %v", wild, err)
		}
	}
}

func TestVerifyHashBinding(t *testing.T) {
	r := newTestRoller()

	rec, err := r.Roll(context.Background(), RollRequest{
		Formula: "2d6+1",
		Explode: true,
		WildDie: "d6",
		Seed:    "binding-seed",
	})
	if err != nil {
		t.Fatalf("roll: %v", err)
	}

	res, err := r.Verify(VerifyRequest{
		Seed:     rec.Seed,
		Results:  rec.Results,
		Wild:     rec.Wild,
		Modifier: rec.Modifier,
		Hash:     rec.Hash,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Valid {
		t.Fatalf("authentic record failed verification: %+v", res)
	}
	if res.ExpectedHash != rec.Hash {
		t.Fatalf("expected hash %s, got %s", rec.Hash, res.ExpectedHash)
	}

	// A single changed die flips the verdict, and is not an error.
	tampered := make([][]int, len(rec.Results))
	for i, chain := range rec.Results {
		tampered[i] = append([]int(nil), chain...)
	}
	tampered[0][0] = tampered[0][0]%6 + 1

	res, err = r.Verify(VerifyRequest{
		Seed:     rec.Seed,
		Results:  tampered,
		Wild:     rec.Wild,
		Modifier: rec.Modifier,
		Hash:     rec.Hash,
	})
	if err != nil {
		t.Fatalf("verify of tampered record errored: %v", err)
	}
	if res.Valid {
		t.Fatal("tampered results passed verification")
	}
}

func TestVerifyMissingFields(t *testing.T) {
	r := newTestRoller()

	_, err := r.Verify(VerifyRequest{Results: [][]int{{3}}, Hash: "abc"})
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for missing seed, got %v", err)
	}
	_, err = r.Verify(VerifyRequest{Seed: "s", Hash: "abc"})
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for missing results, got %v", err)
	}
	_, err = r.Verify(VerifyRequest{Seed: "s", Results: [][]int{{3}}})
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for missing hash, got %v", err)
	}
}

type failingJournal struct{ calls int }

func (j *failingJournal) Append(context.Context, RollRecord) error {
	j.calls++
	return errors.New("journal down")
}

func TestJournalFailureDoesNotFailRoll(t *testing.T) {
	journal := &failingJournal{}
	r := NewRoller(journal, zap.NewNop())

	rec, err := r.Roll(context.Background(), RollRequest{Formula: "1d6", Seed: "journal-seed"})
	if err != nil {
		t.Fatalf("roll failed on journal outage: %v", err)
	}
	if journal.calls != 1 {
		t.Fatalf("journal called %d times, want 1", journal.calls)
	}
	if rec.Hash == "" {
		t.Fatal("expected a hash despite journal failure")
	}
}
