package dice

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rgilks/spf-mcp-sub000/internal/domain"
)

// Formula is a parsed dice expression such as "2d6+1".
type Formula struct {
	Count    int
	Sides    int
	Modifier int
}

var formulaPattern = regexp.MustCompile(`^(\d+)?[dD](\d+)([+-]\d+)?$`)

// ParseFormula parses an expression of the shape [count]d<sides>[+/-mod].
// Count defaults to 1. Zero counts or sides are rejected.
func ParseFormula(expr string) (Formula, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(expr), " ", "")
	m := formulaPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Formula{}, domain.Validation("invalid dice formula %q", expr)
	}

	f := Formula{Count: 1}
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Formula{}, domain.Validation("invalid dice count in %q", expr)
		}
		f.Count = n
	}

	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return Formula{}, domain.Validation("invalid side count in %q", expr)
	}
	f.Sides = sides

	if m[3] != "" {
		mod, err := strconv.Atoi(m[3])
		if err != nil {
			return Formula{}, domain.Validation("invalid modifier in %q", expr)
		}
		f.Modifier = mod
	}

	if f.Count <= 0 {
		return Formula{}, domain.Validation("dice count must be positive in %q", expr)
	}
	if f.Sides <= 0 {
		return Formula{}, domain.Validation("die sides must be positive in %q", expr)
	}
	if f.Count > maxDicePerRoll {
		return Formula{}, domain.Validation("too many dice in %q (max %d)", expr, maxDicePerRoll)
	}

	return f, nil
}

const maxDicePerRoll = 100
