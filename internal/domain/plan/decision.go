package plan

import (
	"cmp"
	"math"
	"strconv"
	"strings"
)

// DecisionKey orders decisions by year and running number.
type DecisionKey struct {
	Year   int
	Number int
}

// ParseDecisionID splits a "YEAR-NUMBER" decision id. Parts that are missing
// or not numeric sort before any real value.
func ParseDecisionID(id string) DecisionKey {
	first, rest, _ := strings.Cut(strings.TrimSpace(id), "-")
	second, _, _ := strings.Cut(rest, "-")
	return DecisionKey{Year: atoiOrMin(first), Number: atoiOrMin(second)}
}

func atoiOrMin(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return math.MinInt
	}
	return n
}

// Compare returns -1, 0 or 1 as k is older than, equal to or newer than other.
func (k DecisionKey) Compare(other DecisionKey) int {
	if c := cmp.Compare(k.Year, other.Year); c != 0 {
		return c
	}
	return cmp.Compare(k.Number, other.Number)
}
