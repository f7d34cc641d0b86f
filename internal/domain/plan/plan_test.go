package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDrawingNumbers(t *testing.T) {
	assert.Nil(t, ParseDrawingNumbers(""))
	assert.Nil(t, ParseDrawingNumbers(" 0 "))
	assert.Equal(t, []string{"6593"}, ParseDrawingNumbers("6593"))
	assert.Equal(t, []string{"6593-1", "7000"}, ParseDrawingNumbers("6593-1, ,7000 "))
}

func TestCanMerge(t *testing.T) {
	tests := []struct {
		name     string
		incoming []string
		existing []string
		want     bool
	}{
		{"exact", []string{"7000"}, []string{"6593-3", "7000"}, true},
		{"prefix", []string{"6593"}, []string{"6593-3", "7000"}, true},
		{"empty plan", []string{"1234"}, nil, true},
		{"no match", []string{"1234"}, []string{"6593-3"}, false},
		{"short entry never partial", []string{"659"}, []string{"6593-3"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanMerge(tt.incoming, tt.existing))
		})
	}
}

func TestMergeDrawingNumbers(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		incoming []string
		want     []string
	}{
		{"prefix replaces", []string{"6593-3", "7000"}, []string{"6593"}, []string{"6593", "7000"}},
		{"unrelated kept", []string{"6789"}, []string{"1234"}, []string{"1234", "6789"}},
		{"exact kept once", []string{"7000", "1234-1"}, []string{"7000"}, []string{"1234-1", "7000"}},
		{"incoming also kept when listed", []string{"6593-3", "6593-4"}, []string{"6593-3", "6593"}, []string{"6593", "6593-3"}},
		{"into empty", nil, []string{"b", "a"}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeDrawingNumbers(tt.existing, tt.incoming))
		})
	}
}

func TestSameSet(t *testing.T) {
	assert.True(t, SameSet([]string{"a", "b"}, []string{"b", "a"}))
	assert.True(t, SameSet(nil, []string{}))
	assert.False(t, SameSet([]string{"a"}, []string{"a", "b"}))
}

func TestParseDecisionID(t *testing.T) {
	assert.Equal(t, DecisionKey{2024, 11}, ParseDecisionID("2024-011"))

	a, b := ParseDecisionID("2024-010"), ParseDecisionID("2024-011")
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, ParseDecisionID("2025-001").Compare(b))
	assert.Equal(t, 0, b.Compare(ParseDecisionID("2024-11")))

	assert.Equal(t, -1, ParseDecisionID("").Compare(a))
	assert.Equal(t, -1, ParseDecisionID("abc-5").Compare(a))
}
