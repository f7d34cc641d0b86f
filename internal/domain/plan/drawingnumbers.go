// Package plan holds the rules of the decision-bearing plan envelope:
// drawing number reconciliation and decision id ordering.
package plan

import (
	"slices"
	"strings"
)

const drawingPrefixLen = 4

// ParseDrawingNumbers splits a comma separated drawing number cell. An empty
// cell and the placeholder "0" yield no numbers.
func ParseDrawingNumbers(cell string) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == "0" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(cell, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func prefix(dn string) (string, bool) {
	if len(dn) < drawingPrefixLen {
		return "", false
	}
	return dn[:drawingPrefixLen], true
}

// HasExactMatch reports whether dn appears verbatim in existing.
func HasExactMatch(dn string, existing []string) bool {
	return slices.Contains(existing, dn)
}

// HasPartialMatch reports whether the first four characters of dn start any
// entry of existing.
func HasPartialMatch(dn string, existing []string) bool {
	p, ok := prefix(dn)
	if !ok {
		return false
	}
	for _, e := range existing {
		if strings.HasPrefix(e, p) {
			return true
		}
	}
	return false
}

// CanMerge reports whether incoming numbers may be merged into existing: any
// entry matches exactly or by prefix, or existing is empty.
func CanMerge(incoming, existing []string) bool {
	if len(existing) == 0 {
		return true
	}
	for _, dn := range incoming {
		if HasExactMatch(dn, existing) || HasPartialMatch(dn, existing) {
			return true
		}
	}
	return false
}

// MergeDrawingNumbers replaces existing entries sharing a prefix with an
// incoming entry, keeps the rest and appends the incoming entries. The result
// is sorted.
func MergeDrawingNumbers(existing, incoming []string) []string {
	replaced := make(map[string]struct{})
	for _, dn := range incoming {
		if p, ok := prefix(dn); ok {
			replaced[p] = struct{}{}
		}
	}

	merged := make([]string, 0, len(existing)+len(incoming))
	for _, dn := range existing {
		if slices.Contains(incoming, dn) || !hasAnyPrefix(dn, replaced) {
			merged = append(merged, dn)
		}
	}
	for _, dn := range incoming {
		if !slices.Contains(merged, dn) {
			merged = append(merged, dn)
		}
	}
	slices.Sort(merged)
	return merged
}

func hasAnyPrefix(dn string, prefixes map[string]struct{}) bool {
	for p := range prefixes {
		if strings.HasPrefix(dn, p) {
			return true
		}
	}
	return false
}

// SameSet reports whether a and b hold the same distinct values.
func SameSet(a, b []string) bool {
	set := func(s []string) map[string]struct{} {
		m := make(map[string]struct{}, len(s))
		for _, v := range s {
			m[v] = struct{}{}
		}
		return m
	}
	sa, sb := set(a), set(b)
	if len(sa) != len(sb) {
		return false
	}
	for k := range sa {
		if _, ok := sb[k]; !ok {
			return false
		}
	}
	return true
}
