package domain

import "strings"

// PatternKind describes the wildcard shape of a LIKE pattern.
type PatternKind int

const (
	PatternExact PatternKind = iota
	PatternPrefix
	PatternSuffix
	PatternSubstring
)

// Pattern is a SQL-LIKE style match pattern (`%` wildcards only). It is a
// typed value so the matching semantics can be tested independently of the
// query engine's LIKE dialect. Patterns are always stored lowercased.
type Pattern struct {
	raw string
}

// NewPattern lowercases and trims the given LIKE string.
func NewPattern(s string) Pattern {
	return Pattern{raw: strings.ToLower(strings.TrimSpace(s))}
}

// ExactPattern builds a pattern that matches only the given text.
func ExactPattern(s string) Pattern {
	return NewPattern(strings.ReplaceAll(s, "%", ""))
}

// String returns the raw LIKE string, suitable for storage or a LIKE clause.
func (p Pattern) String() string { return p.raw }

// IsZero reports whether the pattern is empty (or wildcards only).
func (p Pattern) IsZero() bool { return p.literal() == "" }

// Kind classifies the pattern by its wildcard placement.
func (p Pattern) Kind() PatternKind {
	leading := strings.HasPrefix(p.raw, "%")
	trailing := strings.HasSuffix(p.raw, "%")
	switch {
	case leading && trailing:
		return PatternSubstring
	case trailing:
		return PatternPrefix
	case leading:
		return PatternSuffix
	default:
		return PatternExact
	}
}

// literal is the pattern with its wildcards stripped.
func (p Pattern) literal() string {
	return strings.Trim(p.raw, "%")
}

// Specificity is the length of the literal text. Longer literals match
// fewer strings; when several stored patterns match the same name, the
// most specific one wins for display.
func (p Pattern) Specificity() int { return len(p.literal()) }

// Matches reports whether s matches the pattern, case-insensitively.
// Interior `%` wildcards are honored by splitting the literal into
// ordered segments.
func (p Pattern) Matches(s string) bool {
	if p.raw == "" {
		return false
	}
	target := strings.ToLower(s)

	segments := strings.Split(p.raw, "%")
	// Fast paths for the common shapes.
	if len(segments) == 1 {
		return target == p.raw
	}

	first, last := segments[0], segments[len(segments)-1]
	if first != "" && !strings.HasPrefix(target, first) {
		return false
	}
	if last != "" && !strings.HasSuffix(target, last) {
		return false
	}

	rest := target[len(first):]
	if last != "" {
		if len(rest) < len(last) {
			return false
		}
		rest = rest[:len(rest)-len(last)]
	}
	for _, seg := range segments[1 : len(segments)-1] {
		if seg == "" {
			continue
		}
		idx := strings.Index(rest, seg)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(seg):]
	}
	return true
}

// MostSpecific returns the pattern with the longest literal from the given
// candidates, or false when none match the name.
func MostSpecific(name string, candidates []StandardizationPattern) (StandardizationPattern, bool) {
	var best StandardizationPattern
	bestScore := -1
	for _, c := range candidates {
		if !c.Pattern.Matches(name) {
			continue
		}
		if score := c.Pattern.Specificity(); score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best, bestScore >= 0
}
