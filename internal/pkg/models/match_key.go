package models

import (
	"strings"
	"unicode"
)

// Tokens dropped from team names before comparison. These are standalone-word
// matches only; substrings are never touched, so "Leicester City" becomes
// "leicester" while "Man City" becomes "man" and the two stay distinct.
//
// IMPORTANT: widening this list changes which cross-bookmaker matches succeed.
// Any change must go through the regression cases in match_key_test.go.
var droppedNameTokens = map[string]struct{}{
	"fc":     {},
	"afc":    {},
	"cf":     {},
	"sfc":    {},
	"united": {},
	"utd":    {},
	"city":   {},
}

// Whole-word aliases that differ between bookmakers but denote the same club.
var nameAliases = map[string]string{
	"manchester":    "man",
	"wolverhampton": "wolves",
	"tottenham":     "spurs",
}

// NormalizeName canonicalizes a free-text team/participant name so that the
// same club spelled differently by two bookmakers compares equal.
// Pure and idempotent: NormalizeName(NormalizeName(s)) == NormalizeName(s).
func NormalizeName(name string) string {
	s := strings.ToLower(name)

	// Drop everything that is not a letter, digit or whitespace, so
	// "F.C. Porto" and "FC Porto" reduce to the same tokens.
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	fields := strings.Fields(b.String())
	out := fields[:0]
	for _, f := range fields {
		if _, drop := droppedNameTokens[f]; drop {
			continue
		}
		if alias, ok := nameAliases[f]; ok {
			f = alias
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// BuildKey derives the canonical, order-independent join key for a
// two-participant event. BuildKey(a, b) == BuildKey(b, a) always holds.
// The second participant may be empty (non-dual-participant titles); callers
// must tolerate a key with an empty second component.
func BuildKey(participantA, participantB string) string {
	a := NormalizeName(participantA)
	b := NormalizeName(participantB)
	if b < a {
		a, b = b, a
	}
	return a + " vs " + b
}

// titleSeparators in priority order: " vs " wins over " - " when both occur.
var titleSeparators = []string{" vs ", " - "}

// SplitTitle extracts the two participants from a display title like
// "A vs B" or "A - B". When no separator yields exactly two non-empty parts,
// the whole title is returned as the first participant with an empty second,
// which degrades gracefully for non-dual-participant markets.
func SplitTitle(title string) (string, string) {
	title = strings.TrimSpace(title)
	for _, sep := range titleSeparators {
		parts := strings.Split(title, sep)
		if len(parts) != 2 {
			continue
		}
		a := strings.TrimSpace(parts[0])
		b := strings.TrimSpace(parts[1])
		if a == "" || b == "" {
			continue
		}
		return a, b
	}
	return title, ""
}

// KeyForEvent builds the canonical key for a source event from its title.
func KeyForEvent(ev *SourceEvent) string {
	a, b := SplitTitle(ev.DisplayTitle)
	return BuildKey(a, b)
}
