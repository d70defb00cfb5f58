// Package moderation masks forbidden words in chat messages before they are stored.
package moderation

import (
	"chat-gateway/errors"
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator matches a dictionary of forbidden words against normalized text,
// so "B.4.d.g.€r" is caught by "badger". Safe for concurrent use once built.
type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
	log         *slog.Logger
}

// textMapping ties each rune of the normalized text to its position in the original.
type textMapping struct {
	normalized []rune
	origin     []int
}

// NewModerator builds the automaton. Words that normalize to nothing
// (pure punctuation, blanks) are ignored.
func NewModerator(words []string, replacement rune, log *slog.Logger) (*Moderator, error) {
	seen := make(map[string]struct{}, len(words))
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		pattern := normalizeRunes([]rune(word))
		if len(pattern) == 0 {
			continue
		}
		if _, dup := seen[string(pattern)]; dup {
			continue
		}
		seen[string(pattern)] = struct{}{}
		patterns = append(patterns, pattern)
	}
	if len(patterns) == 0 {
		return nil, errors.ErrEmptyWords
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	log.Debug("Moderation automaton built", "patterns", len(patterns))
	return &Moderator{matcher: m, replacement: replacement, log: log}, nil
}

// Censor replaces every rune of a forbidden word, including the noise inside it,
// with the replacement rune. Spacing around words is preserved.
func (m *Moderator) Censor(text string) string {
	mapping := normalize(text)
	if len(mapping.normalized) == 0 {
		return text
	}
	matches := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(matches) == 0 {
		return text
	}

	runes := []rune(text)
	for _, match := range matches {
		start := match.Pos
		end := start + len(match.Word)
		if start < 0 || end > len(mapping.origin) {
			continue
		}
		for i := mapping.origin[start]; i <= mapping.origin[end-1]; i++ {
			runes[i] = m.replacement
		}
	}
	m.log.Debug("Message censored", "matches", len(matches))
	return string(runes)
}

func normalize(input string) textMapping {
	runes := []rune(input)
	mapping := textMapping{
		normalized: make([]rune, 0, len(runes)),
		origin:     make([]int, 0, len(runes)),
	}
	for i, r := range runes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		mapping.normalized = append(mapping.normalized, unicode.ToLower(clean))
		mapping.origin = append(mapping.origin, i)
	}
	return mapping
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps leet speak back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
