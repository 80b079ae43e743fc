// Package moderation masks dictionary words in outgoing chat text.
package moderation

import (
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator matches a fixed dictionary against messages, ignoring case, punctuation
// and the usual leet substitutions.
type Moderator struct {
	log          *slog.Logger
	matcher      *goahocorasick.Machine
	words        map[string]string
	languages    []string
	censoredChar rune
}

// folded is a message reduced to its searchable runes.
// Each folded rune remembers where it came from in the original text.
type folded struct {
	runes   []rune
	origIdx []int
}

// NewModerator builds the automaton from the folded dictionary.
// Entries that fold to nothing (pure punctuation, blanks) are skipped.
func NewModerator(censoredWords []string, censoredChar rune, log *slog.Logger) (*Moderator, error) {
	words := make(map[string]string, len(censoredWords))
	for _, word := range censoredWords {
		key := string(foldRunes([]rune(word)))
		if key == "" {
			continue
		}
		if _, ok := words[key]; !ok {
			words[key] = word
		}
	}

	keys := make([]string, 0, len(words))
	for key := range words {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	m := &Moderator{log: log, words: words, censoredChar: censoredChar}
	if len(keys) == 0 {
		return m, nil
	}
	patterns := make([][]rune, len(keys))
	for i, key := range keys {
		patterns[i] = []rune(key)
	}
	matcher := new(goahocorasick.Machine)
	if err := matcher.Build(patterns); err != nil {
		return nil, err
	}
	m.matcher = matcher
	log.Debug("Moderation dictionary built", "words", len(patterns))
	return m, nil
}

// WithLanguages records the languages the dictionary was built from, so that
// censored messages written in another language stand out in the logs.
func (m *Moderator) WithLanguages(languages ...string) *Moderator {
	m.languages = languages
	return m
}

// Language returns the ISO 639-1 code detected for text, empty when it cannot be told.
func (m *Moderator) Language(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return whatlanggo.Detect(text).Lang.Iso6391()
}

// Covered reports whether lang is one of the dictionary languages.
// Without recorded languages every language is considered covered.
func (m *Moderator) Covered(lang string) bool {
	return len(m.languages) == 0 || slices.Contains(m.languages, lang)
}

// Censor masks every matched word with the censor character, keeping the text length and spacing.
// It also returns the dictionary entries found, in order of appearance.
func (m *Moderator) Censor(original string) (string, []string) {
	if m.matcher == nil {
		return original, nil
	}
	text := fold(original)
	if len(text.runes) == 0 {
		return original, nil
	}
	spans := m.matcher.MultiPatternSearch(text.runes, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	var found []string
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(text.origIdx) {
			continue
		}
		for i := text.origIdx[start]; i <= text.origIdx[end-1]; i++ {
			origRunes[i] = m.censoredChar
		}
		found = append(found, m.words[string(span.Word)])
	}
	if len(found) > 0 {
		lang := m.Language(original)
		m.log.Debug("Message censored", "matches", len(found), "lang", lang, "covered", m.Covered(lang))
	}
	return string(origRunes), found
}

func fold(input string) folded {
	origRunes := []rune(input)
	out := folded{
		runes:   make([]rune, 0, len(origRunes)),
		origIdx: make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out.runes = append(out.runes, unicode.ToLower(clean))
		out.origIdx = append(out.origIdx, i)
	}
	return out
}

func foldRunes(input []rune) []rune {
	return fold(string(input)).runes
}

// simplifyRune maps leet characters back to letters.
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
