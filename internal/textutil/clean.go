package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Clean composes Hangul jamo into syllables (NFC) and collapses whitespace runs.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// SplitItems splits free text into list items on any of the given separators, trims
// bullets and whitespace, and keeps items of at least minRunes runes.
func SplitItems(text string, minRunes int, seps ...string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := []string{text}
	for _, sep := range seps {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimFunc(p, func(r rune) bool {
			return unicode.IsSpace(r) || strings.ContainsRune("•◦·-*ㆍ", r)
		})
		p = Clean(p)
		if len([]rune(p)) >= minRunes {
			out = append(out, p)
		}
	}
	return out
}

// Dedupe removes repeated entries case-insensitively, keeping the first spelling.
func Dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(item))
	}
	return out
}
