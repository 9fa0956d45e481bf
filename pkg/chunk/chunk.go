// Package chunk turns arbitrary text into DNS-label-safe segments.
//
// Text is first sanitised into a dotted string made only of [a-z0-9.-],
// with no empty labels and no label that starts or ends with a hyphen
// next to a dot. The sanitised labels are then packed greedily into
// groups of at most a fixed number of characters, each group becoming one
// chunk that can be served as a PTR target.
package chunk

import (
	"regexp"
	"strings"
)

// DefaultMaxLabelSetBytes is the group budget used by the responder
const DefaultMaxLabelSetBytes = 64

var (
	disallowed = regexp.MustCompile(`[^a-zA-Z0-9.\-]`)
	dotRun     = regexp.MustCompile(`\.\.+`)
	dashRun    = regexp.MustCompile(`--+`)
)

// Sanitize normalises text into the dotted form Split packs.
func Sanitize(text string) string {
	s := disallowed.ReplaceAllString(text, ".")
	s = strings.ToLower(s)
	s = dotRun.ReplaceAllString(s, ".")
	s = dashRun.ReplaceAllString(s, "-")
	s = strings.ReplaceAll(s, ".-", ".0-")
	s = strings.ReplaceAll(s, "-.", "-0.")

	if s == "" {
		return s
	}
	if s[0] == '.' || s[0] == '-' {
		s = "0" + s
	}
	if last := s[len(s)-1]; last == '.' || last == '-' {
		s += "0"
	}
	return s
}

// Split sanitises text and packs its labels into groups whose joined
// length does not exceed maxLabelSetBytes. A single label longer than the
// budget is emitted on its own, unsplit. Empty input yields nil.
func Split(text string, maxLabelSetBytes int) []string {
	s := Sanitize(text)
	if s == "" {
		return nil
	}

	var (
		groups []string
		cur    []string
		curLen int
	)
	for _, label := range strings.Split(s, ".") {
		// Joining adds one dot per label after the first
		next := curLen + len(label)
		if len(cur) > 0 {
			next++
		}

		if len(cur) > 0 && next > maxLabelSetBytes {
			groups = append(groups, strings.Join(cur, "."))
			cur = cur[:0]
			next = len(label)
		}

		cur = append(cur, label)
		curLen = next
	}

	if len(cur) > 0 {
		groups = append(groups, strings.Join(cur, "."))
	}
	return groups
}
