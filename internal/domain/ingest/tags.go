package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/okian/squadron/internal/domain/model"
)

// tagSeparators are checked in priority order; the first one present in
// the raw field is the only one used to split it.
var tagSeparators = []string{",", ";", "|", " "}

// ParseTags turns a raw eligibility field into a normalized tag set.
//
// With a separator present the field is split on it, and every token longer
// than one character made only of letters is exploded into single letters.
// Other tokens are kept whole. Without a separator every character is a tag.
func ParseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, sep := range tagSeparators {
		if !strings.Contains(raw, sep) {
			continue
		}
		var tags []string
		for _, tok := range strings.Split(raw, sep) {
			tok = strings.TrimSpace(tok)
			if utf8.RuneCountInString(tok) > 1 && isLetters(tok) {
				tags = append(tags, explode(tok)...)
			} else {
				tags = append(tags, tok)
			}
		}
		return model.NormalizeTags(tags)
	}
	return model.NormalizeTags(explode(raw))
}

func isLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func explode(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
