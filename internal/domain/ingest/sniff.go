package ingest

import (
	"bytes"
)

// SampleSize is how many leading bytes delimiter detection looks at.
const SampleSize = 1024

// DefaultDelimiter is used when detection fails.
const DefaultDelimiter = ','

// candidateDelimiters are tried in preference order.
var candidateDelimiters = []byte{',', '\t', ';', '|', ':'}

// Dialect describes how the input is split into fields.
type Dialect struct {
	Delimiter rune
	// Sniffed is false when detection failed and DefaultDelimiter was used.
	Sniffed bool
}

// Sniff infers the field delimiter from the first SampleSize bytes.
//
// A delimiter qualifies when it appears, outside quotes, the same non-zero
// number of times on every sampled line. Among qualifying delimiters the one
// with the most occurrences per line wins; ties go to the earlier entry of
// candidateDelimiters. When nothing qualifies the comma is returned with
// Sniffed set to false.
func Sniff(data []byte) Dialect {
	lines := sampleLines(data)
	if len(lines) == 0 {
		return Dialect{Delimiter: DefaultDelimiter}
	}

	best, bestCount := byte(0), 0
	for _, d := range candidateDelimiters {
		n := consistentCount(lines, d)
		if n > bestCount {
			best, bestCount = d, n
		}
	}
	if bestCount == 0 {
		return Dialect{Delimiter: DefaultDelimiter}
	}
	return Dialect{Delimiter: rune(best), Sniffed: true}
}

// sampleLines returns the non-blank lines of the sample. A line cut by the
// sample boundary is dropped unless it is the only one.
func sampleLines(data []byte) [][]byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	truncated := len(data) > SampleSize
	if truncated {
		data = data[:SampleSize]
	}

	raw := bytes.Split(data, []byte("\n"))
	if truncated && len(raw) > 1 {
		raw = raw[:len(raw)-1]
	}

	lines := make([][]byte, 0, len(raw))
	for _, l := range raw {
		l = bytes.TrimRight(l, "\r")
		if len(bytes.TrimSpace(l)) > 0 {
			lines = append(lines, l)
		}
	}
	return lines
}

// consistentCount returns the per-line count of d when every line has the
// same non-zero count, and 0 otherwise.
func consistentCount(lines [][]byte, d byte) int {
	want := -1
	for _, l := range lines {
		n := countUnquoted(l, d)
		if n == 0 || (want >= 0 && n != want) {
			return 0
		}
		want = n
	}
	return want
}

func countUnquoted(line []byte, d byte) int {
	n := 0
	quoted := false
	for _, c := range line {
		switch {
		case c == '"':
			quoted = !quoted
		case c == d && !quoted:
			n++
		}
	}
	return n
}
