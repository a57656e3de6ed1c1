// Package headers implements the pure header-analysis pipeline: line tokenizing,
// canonical field extraction, authentication signal reading, sender IP location
// and trust scoring. Nothing in this package performs I/O.
package headers

import (
	"iter"
	"strings"
)

// Lines returns the trimmed, non-empty lines of a raw header block. Both "\n" and
// "\r\n" terminate a line. Folded continuation lines are not joined to their parent.
// The sequence is lazy and can be ranged over any number of times.
func Lines(raw string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := raw
		for len(rest) > 0 {
			line := rest
			if i := strings.IndexByte(rest, '\n'); i >= 0 {
				line, rest = rest[:i], rest[i+1:]
			} else {
				rest = ""
			}
			line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}
