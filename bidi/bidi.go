// Package bidi classifies a line of text as left-to-right, right-to-left,
// or neutral using first-strong detection. The screen caches the result per
// line; render ordering is the only consumer.
package bidi

import (
	xbidi "golang.org/x/text/unicode/bidi"

	"qterm/grid"
)

// Classify returns the direction of the first strongly-directional rune in
// text, or DirNeutral when there is none.
func Classify(text string) grid.Direction {
	for _, r := range text {
		props, _ := xbidi.LookupRune(r)
		switch props.Class() {
		case xbidi.L:
			return grid.DirLTR
		case xbidi.R, xbidi.AL:
			return grid.DirRTL
		}
	}
	return grid.DirNeutral
}
