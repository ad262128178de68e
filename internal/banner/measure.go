package banner

import (
	"math"
	"unicode"

	"golang.org/x/text/width"
)

// Glyph advance relative to the text size.
const (
	narrowAdvance = 0.55
	wideAdvance   = 1.0
)

// Text sizes of the program title in pixels.
const (
	programLargePx  = 34.0
	programMediumPx = 28.0
)

// TextWidth estimates the rendered width of s in pixels at sizePx.
func TextWidth(s string, sizePx float64) float64 {
	var w float64
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Mn, r), unicode.Is(unicode.Me, r):
		case isWide(r):
			w += wideAdvance * sizePx
		default:
			w += narrowAdvance * sizePx
		}
	}
	return w
}

func isWide(r rune) bool {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return true
	default:
		return false
	}
}

// EstimateLineCount returns how many lines s needs in a box widthPx wide, or
// -1 when the width is not known yet.
func EstimateLineCount(s string, sizePx float64, widthPx int) int {
	if widthPx <= 0 {
		return -1
	}
	px := int(math.Ceil(TextWidth(s, sizePx)))
	return (px + widthPx - 1) / widthPx
}
