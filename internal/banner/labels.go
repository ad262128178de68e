package banner

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// NoProgramInformation is the title shown when no program is airing.
const NoProgramInformation = "No program information"

const aspectRatioEpsilon = 0.01

// ResolutionLabel names a definition level; unknown levels have no label.
func ResolutionLabel(level DefinitionLevel) string {
	switch level {
	case DefinitionSD:
		return "SD"
	case DefinitionHD:
		return "HD"
	case DefinitionFullHD:
		return "FHD"
	case DefinitionUltraHD:
		return "4K"
	default:
		return ""
	}
}

// AspectRatioLabel names common display aspect ratios and falls back to
// "W:H" for anything else.
func AspectRatioLabel(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	ratio := float64(width) / float64(height)
	for _, known := range []struct {
		ratio float64
		label string
	}{
		{4.0 / 3.0, "4:3"},
		{16.0 / 9.0, "16:9"},
		{21.0 / 9.0, "21:9"},
	} {
		if math.Abs(ratio-known.ratio) < aspectRatioEpsilon {
			return known.label
		}
	}
	return fmt.Sprintf("%d:%d", width, height)
}

// AudioChannelLabel names common channel layouts.
func AudioChannelLabel(channels int) string {
	switch channels {
	case 1:
		return "MONO"
	case 2:
		return "STEREO"
	case 6:
		return "5.1"
	case 8:
		return "7.1"
	default:
		return ""
	}
}

// ChannelNumberSize picks the text size for a display number by length.
func ChannelNumberSize(number string) TextSize {
	switch n := utf8.RuneCountInString(number); {
	case n <= 3:
		return SizeLarge
	case n <= 4:
		return SizeMedium
	default:
		return SizeSmall
	}
}

// RemainingPercent is the progress through [start, end] at now, clamped to 0..100.
func RemainingPercent(start, end, now int64) int {
	switch {
	case now <= start:
		return 0
	case now >= end:
		return 100
	default:
		return int(100 * (now - start) / (end - start))
	}
}

// FormatTimeRange renders "start - end" in loc using layout.
func FormatTimeRange(startMillis, endMillis int64, layout string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	start := time.UnixMilli(startMillis).In(loc).Format(layout)
	end := time.UnixMilli(endMillis).In(loc).Format(layout)
	return start + " - " + end
}
