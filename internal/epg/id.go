// SPDX-License-Identifier: MIT
package epg

import (
	"regexp"
	"strings"
)

var (
	idDisallowed = regexp.MustCompile(`[^a-zA-ZÀ-ÿ0-9\s.\-_]`)
	idSeparators = regexp.MustCompile(`[\s.\-_]+`)
)

// stableID derives an XMLTV channel id from a channel number and name,
// e.g. "1-2" "Sintel" → "1.2.sintel".
func stableID(number, name string) string {
	result := strings.ToLower(number + " " + name)
	cleaned := idDisallowed.ReplaceAllString(result, "")
	normalized := idSeparators.ReplaceAllString(cleaned, ".")
	return strings.Trim(normalized, ".")
}
