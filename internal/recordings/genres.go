package recordings

import "strings"

// Canonical genres understood by the guide. A genre's id is its position in
// this list plus one; 0 means "all channels" and also covers unknown values.
var canonicalGenres = []string{
	"FAMILY_KIDS",
	"SPORTS",
	"SHOPPING",
	"MOVIES",
	"COMEDY",
	"TRAVEL",
	"DRAMA",
	"EDUCATION",
	"ANIMAL_WILDLIFE",
	"NEWS",
	"GAMING",
	"ARTS",
	"ENTERTAINMENT",
	"LIFE_STYLE",
	"MUSIC",
	"PREMIER",
	"TECH_SCIENCE",
}

// GenreIDAll is the id of the catch-all genre.
const GenreIDAll = 0

// GenreID returns the taxonomy id of a canonical genre.
func GenreID(genre string) int {
	for i, g := range canonicalGenres {
		if g == genre {
			return i + 1
		}
	}
	return GenreIDAll
}

// EncodeGenres joins genres with commas. Commas and double quotes inside a
// genre are escaped with a preceding double quote.
func EncodeGenres(genres []string) string {
	var sb strings.Builder
	for i, g := range genres {
		if i > 0 {
			sb.WriteByte(',')
		}
		for _, r := range g {
			if r == '"' || r == ',' {
				sb.WriteByte('"')
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// DecodeGenres reverses EncodeGenres. Entries are trimmed and empty entries
// dropped.
func DecodeGenres(s string) []string {
	if s == "" {
		return nil
	}
	if !strings.ContainsAny(s, `",`) {
		if t := strings.TrimSpace(s); t != "" {
			return []string{t}
		}
		return nil
	}

	var (
		out    []string
		sb     strings.Builder
		escape bool
	)
	flush := func() {
		if t := strings.TrimSpace(sb.String()); t != "" {
			out = append(out, t)
		}
		sb.Reset()
	}
	for _, r := range s {
		switch {
		case r == '"' && !escape:
			escape = true
			continue
		case r == ',' && !escape:
			flush()
			continue
		}
		sb.WriteRune(r)
		escape = false
	}
	flush()
	return out
}
