package recordings

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ManuGH/tvinput/internal/cache"
)

// ErrInvalidRating is returned for a flattened rating with fewer than three
// components.
var ErrInvalidRating = errors.New("invalid content rating")

// ContentRating is a parental rating such as com.android.tv/US_TV/US_TV_PG/US_TV_D.
type ContentRating struct {
	Domain     string   `json:"domain"`
	System     string   `json:"system"`
	Rating     string   `json:"rating"`
	SubRatings []string `json:"sub_ratings,omitempty"`
}

// Flatten renders the rating as "domain/system/rating[/sub...]".
func (r ContentRating) Flatten() string {
	parts := append([]string{r.Domain, r.System, r.Rating}, r.SubRatings...)
	return strings.Join(parts, "/")
}

// ParseContentRating reverses Flatten.
func ParseContentRating(s string) (ContentRating, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 3 {
		return ContentRating{}, fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	r := ContentRating{Domain: parts[0], System: parts[1], Rating: parts[2]}
	if len(parts) > 3 {
		r.SubRatings = parts[3:]
	}
	return r, nil
}

// EncodeRatings joins flattened ratings with commas.
func EncodeRatings(ratings []ContentRating) string {
	flat := make([]string, len(ratings))
	for i, r := range ratings {
		flat[i] = r.Flatten()
	}
	return strings.Join(flat, ",")
}

const ratingCacheSize = 64

// ratingCache interns decoded rating lists; the same few strings repeat
// across a whole recordings table.
var ratingCache = cache.NewLRU[string, []ContentRating](ratingCacheSize)

// DecodeRatings parses a comma-separated rating list. Malformed entries are
// skipped.
func DecodeRatings(s string) []ContentRating {
	if s == "" {
		return nil
	}
	if cached, ok := ratingCache.Get(s); ok {
		return cloneRatings(cached)
	}

	var out []ContentRating
	for _, flat := range strings.Split(s, ",") {
		r, err := ParseContentRating(flat)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	ratingCache.Set(s, out)
	return cloneRatings(out)
}

func cloneRatings(in []ContentRating) []ContentRating {
	if in == nil {
		return nil
	}
	out := make([]ContentRating, len(in))
	for i, r := range in {
		r.SubRatings = slices.Clone(r.SubRatings)
		out[i] = r
	}
	return out
}
