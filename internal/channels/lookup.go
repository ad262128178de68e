// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package channels

import (
	"context"
	"fmt"
)

// LookupWithRefresh calls lookup and, on a miss, runs refresh and retries up to
// maxRetries times. Exhaustion yields an *UnknownChannelError for key.
func LookupWithRefresh[K comparable, V any](
	ctx context.Context,
	key K,
	lookup func(K) (V, bool),
	refresh func(context.Context) error,
	maxRetries int,
) (V, error) {
	if v, ok := lookup(key); ok {
		return v, nil
	}
	for i := 0; i < maxRetries; i++ {
		if err := refresh(ctx); err != nil {
			var zero V
			return zero, err
		}
		if v, ok := lookup(key); ok {
			return v, nil
		}
	}
	var zero V
	return zero, &UnknownChannelError{Key: fmt.Sprint(key)}
}
