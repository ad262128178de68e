// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package channels

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownChannel matches every *UnknownChannelError.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrChannelListDrift means the provider holds a channel the configured list lacks.
	ErrChannelListDrift = errors.New("channel list drifted from provider rows")
)

// UnknownChannelError is returned when a lookup still misses after a rebuild.
type UnknownChannelError struct {
	Key string
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("unknown channel %s", e.Key)
}

// Is makes errors.Is(err, ErrUnknownChannel) hold.
func (e *UnknownChannelError) Is(target error) bool {
	return target == ErrUnknownChannel
}
