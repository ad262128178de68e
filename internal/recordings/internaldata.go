// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordings

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the internal provider data message.
const (
	fieldSeriesID             protowire.Number = 1
	fieldScheduledRecordingID protowire.Number = 2
)

// InternalData is what the bundled inputs keep in internal_provider_data.
type InternalData struct {
	SeriesID             string
	ScheduledRecordingID int64
}

var errMalformedInternalData = errors.New("malformed internal provider data")

// MarshalInternalData encodes d in protobuf wire format. Zero fields are
// omitted, so the zero value encodes to an empty blob.
func MarshalInternalData(d InternalData) []byte {
	var b []byte
	if d.SeriesID != "" {
		b = protowire.AppendTag(b, fieldSeriesID, protowire.BytesType)
		b = protowire.AppendString(b, d.SeriesID)
	}
	if d.ScheduledRecordingID != 0 {
		b = protowire.AppendTag(b, fieldScheduledRecordingID, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d.ScheduledRecordingID))
	}
	return b
}

// UnmarshalInternalData decodes a blob written by MarshalInternalData.
// Unknown fields are skipped.
func UnmarshalInternalData(b []byte) (InternalData, error) {
	var d InternalData
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return InternalData{}, fmt.Errorf("%w: %v", errMalformedInternalData, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldSeriesID && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return InternalData{}, fmt.Errorf("%w: %v", errMalformedInternalData, protowire.ParseError(m))
			}
			d.SeriesID = v
			n = m
		case num == fieldScheduledRecordingID && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return InternalData{}, fmt.Errorf("%w: %v", errMalformedInternalData, protowire.ParseError(m))
			}
			d.ScheduledRecordingID = int64(v)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return InternalData{}, fmt.Errorf("%w: %v", errMalformedInternalData, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return d, nil
}
