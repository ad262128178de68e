// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldInputID   = "input_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Channel / program fields
	FieldChannelID     = "channel_id"
	FieldChannelNumber = "channel_number"
	FieldChannelURI    = "channel_uri"
	FieldProgramTitle  = "program_title"
	FieldRecordingID   = "recording_id"

	// Media fields
	FieldSource     = "source"
	FieldResolution = "resolution"
	FieldDuration   = "duration_ms"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath = "path"
)
