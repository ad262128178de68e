// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package banner renders the channel information banner shown after a tune.
// The output is a presentation model; clients draw it however they like.
package banner

// DefinitionLevel is the coarse video resolution class of a stream.
type DefinitionLevel int

const (
	DefinitionUnknown DefinitionLevel = iota
	DefinitionSD
	DefinitionHD
	DefinitionFullHD
	DefinitionUltraHD
)

// DefinitionFromSize classifies a frame size.
func DefinitionFromSize(width, height int) DefinitionLevel {
	switch {
	case width >= 3840 && height >= 2160:
		return DefinitionUltraHD
	case width >= 1920 && height >= 1080:
		return DefinitionFullHD
	case width >= 1280 && height >= 720:
		return DefinitionHD
	case width > 0 && height > 0:
		return DefinitionSD
	default:
		return DefinitionUnknown
	}
}

// ChannelState identifies what the banner is about.
type ChannelState struct {
	InputID       string
	ChannelURI    string
	DisplayNumber string
	DisplayName   string
	LogoURI       string
}

// StreamInfo is the stream capability set shown in the banner.
type StreamInfo struct {
	HasClosedCaption bool
	DefinitionLevel  DefinitionLevel
	VideoWidth       int
	VideoHeight      int
	AudioChannels    int
}

// TextSize is a size class for text widgets. The same classes name the
// matching top margins.
type TextSize string

const (
	SizeLarge  TextSize = "large"
	SizeMedium TextSize = "medium"
	SizeSmall  TextSize = "small"
)

// Anchor positions of the lower banner half.
const (
	AnchorOneLine = "one_line"
	AnchorTwoLine = "two_line"
)

// Text is a text widget.
type Text struct {
	Text      string   `json:"text"`
	Visible   bool     `json:"visible"`
	Size      TextSize `json:"size,omitempty"`
	TopMargin TextSize `json:"top_margin,omitempty"`
}

// Image is an image widget.
type Image struct {
	Visible     bool   `json:"visible"`
	Source      string `json:"source,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Bytes       int    `json:"bytes,omitempty"`
}

// Progress is the remaining-time bar.
type Progress struct {
	Visible bool `json:"visible"`
	Percent int  `json:"percent"`
}

// View is the rendered banner.
type View struct {
	InputLogo     Image    `json:"input_logo"`
	ChannelLogo   Image    `json:"channel_logo"`
	ClosedCaption Text     `json:"closed_caption"`
	Resolution    Text     `json:"resolution"`
	AspectRatio   Text     `json:"aspect_ratio"`
	AudioChannel  Text     `json:"audio_channel"`
	ChannelNumber Text     `json:"channel_number"`
	ChannelName   Text     `json:"channel_name"`
	ProgramTitle  Text     `json:"program_title"`
	ProgramTime   Text     `json:"program_time"`
	Description   Text     `json:"description"`
	RemainingTime Progress `json:"remaining_time"`
	Anchor        string   `json:"anchor"`

	// Deferred is set while the title layout waits for a measurable width.
	Deferred bool `json:"deferred,omitempty"`
}

func shown(s string) Text { return Text{Text: s, Visible: s != ""} }

func imageOf(icon *Icon) Image {
	if icon == nil {
		return Image{}
	}
	return Image{Visible: true, Source: icon.Source, ContentType: icon.ContentType, Bytes: len(icon.Data)}
}
