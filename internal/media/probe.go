// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// ProbeResult is what ffprobe reports about an input.
type ProbeResult struct {
	Duration      time.Duration
	Width         int
	Height        int
	AudioChannels int
}

// Probe runs ffprobe against input.
func Probe(ctx context.Context, ffprobeBin, input string) (ProbeResult, error) {
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	// #nosec G204 -- binary and input come from configuration
	cmd := exec.CommandContext(ctx, ffprobeBin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_entries", "format=duration:stream=codec_type,width,height,channels",
		"-show_streams",
		input,
	)
	out, err := cmd.Output()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe failed: %w: %s", err, truncate(string(out), 300))
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (ProbeResult, error) {
	var data struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
			Channels  int    `json:"channels"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &data); err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe JSON parse failed: %w: %s", err, truncate(string(out), 300))
	}

	var res ProbeResult
	if data.Format.Duration != "" && data.Format.Duration != "N/A" {
		sec, err := strconv.ParseFloat(data.Format.Duration, 64)
		if err != nil {
			return ProbeResult{}, fmt.Errorf("ffprobe duration %q: %w", data.Format.Duration, err)
		}
		res.Duration = time.Duration(sec * float64(time.Second))
	}
	for _, s := range data.Streams {
		switch s.CodecType {
		case "video":
			if res.Width == 0 {
				res.Width, res.Height = s.Width, s.Height
			}
		case "audio":
			if res.AudioChannels == 0 {
				res.AudioChannels = s.Channels
			}
		}
	}
	return res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
