//go:build integration

package itest

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

type videoInfo struct {
	Width    int
	Height   int
	Duration float64
	Streams  int
}

// probeVideo reads the first video stream and the container duration.
func probeVideo(mp4Path string) (videoInfo, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "stream=codec_type,width,height:format=duration",
		"-of", "json",
		mp4Path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return videoInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}

	var raw struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return videoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := videoInfo{Streams: len(raw.Streams)}
	for _, s := range raw.Streams {
		if s.CodecType == "video" {
			info.Width, info.Height = s.Width, s.Height
			break
		}
	}
	info.Duration, err = strconv.ParseFloat(raw.Format.Duration, 64)
	if err != nil {
		return videoInfo{}, fmt.Errorf("parse duration %q: %w", raw.Format.Duration, err)
	}
	return info, nil
}
