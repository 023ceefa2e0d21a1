package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/forPelevin/shortsmith/internal/executor"
	"github.com/forPelevin/shortsmith/internal/types"
)

type ProbeExecutionError struct {
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProbeExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ffprobe %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("ffprobe %s: exit %d: %s", e.Path, e.ExitCode, strings.TrimSpace(e.Stderr))
}

func (e *ProbeExecutionError) Unwrap() error { return e.Err }

type NoSuchStreamError struct {
	Path string
	Kind types.StreamKind
}

func (e *NoSuchStreamError) Error() string {
	return fmt.Sprintf("%s: no %s stream", e.Path, e.Kind)
}

type UnparseableDurationError struct {
	Path  string
	Value string
}

func (e *UnparseableDurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: stream has no duration", e.Path)
	}
	return fmt.Sprintf("%s: cannot parse duration %q", e.Path, e.Value)
}

// CompositionError reports a failed encode with ffmpeg's stderr attached.
type CompositionError struct {
	ExitCode int
	Stderr   string
}

func (e *CompositionError) Error() string {
	tail := executor.Result{Stderr: e.Stderr}.StderrTail(10)
	return fmt.Sprintf("ffmpeg compose: exit %d\n%s", e.ExitCode, tail)
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	CodecType string            `json:"codec_type"`
	CodecName string            `json:"codec_name"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Duration  string            `json:"duration"`
	Tags      map[string]string `json:"tags"`
}

// Probe reads the first stream of kind from path.
func (a *Adapter) Probe(ctx context.Context, path string, kind types.StreamKind) (types.MediaInfo, error) {
	res, err := a.run.Run(ctx, executor.Command{
		Name: a.ffprobe,
		Args: []string{
			"-v", "quiet",
			"-print_format", "json",
			"-show_format",
			"-show_streams",
			path,
		},
		Timeout: a.timeout,
	})
	if err != nil {
		return types.MediaInfo{}, &ProbeExecutionError{Path: path, ExitCode: res.ExitCode, Stderr: res.Stderr, Err: err}
	}
	if !res.Success() {
		return types.MediaInfo{}, &ProbeExecutionError{Path: path, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return parseProbe(path, []byte(res.Stdout), kind)
}

func parseProbe(path string, b []byte, kind types.StreamKind) (types.MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return types.MediaInfo{}, &ProbeExecutionError{Path: path, Err: fmt.Errorf("decode output: %w", err)}
	}

	for _, s := range out.Streams {
		if s.CodecType != string(kind) {
			continue
		}
		dur, err := streamDuration(s)
		if err != nil {
			var ud *UnparseableDurationError
			if errors.As(err, &ud) {
				ud.Path = path
			}
			return types.MediaInfo{}, err
		}
		info := types.MediaInfo{Kind: kind, Codec: s.CodecName, Duration: dur}
		if kind == types.StreamVideo {
			info.Width, info.Height = s.Width, s.Height
		}
		return info, nil
	}
	return types.MediaInfo{}, &NoSuchStreamError{Path: path, Kind: kind}
}

func streamDuration(s probeStream) (float64, error) {
	if d := strings.TrimSpace(s.Duration); d != "" && d != "N/A" {
		sec, err := strconv.ParseFloat(d, 64)
		if err != nil {
			return 0, &UnparseableDurationError{Value: d}
		}
		return sec, nil
	}
	// Matroska and WebM carry duration only as a tag, sometimes with a
	// language suffix (DURATION-eng).
	for k, v := range s.Tags {
		if strings.HasPrefix(strings.ToUpper(k), "DURATION") {
			sec, ok := parseClock(v)
			if !ok {
				return 0, &UnparseableDurationError{Value: v}
			}
			return sec, nil
		}
	}
	return 0, &UnparseableDurationError{}
}

// parseClock parses H:MM:SS.ffffff into seconds.
func parseClock(v string) (float64, bool) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	s, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, false
	}
	return float64(h)*3600 + float64(m)*60 + s, true
}
