package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/shortsmith/internal/executor"
	"github.com/forPelevin/shortsmith/internal/ports"
)

// VerticalFilter crops to 9:16, scales to 1080x1920 and softens the footage
// before the subtitle burn-in is appended.
const VerticalFilter = "crop=ih/16*9:ih,scale=w=1080:h=1920:flags=lanczos,gblur=sigma=2"

type Adapter struct {
	run     executor.Runner
	ffmpeg  string
	ffprobe string
	threads int
	timeout time.Duration
}

type Option func(*Adapter)

// WithThreads sets the encoder thread count. Zero lets ffmpeg decide.
func WithThreads(n int) Option { return func(a *Adapter) { a.threads = n } }

// WithTimeout bounds every ffmpeg/ffprobe invocation.
func WithTimeout(d time.Duration) Option { return func(a *Adapter) { a.timeout = d } }

func New(run executor.Runner, ffmpegPath, ffprobePath string, opts ...Option) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	a := &Adapter{run: run, ffmpeg: ffmpegPath, ffprobe: ffprobePath}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, in, outWav string) error {
	res, err := a.run.Run(ctx, executor.Command{
		Name: a.ffmpeg,
		Args: []string{
			"-y",
			"-i", in,
			"-vn",
			"-ac", "1",
			"-ar", "16000",
			"-f", "wav",
			outWav,
		},
		Timeout: a.timeout,
	})
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("ffmpeg extract audio: exit %d\n%s", res.ExitCode, res.StderrTail(20))
	}
	return nil
}

// Compose renders the final vertical video. ffmpeg runs inside the subtitle
// directory and the ass filter receives only the file's base name; every other
// path is absolute.
func (a *Adapter) Compose(ctx context.Context, req ports.ComposeRequest) (string, error) {
	bg, err := filepath.Abs(req.Background)
	if err != nil {
		return "", err
	}
	audio, err := filepath.Abs(req.Audio)
	if err != nil {
		return "", err
	}
	subs, err := filepath.Abs(req.Subtitles)
	if err != nil {
		return "", err
	}
	out, err := filepath.Abs(req.Out)
	if err != nil {
		return "", err
	}

	args := composeArgs(bg, audio, filepath.Base(subs), req.StartOffset, req.Duration, out, a.threads)
	res, err := a.run.Run(ctx, executor.Command{
		Name:    a.ffmpeg,
		Args:    args,
		Dir:     filepath.Dir(subs),
		Timeout: a.timeout,
	})
	if err != nil {
		return "", fmt.Errorf("ffmpeg compose: %w", err)
	}
	if !res.Success() {
		return "", &CompositionError{ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return out, nil
}

func composeArgs(bg, audio, subsBase string, start int, dur, out string, threads int) []string {
	args := []string{
		"-y",
		"-ss", strconv.Itoa(start),
		"-t", dur,
		"-i", bg,
		"-i", audio,
		"-map", "0:v",
		"-map", "1:a",
		"-filter:v", VerticalFilter + ",ass=" + escapeFilterPath(subsBase),
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "aac",
		"-ac", "2",
		"-b:a", "192k",
		"-t", dur,
	}
	if threads > 0 {
		args = append(args, "-threads", strconv.Itoa(threads))
	}
	return append(args, out)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	p = strings.ReplaceAll(p, ",", "\\,")
	return p
}
