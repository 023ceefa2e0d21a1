package ffmpeg

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/shortsmith/internal/executor"
	"github.com/forPelevin/shortsmith/internal/ports"
	"github.com/forPelevin/shortsmith/internal/types"
)

type fakeRunner struct {
	calls []executor.Command
	res   executor.Result
	err   error
}

func (f *fakeRunner) Run(_ context.Context, cmd executor.Command) (executor.Result, error) {
	f.calls = append(f.calls, cmd)
	return f.res, f.err
}

const probeJSON = `{
  "streams": [
    {"codec_type": "audio", "codec_name": "aac", "duration": "3.000000"},
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "duration": "10.010000"},
    {"codec_type": "video", "codec_name": "mjpeg", "width": 10, "height": 10, "duration": "0.04"}
  ],
  "format": {"duration": "10.010000"}
}`

func TestProbe_SelectsFirstStreamOfKind(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{res: executor.Result{Stdout: probeJSON}}
	a := New(r, "", "")

	info, err := a.Probe(context.Background(), "bg.mp4", types.StreamVideo)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if info.Duration != 10.01 || info.Width != 1920 || info.Height != 1080 || info.Codec != "h264" {
		t.Fatalf("unexpected info: %+v", info)
	}

	audio, err := a.Probe(context.Background(), "bg.mp4", types.StreamAudio)
	if err != nil {
		t.Fatalf("probe audio: %v", err)
	}
	if audio.Duration != 3 || audio.Width != 0 {
		t.Fatalf("unexpected audio info: %+v", audio)
	}

	got := strings.Join(r.calls[0].Args, " ")
	if r.calls[0].Name != "ffprobe" || got != "-v quiet -print_format json -show_format -show_streams bg.mp4" {
		t.Fatalf("unexpected ffprobe invocation: %s %s", r.calls[0].Name, got)
	}
}

func TestProbe_DurationTagFallback(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{res: executor.Result{Stdout: `{"streams":[{"codec_type":"video","tags":{"DURATION":"0:01:02.500000000"}}]}`}}
	info, err := New(r, "", "").Probe(context.Background(), "bg.webm", types.StreamVideo)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if info.Duration != 62.5 {
		t.Fatalf("duration = %v, want 62.5", info.Duration)
	}
}

func TestProbe_DurationTagWithLanguageSuffix(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{res: executor.Result{Stdout: `{"streams":[{"codec_type":"video","tags":{"DURATION-eng":"00:00:12.500000000"}}]}`}}
	info, err := New(r, "", "").Probe(context.Background(), "bg.mkv", types.StreamVideo)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if info.Duration != 12.5 {
		t.Fatalf("duration = %v, want 12.5", info.Duration)
	}
}

func TestProbe_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		res   executor.Result
		err   error
		check func(error) bool
	}{
		{
			name:  "no stream",
			res:   executor.Result{Stdout: `{"streams":[{"codec_type":"audio","duration":"1"}]}`},
			check: func(err error) bool { var e *NoSuchStreamError; return errors.As(err, &e) },
		},
		{
			name:  "no duration",
			res:   executor.Result{Stdout: `{"streams":[{"codec_type":"video"}]}`},
			check: func(err error) bool { var e *UnparseableDurationError; return errors.As(err, &e) },
		},
		{
			name:  "bad duration tag",
			res:   executor.Result{Stdout: `{"streams":[{"codec_type":"video","tags":{"DURATION":"soon"}}]}`},
			check: func(err error) bool { var e *UnparseableDurationError; return errors.As(err, &e) },
		},
		{
			name:  "non-zero exit",
			res:   executor.Result{ExitCode: 1, Stderr: "moov atom not found"},
			check: func(err error) bool { var e *ProbeExecutionError; return errors.As(err, &e) },
		},
		{
			name:  "invalid json",
			res:   executor.Result{Stdout: "not json"},
			check: func(err error) bool { var e *ProbeExecutionError; return errors.As(err, &e) },
		},
		{
			name: "launch failure",
			err:  &executor.ExecutionError{Command: "ffprobe", Err: errors.New("not found")},
			check: func(err error) bool {
				var pe *ProbeExecutionError
				var ee *executor.ExecutionError
				return errors.As(err, &pe) && errors.As(err, &ee)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{res: tt.res, err: tt.err}
			_, err := New(r, "", "").Probe(context.Background(), "x.mp4", types.StreamVideo)
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error: %T %v", err, err)
			}
		})
	}
}

func TestCompose_RunsInSubtitleDirWithBaseName(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	r := &fakeRunner{}
	a := New(r, "ffmpeg", "ffprobe", WithThreads(4))

	req := ports.ComposeRequest{
		Background:  filepath.Join(tmp, "background", "bg.mp4"),
		Audio:       filepath.Join(tmp, "media", "run.mp3"),
		Subtitles:   filepath.Join(tmp, "media", "run.ass"),
		StartOffset: 4,
		Duration:    "00:00:03.000",
		Out:         filepath.Join(tmp, "output", "run.mp4"),
	}
	out, err := a.Compose(context.Background(), req)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if out != req.Out {
		t.Fatalf("out = %q, want %q", out, req.Out)
	}

	cmd := r.calls[0]
	if cmd.Dir != filepath.Join(tmp, "media") {
		t.Fatalf("Dir = %q, want subtitle directory", cmd.Dir)
	}
	args := strings.Join(cmd.Args, " ")
	for _, want := range []string{
		"-ss 4 -t 00:00:03.000 -i " + req.Background + " -i " + req.Audio,
		"-map 0:v -map 1:a",
		"-filter:v " + VerticalFilter + ",ass=run.ass",
		"-c:v libx264",
		"-threads 4 " + req.Out,
	} {
		if !strings.Contains(args, want) {
			t.Fatalf("args missing %q:\n%s", want, args)
		}
	}
	if strings.Contains(args, "ass="+req.Subtitles) {
		t.Fatalf("ass filter must only receive the base name:\n%s", args)
	}
}

func TestCompose_NonZeroExit(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{res: executor.Result{ExitCode: 1, Stderr: "Error initializing filter 'ass'"}}
	_, err := New(r, "", "").Compose(context.Background(), ports.ComposeRequest{
		Background: "bg.mp4", Audio: "a.mp3", Subtitles: "s.ass", Duration: "00:00:01.000", Out: "o.mp4",
	})
	var ce *CompositionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CompositionError, got %T %v", err, err)
	}
	if ce.ExitCode != 1 || !strings.Contains(ce.Stderr, "Error initializing filter") {
		t.Fatalf("unexpected composition error: %+v", ce)
	}
}

func TestExtractAudio_NonZeroExit(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{res: executor.Result{ExitCode: 1, Stderr: "Invalid data found"}}
	err := New(r, "", "").ExtractAudioMono16k(context.Background(), "in.mp3", "out.wav")
	if err == nil || !strings.Contains(err.Error(), "ffmpeg extract audio: exit 1") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEscapeFilterPath(t *testing.T) {
	if got := escapeFilterPath(`a:b,c'd`); got != `a\:b\,c\'d` {
		t.Fatalf("escapeFilterPath = %q", got)
	}
}
