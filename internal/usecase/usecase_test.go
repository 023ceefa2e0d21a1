package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/forPelevin/shortsmith/internal/domain/subtitles"
	"github.com/forPelevin/shortsmith/internal/domain/timing"
	"github.com/forPelevin/shortsmith/internal/executor"
	"github.com/forPelevin/shortsmith/internal/ports"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/shortsmith/internal/stages"
	"github.com/forPelevin/shortsmith/internal/types"
)

// scriptedRunner stands in for ffmpeg/ffprobe. Probes report durations by
// file extension; encodes write their output file unless composeExit is set.
type scriptedRunner struct {
	mu          sync.Mutex
	calls       []executor.Command
	bgSec       string
	audioSec    string
	composeExit int
}

func (r *scriptedRunner) Run(_ context.Context, cmd executor.Command) (executor.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.mu.Unlock()

	last := cmd.Args[len(cmd.Args)-1]
	switch {
	case cmd.Name == "ffprobe":
		if strings.HasSuffix(last, ".mp3") {
			return executor.Result{Stdout: `{"streams":[{"codec_type":"audio","duration":"` + r.audioSec + `"}]}`}, nil
		}
		return executor.Result{Stdout: `{"streams":[{"codec_type":"video","width":1920,"height":1080,"duration":"` + r.bgSec + `"}]}`}, nil
	case slices.Contains(cmd.Args, "-filter:v"):
		if r.composeExit != 0 {
			return executor.Result{ExitCode: r.composeExit, Stderr: "Error while opening encoder"}, nil
		}
	}
	if err := os.WriteFile(last, []byte("media"), 0o644); err != nil {
		return executor.Result{}, err
	}
	return executor.Result{}, nil
}

func (r *scriptedRunner) composeCalls() []executor.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []executor.Command
	for _, c := range r.calls {
		if slices.Contains(c.Args, "-filter:v") {
			out = append(out, c)
		}
	}
	return out
}

type fakeTTS struct{}

func (fakeTTS) ListVoices(context.Context) ([]types.Voice, error) { return nil, nil }

func (fakeTTS) Synthesize(_ context.Context, _, _, out string) error {
	return os.WriteFile(out, []byte("mp3"), 0o644)
}

type fakeASR struct{ tr types.Transcript }

func (f fakeASR) Transcribe(context.Context, string, ports.TranscribeOptions) (types.Transcript, error) {
	return f.tr, nil
}

type fakeSupplier struct{}

func (fakeSupplier) Download(context.Context, string, string) (string, error) {
	return "", errors.New("offline")
}
func (fakeSupplier) ListAvailable(string) ([]string, error) { return nil, nil }

type fakeUploader struct{ err error }

func (f fakeUploader) Upload(context.Context, ports.UploadRequest) (bool, error) {
	return f.err == nil, f.err
}

func testTranscript() types.Transcript {
	return types.Transcript{
		Segments: []types.Segment{
			{
				Start: 0,
				End:   1.2,
				Text:  "Hello world.",
				Words: []types.Word{
					{Start: 0, End: 0.5, Word: "Hello"},
					{Start: 0.55, End: 1.2, Word: "world."},
				},
			},
		},
	}
}

type fixture struct {
	run *scriptedRunner
	uc  Usecase
	in  Input
}

func newFixture(t *testing.T, runner *scriptedRunner, uploader ports.Uploader) fixture {
	t.Helper()
	tmp := t.TempDir()
	bg := filepath.Join(tmp, "bg.mp4")
	if err := os.WriteFile(bg, []byte("bg"), 0o644); err != nil {
		t.Fatal(err)
	}
	ff := ffmpeg.New(runner, "", "")
	uc := New(Deps{
		TTS:      fakeTTS{},
		ASR:      fakeASR{tr: testTranscript()},
		Audio:    ff,
		Prober:   ff,
		Composer: ff,
		Supplier: fakeSupplier{},
		Uploader: uploader,
		Timing:   timing.New(),
	})
	return fixture{
		run: runner,
		uc:  uc,
		in: Input{
			Job:       types.Job{Series: "Facts", Part: "1", Text: "Hello world.", Outro: "Bye.", Background: bg},
			RunID:     "run-a",
			MediaDir:  filepath.Join(tmp, "media"),
			OutputDir: filepath.Join(tmp, "output"),
			Settings:  stages.Settings{Model: "base", Style: subtitles.DefaultStyle()},
		},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &scriptedRunner{bgSec: "10.0", audioSec: "3.0"}, nil)
	res, err := f.uc.Run(context.Background(), f.in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Outcome.State != stages.StateCompleted {
		t.Fatalf("state = %s", res.Outcome.State)
	}

	outs, err := filepath.Glob(filepath.Join(f.in.OutputDir, "*.mp4"))
	if err != nil || len(outs) != 1 {
		t.Fatalf("expected exactly one mp4, got %v (%v)", outs, err)
	}

	calls := f.run.composeCalls()
	if len(calls) != 1 {
		t.Fatalf("compose calls = %d", len(calls))
	}
	args := calls[0].Args
	ss, _ := strconv.Atoi(args[slices.Index(args, "-ss")+1])
	if ss < 0 || ss > 7 {
		t.Fatalf("start offset %d outside [0,7]", ss)
	}
	if d := args[slices.Index(args, "-t")+1]; d != "00:00:03.000" {
		t.Fatalf("duration = %q", d)
	}
	if calls[0].Dir != f.in.MediaDir {
		t.Fatalf("compose dir = %q, want subtitle dir %q", calls[0].Dir, f.in.MediaDir)
	}

	for _, ext := range []string{".mp3", ".wav", ".srt", ".ass"} {
		if _, err := os.Stat(filepath.Join(f.in.MediaDir, "run-a"+ext)); err != nil {
			t.Fatalf("missing media %s: %v", ext, err)
		}
	}

	e := res.ManifestEntry()
	if e.Status != types.JobCompleted || e.Video != outs[0] || e.DurationSec != 3 {
		t.Fatalf("manifest entry = %+v", e)
	}
}

func TestRun_EncodeFailureLeavesNoOutput(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &scriptedRunner{bgSec: "10.0", audioSec: "3.0", composeExit: 1}, nil)
	res, err := f.uc.Run(context.Background(), f.in)

	var ce *ffmpeg.CompositionError
	if !errors.As(err, &ce) || ce.ExitCode != 1 {
		t.Fatalf("err = %v, want CompositionError exit 1", err)
	}
	var sf *stages.StageFailure
	if !errors.As(err, &sf) || sf.Stage != stages.NameComposeVideo {
		t.Fatalf("err = %v, want failure at %s", err, stages.NameComposeVideo)
	}
	if outs, _ := filepath.Glob(filepath.Join(f.in.OutputDir, "*.mp4")); len(outs) != 0 {
		t.Fatalf("unexpected output: %v", outs)
	}
	e := res.ManifestEntry()
	if e.Status != types.JobFailed || e.FailedStage != stages.NameComposeVideo || e.Video != "" {
		t.Fatalf("manifest entry = %+v", e)
	}
}

func TestRun_NarrationLongerThanBackground(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &scriptedRunner{bgSec: "2.0", audioSec: "5.5"}, nil)
	if _, err := f.uc.Run(context.Background(), f.in); err != nil {
		t.Fatalf("run: %v", err)
	}
	args := f.run.composeCalls()[0].Args
	if ss := args[slices.Index(args, "-ss")+1]; ss != "0" {
		t.Fatalf("start = %s, want 0", ss)
	}
}

func TestRun_UploadToggle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		enabled  bool
		uploader ports.Uploader
		uploaded bool
		warnings int
	}{
		{name: "disabled", enabled: false, uploader: fakeUploader{}},
		{name: "enabled", enabled: true, uploader: fakeUploader{}, uploaded: true},
		{name: "failing upload keeps video", enabled: true, uploader: fakeUploader{err: errors.New("cookies.txt not found")}, warnings: 1},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, &scriptedRunner{bgSec: "10.0", audioSec: "3.0"}, tc.uploader)
			f.in.Settings.Upload = tc.enabled
			res, err := f.uc.Run(context.Background(), f.in)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			e := res.ManifestEntry()
			if e.Uploaded != tc.uploaded || len(e.Warnings) != tc.warnings {
				t.Fatalf("manifest entry = %+v", e)
			}
			if e.Video == "" {
				t.Fatal("video must survive an upload failure")
			}
		})
	}
}

func TestStages_Order(t *testing.T) {
	t.Parallel()

	uc := New(Deps{Uploader: fakeUploader{}})
	var names []string
	for _, s := range uc.Stages(stages.Settings{Upload: true}) {
		names = append(names, s.Name())
	}
	want := []string{
		stages.NameDownloadBackground,
		stages.NameSynthesizeSpeech,
		stages.NameTranscribe,
		stages.NameComposeVideo,
		stages.NameUpload,
	}
	if !slices.Equal(names, want) {
		t.Fatalf("stages = %v, want %v", names, want)
	}
}
