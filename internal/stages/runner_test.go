package stages

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/shortsmith/internal/types"
)

type fakeStage struct {
	name     string
	requires []ArtifactKind
	produces []ArtifactKind
	best     bool
	err      error
	calls    *[]string
}

func (s fakeStage) Name() string             { return s.name }
func (s fakeStage) Requires() []ArtifactKind { return s.requires }
func (s fakeStage) Produces() []ArtifactKind { return s.produces }
func (s fakeStage) BestEffort() bool         { return s.best }

func (s fakeStage) Execute(_ context.Context, rc *Context) error {
	if s.calls != nil {
		*s.calls = append(*s.calls, s.name)
	}
	if s.err != nil {
		return s.err
	}
	for _, k := range s.produces {
		if err := rc.Put(k, filepath.Join(rc.MediaDir, string(k))); err != nil {
			return err
		}
	}
	return nil
}

func newTestContext(t *testing.T) *Context {
	t.Helper()
	dir := t.TempDir()
	job := types.Job{Series: "Facts", Part: "1", Text: "Hello world.", Outro: "Bye."}
	return NewContext(job, "run-1", filepath.Join(dir, "media"), filepath.Join(dir, "output"), Settings{}, nil)
}

func TestRunner_RunsInOrder(t *testing.T) {
	t.Parallel()

	var calls []string
	var transitions []Transition
	rc := newTestContext(t)
	r := Runner{OnTransition: func(_ *Context, tr Transition) { transitions = append(transitions, tr) }}

	out := r.Run(context.Background(), rc, []Stage{
		fakeStage{name: "a", produces: []ArtifactKind{Audio}, calls: &calls},
		fakeStage{name: "b", requires: []ArtifactKind{Audio}, produces: []ArtifactKind{SubtitleASS}, calls: &calls},
	})
	if out.State != StateCompleted || out.Err != nil {
		t.Fatalf("outcome = %+v", out)
	}
	if got := strings.Join(calls, ","); got != "a,b" {
		t.Fatalf("calls = %q", got)
	}
	last := transitions[len(transitions)-1]
	if last.From != StateRunning || last.To != StateCompleted {
		t.Fatalf("last transition = %+v", last)
	}
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	var calls []string
	rc := newTestContext(t)
	boom := errors.New("boom")

	out := Runner{}.Run(context.Background(), rc, []Stage{
		fakeStage{name: "a", produces: []ArtifactKind{Audio}, calls: &calls},
		fakeStage{name: "b", err: boom, calls: &calls},
		fakeStage{name: "c", calls: &calls},
	})
	if out.State != StateFailed || out.FailedStage != "b" {
		t.Fatalf("outcome = %+v", out)
	}
	if !errors.Is(out.Err, boom) {
		t.Fatalf("err = %v, want wrapping boom", out.Err)
	}
	var sf *StageFailure
	if !errors.As(out.Err, &sf) || sf.RunID != "run-1" || sf.JobID != "Facts - 1" {
		t.Fatalf("stage failure = %+v", sf)
	}
	if got := strings.Join(calls, ","); got != "a,b" {
		t.Fatalf("calls = %q", got)
	}
}

func TestRunner_PreconditionFailureSkipsExecute(t *testing.T) {
	t.Parallel()

	var calls []string
	rc := newTestContext(t)
	out := Runner{}.Run(context.Background(), rc, []Stage{
		fakeStage{name: "compose", requires: []ArtifactKind{SubtitleASS, Audio}, calls: &calls},
	})

	var pe *PreconditionError
	if !errors.As(out.Err, &pe) {
		t.Fatalf("err = %v, want PreconditionError", out.Err)
	}
	if len(pe.Missing) != 2 || pe.Missing[0] != Audio || pe.Missing[1] != SubtitleASS {
		t.Fatalf("missing = %v", pe.Missing)
	}
	if len(calls) != 0 {
		t.Fatalf("execute called: %v", calls)
	}
}

func TestRunner_StageMustRecordOutput(t *testing.T) {
	t.Parallel()

	rc := newTestContext(t)
	lazy := fakeStage{name: "lazy"}
	out := Runner{}.Run(context.Background(), rc, []Stage{
		stageWithProduces{lazy, []ArtifactKind{FinalVideo}},
	})
	if out.State != StateFailed || !strings.Contains(out.Err.Error(), "did not record") {
		t.Fatalf("outcome = %+v", out)
	}
}

type stageWithProduces struct {
	fakeStage
	declared []ArtifactKind
}

func (s stageWithProduces) Produces() []ArtifactKind { return s.declared }

func TestRunner_BestEffortBecomesWarning(t *testing.T) {
	t.Parallel()

	rc := newTestContext(t)
	out := Runner{}.Run(context.Background(), rc, []Stage{
		fakeStage{name: "upload", best: true, err: errors.New("no cookies")},
	})
	if out.State != StateCompleted {
		t.Fatalf("state = %s", out.State)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "no cookies") {
		t.Fatalf("warnings = %v", out.Warnings)
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	t.Parallel()

	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := Runner{}.Run(ctx, newTestContext(t), []Stage{fakeStage{name: "a", calls: &calls}})
	if out.State != StateFailed || !errors.Is(out.Err, context.Canceled) {
		t.Fatalf("outcome = %+v", out)
	}
	if len(calls) != 0 {
		t.Fatalf("calls = %v", calls)
	}
}

func TestContext_PutOnce(t *testing.T) {
	t.Parallel()

	rc := newTestContext(t)
	if err := rc.Put(Audio, "/a.mp3"); err != nil {
		t.Fatal(err)
	}
	if err := rc.Put(Audio, "/a.mp3"); err != nil {
		t.Fatalf("same path again: %v", err)
	}
	if err := rc.Put(Audio, "/b.mp3"); !errors.Is(err, ErrArtifactRewrite) {
		t.Fatalf("err = %v, want ErrArtifactRewrite", err)
	}
	arts := rc.Artifacts()
	arts[Audio] = "mutated"
	if p, _ := rc.Artifact(Audio); p != "/a.mp3" {
		t.Fatalf("Artifacts leaked internal map, got %q", p)
	}
}

func TestContext_PathsAreRunScoped(t *testing.T) {
	t.Parallel()

	rc := newTestContext(t)
	if got := filepath.Base(rc.Path(".srt")); got != "run-1.srt" {
		t.Fatalf("Path = %q", got)
	}
	if got := filepath.Base(rc.OutputPath(".mp4")); got != "run-1.mp4" {
		t.Fatalf("OutputPath = %q", got)
	}
}
