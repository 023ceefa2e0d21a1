package usecase

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/shortsmith/internal/domain/timing"
	"github.com/forPelevin/shortsmith/internal/ports"
	"github.com/forPelevin/shortsmith/internal/stages"
	"github.com/forPelevin/shortsmith/internal/types"
)

type Deps struct {
	TTS      ports.TTS
	ASR      ports.ASR
	Audio    ports.AudioExtractor
	Prober   ports.Prober
	Composer ports.Composer
	Supplier ports.BackgroundSupplier
	// Uploader may be nil when uploads are disabled.
	Uploader ports.Uploader
	Timing   *timing.Calculator
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

// Stages returns the ordered stage list for one run.
func (u Usecase) Stages(s stages.Settings) []stages.Stage {
	list := []stages.Stage{
		stages.DownloadBackground{Supplier: u.d.Supplier},
		stages.SynthesizeSpeech{TTS: u.d.TTS},
		stages.TranscribeSubtitles{Audio: u.d.Audio, ASR: u.d.ASR},
		stages.ComposeVideo{Prober: u.d.Prober, Composer: u.d.Composer, Timing: u.d.Timing},
	}
	if s.Upload && u.d.Uploader != nil {
		list = append(list, stages.Upload{Uploader: u.d.Uploader})
	}
	return list
}

type Input struct {
	Job       types.Job
	RunID     string
	MediaDir  string
	OutputDir string
	Settings  stages.Settings
	Log       logrus.FieldLogger
}

type Result struct {
	Context *stages.Context
	Outcome stages.Outcome
}

// Run executes one job end to end. The returned error is the run's failure,
// if any; Result is always populated so callers can report partial state.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	rc := stages.NewContext(in.Job, in.RunID, in.MediaDir, in.OutputDir, in.Settings, in.Log)
	if err := os.MkdirAll(in.MediaDir, 0o755); err != nil {
		err = fmt.Errorf("media dir: %w", err)
		return Result{Context: rc, Outcome: stages.Outcome{State: stages.StateFailed, Err: err}}, err
	}

	runner := stages.Runner{OnTransition: stages.LogTransitions()}
	out := runner.Run(ctx, rc, u.Stages(in.Settings))
	return Result{Context: rc, Outcome: out}, out.Err
}

// ManifestEntry summarizes a finished run.
func (r Result) ManifestEntry() types.ManifestJob {
	rc := r.Context
	e := types.ManifestJob{
		RunID:    rc.RunID,
		Series:   rc.Job.Series,
		Part:     rc.Job.Part,
		Status:   types.JobCompleted,
		Uploaded: rc.Uploaded,
		Warnings: r.Outcome.Warnings,
	}
	if r.Outcome.State != stages.StateCompleted {
		e.Status = types.JobFailed
		e.FailedStage = r.Outcome.FailedStage
		if r.Outcome.Err != nil {
			e.Error = r.Outcome.Err.Error()
		}
	}
	e.Video, _ = rc.Artifact(stages.FinalVideo)
	e.Subtitles, _ = rc.Artifact(stages.SubtitleASS)
	if rc.Timing != nil {
		e.StartOffset = rc.Timing.StartOffset
		e.DurationSec = rc.Timing.DurationSec
	}
	return e
}
