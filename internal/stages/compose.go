package stages

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/shortsmith/internal/domain/timing"
	"github.com/forPelevin/shortsmith/internal/ports"
	"github.com/forPelevin/shortsmith/internal/types"
)

type ComposeVideo struct {
	Prober   ports.Prober
	Composer ports.Composer
	Timing   *timing.Calculator
}

func (ComposeVideo) Name() string { return NameComposeVideo }
func (ComposeVideo) Requires() []ArtifactKind {
	return []ArtifactKind{BackgroundVideo, Audio, SubtitleASS}
}
func (ComposeVideo) Produces() []ArtifactKind { return []ArtifactKind{FinalVideo} }

func (s ComposeVideo) Execute(ctx context.Context, rc *Context) error {
	bg, _ := rc.Artifact(BackgroundVideo)
	audio, _ := rc.Artifact(Audio)
	ass, _ := rc.Artifact(SubtitleASS)

	bgInfo, err := s.Prober.Probe(ctx, bg, types.StreamVideo)
	if err != nil {
		return fmt.Errorf("probe background: %w", err)
	}
	audioInfo, err := s.Prober.Probe(ctx, audio, types.StreamAudio)
	if err != nil {
		return fmt.Errorf("probe narration: %w", err)
	}

	calc := s.Timing
	if calc == nil {
		calc = timing.New()
	}
	tm := calc.Compute(bgInfo.Duration, audioInfo.Duration)
	if audioInfo.Duration > bgInfo.Duration {
		rc.Log.WithFields(logrus.Fields{
			"background_sec": bgInfo.Duration,
			"narration_sec":  audioInfo.Duration,
		}).Warn("narration is longer than background, starting at 0")
	}
	rc.Timing = &tm

	if err := os.MkdirAll(rc.OutputDir, 0o755); err != nil {
		return err
	}
	out, err := s.Composer.Compose(ctx, ports.ComposeRequest{
		Background:  bg,
		Audio:       audio,
		Subtitles:   ass,
		StartOffset: tm.StartOffset,
		Duration:    tm.Duration,
		Out:         rc.OutputPath(".mp4"),
	})
	if err != nil {
		return err
	}
	rc.Log.WithFields(logrus.Fields{"start": tm.StartOffset, "duration": tm.Duration, "out": out}).Info("video composed")
	return rc.Put(FinalVideo, out)
}
