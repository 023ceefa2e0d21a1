package stages

import (
	"context"
	"fmt"

	"github.com/forPelevin/shortsmith/internal/ports"
)

type SynthesizeSpeech struct {
	TTS ports.TTS
}

func (SynthesizeSpeech) Name() string             { return NameSynthesizeSpeech }
func (SynthesizeSpeech) Requires() []ArtifactKind { return nil }
func (SynthesizeSpeech) Produces() []ArtifactKind { return []ArtifactKind{Audio} }

func (s SynthesizeSpeech) Execute(ctx context.Context, rc *Context) error {
	out := rc.Path(".mp3")
	if err := s.TTS.Synthesize(ctx, rc.Job.Narration(), rc.Settings.Voice, out); err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}
	return rc.Put(Audio, out)
}
