package stages

import (
	"context"
	"fmt"
	"os"

	"github.com/forPelevin/shortsmith/internal/domain/subtitles"
	"github.com/forPelevin/shortsmith/internal/ports"
)

// TranscribeSubtitles converts narration to 16 kHz WAV, transcribes it with
// word timing and writes the styled SRT and ASS files.
type TranscribeSubtitles struct {
	Audio ports.AudioExtractor
	ASR   ports.ASR
}

func (TranscribeSubtitles) Name() string             { return NameTranscribe }
func (TranscribeSubtitles) Requires() []ArtifactKind { return []ArtifactKind{Audio} }
func (TranscribeSubtitles) Produces() []ArtifactKind {
	return []ArtifactKind{SubtitleSRT, SubtitleASS}
}

func (s TranscribeSubtitles) Execute(ctx context.Context, rc *Context) error {
	audio, _ := rc.Artifact(Audio)
	wav := rc.Path(".wav")
	if err := s.Audio.ExtractAudioMono16k(ctx, audio, wav); err != nil {
		return err
	}

	set := rc.Settings
	tr, err := s.ASR.Transcribe(ctx, wav, ports.TranscribeOptions{
		Model:      set.Model,
		Language:   set.Language,
		NonEnglish: set.NonEnglish,
		WorkDir:    rc.MediaDir,
		OutPrefix:  rc.Path(".whisper"),
	})
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	art, err := subtitles.Build(tr, set.Style)
	if err != nil {
		return err
	}
	rc.Log.WithField("captions", len(art.Captions)).Debug("subtitles built")

	srt, ass := rc.Path(".srt"), rc.Path(".ass")
	if err := os.WriteFile(srt, art.SRT, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(ass, art.ASS, 0o644); err != nil {
		return err
	}
	if err := rc.Put(SubtitleSRT, srt); err != nil {
		return err
	}
	return rc.Put(SubtitleASS, ass)
}
