package ports

import (
	"context"

	"github.com/forPelevin/shortsmith/internal/types"
)

type TTS interface {
	ListVoices(ctx context.Context) ([]types.Voice, error)
	// Synthesize writes narration audio to outPath.
	Synthesize(ctx context.Context, text, voice, outPath string) error
}

type TranscribeOptions struct {
	// Model is a size selector: tiny, base, small, medium, large or turbo.
	Model      string
	Language   string
	NonEnglish bool
	WorkDir    string
	OutPrefix  string
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath string, opts TranscribeOptions) (types.Transcript, error)
}

type AudioExtractor interface {
	ExtractAudioMono16k(ctx context.Context, in, outWav string) error
}

type Prober interface {
	Probe(ctx context.Context, path string, kind types.StreamKind) (types.MediaInfo, error)
}

type ComposeRequest struct {
	Background  string
	Audio       string
	Subtitles   string
	StartOffset int
	Duration    string
	Out         string
}

type Composer interface {
	Compose(ctx context.Context, req ComposeRequest) (string, error)
}

type BackgroundSupplier interface {
	Download(ctx context.Context, url, dir string) (string, error)
	ListAvailable(dir string) ([]string, error)
}

type UploadRequest struct {
	Video    string
	Title    string
	Tags     []string
	Headless bool
}

type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (bool, error)
}
