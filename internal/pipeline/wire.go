package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/shortsmith/internal/config"
	"github.com/forPelevin/shortsmith/internal/domain/timing"
	"github.com/forPelevin/shortsmith/internal/executor"
	"github.com/forPelevin/shortsmith/internal/ports"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/edgetts"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/elevenlabs"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/objectstore"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/polly"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/tiktok"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/shortsmith/internal/usecase"
)

// NewDeps builds every adapter the stages need from configuration.
func NewDeps(cfg *config.Config, log logrus.FieldLogger) (usecase.Deps, error) {
	run := executor.New(log, cfg.Log.Verbose)

	ff := ffmpeg.New(run, cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath,
		ffmpeg.WithThreads(cfg.FFmpeg.Threads),
		ffmpeg.WithTimeout(cfg.FFmpeg.Timeout),
	)
	tts, err := NewTTS(cfg, run)
	if err != nil {
		return usecase.Deps{}, err
	}
	up, err := NewUploader(cfg, run, log)
	if err != nil {
		return usecase.Deps{}, err
	}

	return usecase.Deps{
		TTS:      tts,
		ASR:      whispercpp.New(run, cfg.Whisper.Bin, cfg.Whisper.ModelsDir, cfg.Whisper.Timeout),
		Audio:    ff,
		Prober:   ff,
		Composer: ff,
		Supplier: ytdlp.New(run, cfg.Background.YtDlp, cfg.Background.Timeout),
		Uploader: up,
		Timing:   timing.New(),
	}, nil
}

// NewTTS returns the adapter for tts.provider.
func NewTTS(cfg *config.Config, run executor.Runner) (ports.TTS, error) {
	t := cfg.TTS
	switch t.Provider {
	case "edge":
		return edgetts.New(run, t.EdgeBin, t.Timeout), nil
	case "polly":
		a, err := polly.New(polly.Config{
			Region:    t.Polly.Region,
			AccessKey: t.Polly.AccessKey,
			SecretKey: t.Polly.SecretKey,
			Engine:    t.Polly.Engine,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case "elevenlabs":
		if err := elevenlabs.ValidateBaseURL(t.ElevenLabs.BaseURL, nil); err != nil {
			return nil, err
		}
		return elevenlabs.New(t.ElevenLabs.APIKey, t.ElevenLabs.Model, t.ElevenLabs.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q", t.Provider)
	}
}

// NewUploader returns nil when uploads are disabled.
func NewUploader(cfg *config.Config, run executor.Runner, log logrus.FieldLogger) (ports.Uploader, error) {
	u := cfg.Upload
	if !u.Enabled {
		return nil, nil
	}
	switch u.Target {
	case "tiktok":
		return tiktok.New(run, u.TikTok.Bin, u.TikTok.Cookies, u.Timeout), nil
	case "s3":
		a, err := objectstore.New(objectstore.Config{
			Endpoint:  u.S3.Endpoint,
			AccessKey: u.S3.AccessKey,
			SecretKey: u.S3.SecretKey,
			UseSSL:    u.S3.UseSSL,
			Bucket:    u.S3.Bucket,
			Prefix:    u.S3.Prefix,
		}, log)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown upload target %q", u.Target)
	}
}

// ensure adapters implement ports
var (
	_ ports.AudioExtractor     = (*ffmpeg.Adapter)(nil)
	_ ports.Prober             = (*ffmpeg.Adapter)(nil)
	_ ports.Composer           = (*ffmpeg.Adapter)(nil)
	_ ports.ASR                = (*whispercpp.Adapter)(nil)
	_ ports.TTS                = (*edgetts.Adapter)(nil)
	_ ports.TTS                = (*polly.Adapter)(nil)
	_ ports.TTS                = (*elevenlabs.Adapter)(nil)
	_ ports.BackgroundSupplier = (*ytdlp.Adapter)(nil)
	_ ports.Uploader           = (*tiktok.Adapter)(nil)
	_ ports.Uploader           = (*objectstore.Adapter)(nil)
)
