// Package config loads shortsmith settings from an optional YAML file,
// SHORTSMITH_* environment variables and command-line flags bound by the CLI.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/forPelevin/shortsmith/internal/domain/subtitles"
	"github.com/forPelevin/shortsmith/internal/ports/adapters/whispercpp"
)

const EnvPrefix = "SHORTSMITH"

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	TTS        TTSConfig        `mapstructure:"tts"`
	Whisper    WhisperConfig    `mapstructure:"whisper"`
	FFmpeg     FFmpegConfig     `mapstructure:"ffmpeg"`
	Background BackgroundConfig `mapstructure:"background"`
	Subtitles  SubtitlesConfig  `mapstructure:"subtitles"`
	Upload     UploadConfig     `mapstructure:"upload"`

	MediaDir    string `mapstructure:"media_dir"`
	OutputDir   string `mapstructure:"output_dir"`
	Concurrency int    `mapstructure:"concurrency"`
	// Clean removes previous media and output before a batch starts.
	Clean bool `mapstructure:"clean"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	File    string `mapstructure:"file"`
	Verbose bool   `mapstructure:"verbose"`
}

type TTSConfig struct {
	Provider   string           `mapstructure:"provider"`
	Voice      string           `mapstructure:"voice"`
	EdgeBin    string           `mapstructure:"edge_bin"`
	Timeout    time.Duration    `mapstructure:"timeout"`
	Polly      PollyConfig      `mapstructure:"polly"`
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
}

type PollyConfig struct {
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Engine    string `mapstructure:"engine"`
}

type ElevenLabsConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type WhisperConfig struct {
	Bin        string        `mapstructure:"bin"`
	ModelsDir  string        `mapstructure:"models_dir"`
	Model      string        `mapstructure:"model"`
	Language   string        `mapstructure:"language"`
	NonEnglish bool          `mapstructure:"non_english"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type FFmpegConfig struct {
	FFmpegPath  string        `mapstructure:"ffmpeg_path"`
	FFprobePath string        `mapstructure:"ffprobe_path"`
	Threads     int           `mapstructure:"threads"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type BackgroundConfig struct {
	URL     string        `mapstructure:"url"`
	Dir     string        `mapstructure:"dir"`
	Random  bool          `mapstructure:"random"`
	YtDlp   string        `mapstructure:"ytdlp_bin"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SubtitlesConfig struct {
	Font      string  `mapstructure:"font"`
	FontSize  int     `mapstructure:"font_size"`
	FontColor string  `mapstructure:"font_color"`
	Position  int     `mapstructure:"position"`
	Outline   int     `mapstructure:"outline"`
	Shadow    int     `mapstructure:"shadow"`
	Blur      int     `mapstructure:"blur"`
	MarginL   int     `mapstructure:"margin_l"`
	MarginR   int     `mapstructure:"margin_r"`
	MaxChars  int     `mapstructure:"max_chars"`
	MaxWords  int     `mapstructure:"max_words"`
	SplitGap  float64 `mapstructure:"split_gap"`
	MergeGap  float64 `mapstructure:"merge_gap"`
	Format    string  `mapstructure:"format"`
}

type UploadConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Target   string        `mapstructure:"target"`
	Headless bool          `mapstructure:"headless"`
	Timeout  time.Duration `mapstructure:"timeout"`
	TikTok   TikTokConfig  `mapstructure:"tiktok"`
	S3       S3Config      `mapstructure:"s3"`
}

type TikTokConfig struct {
	Bin     string `mapstructure:"bin"`
	Cookies string `mapstructure:"cookies"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
}

var (
	TTSProviders  = []string{"edge", "polly", "elevenlabs"}
	UploadTargets = []string{"tiktok", "s3"}
)

// SetDefaults registers every key on v. Viper defaults rank above the default
// values of bound flags, so these are the effective defaults. Keys without a
// default are invisible to AutomaticEnv during Unmarshal, hence the zero values.
func SetDefaults(v *viper.Viper) {
	d := subtitles.DefaultStyle()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.verbose", false)

	v.SetDefault("tts.provider", "edge")
	v.SetDefault("tts.voice", "")
	v.SetDefault("tts.edge_bin", "edge-tts")
	v.SetDefault("tts.timeout", 5*time.Minute)
	v.SetDefault("tts.polly.region", "us-east-1")
	v.SetDefault("tts.polly.engine", "neural")
	v.SetDefault("tts.elevenlabs.model", "eleven_multilingual_v2")
	v.SetDefault("tts.elevenlabs.base_url", "https://api.elevenlabs.io")

	v.SetDefault("whisper.bin", ".cache/bin/whisper.cpp")
	v.SetDefault("whisper.models_dir", ".cache/models")
	v.SetDefault("whisper.model", "base")
	v.SetDefault("whisper.language", "en")
	v.SetDefault("whisper.non_english", false)
	v.SetDefault("whisper.timeout", 30*time.Minute)

	v.SetDefault("ffmpeg.ffmpeg_path", "ffmpeg")
	v.SetDefault("ffmpeg.ffprobe_path", "ffprobe")
	v.SetDefault("ffmpeg.threads", 0)
	v.SetDefault("ffmpeg.timeout", time.Hour)

	v.SetDefault("background.url", "")
	v.SetDefault("background.dir", "background")
	v.SetDefault("background.random", false)
	v.SetDefault("background.ytdlp_bin", "yt-dlp")
	v.SetDefault("background.timeout", 30*time.Minute)

	v.SetDefault("subtitles.font", d.Font)
	v.SetDefault("subtitles.font_size", d.FontSize)
	v.SetDefault("subtitles.font_color", d.HighlightColor)
	v.SetDefault("subtitles.position", d.Position)
	v.SetDefault("subtitles.outline", d.Outline)
	v.SetDefault("subtitles.shadow", d.Shadow)
	v.SetDefault("subtitles.blur", d.Blur)
	v.SetDefault("subtitles.margin_l", d.MarginL)
	v.SetDefault("subtitles.margin_r", d.MarginR)
	v.SetDefault("subtitles.max_chars", d.MaxChars)
	v.SetDefault("subtitles.max_words", d.MaxWords)
	v.SetDefault("subtitles.split_gap", d.SplitGap)
	v.SetDefault("subtitles.merge_gap", d.MergeGap)
	v.SetDefault("subtitles.format", d.SRTFormat)

	v.SetDefault("upload.enabled", false)
	v.SetDefault("upload.target", "tiktok")
	v.SetDefault("upload.headless", false)
	v.SetDefault("upload.timeout", 10*time.Minute)
	v.SetDefault("upload.tiktok.bin", "tiktok-uploader")
	v.SetDefault("upload.tiktok.cookies", "cookies.txt")
	v.SetDefault("upload.s3.endpoint", "")
	v.SetDefault("upload.s3.bucket", "")
	v.SetDefault("upload.s3.use_ssl", true)
	v.SetDefault("upload.s3.prefix", "shorts")

	v.SetDefault("media_dir", "media")
	v.SetDefault("output_dir", "output")
	v.SetDefault("concurrency", 1)
	v.SetDefault("clean", false)
}

// Load reads the optional config file at path and merges environment
// variables over it. Flags must already be bound on v.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets keep their conventional names.
	_ = v.BindEnv("tts.polly.access_key", EnvPrefix+"_TTS_POLLY_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("tts.polly.secret_key", EnvPrefix+"_TTS_POLLY_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("tts.polly.region", EnvPrefix+"_TTS_POLLY_REGION", "AWS_REGION")
	_ = v.BindEnv("tts.elevenlabs.api_key", EnvPrefix+"_TTS_ELEVENLABS_API_KEY", "ELEVENLABS_API_KEY")
	_ = v.BindEnv("upload.s3.access_key", EnvPrefix+"_UPLOAD_S3_ACCESS_KEY", "S3_ACCESS_KEY")
	_ = v.BindEnv("upload.s3.secret_key", EnvPrefix+"_UPLOAD_S3_SECRET_KEY", "S3_SECRET_KEY")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.TTS.Provider = strings.ToLower(strings.TrimSpace(c.TTS.Provider))
	c.Upload.Target = strings.ToLower(strings.TrimSpace(c.Upload.Target))
	c.Whisper.Model = strings.TrimSpace(c.Whisper.Model)
	c.Subtitles.FontColor = strings.TrimPrefix(strings.TrimSpace(c.Subtitles.FontColor), "#")
	c.Subtitles.Format = strings.ToLower(c.Subtitles.Format)

	if c.Whisper.Language == "" {
		c.Whisper.Language = "en"
	}
	// Any language other than English needs the multilingual model.
	if c.Whisper.Language != "en" && c.Whisper.Language != "auto" {
		c.Whisper.NonEnglish = true
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.Log.Verbose {
		c.Log.Level = "debug"
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if !isModel(c.Whisper.Model) {
		errs = append(errs, fmt.Errorf("whisper.model: want one of %s or a .bin path, got %q",
			strings.Join(whispercpp.ModelSizes, ", "), c.Whisper.Model))
	}
	if !lo.Contains(TTSProviders, c.TTS.Provider) {
		errs = append(errs, fmt.Errorf("tts.provider: want one of %s, got %q", strings.Join(TTSProviders, ", "), c.TTS.Provider))
	}
	if c.TTS.Provider == "elevenlabs" && c.TTS.ElevenLabs.APIKey == "" {
		errs = append(errs, errors.New("tts.elevenlabs.api_key is required (set ELEVENLABS_API_KEY in .env)"))
	}
	if c.Upload.Enabled {
		if !lo.Contains(UploadTargets, c.Upload.Target) {
			errs = append(errs, fmt.Errorf("upload.target: want one of %s, got %q", strings.Join(UploadTargets, ", "), c.Upload.Target))
		}
		if c.Upload.Target == "s3" && (c.Upload.S3.Endpoint == "" || c.Upload.S3.Bucket == "") {
			errs = append(errs, errors.New("upload.s3.endpoint and upload.s3.bucket are required for the s3 target"))
		}
	}
	if err := c.Style().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("subtitles: %w", err))
	}
	if c.FFmpeg.Threads < 0 {
		errs = append(errs, fmt.Errorf("ffmpeg.threads must be >= 0, got %d", c.FFmpeg.Threads))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: want text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func isModel(m string) bool {
	return lo.Contains(whispercpp.ModelSizes, m) || strings.HasSuffix(m, ".bin")
}

// Style converts the subtitle section into the renderer's style.
func (c *Config) Style() subtitles.Style {
	s := c.Subtitles
	return subtitles.Style{
		Font:           s.Font,
		FontSize:       s.FontSize,
		Position:       s.Position,
		HighlightColor: s.FontColor,
		Outline:        s.Outline,
		Shadow:         s.Shadow,
		Blur:           s.Blur,
		MarginL:        s.MarginL,
		MarginR:        s.MarginR,
		MaxChars:       s.MaxChars,
		MaxWords:       s.MaxWords,
		SplitGap:       s.SplitGap,
		MergeGap:       s.MergeGap,
		SRTFormat:      s.Format,
	}
}
