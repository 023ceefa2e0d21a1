package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps every config-backed flag to its viper key.
var flagKeys = map[string]string{
	"model":             "whisper.model",
	"non-english":       "whisper.non_english",
	"language":          "whisper.language",
	"url":               "background.url",
	"background-dir":    "background.dir",
	"random-background": "background.random",
	"tts-provider":      "tts.provider",
	"voice":             "tts.voice",
	"font":              "subtitles.font",
	"font-size":         "subtitles.font_size",
	"font-color":        "subtitles.font_color",
	"position":          "subtitles.position",
	"sub-format":        "subtitles.format",
	"max-chars":         "subtitles.max_chars",
	"max-words":         "subtitles.max_words",
	"split-gap":         "subtitles.split_gap",
	"merge-gap":         "subtitles.merge_gap",
	"upload":            "upload.enabled",
	"upload-target":     "upload.target",
	"headless":          "upload.headless",
	"concurrency":       "concurrency",
	"media-dir":         "media_dir",
	"output-dir":        "output_dir",
	"clean":             "clean",
	"verbose":           "log.verbose",
	"log-format":        "log.format",
	"log-file":          "log.file",
}

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:          "shortsmith [jobs-file]",
		Short:        "Turn a list of text jobs into narrated vertical videos",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobsFile := "video.json"
			if len(args) == 1 {
				jobsFile = args[0]
			}
			return run(cmd, v, jobsFile)
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a YAML config file")
	pf.String("tts-provider", "edge", "TTS provider: edge, polly or elevenlabs")
	pf.BoolP("verbose", "v", false, "Debug logging and external tool output")
	pf.String("log-format", "text", "Log format: text or json")
	pf.String("log-file", "", "Also write logs to this file")

	// Visible flags
	f := root.Flags()
	f.String("model", "base", "Whisper model: tiny, base, small, medium, large, turbo or a .bin path")
	f.Bool("non-english", false, "Use the multilingual whisper model")
	f.String("language", "en", "Spoken language passed to whisper")
	f.String("url", "", "Background video URL to download")
	f.String("background-dir", "background", "Directory holding background videos")
	f.Bool("random-background", false, "Pick a random video from the background directory")
	f.String("voice", "", "TTS voice id (see `shortsmith voices`)")
	f.String("font", "Lexend Bold", "Subtitle font")
	f.Int("font-size", 21, "Subtitle font size")
	f.String("font-color", "FFF000", "Highlight color of the spoken word (RGB hex)")
	f.Int("position", 5, "Subtitle position on a 1-9 numpad grid")
	f.String("sub-format", "b", "SRT highlight tag: u, i or b")
	f.Int("max-chars", 38, "Maximum characters per caption")
	f.Int("max-words", 2, "Maximum words per caption when merging")
	f.Bool("upload", false, "Upload finished videos")
	f.String("upload-target", "tiktok", "Upload target: tiktok or s3")
	f.Bool("headless", false, "Run the uploader browser headless")
	f.Int("concurrency", 1, "Jobs to run at once")
	f.String("media-dir", "media", "Directory for intermediate media")
	f.String("output-dir", "output", "Directory for finished videos")
	f.Bool("clean", false, "Remove media and output directories before running")

	// Hidden tuning flags (internal)
	f.Float64("split-gap", 0.5, "Silence in seconds that starts a new caption")
	f.Float64("merge-gap", 0.15, "Gap in seconds below which captions merge")
	_ = f.MarkHidden("split-gap")
	_ = f.MarkHidden("merge-gap")

	root.AddCommand(newVoicesCmd(v))
	return root
}

// bindFlags binds every flag of cmd that has a config key. Viper only reads a
// bound flag when the user set it.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var err error
	cmd.Flags().VisitAll(func(fl *pflag.Flag) {
		key, ok := flagKeys[fl.Name]
		if !ok || err != nil {
			return
		}
		if bErr := v.BindPFlag(key, fl); bErr != nil {
			err = fmt.Errorf("bind --%s: %w", fl.Name, bErr)
		}
	})
	return err
}
