package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/shortsmith/internal/executor"
	"github.com/forPelevin/shortsmith/internal/ports"
	"github.com/forPelevin/shortsmith/internal/types"
)

var ModelSizes = []string{"tiny", "base", "small", "medium", "large", "turbo"}

type Adapter struct {
	run       executor.Runner
	bin       string
	modelsDir string
	timeout   time.Duration
}

func New(run executor.Runner, binPath, modelsDir string, timeout time.Duration) *Adapter {
	return &Adapter{run: run, bin: binPath, modelsDir: modelsDir, timeout: timeout}
}

// ModelFile maps a size selector to a ggml model file name. Sizes below
// large use the English-only variant unless nonEnglish is set.
func ModelFile(size string, nonEnglish bool) (string, error) {
	switch size {
	case "tiny", "base", "small", "medium":
		if nonEnglish {
			return "ggml-" + size + ".bin", nil
		}
		return "ggml-" + size + ".en.bin", nil
	case "large":
		return "ggml-large-v3.bin", nil
	case "turbo":
		return "ggml-large-v3-turbo.bin", nil
	}
	return "", fmt.Errorf("unknown model size %q (want one of %s)", size, strings.Join(ModelSizes, ", "))
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath string, opts ports.TranscribeOptions) (types.Transcript, error) {
	model := opts.Model
	if !strings.HasSuffix(model, ".bin") {
		name, err := ModelFile(opts.Model, opts.NonEnglish)
		if err != nil {
			return types.Transcript{}, err
		}
		model = filepath.Join(a.modelsDir, name)
	}

	prefix := opts.OutPrefix
	if prefix == "" {
		prefix = filepath.Join(opts.WorkDir, "whisper")
	}
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	args := []string{
		"-m", model,
		"-f", wavPath,
		"-l", lang,
		"-ml", "1",
		"-sow",
		"-oj",
		"-of", prefix,
	}
	res, err := a.run.Run(ctx, executor.Command{Name: a.bin, Args: args, Timeout: a.timeout})
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp: %w", err)
	}
	if !res.Success() {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: exit %d\n%s", res.ExitCode, res.StderrTail(20))
	}

	jb, err := os.ReadFile(prefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return parseOutput(jb)
}

type output struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseOutput turns whisper.cpp word-per-entry JSON (-ml 1 -sow) into a
// single-segment transcript.
func parseOutput(b []byte) (types.Transcript, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisper output: %w", err)
	}

	var seg types.Segment
	var text []string
	for _, e := range out.Transcription {
		w := strings.TrimSpace(e.Text)
		if w == "" || isNonSpeech(w) {
			continue
		}
		word := types.Word{
			Start: float64(e.Offsets.From) / 1000,
			End:   float64(e.Offsets.To) / 1000,
			Word:  w,
		}
		if len(seg.Words) == 0 {
			seg.Start = word.Start
		}
		seg.End = word.End
		seg.Words = append(seg.Words, word)
		text = append(text, w)
	}
	if len(seg.Words) == 0 {
		return types.Transcript{}, nil
	}
	seg.Text = strings.Join(text, " ")
	return types.Transcript{Segments: []types.Segment{seg}}, nil
}

func isNonSpeech(w string) bool {
	return (strings.HasPrefix(w, "[") && strings.HasSuffix(w, "]")) ||
		(strings.HasPrefix(w, "(") && strings.HasSuffix(w, ")"))
}
