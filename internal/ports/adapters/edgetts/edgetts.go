package edgetts

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/forPelevin/shortsmith/internal/executor"
	"github.com/forPelevin/shortsmith/internal/types"
)

const DefaultVoice = "en-US-ChristopherNeural"

type Adapter struct {
	run     executor.Runner
	bin     string
	timeout time.Duration
}

func New(run executor.Runner, binPath string, timeout time.Duration) *Adapter {
	if binPath == "" {
		binPath = "edge-tts"
	}
	return &Adapter{run: run, bin: binPath, timeout: timeout}
}

func (a *Adapter) Synthesize(ctx context.Context, text, voice, outPath string) error {
	if voice == "" {
		voice = DefaultVoice
	}
	res, err := a.run.Run(ctx, executor.Command{
		Name:    a.bin,
		Args:    []string{"--voice", voice, "--text", text, "--write-media", outPath},
		Timeout: a.timeout,
	})
	if err != nil {
		return fmt.Errorf("edge-tts: %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("edge-tts: exit %d\n%s", res.ExitCode, res.StderrTail(10))
	}
	if st, err := os.Stat(outPath); err != nil || st.Size() == 0 {
		return fmt.Errorf("edge-tts: no audio written to %s", outPath)
	}
	return nil
}

func (a *Adapter) ListVoices(ctx context.Context) ([]types.Voice, error) {
	res, err := a.run.Run(ctx, executor.Command{
		Name:    a.bin,
		Args:    []string{"--list-voices"},
		Timeout: a.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("edge-tts list voices: %w", err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("edge-tts list voices: exit %d\n%s", res.ExitCode, res.StderrTail(10))
	}
	return parseVoices(res.Stdout), nil
}

// parseVoices understands both the key/value blocks printed by older edge-tts
// releases and the column table printed by newer ones.
func parseVoices(out string) []types.Voice {
	var voices []types.Voice
	var cur *types.Voice
	flush := func() {
		if cur != nil && cur.ID != "" {
			voices = append(voices, *cur)
		}
		cur = nil
	}

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "Name:"):
			flush()
			id := strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
			cur = &types.Voice{ID: id, Name: id, Locale: localeOf(id)}
		case strings.HasPrefix(line, "Gender:"):
			if cur != nil {
				cur.Gender = strings.TrimSpace(strings.TrimPrefix(line, "Gender:"))
			}
		case strings.Contains(line, ":"):
			// other key/value fields of the block format
		case strings.HasPrefix(line, "Name ") || strings.HasPrefix(line, "---"):
			// table header
		default:
			f := strings.Fields(line)
			if len(f) < 2 || !strings.Contains(f[0], "-") {
				continue
			}
			voices = append(voices, types.Voice{ID: f[0], Name: f[0], Locale: localeOf(f[0]), Gender: f[1]})
		}
	}
	flush()
	return voices
}

func localeOf(id string) string {
	parts := strings.SplitN(id, "-", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[0] + "-" + parts[1]
}
