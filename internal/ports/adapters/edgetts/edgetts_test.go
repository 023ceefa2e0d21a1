package edgetts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/shortsmith/internal/executor"
)

func TestParseVoices_BlockFormat(t *testing.T) {
	out := `Name: en-US-ChristopherNeural
Gender: Male

Name: de-DE-KatjaNeural
Gender: Female
`
	got := parseVoices(out)
	if len(got) != 2 {
		t.Fatalf("expected 2 voices, got %+v", got)
	}
	if got[0].ID != "en-US-ChristopherNeural" || got[0].Gender != "Male" || got[0].Locale != "en-US" {
		t.Fatalf("unexpected voice: %+v", got[0])
	}
	if got[1].Locale != "de-DE" || got[1].Gender != "Female" {
		t.Fatalf("unexpected voice: %+v", got[1])
	}
}

func TestParseVoices_TableFormat(t *testing.T) {
	out := `Name                               Gender    ContentCategories      VoicePersonalities
---------------------------------  --------  ---------------------  --------------------------------------
af-ZA-AdriNeural                   Female    General                Friendly, Positive
en-US-ChristopherNeural            Male      News, Novel            Reliable, Authority
`
	got := parseVoices(out)
	if len(got) != 2 {
		t.Fatalf("expected 2 voices, got %+v", got)
	}
	if got[1].ID != "en-US-ChristopherNeural" || got[1].Gender != "Male" || got[1].Locale != "en-US" {
		t.Fatalf("unexpected voice: %+v", got[1])
	}
}

type scriptRunner struct {
	calls []executor.Command
	write bool
	res   executor.Result
}

func (r *scriptRunner) Run(_ context.Context, cmd executor.Command) (executor.Result, error) {
	r.calls = append(r.calls, cmd)
	if r.write {
		out := cmd.Args[len(cmd.Args)-1]
		if err := os.WriteFile(out, []byte("ID3"), 0o644); err != nil {
			return executor.Result{}, err
		}
	}
	return r.res, nil
}

func TestSynthesize(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "run.mp3")
	r := &scriptRunner{write: true}
	if err := New(r, "", 0).Synthesize(context.Background(), "Facts - 1.\nHello world.\nBye.", "", out); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	args := strings.Join(r.calls[0].Args, " ")
	if !strings.HasPrefix(args, "--voice en-US-ChristopherNeural --text Facts - 1.") {
		t.Fatalf("unexpected args: %s", args)
	}
}

func TestSynthesize_NoOutput(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "run.mp3")
	err := New(&scriptRunner{}, "", 0).Synthesize(context.Background(), "x", "en-GB-RyanNeural", out)
	if err == nil || !strings.Contains(err.Error(), "no audio written") {
		t.Fatalf("unexpected error: %v", err)
	}
}
