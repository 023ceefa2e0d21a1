package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forPelevin/shortsmith/internal/executor"
)

type fakeRunner struct {
	calls atomic.Int32
	delay time.Duration
	res   func(cmd executor.Command) executor.Result
}

func (f *fakeRunner) Run(_ context.Context, cmd executor.Command) (executor.Result, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	return f.res(cmd), nil
}

func writingResult(t *testing.T) func(executor.Command) executor.Result {
	return func(cmd executor.Command) executor.Result {
		if err := os.WriteFile(filepath.Join(cmd.Dir, "abc123.mp4"), []byte("x"), 0o644); err != nil {
			t.Errorf("write fixture: %v", err)
		}
		return executor.Result{Stdout: "[download] 100%\nabc123.mp4\n"}
	}
}

func TestDownload_RunsInDestinationDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "background")
	var got executor.Command
	r := &fakeRunner{res: func(cmd executor.Command) executor.Result {
		got = cmd
		return writingResult(t)(cmd)
	}}

	path, err := New(r, "", 0).Download(context.Background(), "https://youtu.be/abc123", dir)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if path != filepath.Join(dir, "abc123.mp4") {
		t.Fatalf("path = %q", path)
	}
	if got.Dir != dir {
		t.Fatalf("Dir = %q, want %q", got.Dir, dir)
	}
	args := strings.Join(got.Args, " ")
	if !strings.Contains(args, "-f bestvideo[ext=mp4] --restrict-filenames") || !strings.Contains(args, "-o %(id)s.%(ext)s") {
		t.Fatalf("unexpected args: %s", args)
	}
}

func TestDownload_ConcurrentCallsShareOneRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := &fakeRunner{delay: 300 * time.Millisecond, res: writingResult(t)}
	a := New(r, "", 0)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.Download(context.Background(), "https://youtu.be/abc123", dir); err != nil {
				t.Errorf("download: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := r.calls.Load(); n != 1 {
		t.Fatalf("expected one yt-dlp run, got %d", n)
	}
}

func TestDownload_Failure(t *testing.T) {
	t.Parallel()

	r := &fakeRunner{res: func(executor.Command) executor.Result {
		return executor.Result{ExitCode: 1, Stderr: "ERROR: Video unavailable"}
	}}
	_, err := New(r, "", 0).Download(context.Background(), "https://youtu.be/gone", t.TempDir())
	var de *VideoDownloadError
	if !errors.As(err, &de) {
		t.Fatalf("expected VideoDownloadError, got %T %v", err, err)
	}
	if de.ExitCode != 1 || !strings.Contains(de.Error(), "Video unavailable") {
		t.Fatalf("unexpected error: %v", de)
	}
}

func TestListAvailable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.mp4", "a.mp4", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := New(nil, "", 0).ListAvailable(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || filepath.Base(got[0]) != "a.mp4" || filepath.Base(got[1]) != "b.mp4" {
		t.Fatalf("unexpected list: %v", got)
	}
}
