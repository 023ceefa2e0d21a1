package ytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/forPelevin/shortsmith/internal/executor"
)

type VideoDownloadError struct {
	URL      string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *VideoDownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("download %s: exit %d: %s", e.URL, e.ExitCode, strings.TrimSpace(e.Stderr))
}

func (e *VideoDownloadError) Unwrap() error { return e.Err }

// Adapter downloads background footage with yt-dlp. Concurrent jobs asking
// for the same URL share one download.
type Adapter struct {
	run     executor.Runner
	bin     string
	timeout time.Duration
	group   singleflight.Group
}

func New(run executor.Runner, binPath string, timeout time.Duration) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{run: run, bin: binPath, timeout: timeout}
}

func (a *Adapter) Download(ctx context.Context, url, dir string) (string, error) {
	v, err, _ := a.group.Do(dir+"|"+url, func() (any, error) {
		return a.download(ctx, url, dir)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (a *Adapter) download(ctx context.Context, url, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &VideoDownloadError{URL: url, Err: err}
	}
	res, err := a.run.Run(ctx, executor.Command{
		Name: a.bin,
		Args: []string{
			"-f", "bestvideo[ext=mp4]",
			"--restrict-filenames",
			"--no-playlist",
			"-o", "%(id)s.%(ext)s",
			"--print", "after_move:filepath",
			url,
		},
		Dir:     dir,
		Timeout: a.timeout,
	})
	if err != nil {
		return "", &VideoDownloadError{URL: url, ExitCode: res.ExitCode, Stderr: res.Stderr, Err: err}
	}
	if !res.Success() {
		return "", &VideoDownloadError{URL: url, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}

	path := lastLine(res.Stdout)
	if path == "" {
		return "", &VideoDownloadError{URL: url, Err: fmt.Errorf("yt-dlp printed no file path")}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if _, err := os.Stat(path); err != nil {
		return "", &VideoDownloadError{URL: url, Err: err}
	}
	return path, nil
}

// ListAvailable returns the mp4 files in dir in name order.
func (a *Adapter) ListAvailable(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.mp4"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
