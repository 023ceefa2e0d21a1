package stages

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/forPelevin/shortsmith/internal/ports"
)

// DownloadBackground resolves the footage for a run: the job's explicit
// background file, a download of the configured URL, or a random pick from
// the background directory.
type DownloadBackground struct {
	Supplier ports.BackgroundSupplier
	// Pick returns an index in [0, n). Defaults to math/rand/v2.
	Pick func(n int) int
}

func (DownloadBackground) Name() string             { return NameDownloadBackground }
func (DownloadBackground) Requires() []ArtifactKind { return nil }
func (DownloadBackground) Produces() []ArtifactKind { return []ArtifactKind{BackgroundVideo} }

func (s DownloadBackground) Execute(ctx context.Context, rc *Context) error {
	path, err := s.resolve(ctx, rc)
	if err != nil {
		return err
	}
	rc.Log.WithField("background", path).Info("background selected")
	return rc.Put(BackgroundVideo, path)
}

func (s DownloadBackground) resolve(ctx context.Context, rc *Context) (string, error) {
	set := rc.Settings
	if bg := rc.Job.Background; bg != "" {
		candidates := []string{bg}
		if !filepath.IsAbs(bg) && set.BackgroundDir != "" {
			candidates = append(candidates, filepath.Join(set.BackgroundDir, bg))
		}
		for _, c := range candidates {
			if st, err := os.Stat(c); err == nil && !st.IsDir() {
				return filepath.Abs(c)
			}
		}
		return "", fmt.Errorf("background %q not found", bg)
	}

	if set.BackgroundURL != "" && !set.RandomBackground {
		path, err := s.Supplier.Download(ctx, set.BackgroundURL, set.BackgroundDir)
		if err != nil {
			return "", err
		}
		return filepath.Abs(path)
	}

	files, err := s.Supplier.ListAvailable(set.BackgroundDir)
	if err != nil {
		return "", fmt.Errorf("list backgrounds: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no background videos in %s", set.BackgroundDir)
	}
	pick := s.Pick
	if pick == nil {
		pick = rand.IntN
	}
	return filepath.Abs(files[pick(len(files))])
}
