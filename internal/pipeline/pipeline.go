package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/shortsmith/internal/config"
	"github.com/forPelevin/shortsmith/internal/jobs"
	"github.com/forPelevin/shortsmith/internal/stages"
	"github.com/forPelevin/shortsmith/internal/types"
	"github.com/forPelevin/shortsmith/internal/usecase"
)

type Config struct {
	JobsFile string
	App      *config.Config
	Log      logrus.FieldLogger
}

func (c Config) Validate() error {
	if c.JobsFile == "" {
		return errors.New("jobs file is empty")
	}
	if _, err := os.Stat(c.JobsFile); err != nil {
		return fmt.Errorf("stat jobs file: %w", err)
	}
	if c.App == nil {
		return errors.New("missing configuration")
	}
	return c.App.Validate()
}

func Run(ctx context.Context, cfg Config) error {
	log := orDiscard(cfg.Log)

	list, err := jobs.Load(cfg.JobsFile)
	if err != nil {
		return err
	}
	log.WithField("jobs", len(list)).Infof("loaded %s", cfg.JobsFile)

	deps, err := NewDeps(cfg.App, log)
	if err != nil {
		return err
	}

	if cfg.App.Clean {
		if err := clean(cfg.App, log); err != nil {
			return err
		}
	}

	b := newBatch(cfg.App.MediaDir, cfg.App.OutputDir, cfg.JobsFile, time.Now().UTC())
	log.Infof("media dir: %s", b.MediaDir)
	log.Infof("output dir: %s", b.OutputDir)

	m, err := runBatch(ctx, usecase.New(deps), b, list, settingsFrom(cfg.App), cfg.App.Concurrency, log)
	if err != nil {
		return err
	}
	m.JobsFile = cfg.JobsFile

	manifestPath, err := writeManifest(b.OutputDir, m)
	if err != nil {
		return err
	}

	failed := 0
	for _, j := range m.Jobs {
		if j.Status == types.JobFailed {
			failed++
		}
	}
	log.Infof("manifest written (%d jobs): %s", len(m.Jobs), manifestPath)
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed, see %s", failed, len(m.Jobs), manifestPath)
	}
	return nil
}

// clean removes the media and output roots. A root that is, or holds, the
// working directory or the background directory is refused.
func clean(app *config.Config, log logrus.FieldLogger) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	bg, err := filepath.Abs(app.Background.Dir)
	if err != nil {
		return err
	}
	roots := []string{app.MediaDir, app.OutputDir}
	for _, dir := range roots {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if contains(abs, wd) {
			return fmt.Errorf("refusing to clean %s: it contains the working directory", dir)
		}
		if contains(abs, bg) {
			return fmt.Errorf("refusing to clean %s: it contains the background directory", dir)
		}
	}
	for _, dir := range roots {
		log.WithField("dir", dir).Info("cleaning")
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clean %s: %w", dir, err)
		}
	}
	return nil
}

// contains reports whether path is root or lies below it.
func contains(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

type batch struct {
	Name      string
	MediaDir  string
	OutputDir string
}

func newBatch(mediaRoot, outputRoot, jobsFile string, now time.Time) batch {
	name := batchName(jobsFile, now)
	return batch{
		Name:      name,
		MediaDir:  filepath.Join(mediaRoot, name),
		OutputDir: filepath.Join(outputRoot, name),
	}
}

// runBatch runs every job concurrently, at most limit at a time. A failing job
// never cancels its siblings; only ctx does.
func runBatch(
	ctx context.Context,
	uc usecase.Usecase,
	b batch,
	list []types.Job,
	set stages.Settings,
	limit int,
	log logrus.FieldLogger,
) (types.Manifest, error) {
	if err := os.MkdirAll(b.MediaDir, 0o755); err != nil {
		return types.Manifest{}, err
	}
	if err := os.MkdirAll(b.OutputDir, 0o755); err != nil {
		return types.Manifest{}, err
	}
	if limit <= 0 {
		limit = 1
	}
	log = orDiscard(log)

	entries := make([]types.ManifestJob, len(list))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, job := range list {
		g.Go(func() error {
			runID := newRunID(job)
			jl := log.WithFields(logrus.Fields{"job": job.Title(), "run_id": runID})
			jl.Info("job started")

			res, err := uc.Run(ctx, usecase.Input{
				Job:       job,
				RunID:     runID,
				MediaDir:  b.MediaDir,
				OutputDir: b.OutputDir,
				Settings:  set,
				Log:       log.WithField("job", job.Title()),
			})
			entries[i] = res.ManifestEntry()
			if err != nil {
				jl.WithError(err).Error("job failed")
				return nil
			}
			jl.WithField("video", entries[i].Video).Info("job completed")
			return nil
		})
	}
	_ = g.Wait()

	return types.Manifest{Batch: b.Name, Jobs: entries}, nil
}

func orDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func writeManifest(dir string, m types.Manifest) (string, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	p := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return "", err
	}
	return p, nil
}

func settingsFrom(c *config.Config) stages.Settings {
	return stages.Settings{
		Model:            c.Whisper.Model,
		Language:         c.Whisper.Language,
		NonEnglish:       c.Whisper.NonEnglish,
		Voice:            c.TTS.Voice,
		Style:            c.Style(),
		BackgroundURL:    c.Background.URL,
		BackgroundDir:    c.Background.Dir,
		RandomBackground: c.Background.Random,
		Upload:           c.Upload.Enabled,
		Headless:         c.Upload.Headless,
	}
}

// newRunID is readable in directory listings and unique per run.
func newRunID(j types.Job) string {
	name := normalizePathSegment(j.Series + " " + string(j.Part))
	if name == "" {
		name = "job"
	}
	if r := []rune(name); len(r) > 40 {
		name = strings.TrimRight(string(r[:40]), "-")
	}
	return name + "-" + uuid.NewString()[:8]
}

func batchName(jobsFile string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(jobsFile), filepath.Ext(jobsFile))
	name = normalizePathSegment(name)
	if name == "" {
		name = "jobs"
	}
	ts := now.UTC().Format("20060102-150405Z")
	seed := fmt.Sprintf("%s|%d", jobsFile, now.UTC().UnixNano())
	return fmt.Sprintf("%s-%s-%s", name, ts, hash(seed)[:6])
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
