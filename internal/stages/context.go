package stages

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/shortsmith/internal/domain/subtitles"
	"github.com/forPelevin/shortsmith/internal/domain/timing"
	"github.com/forPelevin/shortsmith/internal/types"
)

type ArtifactKind string

const (
	BackgroundVideo ArtifactKind = "background-video"
	Audio           ArtifactKind = "audio"
	SubtitleSRT     ArtifactKind = "subtitle-srt"
	SubtitleASS     ArtifactKind = "subtitle-ass"
	FinalVideo      ArtifactKind = "final-video"
)

var ErrArtifactRewrite = errors.New("artifact already written")

// Settings is the resolved configuration a run needs. It is copied into each
// Context so concurrent runs never share mutable state.
type Settings struct {
	Model      string
	Language   string
	NonEnglish bool
	Voice      string
	Style      subtitles.Style

	BackgroundURL    string
	BackgroundDir    string
	RandomBackground bool

	Upload   bool
	Headless bool
}

// Context is the state threaded through the stages of one run. It is owned by
// a single run and is not safe for concurrent use.
type Context struct {
	Job       types.Job
	RunID     string
	MediaDir  string
	OutputDir string
	Settings  Settings
	Log       logrus.FieldLogger

	// Timing is set by the compose stage.
	Timing   *timing.Result
	Uploaded bool

	artifacts map[ArtifactKind]string
}

func NewContext(job types.Job, runID, mediaDir, outputDir string, s Settings, log logrus.FieldLogger) *Context {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Context{
		Job:       job,
		RunID:     runID,
		MediaDir:  mediaDir,
		OutputDir: outputDir,
		Settings:  s,
		Log:       log.WithField("run_id", runID),
		artifacts: map[ArtifactKind]string{},
	}
}

// Path is the run-namespaced media path with the given extension.
func (c *Context) Path(ext string) string {
	return filepath.Join(c.MediaDir, c.RunID+ext)
}

func (c *Context) OutputPath(ext string) string {
	return filepath.Join(c.OutputDir, c.RunID+ext)
}

// Put records an artifact. Each kind is written once; writing the same path
// again is a no-op so a re-run with the same run id stays deterministic.
func (c *Context) Put(kind ArtifactKind, path string) error {
	if prev, ok := c.artifacts[kind]; ok {
		if prev == path {
			return nil
		}
		return fmt.Errorf("%s: %w (have %s, got %s)", kind, ErrArtifactRewrite, prev, path)
	}
	c.artifacts[kind] = path
	return nil
}

func (c *Context) Artifact(kind ArtifactKind) (string, bool) {
	p, ok := c.artifacts[kind]
	return p, ok
}

// Artifacts returns a copy of the artifact map.
func (c *Context) Artifacts() map[ArtifactKind]string {
	out := make(map[ArtifactKind]string, len(c.artifacts))
	for k, v := range c.artifacts {
		out[k] = v
	}
	return out
}

// Require fails with a PreconditionError naming every missing kind.
func (c *Context) Require(stage string, kinds ...ArtifactKind) error {
	var missing []ArtifactKind
	for _, k := range kinds {
		if _, ok := c.artifacts[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return &PreconditionError{Stage: stage, Missing: missing}
}
