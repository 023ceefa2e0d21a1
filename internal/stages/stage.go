package stages

import (
	"context"
	"fmt"
	"strings"
)

const (
	NameDownloadBackground = "Download-Background"
	NameSynthesizeSpeech   = "Synthesize-Speech"
	NameTranscribe         = "Transcribe-And-Style-Subtitles"
	NameComposeVideo       = "Compose-Video"
	NameUpload             = "Upload"
)

// Stage is one step of a run. Stages are stateless; everything a stage reads
// or writes lives in the Context.
type Stage interface {
	Name() string
	Requires() []ArtifactKind
	Produces() []ArtifactKind
	Execute(ctx context.Context, rc *Context) error
}

// BestEffort marks a stage whose failure is recorded as a warning instead of
// failing the run.
type BestEffort interface {
	BestEffort() bool
}

type PreconditionError struct {
	Stage   string
	Missing []ArtifactKind
}

func (e *PreconditionError) Error() string {
	names := make([]string, len(e.Missing))
	for i, k := range e.Missing {
		names[i] = string(k)
	}
	return fmt.Sprintf("%s: missing required artifacts: %s", e.Stage, strings.Join(names, ", "))
}

// StageFailure attaches stage and job identity to the underlying error.
type StageFailure struct {
	Stage string
	RunID string
	JobID string
	Err   error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("job %s (run %s) failed at %s: %v", e.JobID, e.RunID, e.Stage, e.Err)
}

func (e *StageFailure) Unwrap() error { return e.Err }
