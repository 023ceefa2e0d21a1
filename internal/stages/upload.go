package stages

import (
	"context"
	"errors"

	"github.com/forPelevin/shortsmith/internal/ports"
)

// Upload publishes the final video. A failed upload does not undo the
// produced video, so the stage is best effort.
type Upload struct {
	Uploader ports.Uploader
}

func (Upload) Name() string             { return NameUpload }
func (Upload) Requires() []ArtifactKind { return []ArtifactKind{FinalVideo} }
func (Upload) Produces() []ArtifactKind { return nil }
func (Upload) BestEffort() bool         { return true }

func (s Upload) Execute(ctx context.Context, rc *Context) error {
	video, _ := rc.Artifact(FinalVideo)
	ok, err := s.Uploader.Upload(ctx, ports.UploadRequest{
		Video:    video,
		Title:    rc.Job.Title(),
		Tags:     rc.Job.Tags,
		Headless: rc.Settings.Headless,
	})
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("uploader reported failure")
	}
	rc.Uploaded = true
	rc.Log.Info("video uploaded")
	return nil
}
