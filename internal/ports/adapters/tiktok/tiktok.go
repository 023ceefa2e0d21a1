package tiktok

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/forPelevin/shortsmith/internal/executor"
	"github.com/forPelevin/shortsmith/internal/ports"
)

// Adapter publishes through the tiktok-uploader CLI using a pre-provisioned
// browser cookie file.
type Adapter struct {
	run     executor.Runner
	bin     string
	cookies string
	timeout time.Duration
}

func New(run executor.Runner, binPath, cookiesPath string, timeout time.Duration) *Adapter {
	if binPath == "" {
		binPath = "tiktok-uploader"
	}
	if cookiesPath == "" {
		cookiesPath = "cookies.txt"
	}
	return &Adapter{run: run, bin: binPath, cookies: cookiesPath, timeout: timeout}
}

func (a *Adapter) Upload(ctx context.Context, req ports.UploadRequest) (bool, error) {
	if _, err := os.Stat(a.cookies); err != nil {
		return false, fmt.Errorf("tiktok cookie file %s: %w", a.cookies, err)
	}
	args := []string{
		"-v", req.Video,
		"-d", Description(req.Title, req.Tags),
		"-c", a.cookies,
	}
	if req.Headless {
		args = append(args, "--headless")
	}
	res, err := a.run.Run(ctx, executor.Command{Name: a.bin, Args: args, Timeout: a.timeout})
	if err != nil {
		return false, fmt.Errorf("tiktok upload: %w", err)
	}
	if !res.Success() {
		return false, fmt.Errorf("tiktok upload: exit %d\n%s", res.ExitCode, res.StderrTail(10))
	}
	return true, nil
}

// Description renders "title #tag1 #tag2". Blank tags are dropped and a
// leading '#' is not doubled.
func Description(title string, tags []string) string {
	tags = lo.FilterMap(tags, func(t string, _ int) (string, bool) {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		return "#" + t, t != ""
	})
	if len(tags) == 0 {
		return title
	}
	return title + " " + strings.Join(tags, " ")
}
