// Package executor runs external tools (ffmpeg, ffprobe, whisper.cpp, yt-dlp,
// edge-tts) and reports what happened. It never judges exit codes: callers
// decide whether a non-zero exit is a failure for the tool they invoked.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Command describes one process invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory of the process. Empty means inherit.
	Dir string
	// Timeout bounds the process lifetime. Zero means no own deadline.
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

func (r Result) Success() bool { return r.ExitCode == 0 }

// StderrTail returns at most the last n lines of stderr.
func (r Result) StderrTail(n int) string {
	lines := strings.Split(strings.TrimRight(r.Stderr, "\n"), "\n")
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// TimeoutError is returned when a command exceeds its own Timeout and is killed.
type TimeoutError struct {
	Command string
	Timeout time.Duration
	Result  Result
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("execution timeout after %s: %s", e.Timeout, e.Command)
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// ExecutionError wraps an OS-level launch failure: missing binary, permission
// denied, invalid working directory.
type ExecutionError struct {
	Command string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error: %s: %v", e.Command, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// OSRunner runs commands with os/exec.
type OSRunner struct {
	log logrus.FieldLogger
	// Verbose tees process stderr into the debug log while it runs.
	Verbose   bool
	WaitDelay time.Duration
}

func New(log logrus.FieldLogger, verbose bool) *OSRunner {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &OSRunner{log: log, Verbose: verbose, WaitDelay: 5 * time.Second}
}

func (r *OSRunner) Run(ctx context.Context, c Command) (Result, error) {
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if c.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = r.WaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	var tee *lineLogger
	if r.Verbose {
		tee = &lineLogger{log: r.log.WithField("cmd", c.Name)}
		cmd.Stderr = io.MultiWriter(&stderr, tee)
	}

	r.log.WithFields(logrus.Fields{"cmd": c.String(), "dir": c.Dir}).Debug("exec")

	start := time.Now()
	err := cmd.Run()
	if tee != nil {
		tee.flush()
	}
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err == nil {
		return res, nil
	}

	// Parent cancellation wins over the command's own deadline.
	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", c.Name, ctx.Err())
	}
	if c.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.ExitCode = -1
		return res, &TimeoutError{Command: c.String(), Timeout: c.Timeout, Result: res}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		r.log.WithFields(logrus.Fields{"cmd": c.Name, "exit": res.ExitCode}).Debug("exec finished with non-zero exit")
		return res, nil
	}

	res.ExitCode = -1
	return res, &ExecutionError{Command: c.String(), Err: err}
}

// lineLogger writes each complete line it receives as a debug entry.
// cmd.Wait finishes copying before it returns, so no line arrives late.
type lineLogger struct {
	log logrus.FieldLogger
	buf []byte
}

func (w *lineLogger) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineLogger) flush() {
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *lineLogger) emit(line []byte) {
	if s := strings.TrimRight(string(line), "\r"); s != "" {
		w.log.Debug(s)
	}
}
