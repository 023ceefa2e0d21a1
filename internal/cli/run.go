package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forPelevin/shortsmith/internal/config"
	"github.com/forPelevin/shortsmith/internal/pipeline"
)

func run(cmd *cobra.Command, v *viper.Viper, jobsFile string) error {
	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}

	absJobs, err := filepath.Abs(jobsFile)
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pcfg := pipeline.Config{
		JobsFile: absJobs,
		App:      cfg,
		Log:      log,
	}
	if err := pcfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return pipeline.Run(ctx, pcfg)
}

func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	if err := bindFlags(cmd, v); err != nil {
		return nil, err
	}
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. With a log file configured, entries go
// to both stderr and the file.
func newLogger(c config.LogConfig, stderr io.Writer) (*logrus.Logger, func(), error) {
	log := logrus.New()
	log.SetOutput(stderr)

	lvl, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)

	if c.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if c.File == "" {
		return log, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(c.File), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(stderr, f))
	return log, func() { _ = f.Close() }, nil
}
