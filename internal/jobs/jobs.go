// Package jobs reads the list of videos to produce.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forPelevin/shortsmith/internal/types"
)

// Load reads a job list. Files ending in .yaml or .yml are parsed as YAML,
// everything else as JSON.
func Load(path string) ([]types.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jobs: %w", err)
	}

	var list []types.Job
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &list)
	default:
		err = json.Unmarshal(data, &list)
	}
	if err != nil {
		return nil, fmt.Errorf("parse jobs %s: %w", filepath.Base(path), err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%s contains no jobs", filepath.Base(path))
	}

	for i := range list {
		list[i] = normalize(list[i])
		if err := Validate(list[i]); err != nil {
			return nil, fmt.Errorf("job %d: %w", i, err)
		}
	}
	return list, nil
}

func normalize(j types.Job) types.Job {
	j.Series = strings.TrimSpace(j.Series)
	j.Part = types.Part(strings.TrimSpace(string(j.Part)))
	j.Text = strings.TrimSpace(j.Text)
	j.Outro = strings.TrimSpace(j.Outro)
	j.Background = strings.TrimSpace(j.Background)

	tags := j.Tags[:0]
	for _, t := range j.Tags {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t != "" {
			tags = append(tags, t)
		}
	}
	j.Tags = tags
	return j
}

func Validate(j types.Job) error {
	var errs []error
	if j.Series == "" {
		errs = append(errs, errors.New("series is required"))
	}
	if j.Part == "" {
		errs = append(errs, errors.New("part is required"))
	}
	if j.Text == "" {
		errs = append(errs, errors.New("text is required"))
	}
	return errors.Join(errs...)
}
