package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Job is one request to produce one video. It is read from a job list and
// never mutated afterwards.
type Job struct {
	Series     string   `json:"series" yaml:"series"`
	Part       Part     `json:"part" yaml:"part"`
	Text       string   `json:"text" yaml:"text"`
	Outro      string   `json:"outro" yaml:"outro"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Background string   `json:"background,omitempty" yaml:"background,omitempty"`
}

// Part accepts both `"part": 1` and `"part": "1"` in job lists.
type Part string

func (p *Part) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*p = Part(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("part: %w", err)
	}
	*p = Part(strings.TrimSpace(s))
	return nil
}

// Title is used for logs and as the upload title.
func (j Job) Title() string {
	return fmt.Sprintf("%s - %s", j.Series, j.Part)
}

// Narration is the text handed to the TTS provider.
func (j Job) Narration() string {
	return fmt.Sprintf("%s.\n%s\n%s", j.Title(), j.Text, j.Outro)
}

type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// Words flattens the transcript into one word stream, dropping blank tokens.
func (t Transcript) Words() []Word {
	var out []Word
	for _, s := range t.Segments {
		for _, w := range s.Words {
			w.Word = strings.TrimSpace(w.Word)
			if w.Word == "" {
				continue
			}
			out = append(out, w)
		}
	}
	return out
}

type StreamKind string

const (
	StreamVideo StreamKind = "video"
	StreamAudio StreamKind = "audio"
)

// MediaInfo is the prober's view of one stream.
type MediaInfo struct {
	Kind     StreamKind
	Codec    string
	Duration float64
	Width    int
	Height   int
}

type Voice struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Locale string `json:"locale,omitempty"`
	Gender string `json:"gender,omitempty"`
}

type JobStatus string

const (
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

type Manifest struct {
	JobsFile string        `json:"jobs_file"`
	Batch    string        `json:"batch"`
	Jobs     []ManifestJob `json:"jobs"`
}

type ManifestJob struct {
	RunID       string    `json:"run_id"`
	Series      string    `json:"series"`
	Part        Part      `json:"part"`
	Status      JobStatus `json:"status"`
	FailedStage string    `json:"failed_stage,omitempty"`
	Error       string    `json:"error,omitempty"`
	Video       string    `json:"video,omitempty"`
	Subtitles   string    `json:"subtitles,omitempty"`
	StartOffset int       `json:"start_offset_sec"`
	DurationSec float64   `json:"duration_sec"`
	Uploaded    bool      `json:"uploaded"`
	Warnings    []string  `json:"warnings,omitempty"`
}
