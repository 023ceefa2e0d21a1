package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/forPelevin/shortsmith/internal/types"
)

const (
	requestTimeout = 2 * time.Minute
	defaultModel   = "eleven_multilingual_v2"
)

type voiceDTO struct {
	VoiceID string            `json:"voice_id"`
	Name    string            `json:"name"`
	Labels  map[string]string `json:"labels"`
}

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
}

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = defaultModel
	}
	return &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: normalizeBaseURL(baseURL),
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (a *Adapter) Synthesize(ctx context.Context, text, voice, outPath string) error {
	if voice == "" {
		return errors.New("elevenlabs: voice id is required")
	}
	body, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": a.model,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	endpoint := a.baseURL + "/v1/text-to-speech/" + url.PathEscape(voice) + "?output_format=mp3_44100_128"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", a.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := a.do(reqCtx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("write audio file: %w", err)
	}
	return f.Close()
}

func (a *Adapter) ListVoices(ctx context.Context) ([]types.Voice, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, a.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", a.key)

	resp, err := a.do(reqCtx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw struct {
		Voices []voiceDTO `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode voices: %w", err)
	}
	return lo.Map(raw.Voices, func(v voiceDTO, _ int) types.Voice {
		return types.Voice{ID: v.VoiceID, Name: v.Name, Locale: v.Labels["language"], Gender: v.Labels["gender"]}
	}), nil
}

// do sends req and turns transport failures and non-2xx answers into errors
// with secrets scrubbed from the response body.
func (a *Adapter) do(reqCtx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("elevenlabs timeout after %s", requestTimeout)
		}
		return nil, fmt.Errorf("elevenlabs request: %s", redactSecrets(err.Error(), a.key))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("elevenlabs status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("elevenlabs status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}
	return resp, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	apiKeyHeaderRE = regexp.MustCompile(`(?i)(xi-api-key\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE  = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = apiKeyHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
