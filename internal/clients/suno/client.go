package suno

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/pkg/httpx"
)

// GenerateRequest is the song generation request forwarded upstream. The
// callback URL is where the provider posts finished tracks.
type GenerateRequest struct {
	Prompt       string `json:"prompt"`
	Style        string `json:"style"`
	Title        string `json:"title"`
	CustomMode   bool   `json:"customMode"`
	Instrumental bool   `json:"instrumental"`
	Model        string `json:"model"`
	CallBackURL  string `json:"callBackUrl"`
}

type generateResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

// CallbackAudio is one finished track inside a generation callback.
type CallbackAudio struct {
	ID                   string  `json:"id"`
	AudioURL             string  `json:"audioUrl"`
	SourceAudioURL       string  `json:"sourceAudioUrl"`
	StreamAudioURL       string  `json:"streamAudioUrl"`
	SourceStreamAudioURL string  `json:"sourceStreamAudioUrl"`
	ImageURL             string  `json:"imageUrl"`
	Prompt               string  `json:"prompt"`
	ModelName            string  `json:"modelName"`
	Title                string  `json:"title"`
	Tags                 string  `json:"tags"`
	Duration             float64 `json:"duration"`
}

// Callback is the payload the provider posts when a generation task settles.
// CallbackType is "complete" for finished tasks; anything else is progress.
type Callback struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		CallbackType string          `json:"callbackType"`
		TaskID       string          `json:"taskId"`
		Data         []CallbackAudio `json:"data"`
	} `json:"data"`
}

type lyricsRequest struct {
	TaskID     string `json:"taskId"`
	AudioID    string `json:"audioId"`
	MusicIndex int    `json:"musicIndex"`
}

// TimestampedLyrics is the aligned-word payload for one track.
type TimestampedLyrics struct {
	AlignedWords json.RawMessage `json:"alignedWords"`
	PlainLyrics  string          `json:"-"`
}

type Client interface {
	// Generate submits a generation task and returns its task id.
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	// TimestampedLyrics fetches word-level lyric timings for a finished track.
	TimestampedLyrics(ctx context.Context, taskID, audioID string) (*TimestampedLyrics, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(os.Getenv("SUNO_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing SUNO_API_KEY")
	}
	baseURL := strings.TrimSpace(os.Getenv("SUNO_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.sunoapi.org"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeoutSec := 60
	if v := os.Getenv("SUNO_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}
	maxRetries := 3
	if v := os.Getenv("SUNO_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &client{
		log:        log.With("client", "SunoClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type sunoHTTPError struct {
	StatusCode int
	Body       string
}

func (e *sunoHTTPError) Error() string {
	return fmt.Sprintf("suno http %d: %s", e.StatusCode, e.Body)
}

func (e *sunoHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &sunoHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("suno decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}
		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}
		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)
		c.log.Warn("suno request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func (c *client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	var out generateResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/generate", req, &out); err != nil {
		return "", err
	}
	if out.Data.TaskID == "" {
		return "", fmt.Errorf("suno generate: empty task id (code=%d msg=%q)", out.Code, out.Msg)
	}
	return out.Data.TaskID, nil
}

func (c *client) TimestampedLyrics(ctx context.Context, taskID, audioID string) (*TimestampedLyrics, error) {
	body := lyricsRequest{TaskID: taskID, AudioID: audioID}
	var out struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			AlignedWords json.RawMessage `json:"alignedWords"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/generate/get-timestamped-lyrics", body, &out); err != nil {
		return nil, err
	}
	if len(out.Data.AlignedWords) == 0 {
		return nil, fmt.Errorf("suno lyrics: empty alignedWords (code=%d msg=%q)", out.Code, out.Msg)
	}
	lyrics := &TimestampedLyrics{AlignedWords: out.Data.AlignedWords}
	lyrics.PlainLyrics = plainLyricsFromAligned(out.Data.AlignedWords)
	return lyrics, nil
}

// plainLyricsFromAligned flattens aligned words into display lyrics, keeping
// line breaks but collapsing runs of spaces.
func plainLyricsFromAligned(aligned json.RawMessage) string {
	var words []struct {
		Word string `json:"word"`
	}
	if err := json.Unmarshal(aligned, &words); err != nil {
		return ""
	}
	var b strings.Builder
	for _, w := range words {
		b.WriteString(w.Word)
	}
	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
