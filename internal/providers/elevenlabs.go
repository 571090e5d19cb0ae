package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1/text-to-speech"

type elevenLabsTTS struct {
	apiKey string
	voice  string
	model  string
	http   *http.Client
}

func newElevenLabsTTS(apiKey, voice, model string, client *http.Client) *elevenLabsTTS {
	if model == "" {
		model = "eleven_turbo_v2_5"
	}
	return &elevenLabsTTS{apiKey: apiKey, voice: voice, model: model, http: client}
}

func (e *elevenLabsTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body := map[string]any{
		"text":     text,
		"model_id": e.model,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs marshal: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s?output_format=ulaw_8000", elevenLabsBaseURL, url.PathEscape(e.voice))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("elevenlabs error %d: %s", resp.StatusCode, string(msg))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs read: %w", err)
	}
	return audio, nil
}

func (e *elevenLabsTTS) Close() error { return nil }
