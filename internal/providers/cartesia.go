package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const cartesiaTTSBytesURL = "https://api.cartesia.ai/tts/bytes"

type cartesiaTTS struct {
	apiKey string
	voice  string
	model  string
	http   *http.Client
}

func newCartesiaTTS(apiKey, voice, model string, client *http.Client) *cartesiaTTS {
	if model == "" {
		model = "sonic-2"
	}
	return &cartesiaTTS{apiKey: apiKey, voice: voice, model: model, http: client}
}

func (c *cartesiaTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body := map[string]any{
		"model_id":   c.model,
		"transcript": text,
		"voice": map[string]any{
			"mode": "id",
			"id":   c.voice,
		},
		// Carrier audio: raw mu-law at the telephony sample rate.
		"output_format": map[string]any{
			"container":   "raw",
			"encoding":    "pcm_mulaw",
			"sample_rate": 8000,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("cartesia marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cartesiaTTSBytesURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("cartesia request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", "2024-11-13")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cartesia call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("cartesia error %d: %s", resp.StatusCode, string(msg))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cartesia read: %w", err)
	}
	return audio, nil
}

func (c *cartesiaTTS) Close() error { return nil }
