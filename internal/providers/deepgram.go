package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const deepgramListenURL = "wss://api.deepgram.com/v1/listen"

// deepgramSTT streams 8kHz mu-law call audio to Deepgram's live
// transcription websocket and emits utterance-level results.
type deepgramSTT struct {
	apiKey   string
	model    string
	language string
	log      *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex
	results chan TranscriptResult

	closeOnce sync.Once
	closed    chan struct{}
}

func newDeepgramSTT(apiKey, model, language string, log *slog.Logger) *deepgramSTT {
	if model == "" {
		model = "nova-2-phonecall"
	}
	if language == "" {
		language = "en"
	}
	return &deepgramSTT{
		apiKey:   apiKey,
		model:    model,
		language: language,
		log:      log,
		results:  make(chan TranscriptResult, 16),
		closed:   make(chan struct{}),
	}
}

func (d *deepgramSTT) Start(ctx context.Context) error {
	q := url.Values{}
	q.Set("model", d.model)
	q.Set("language", d.language)
	q.Set("encoding", "mulaw")
	q.Set("sample_rate", "8000")
	q.Set("channels", "1")
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	q.Set("interim_results", "true")
	// Deepgram flags speech_final when the speaker pauses; that is our
	// utterance boundary.
	q.Set("endpointing", "300")

	header := http.Header{}
	header.Set("Authorization", "Token "+d.apiKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, deepgramListenURL+"?"+q.Encode(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("deepgram dial: status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("deepgram dial: %w", err)
	}
	d.conn = conn

	go d.readLoop()
	return nil
}

func (d *deepgramSTT) SendAudio(ctx context.Context, payload []byte) error {
	if d.conn == nil {
		return fmt.Errorf("deepgram: not started")
	}
	select {
	case <-d.closed:
		return nil
	default:
	}
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if err := d.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return fmt.Errorf("deepgram write: %w", err)
	}
	return nil
}

func (d *deepgramSTT) Results() <-chan TranscriptResult { return d.results }

func (d *deepgramSTT) Close() error {
	d.closeOnce.Do(func() {
		close(d.closed)
		if d.conn != nil {
			d.writeMu.Lock()
			// Best-effort flush request; Deepgram finalizes pending audio.
			_ = d.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
			d.writeMu.Unlock()
			_ = d.conn.Close()
		}
	})
	return nil
}

// deepgramMessage is the subset of the live API response we consume.
type deepgramMessage struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (d *deepgramSTT) readLoop() {
	defer close(d.results)

	// Finalized segments accumulate until speech_final closes the utterance.
	var segments []string

	for {
		_, data, err := d.conn.ReadMessage()
		if err != nil {
			select {
			case <-d.closed:
				// Expected teardown.
			default:
				d.emit(TranscriptResult{Err: fmt.Errorf("deepgram read: %w", err)})
			}
			return
		}

		var msg deepgramMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			d.log.Debug("deepgram: skipping unparsable frame", "err", err)
			continue
		}
		if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
			continue
		}

		text := strings.TrimSpace(msg.Channel.Alternatives[0].Transcript)
		switch {
		case msg.IsFinal && msg.SpeechFinal:
			if text != "" {
				segments = append(segments, text)
			}
			utterance := strings.TrimSpace(strings.Join(segments, " "))
			segments = segments[:0]
			if utterance != "" {
				d.emit(TranscriptResult{Text: utterance, Final: true})
			}
		case msg.IsFinal:
			if text != "" {
				segments = append(segments, text)
			}
		default:
			if text != "" {
				d.emit(TranscriptResult{Text: text, Final: false})
			}
		}
	}
}

func (d *deepgramSTT) emit(r TranscriptResult) {
	select {
	case d.results <- r:
	case <-d.closed:
	}
}
