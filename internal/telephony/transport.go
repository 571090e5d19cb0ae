package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/gorilla/websocket"
)

// wsTransport adapts one Twilio media-stream websocket to the pipeline's
// audio boundary. ReadAudio returns frames in carrier-delivery order and
// io.EOF once Twilio signals stop.
type wsTransport struct {
	conn      *websocket.Conn
	streamSID string

	writeMu sync.Mutex
}

func newWSTransport(conn *websocket.Conn, streamSID string) *wsTransport {
	return &wsTransport{conn: conn, streamSID: streamSID}
}

func (t *wsTransport) ReadAudio(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}

		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Event {
		case "media":
			if msg.Media == nil {
				continue
			}
			audio, err := decodeMediaPayload(msg.Media.Payload)
			if err != nil {
				return nil, fmt.Errorf("telephony: media payload: %w", err)
			}
			return audio, nil
		case "stop":
			return nil, io.EOF
		default:
			// connected, mark, dtmf: not audio.
		}
	}
}

func (t *wsTransport) WriteAudio(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteJSON(newOutboundMedia(t.streamSID, payload)); err != nil {
		return fmt.Errorf("telephony: write media: %w", err)
	}
	return nil
}

// Clear drops any outbound audio Twilio has buffered but not yet played.
func (t *wsTransport) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(newClearMessage(t.streamSID))
}
