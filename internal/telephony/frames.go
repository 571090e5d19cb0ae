package telephony

import "encoding/base64"

// Twilio Media Streams wire messages. Twilio sends JSON text frames over
// the websocket: a "connected" preamble, one "start" event carrying call
// metadata, then "media" events with base64 mu-law payloads until "stop".

type streamMessage struct {
	Event          string      `json:"event"`
	SequenceNumber string      `json:"sequenceNumber,omitempty"`
	StreamSID      string      `json:"streamSid,omitempty"`
	Start          *startEvent `json:"start,omitempty"`
	Media          *mediaEvent `json:"media,omitempty"`
	Stop           *stopEvent  `json:"stop,omitempty"`
}

type startEvent struct {
	StreamSID        string            `json:"streamSid"`
	AccountSID       string            `json:"accountSid"`
	CallSID          string            `json:"callSid"`
	Tracks           []string          `json:"tracks"`
	CustomParameters map[string]string `json:"customParameters"`
	MediaFormat      struct {
		Encoding   string `json:"encoding"`
		SampleRate int    `json:"sampleRate"`
		Channels   int    `json:"channels"`
	} `json:"mediaFormat"`
}

type mediaEvent struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

type stopEvent struct {
	AccountSID string `json:"accountSid"`
	CallSID    string `json:"callSid"`
}

// outboundMedia is the message shape for audio sent back to the caller.
type outboundMedia struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
	Media     struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

func newOutboundMedia(streamSID string, audio []byte) outboundMedia {
	m := outboundMedia{Event: "media", StreamSID: streamSID}
	m.Media.Payload = base64.StdEncoding.EncodeToString(audio)
	return m
}

// clearMessage tells Twilio to drop buffered outbound audio, used when a
// response must stop playing immediately.
type clearMessage struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
}

func newClearMessage(streamSID string) clearMessage {
	return clearMessage{Event: "clear", StreamSID: streamSID}
}

func decodeMediaPayload(payload string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(payload)
}
