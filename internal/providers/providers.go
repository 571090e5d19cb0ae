// Package providers resolves a tenant's configured speech-recognition,
// reasoning and speech-synthesis providers into per-call capability
// handles. Resolution is lazy and individually guarded: a provider whose
// API key is absent yields a typed MissingProviderError instead of an
// opaque construction failure, so the telephony bridge can degrade
// gracefully.
package providers

import (
	"context"
	"encoding/json"
)

// Stage identifies a voice pipeline stage.
type Stage string

const (
	StageSTT Stage = "stt"
	StageLLM Stage = "llm"
	StageTTS Stage = "tts"
)

// TranscriptResult is one speech-recognition result for a call.
// Interim results carry Final=false and may be superseded.
type TranscriptResult struct {
	Text  string
	Final bool
	Err   error
}

// Transcriber is a streaming speech-recognition session. One Transcriber
// serves exactly one call; implementations are not safe for sharing
// across calls.
type Transcriber interface {
	// Start opens the provider connection and begins emitting results.
	Start(ctx context.Context) error

	// SendAudio forwards one carrier audio payload (8kHz mu-law) in
	// delivery order.
	SendAudio(ctx context.Context, payload []byte) error

	// Results is closed after Close (or a fatal provider error, which is
	// delivered as a TranscriptResult with Err set).
	Results() <-chan TranscriptResult

	Close() error
}

// FunctionSchema describes one callable reasoning-stage function.
type FunctionSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall is a reasoning-stage request to invoke a function.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Message is one conversation turn in provider-agnostic form.
// Role is one of: system, user, assistant, tool.
type Message struct {
	Role    string
	Content string

	// ToolCalls is set on assistant messages requesting function execution.
	ToolCalls []ToolCall

	// ToolCallID and Name are set on tool-result messages.
	ToolCallID string
	Name       string
}

// ChatRequest is a single reasoning turn.
type ChatRequest struct {
	Messages    []Message
	Functions   []FunctionSchema
	Temperature float64
	MaxTokens   int
}

// ChatResponse carries either spoken content, function invocations, or both.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatModel is a reasoning-stage handle. Implementations are stateless
// between calls to Complete; conversation history travels in the request.
type ChatModel interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// Synthesizer converts response text to carrier-ready audio.
type Synthesizer interface {
	// Synthesize returns 8kHz mu-law audio for the given text.
	Synthesize(ctx context.Context, text string) ([]byte, error)

	Close() error
}
