package providers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hotelvoice/internal/config"
)

// Registry constructs per-call provider handles from tenant configuration.
//
// Every handle returned is exclusively owned by one call session; the
// registry itself holds no mutable per-call state and is safe for
// concurrent use.
type Registry struct {
	keys config.ProviderKeys
	http *http.Client
	log  *slog.Logger
}

func NewRegistry(keys config.ProviderKeys, log *slog.Logger) *Registry {
	return &Registry{
		keys: keys,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log,
	}
}

// ResolveSTT returns a fresh streaming recognizer for one call.
func (r *Registry) ResolveSTT(provider, model, language string) (Transcriber, error) {
	switch strings.ToLower(provider) {
	case "deepgram":
		if r.keys.Deepgram == "" {
			return nil, missing(StageSTT, provider, "DEEPGRAM_API_KEY not configured")
		}
		return newDeepgramSTT(r.keys.Deepgram, model, language, r.log), nil
	default:
		return nil, missing(StageSTT, provider, "unsupported provider")
	}
}

// ResolveLLM returns a reasoning handle for one call.
func (r *Registry) ResolveLLM(provider, model string) (ChatModel, error) {
	switch strings.ToLower(provider) {
	case "openai":
		if r.keys.OpenAI == "" {
			return nil, missing(StageLLM, provider, "OPENAI_API_KEY not configured")
		}
		return newOpenAIChat(r.keys.OpenAI, model, r.http), nil
	case "google", "google_gemini":
		if r.keys.Google == "" {
			return nil, missing(StageLLM, provider, "GOOGLE_API_KEY not configured")
		}
		return newGeminiChat(r.keys.Google, model, r.http), nil
	case "anthropic":
		return nil, missing(StageLLM, provider, "not yet supported")
	default:
		return nil, missing(StageLLM, provider, "unsupported provider")
	}
}

// ResolveTTS returns a synthesis handle for one call.
func (r *Registry) ResolveTTS(provider, voice, model string) (Synthesizer, error) {
	switch strings.ToLower(provider) {
	case "cartesia":
		if r.keys.Cartesia == "" {
			return nil, missing(StageTTS, provider, "CARTESIA_API_KEY not configured")
		}
		return newCartesiaTTS(r.keys.Cartesia, voice, model, r.http), nil
	case "elevenlabs":
		if r.keys.ElevenLabs == "" {
			return nil, missing(StageTTS, provider, "ELEVENLABS_API_KEY not configured")
		}
		return newElevenLabsTTS(r.keys.ElevenLabs, voice, model, r.http), nil
	default:
		return nil, missing(StageTTS, provider, "unsupported provider")
	}
}
