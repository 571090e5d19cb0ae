package providers

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"hotelvoice/internal/config"
)

func testRegistry(keys config.ProviderKeys) *Registry {
	return NewRegistry(keys, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolveSTTMissingKey(t *testing.T) {
	r := testRegistry(config.ProviderKeys{})

	_, err := r.ResolveSTT("deepgram", "nova-2", "en")
	var mpe *MissingProviderError
	if !errors.As(err, &mpe) {
		t.Fatalf("expected MissingProviderError, got %v", err)
	}
	if mpe.Stage != StageSTT || mpe.Provider != "deepgram" {
		t.Fatalf("unexpected error fields: %+v", mpe)
	}
}

func TestResolveSTTUnsupported(t *testing.T) {
	r := testRegistry(config.ProviderKeys{Deepgram: "dg-key"})

	_, err := r.ResolveSTT("whisper-local", "", "en")
	var mpe *MissingProviderError
	if !errors.As(err, &mpe) {
		t.Fatalf("expected MissingProviderError, got %v", err)
	}
	if mpe.Provider != "whisper-local" {
		t.Fatalf("error should name the requested provider, got %q", mpe.Provider)
	}
}

func TestResolveSTTSuccess(t *testing.T) {
	r := testRegistry(config.ProviderKeys{Deepgram: "dg-key"})

	tr, err := r.ResolveSTT("Deepgram", "nova-2-phonecall", "en")
	if err != nil {
		t.Fatalf("ResolveSTT: %v", err)
	}
	if tr == nil {
		t.Fatal("expected a transcriber")
	}
}

func TestResolveLLM(t *testing.T) {
	r := testRegistry(config.ProviderKeys{OpenAI: "sk-test", Google: "g-key"})

	if _, err := r.ResolveLLM("openai", "gpt-4o-mini"); err != nil {
		t.Fatalf("openai: %v", err)
	}
	if _, err := r.ResolveLLM("google_gemini", ""); err != nil {
		t.Fatalf("gemini: %v", err)
	}

	_, err := r.ResolveLLM("anthropic", "")
	var mpe *MissingProviderError
	if !errors.As(err, &mpe) {
		t.Fatalf("expected MissingProviderError for anthropic, got %v", err)
	}
	if mpe.Stage != StageLLM {
		t.Fatalf("stage = %q, want %q", mpe.Stage, StageLLM)
	}
}

func TestResolveTTS(t *testing.T) {
	r := testRegistry(config.ProviderKeys{Cartesia: "c-key"})

	if _, err := r.ResolveTTS("cartesia", "voice-1", ""); err != nil {
		t.Fatalf("cartesia: %v", err)
	}

	_, err := r.ResolveTTS("elevenlabs", "voice-1", "")
	var mpe *MissingProviderError
	if !errors.As(err, &mpe) {
		t.Fatalf("expected MissingProviderError, got %v", err)
	}
	if mpe.Provider != "elevenlabs" || mpe.Stage != StageTTS {
		t.Fatalf("unexpected error fields: %+v", mpe)
	}
}
