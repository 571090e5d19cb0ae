package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"hotelvoice/internal/assistants"
	"hotelvoice/internal/config"
	"hotelvoice/internal/knowledge"
	"hotelvoice/internal/providers"
	"hotelvoice/internal/tools"
)

func testAssistant() assistants.Assistant {
	return assistants.Assistant{
		ID:           "a1",
		HotelID:      "h1",
		Name:         "Concierge",
		STTProvider:  "deepgram",
		LLMProvider:  "openai",
		TTSProvider:  "cartesia",
		LLMModel:     "gpt-4o-mini",
		TTSVoice:     "voice-1",
		SystemPrompt: "You are the hotel concierge.",
		Greeting:     "Welcome!",
		Language:     "en",
		IsActive:     true,
	}
}

func testAssembler(keys config.ProviderKeys, kb *knowledge.MemoryRepo, toolRepo *tools.MemoryRepo) *Assembler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if kb == nil {
		kb = knowledge.NewMemoryRepo()
	}
	if toolRepo == nil {
		toolRepo = tools.NewMemoryRepo()
	}
	return NewAssembler(
		providers.NewRegistry(keys, log),
		tools.NewDispatcher(toolRepo, log),
		knowledge.NewInjector(kb),
		&fakeControl{},
		log,
	)
}

func TestAssembleMissingProviderNamesStage(t *testing.T) {
	// No Deepgram key: assembly must fail naming the stt stage.
	a := testAssembler(config.ProviderKeys{OpenAI: "sk", Cartesia: "ck"}, nil, nil)

	_, err := a.Assemble(context.Background(), testAssistant(), "MZ1", "CA1", newFakeTransport())
	var mpe *providers.MissingProviderError
	if !errors.As(err, &mpe) {
		t.Fatalf("expected MissingProviderError, got %v", err)
	}
	if mpe.Stage != providers.StageSTT || mpe.Provider != "deepgram" {
		t.Fatalf("error fields = %+v", mpe)
	}
}

func TestAssembleBuildsKnowledgeContext(t *testing.T) {
	kb := knowledge.NewMemoryRepo()
	kb.Put(knowledge.Entry{
		ID: "k1", HotelID: "h1", Category: "amenities",
		Question: "Is there a pool?", Answer: "Yes, on the roof.",
		CreatedAt: time.Now(),
	})

	a := testAssembler(config.ProviderKeys{Deepgram: "dg", OpenAI: "sk", Cartesia: "ck"}, kb, nil)
	p, err := a.Assemble(context.Background(), testAssistant(), "MZ1", "CA1", newFakeTransport())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	defer p.Shutdown()

	if len(p.messages) != 1 || p.messages[0].Role != "system" {
		t.Fatalf("messages = %+v", p.messages)
	}
	system := p.messages[0].Content
	if system == "You are the hotel concierge." {
		t.Fatal("knowledge context missing from system prompt")
	}

	fn, ok := p.functions[knowledgeFunctionName]
	if !ok {
		t.Fatalf("%s not registered", knowledgeFunctionName)
	}
	result, err := fn.Handle(context.Background(), json.RawMessage(`{"question":"do you have a pool"}`), p)
	if err != nil {
		t.Fatalf("knowledge lookup: %v", err)
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal([]byte(result), &out); err != nil {
		t.Fatalf("result %q: %v", result, err)
	}
	if out.Answer == "" {
		t.Fatal("empty answer for matching question")
	}
}

func TestAssembleIncludesAssistantTools(t *testing.T) {
	toolRepo := tools.NewMemoryRepo()
	toolRepo.Put(tools.Tool{
		ID: "t1", AssistantID: "a1", HotelID: "h1",
		Name: "end_call", Description: "End the call",
		Type: tools.TypeEndCall, IsActive: true,
	})

	a := testAssembler(config.ProviderKeys{Deepgram: "dg", OpenAI: "sk", Cartesia: "ck"}, nil, toolRepo)
	p, err := a.Assemble(context.Background(), testAssistant(), "MZ1", "CA1", newFakeTransport())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	defer p.Shutdown()

	if _, ok := p.functions["end_call"]; !ok {
		t.Fatal("end_call not registered")
	}
	// Configured tools plus the built-in knowledge lookup.
	if len(p.schemas) != 2 {
		t.Fatalf("schemas = %d, want 2", len(p.schemas))
	}
}

func TestAssembleSkipsDuplicateFunctionNames(t *testing.T) {
	toolRepo := tools.NewMemoryRepo()
	// A tenant tool shadowing the built-in knowledge lookup name, and
	// two tools sharing a name: the first registration must win.
	toolRepo.Put(tools.Tool{
		ID: "t1", AssistantID: "a1", HotelID: "h1",
		Name: knowledgeFunctionName, Description: "Look things up",
		Type:      tools.TypeAPIRequest,
		RawConfig: json.RawMessage(`{"url":"https://kb.example.com","method":"GET"}`),
		IsActive:  true,
		CreatedAt: time.Now(),
	})
	toolRepo.Put(tools.Tool{
		ID: "t2", AssistantID: "a1", HotelID: "h1",
		Name: "transfer", Description: "Transfer to the front desk",
		Type:      tools.TypeTransferCall,
		RawConfig: json.RawMessage(`{"phone_number":"+15550123"}`),
		IsActive:  true,
		CreatedAt: time.Now().Add(time.Second),
	})
	toolRepo.Put(tools.Tool{
		ID: "t3", AssistantID: "a1", HotelID: "h1",
		Name: "transfer", Description: "Transfer to maintenance",
		Type:      tools.TypeTransferCall,
		RawConfig: json.RawMessage(`{"phone_number":"+15550999"}`),
		IsActive:  true,
		CreatedAt: time.Now().Add(2 * time.Second),
	})

	a := testAssembler(config.ProviderKeys{Deepgram: "dg", OpenAI: "sk", Cartesia: "ck"}, nil, toolRepo)
	p, err := a.Assemble(context.Background(), testAssistant(), "MZ1", "CA1", newFakeTransport())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	defer p.Shutdown()

	if len(p.schemas) != 2 {
		t.Fatalf("schemas = %d, want 2 after dropping duplicates", len(p.schemas))
	}
	if len(p.functions) != 2 {
		t.Fatalf("functions = %d, want 2", len(p.functions))
	}
	fn := p.functions["transfer"]
	ctl := &recordedTestControls{}
	if _, err := fn.Handle(context.Background(), nil, ctl); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(ctl.redirects) != 1 || ctl.redirects[0] != "+15550123" {
		t.Fatalf("redirects = %v, want the first-registered target", ctl.redirects)
	}
}

type recordedTestControls struct {
	redirects []string
}

func (r *recordedTestControls) Speak(context.Context, string) error { return nil }
func (r *recordedTestControls) Redirect(_ context.Context, number string) error {
	r.redirects = append(r.redirects, number)
	return nil
}
func (r *recordedTestControls) End(context.Context, string) error { return nil }
