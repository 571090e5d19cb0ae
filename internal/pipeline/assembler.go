package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"hotelvoice/internal/assistants"
	"hotelvoice/internal/knowledge"
	"hotelvoice/internal/providers"
	"hotelvoice/internal/tools"
	"hotelvoice/pkg/logger"
)

// Assembler builds one Pipeline per call from a tenant's assistant
// configuration. Provider resolution is individually guarded: a missing
// provider surfaces as providers.MissingProviderError naming the stage,
// so the telephony bridge can speak a fallback instead of hanging up
// silently.
type Assembler struct {
	registry   *providers.Registry
	dispatcher *tools.Dispatcher
	injector   *knowledge.Injector
	control    ControlClient
	log        *slog.Logger
}

func NewAssembler(
	registry *providers.Registry,
	dispatcher *tools.Dispatcher,
	injector *knowledge.Injector,
	control ControlClient,
	log *slog.Logger,
) *Assembler {
	return &Assembler{
		registry:   registry,
		dispatcher: dispatcher,
		injector:   injector,
		control:    control,
		log:        log,
	}
}

// Assemble resolves providers, builds the assistant's functions, loads
// the hotel's knowledge context, and wires the carrier transport. The
// returned Pipeline exclusively owns every handle it holds.
func (a *Assembler) Assemble(
	ctx context.Context,
	asst assistants.Assistant,
	streamSID, callSID string,
	transport Transport,
) (*Pipeline, error) {
	stt, err := a.registry.ResolveSTT(asst.STTProvider, asst.STTModel, asst.Language)
	if err != nil {
		return nil, err
	}
	llm, err := a.registry.ResolveLLM(asst.LLMProvider, asst.LLMModel)
	if err != nil {
		stt.Close()
		return nil, err
	}
	tts, err := a.registry.ResolveTTS(asst.TTSProvider, asst.TTSVoice, "")
	if err != nil {
		stt.Close()
		return nil, err
	}

	fns, err := a.dispatcher.BuildFunctions(ctx, asst.ID, asst.HotelID)
	if err != nil {
		stt.Close()
		tts.Close()
		return nil, fmt.Errorf("pipeline: build functions: %w", err)
	}

	// Knowledge is loaded once per call; mid-call updates take effect on
	// the next call.
	entries, err := a.injector.Load(ctx, asst.HotelID)
	if err != nil {
		stt.Close()
		tts.Close()
		return nil, fmt.Errorf("pipeline: load knowledge: %w", err)
	}
	fns = append(fns, knowledgeFunction(entries))

	p := &Pipeline{
		stt:         stt,
		llm:         llm,
		tts:         tts,
		transport:   transport,
		control:     a.control,
		streamSID:   streamSID,
		callSID:     callSID,
		greeting:    asst.Greeting,
		temperature: asst.Temperature,
		maxTokens:   asst.MaxTokens,
		functions:   make(map[string]tools.Function, len(fns)),
		log:         logger.Call(a.log, streamSID, callSID, asst.HotelID),
		ended:       make(chan struct{}),
	}
	for _, fn := range fns {
		// First registration wins; a duplicate name must not silently
		// swap one handler for another.
		if _, exists := p.functions[fn.Schema.Name]; exists {
			p.log.Warn("duplicate function name, keeping first",
				"function", fn.Schema.Name, "assistant_id", asst.ID)
			continue
		}
		p.functions[fn.Schema.Name] = fn
		p.schemas = append(p.schemas, fn.Schema)
	}

	system := asst.SystemPrompt
	if kb := knowledge.FormatContext(entries); kb != "" {
		system += "\n\nHotel knowledge base:\n" + kb
	}
	p.messages = []providers.Message{{Role: "system", Content: system}}

	return p, nil
}

// SetToolObserver installs a callback fired after each tool execution,
// used for audit trails.
func (p *Pipeline) SetToolObserver(fn func(name string, fatal error)) {
	p.onToolInvoked = fn
}

// SetRedirectObserver installs a callback fired after each successful
// call-control handoff.
func (p *Pipeline) SetRedirectObserver(fn func(phoneNumber string)) {
	p.onRedirect = fn
}

const knowledgeFunctionName = "query_hotel_knowledge"

// knowledgeFunction exposes targeted knowledge lookup to the reasoning
// stage, scoped to the entries already loaded for this hotel's call.
func knowledgeFunction(entries []knowledge.Entry) tools.Function {
	return tools.Function{
		Schema: providers.FunctionSchema{
			Name:        knowledgeFunctionName,
			Description: "Search the hotel's knowledge base for details about amenities, policies, hours, and services.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"question": {"type": "string", "description": "What the guest wants to know"}
				},
				"required": ["question"]
			}`),
		},
		Handle: func(_ context.Context, args json.RawMessage, _ tools.CallControls) (string, error) {
			var in struct {
				Question string `json:"question"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return `{"error":"invalid arguments"}`, nil
			}
			hits := knowledge.Search(entries, in.Question, 3)
			if len(hits) == 0 {
				return `{"answer":"No matching knowledge entries found."}`, nil
			}
			out, _ := json.Marshal(map[string]string{"answer": knowledge.FormatContext(hits)})
			return string(out), nil
		},
	}
}
