// Package pipeline assembles and drives the per-call processing chain:
// carrier audio in, speech recognition, reasoning with tools, speech
// synthesis, carrier audio out. One Pipeline exclusively owns its
// provider handles; nothing here is shared across calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"hotelvoice/internal/providers"
	"hotelvoice/internal/tools"
)

// Transport is the carrier media boundary for one call. ReadAudio
// returns io.EOF when the carrier signals stream stop.
type Transport interface {
	ReadAudio(ctx context.Context) ([]byte, error)
	WriteAudio(ctx context.Context, payload []byte) error
}

// ControlClient issues out-of-band call-control updates to the carrier,
// addressed by call id rather than the media stream.
type ControlClient interface {
	Redirect(ctx context.Context, callSID, phoneNumber string) error
	Hangup(ctx context.Context, callSID string) error
}

// toolTurnLimit bounds reasoning/tool round-trips within one caller turn
// so a looping model cannot hold the call hostage.
const toolTurnLimit = 5

// Pipeline drives one call from greeting to hangup.
type Pipeline struct {
	stt providers.Transcriber
	llm providers.ChatModel
	tts providers.Synthesizer

	transport Transport
	control   ControlClient

	streamSID string
	callSID   string

	greeting    string
	temperature float64
	maxTokens   int

	functions map[string]tools.Function
	schemas   []providers.FunctionSchema

	// messages is the conversation history, touched only by the run loop
	// and the tool handlers it invokes serially.
	messages []providers.Message

	log *slog.Logger

	ctlMu    sync.Mutex
	cancel   context.CancelFunc
	endOnce  sync.Once
	stopOnce sync.Once
	ended    chan struct{}

	// onToolInvoked, when set, observes each completed tool execution;
	// onRedirect observes successful call-control handoffs.
	onToolInvoked func(name string, fatal error)
	onRedirect    func(phoneNumber string)
}

var _ tools.CallControls = (*Pipeline)(nil)

// Run drives the call until the caller hangs up, a tool ends it, or a
// fatal error occurs. It blocks for the call's lifetime and always
// releases provider handles before returning.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.ctlMu.Lock()
	p.cancel = cancel
	p.ctlMu.Unlock()
	defer p.Shutdown()

	if err := p.stt.Start(ctx); err != nil {
		return fmt.Errorf("pipeline: start recognition: %w", err)
	}

	if p.greeting != "" {
		if err := p.Speak(ctx, p.greeting); err != nil {
			return fmt.Errorf("pipeline: greeting: %w", err)
		}
		p.messages = append(p.messages, providers.Message{Role: "assistant", Content: p.greeting})
	}

	// Pump carrier audio into the recognizer in delivery order.
	pumpErr := make(chan error, 1)
	go func() {
		for {
			payload, err := p.transport.ReadAudio(ctx)
			if err != nil {
				pumpErr <- err
				return
			}
			if err := p.stt.SendAudio(ctx, payload); err != nil {
				pumpErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.ended:
			return nil
		case err := <-pumpErr:
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("pipeline: audio pump: %w", err)
		case result, ok := <-p.stt.Results():
			if !ok {
				return nil
			}
			if result.Err != nil {
				return fmt.Errorf("pipeline: recognition: %w", result.Err)
			}
			if !result.Final || result.Text == "" {
				continue
			}
			if err := p.turn(ctx, result.Text); err != nil {
				return err
			}
		}
	}
}

// turn runs one caller utterance through reasoning, executing requested
// tools serially, and speaks the final response.
func (p *Pipeline) turn(ctx context.Context, userText string) error {
	p.messages = append(p.messages, providers.Message{Role: "user", Content: userText})

	for round := 0; round < toolTurnLimit; round++ {
		resp, err := p.llm.Complete(ctx, providers.ChatRequest{
			Messages:    p.messages,
			Functions:   p.schemas,
			Temperature: p.temperature,
			MaxTokens:   p.maxTokens,
		})
		if err != nil {
			p.log.Error("reasoning failed", "err", err)
			if speakErr := p.Speak(ctx, "I'm sorry, I'm having trouble right now. Could you repeat that?"); speakErr != nil {
				return speakErr
			}
			return nil
		}

		p.messages = append(p.messages, providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			if resp.Content != "" {
				if err := p.Speak(ctx, resp.Content); err != nil {
					return err
				}
			}
			return nil
		}

		// Tool calls execute one at a time in request order.
		for _, tc := range resp.ToolCalls {
			result := p.invokeTool(ctx, tc)
			p.messages = append(p.messages, providers.Message{
				Role:       "tool",
				ToolCallID: tc.ID,
				Name:       tc.Name,
				Content:    result,
			})
			select {
			case <-p.ended:
				// A tool ended the call; skip the follow-up completion.
				return nil
			default:
			}
		}
	}

	p.log.Warn("tool round limit reached", "stream_sid", p.streamSID)
	return nil
}

func (p *Pipeline) invokeTool(ctx context.Context, tc providers.ToolCall) string {
	fn, ok := p.functions[tc.Name]
	if !ok {
		return fmt.Sprintf(`{"error":"unknown function %q"}`, tc.Name)
	}
	result, err := fn.Handle(ctx, tc.Arguments, p)
	if p.onToolInvoked != nil {
		p.onToolInvoked(tc.Name, err)
	}
	if err != nil {
		// Only call-control transport failures reach here; the call
		// cannot continue without its carrier leg.
		p.log.Error("tool call-control failure", "function", tc.Name, "err", err)
		p.signalEnd()
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return result
}

// Speak synthesizes text and writes it to the carrier leg. Synthesis
// failures wrap tools.ErrSpeakUnavailable so handlers can tell a silent
// provider from a dead carrier leg; write failures stay fatal.
func (p *Pipeline) Speak(ctx context.Context, text string) error {
	audio, err := p.tts.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("pipeline: %w: %v", tools.ErrSpeakUnavailable, err)
	}
	if err := p.transport.WriteAudio(ctx, audio); err != nil {
		return fmt.Errorf("pipeline: write audio: %w", err)
	}
	return nil
}

// Redirect hands this call off to another phone number via carrier
// call control.
func (p *Pipeline) Redirect(ctx context.Context, phoneNumber string) error {
	if err := p.control.Redirect(ctx, p.callSID, phoneNumber); err != nil {
		return fmt.Errorf("pipeline: redirect: %w", err)
	}
	if p.onRedirect != nil {
		p.onRedirect(phoneNumber)
	}
	return nil
}

// End signals termination of the bot's side of the session. Idempotent
// with the carrier-stop path; whichever lands first wins.
func (p *Pipeline) End(ctx context.Context, reason string) error {
	p.endOnce.Do(func() {
		p.log.Info("call ended by pipeline", "stream_sid", p.streamSID, "reason", reason)
	})
	p.signalEnd()
	return nil
}

func (p *Pipeline) signalEnd() {
	p.stopOnce.Do(func() { close(p.ended) })
}

// Shutdown releases provider handles and cancels pending operations.
// Safe to call multiple times and concurrently with Run.
func (p *Pipeline) Shutdown() {
	p.signalEnd()
	p.ctlMu.Lock()
	cancel := p.cancel
	p.ctlMu.Unlock()
	if cancel != nil {
		cancel()
	}
	_ = p.stt.Close()
	_ = p.tts.Close()
}
