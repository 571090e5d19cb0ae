// Package tools turns stored tool configurations into callable
// reasoning-stage functions. All tenant-scoping data (transfer targets,
// API credentials) is baked into the handler closure at build time; a
// handler never accepts a target tenant from model output.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"hotelvoice/internal/providers"
)

// ErrSpeakUnavailable reports that speech synthesis failed while the
// carrier leg is still up. Handlers treat it as recoverable: the caller
// misses a courtesy message, not the call.
var ErrSpeakUnavailable = errors.New("speech synthesis unavailable")

// CallControls is what tool handlers may do to the live call. The
// pipeline implements it for its own session; handlers never reach
// another call.
type CallControls interface {
	// Speak synthesizes text to the caller ahead of any pending turn.
	// When only synthesis failed and the carrier leg is intact, the
	// error wraps ErrSpeakUnavailable.
	Speak(ctx context.Context, text string) error

	// Redirect hands the carrier call off to another phone number.
	Redirect(ctx context.Context, phoneNumber string) error

	// End signals pipeline termination for this session.
	End(ctx context.Context, reason string) error
}

// Function pairs a reasoning-stage schema with its executable handler.
// Handle returns the function result string shown to the model. A non-nil
// error is fatal to the session; recoverable failures (bad HTTP response,
// unreachable API) are reported in the result string instead so the model
// can recover conversationally.
type Function struct {
	Schema providers.FunctionSchema
	Handle func(ctx context.Context, args json.RawMessage, call CallControls) (string, error)
}

// Dispatcher builds per-assistant function sets.
type Dispatcher struct {
	repo Repository
	http *http.Client
	log  *slog.Logger
}

func NewDispatcher(repo Repository, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		repo: repo,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
	}
}

// BuildFunctions converts every active tool of the assistant into a
// Function. Tools whose owning hotel differs from hotelID are refused
// outright: that indicates corrupted configuration, and building a
// handler for it would let one tenant's call act on another's data.
func (d *Dispatcher) BuildFunctions(ctx context.Context, assistantID, hotelID string) ([]Function, error) {
	list, err := d.repo.ListActive(ctx, assistantID)
	if err != nil {
		return nil, fmt.Errorf("tools: list for assistant %s: %w", assistantID, err)
	}

	var out []Function
	for _, t := range list {
		if t.HotelID != hotelID {
			return nil, fmt.Errorf("tools: tool %s belongs to hotel %s, not %s", t.ID, t.HotelID, hotelID)
		}
		fn, err := d.buildOne(t)
		if err != nil {
			// A misconfigured tool disables itself, not the call.
			d.log.Warn("skipping misconfigured tool",
				"tool_id", t.ID, "tool_type", t.Type, "err", err)
			continue
		}
		out = append(out, fn)
	}
	return out, nil
}

func (d *Dispatcher) buildOne(t Tool) (Function, error) {
	switch t.Type {
	case TypeTransferCall:
		cfg, err := DecodeTransferCall(t.RawConfig)
		if err != nil {
			return Function{}, err
		}
		return Function{
			Schema: emptySchema(t.Name, t.Description),
			Handle: func(ctx context.Context, _ json.RawMessage, call CallControls) (string, error) {
				if err := call.Speak(ctx, cfg.PreTransferMessage); err != nil {
					if !errors.Is(err, ErrSpeakUnavailable) {
						return "", err
					}
					// Carrier leg is up; transfer without the courtesy message.
					d.log.Warn("pre-transfer message skipped", "err", err)
				}
				if err := call.Redirect(ctx, cfg.PhoneNumber); err != nil {
					return "", err
				}
				if err := call.End(ctx, "transferred"); err != nil {
					return "", err
				}
				return fmt.Sprintf(`{"status":"transferred","to":%q}`, cfg.PhoneNumber), nil
			},
		}, nil

	case TypeEndCall:
		cfg, err := DecodeEndCall(t.RawConfig)
		if err != nil {
			return Function{}, err
		}
		return Function{
			Schema: emptySchema(t.Name, t.Description),
			Handle: func(ctx context.Context, _ json.RawMessage, call CallControls) (string, error) {
				if err := call.Speak(ctx, cfg.GoodbyeMessage); err != nil {
					if !errors.Is(err, ErrSpeakUnavailable) {
						return "", err
					}
					d.log.Warn("goodbye message skipped", "err", err)
				}
				if err := call.End(ctx, "ended by assistant"); err != nil {
					return "", err
				}
				return `{"status":"call_ended"}`, nil
			},
		}, nil

	case TypeAPIRequest:
		cfg, err := DecodeAPIRequest(t.RawConfig)
		if err != nil {
			return Function{}, err
		}
		return Function{
			Schema: providers.FunctionSchema{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  paramSchema(cfg.Parameters),
			},
			Handle: func(ctx context.Context, args json.RawMessage, _ CallControls) (string, error) {
				return d.runAPIRequest(ctx, cfg, args), nil
			},
		}, nil

	case TypeSendSMS, TypeSendEmail:
		kind := string(t.Type)
		return Function{
			Schema: emptySchema(t.Name, t.Description),
			Handle: func(context.Context, json.RawMessage, CallControls) (string, error) {
				return fmt.Sprintf(`{"error":"%s is not yet supported"}`, kind), nil
			},
		}, nil

	default:
		return Function{}, fmt.Errorf("tools: unknown tool type %q", t.Type)
	}
}

// runAPIRequest performs the configured HTTP call. Failures come back as
// a result string: the model should hear about the failed lookup, not
// lose the call over it.
func (d *Dispatcher) runAPIRequest(ctx context.Context, cfg APIRequestConfig, args json.RawMessage) string {
	values := map[string]string{}
	if len(args) > 0 {
		var raw map[string]any
		if err := json.Unmarshal(args, &raw); err != nil {
			return fmt.Sprintf(`{"error":"invalid arguments: %s"}`, err)
		}
		for k, v := range raw {
			values[k] = fmt.Sprint(v)
		}
	}

	endpoint := fillTemplate(cfg.URL, values)

	var body io.Reader
	if len(cfg.Body) > 0 && cfg.Method != http.MethodGet {
		body = bytes.NewReader([]byte(fillTemplate(string(cfg.Body), values)))
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, endpoint, body)
	if err != nil {
		return fmt.Sprintf(`{"error":%q,"status":"failed"}`, err.Error())
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, fillTemplate(v, values))
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Sprintf(`{"error":%q,"status":"failed"}`, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Sprintf(`{"error":%q,"status":"failed"}`, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Sprintf(`{"error":"upstream returned %d","status":"failed"}`, resp.StatusCode)
	}
	return string(data)
}

// fillTemplate substitutes {name} placeholders with argument values.
func fillTemplate(s string, values map[string]string) string {
	for k, v := range values {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func emptySchema(name, description string) providers.FunctionSchema {
	return providers.FunctionSchema{
		Name:        name,
		Description: description,
		Parameters:  json.RawMessage(`{"type":"object","properties":{},"required":[]}`),
	}
}

func paramSchema(params map[string]ParamSpec) json.RawMessage {
	props := map[string]map[string]string{}
	required := []string{}
	for name, spec := range params {
		typ := spec.Type
		if typ == "" {
			typ = "string"
		}
		p := map[string]string{"type": typ}
		if spec.Description != "" {
			p["description"] = spec.Description
		}
		props[name] = p
		if spec.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	out, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	})
	return out
}
