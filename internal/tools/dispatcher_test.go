package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type recordedControls struct {
	events    []string
	redirects []string
	speakErr  error
}

func (r *recordedControls) Speak(_ context.Context, text string) error {
	if r.speakErr != nil {
		return r.speakErr
	}
	r.events = append(r.events, "speak:"+text)
	return nil
}

func (r *recordedControls) Redirect(_ context.Context, number string) error {
	r.events = append(r.events, "redirect:"+number)
	r.redirects = append(r.redirects, number)
	return nil
}

func (r *recordedControls) End(_ context.Context, reason string) error {
	r.events = append(r.events, "end:"+reason)
	return nil
}

func testDispatcher(repo Repository) *Dispatcher {
	return NewDispatcher(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTransferCallOrder(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Put(Tool{
		ID:          "t1",
		AssistantID: "a1",
		HotelID:     "h1",
		Name:        "transfer_to_front_desk",
		Description: "Transfer the caller to the front desk",
		Type:        TypeTransferCall,
		RawConfig:   json.RawMessage(`{"phone_number":"+15550123","pre_transfer_message":"One moment please."}`),
		IsActive:    true,
		CreatedAt:   time.Now(),
	})

	fns, err := testDispatcher(repo).BuildFunctions(context.Background(), "a1", "h1")
	if err != nil {
		t.Fatalf("BuildFunctions: %v", err)
	}
	if len(fns) != 1 {
		t.Fatalf("got %d functions, want 1", len(fns))
	}

	ctl := &recordedControls{}
	result, err := fns[0].Handle(context.Background(), nil, ctl)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(result, "transferred") {
		t.Fatalf("result = %q, want transfer status", result)
	}

	want := []string{
		"speak:One moment please.",
		"redirect:+15550123",
		"end:transferred",
	}
	if len(ctl.events) != len(want) {
		t.Fatalf("events = %v, want %v", ctl.events, want)
	}
	for i := range want {
		if ctl.events[i] != want[i] {
			t.Fatalf("event[%d] = %q, want %q", i, ctl.events[i], want[i])
		}
	}
	if len(ctl.redirects) != 1 {
		t.Fatalf("got %d redirects, want exactly 1", len(ctl.redirects))
	}
}

func TestTransferProceedsWhenSynthesisUnavailable(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Put(Tool{
		ID: "t1", AssistantID: "a1", HotelID: "h1",
		Name: "transfer_to_front_desk", Description: "d",
		Type:      TypeTransferCall,
		RawConfig: json.RawMessage(`{"phone_number":"+15550123","pre_transfer_message":"One moment please."}`),
		IsActive:  true,
	})

	fns, err := testDispatcher(repo).BuildFunctions(context.Background(), "a1", "h1")
	if err != nil {
		t.Fatalf("BuildFunctions: %v", err)
	}

	ctl := &recordedControls{speakErr: fmt.Errorf("pipeline: %w: provider 500", ErrSpeakUnavailable)}
	result, err := fns[0].Handle(context.Background(), nil, ctl)
	if err != nil {
		t.Fatalf("synthesis failure must not be fatal to the transfer, got err: %v", err)
	}
	if !strings.Contains(result, "transferred") {
		t.Fatalf("result = %q, want transfer status", result)
	}
	if len(ctl.redirects) != 1 || ctl.redirects[0] != "+15550123" {
		t.Fatalf("redirects = %v, want exactly one to +15550123", ctl.redirects)
	}
	want := []string{"redirect:+15550123", "end:transferred"}
	for i := range want {
		if ctl.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", ctl.events, want)
		}
	}
}

func TestTransferFatalOnCarrierFailure(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Put(Tool{
		ID: "t1", AssistantID: "a1", HotelID: "h1",
		Name: "transfer_to_front_desk", Description: "d",
		Type:      TypeTransferCall,
		RawConfig: json.RawMessage(`{"phone_number":"+15550123"}`),
		IsActive:  true,
	})

	fns, err := testDispatcher(repo).BuildFunctions(context.Background(), "a1", "h1")
	if err != nil {
		t.Fatalf("BuildFunctions: %v", err)
	}

	// A plain error means the carrier leg itself failed.
	ctl := &recordedControls{speakErr: fmt.Errorf("pipeline: write audio: broken pipe")}
	if _, err := fns[0].Handle(context.Background(), nil, ctl); err == nil {
		t.Fatal("expected carrier write failure to be fatal")
	}
	if len(ctl.redirects) != 0 {
		t.Fatalf("must not redirect on a dead carrier leg, got %v", ctl.redirects)
	}
}

func TestEndCallEndsWhenSynthesisUnavailable(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Put(Tool{
		ID: "t2", AssistantID: "a1", HotelID: "h1",
		Name: "end_call", Description: "d",
		Type:     TypeEndCall,
		IsActive: true,
	})

	fns, err := testDispatcher(repo).BuildFunctions(context.Background(), "a1", "h1")
	if err != nil {
		t.Fatalf("BuildFunctions: %v", err)
	}

	ctl := &recordedControls{speakErr: fmt.Errorf("%w: timeout", ErrSpeakUnavailable)}
	if _, err := fns[0].Handle(context.Background(), nil, ctl); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(ctl.events) != 1 || !strings.HasPrefix(ctl.events[0], "end:") {
		t.Fatalf("events = %v, want just end", ctl.events)
	}
}

func TestEndCallSpeaksGoodbye(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Put(Tool{
		ID: "t2", AssistantID: "a1", HotelID: "h1",
		Name: "end_call", Description: "End the call",
		Type:      TypeEndCall,
		RawConfig: json.RawMessage(`{}`),
		IsActive:  true,
	})

	fns, err := testDispatcher(repo).BuildFunctions(context.Background(), "a1", "h1")
	if err != nil {
		t.Fatalf("BuildFunctions: %v", err)
	}

	ctl := &recordedControls{}
	if _, err := fns[0].Handle(context.Background(), nil, ctl); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(ctl.events) != 2 || !strings.HasPrefix(ctl.events[0], "speak:") || !strings.HasPrefix(ctl.events[1], "end:") {
		t.Fatalf("events = %v, want speak then end", ctl.events)
	}
}

func TestAPIRequestSubstitutesArguments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooms/42" {
			t.Errorf("path = %q, want /rooms/42", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("X-Api-Key = %q, want secret", got)
		}
		w.Write([]byte(`{"available":true}`))
	}))
	defer srv.Close()

	repo := NewMemoryRepo()
	repo.Put(Tool{
		ID: "t3", AssistantID: "a1", HotelID: "h1",
		Name: "check_room", Description: "Check room availability",
		Type: TypeAPIRequest,
		RawConfig: json.RawMessage(`{
			"url": "` + srv.URL + `/rooms/{room_number}",
			"method": "GET",
			"headers": {"X-Api-Key": "secret"},
			"parameters": {"room_number": {"type": "string", "required": true}}
		}`),
		IsActive: true,
	})

	fns, err := testDispatcher(repo).BuildFunctions(context.Background(), "a1", "h1")
	if err != nil {
		t.Fatalf("BuildFunctions: %v", err)
	}

	var schema map[string]any
	if err := json.Unmarshal(fns[0].Schema.Parameters, &schema); err != nil {
		t.Fatalf("schema parameters: %v", err)
	}
	required, _ := schema["required"].([]any)
	if len(required) != 1 || required[0] != "room_number" {
		t.Fatalf("required = %v, want [room_number]", required)
	}

	result, err := fns[0].Handle(context.Background(), json.RawMessage(`{"room_number":"42"}`), &recordedControls{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result != `{"available":true}` {
		t.Fatalf("result = %q", result)
	}
}

func TestAPIRequestErrorBecomesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	repo := NewMemoryRepo()
	repo.Put(Tool{
		ID: "t4", AssistantID: "a1", HotelID: "h1",
		Name: "flaky", Description: "Flaky upstream",
		Type:      TypeAPIRequest,
		RawConfig: json.RawMessage(`{"url":"` + srv.URL + `","method":"GET"}`),
		IsActive:  true,
	})

	fns, err := testDispatcher(repo).BuildFunctions(context.Background(), "a1", "h1")
	if err != nil {
		t.Fatalf("BuildFunctions: %v", err)
	}

	result, err := fns[0].Handle(context.Background(), nil, &recordedControls{})
	if err != nil {
		t.Fatalf("upstream failure must not be fatal, got err: %v", err)
	}
	if !strings.Contains(result, "502") {
		t.Fatalf("result = %q, want upstream status mentioned", result)
	}
}

func TestSendSMSIsStubbed(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Put(Tool{
		ID: "t5", AssistantID: "a1", HotelID: "h1",
		Name: "text_guest", Description: "Send an SMS",
		Type:     TypeSendSMS,
		IsActive: true,
	})

	fns, err := testDispatcher(repo).BuildFunctions(context.Background(), "a1", "h1")
	if err != nil {
		t.Fatalf("BuildFunctions: %v", err)
	}
	result, err := fns[0].Handle(context.Background(), nil, &recordedControls{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(result, "not yet supported") {
		t.Fatalf("result = %q", result)
	}
}

func TestBuildFunctionsRefusesForeignTool(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Put(Tool{
		ID: "t6", AssistantID: "a1", HotelID: "other-hotel",
		Name: "transfer", Description: "d",
		Type:      TypeTransferCall,
		RawConfig: json.RawMessage(`{"phone_number":"+15550000"}`),
		IsActive:  true,
	})

	if _, err := testDispatcher(repo).BuildFunctions(context.Background(), "a1", "h1"); err == nil {
		t.Fatal("expected error for tool owned by another hotel")
	}
}

func TestBuildFunctionsSkipsMisconfigured(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Put(Tool{
		ID: "t7", AssistantID: "a1", HotelID: "h1",
		Name: "broken", Description: "d",
		Type:      TypeTransferCall,
		RawConfig: json.RawMessage(`{}`),
		IsActive:  true,
		CreatedAt: time.Now(),
	})
	repo.Put(Tool{
		ID: "t8", AssistantID: "a1", HotelID: "h1",
		Name: "end_call", Description: "d",
		Type:      TypeEndCall,
		IsActive:  true,
		CreatedAt: time.Now().Add(time.Second),
	})

	fns, err := testDispatcher(repo).BuildFunctions(context.Background(), "a1", "h1")
	if err != nil {
		t.Fatalf("BuildFunctions: %v", err)
	}
	if len(fns) != 1 || fns[0].Schema.Name != "end_call" {
		t.Fatalf("expected only the valid tool, got %d functions", len(fns))
	}
}

func TestDecodeAPIRequestRejectsBadMethod(t *testing.T) {
	_, err := DecodeAPIRequest(json.RawMessage(`{"url":"https://x.test","method":"TRACE"}`))
	if err == nil {
		t.Fatal("expected error for unsupported method")
	}
}
