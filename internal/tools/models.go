package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type discriminates tool configuration payloads.
type Type string

const (
	TypeTransferCall Type = "transfer_call"
	TypeAPIRequest   Type = "api_request"
	TypeEndCall      Type = "end_call"
	TypeSendSMS      Type = "send_sms"
	TypeSendEmail    Type = "send_email"
)

// Tool is one configured capability of an assistant. The description is
// consumed by the reasoning stage to decide when to invoke it; RawConfig
// is the type-specific payload, validated at creation time.
type Tool struct {
	ID          string
	AssistantID string
	HotelID     string
	Name        string
	Description string
	Type        Type
	RawConfig   json.RawMessage
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TransferCallConfig routes the live call to a human.
type TransferCallConfig struct {
	PhoneNumber        string `json:"phone_number"`
	PreTransferMessage string `json:"pre_transfer_message"`
}

// ParamSpec declares one reasoning-supplied parameter of an API request
// in JSON Schema property form.
type ParamSpec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// APIRequestConfig calls an external HTTP endpoint. The URL may contain
// {param} placeholders filled from reasoning-supplied arguments declared
// in Parameters. Credentials live in Headers, fixed at configuration
// time; the model cannot supply them.
type APIRequestConfig struct {
	URL        string               `json:"url"`
	Method     string               `json:"method"`
	Headers    map[string]string    `json:"headers,omitempty"`
	Parameters map[string]ParamSpec `json:"parameters,omitempty"`
	Body       json.RawMessage      `json:"body,omitempty"`
}

// EndCallConfig ends the call after a goodbye line.
type EndCallConfig struct {
	GoodbyeMessage string `json:"goodbye_message"`
}

const (
	defaultPreTransferMessage = "Let me connect you with someone who can help."
	defaultGoodbyeMessage     = "Thank you for calling. Have a great day!"
)

var allowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true, "PATCH": true,
}

// DecodeTransferCall parses and validates a transfer_call payload.
func DecodeTransferCall(raw json.RawMessage) (TransferCallConfig, error) {
	var cfg TransferCallConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("tools: transfer_call config: %w", err)
	}
	if strings.TrimSpace(cfg.PhoneNumber) == "" {
		return cfg, fmt.Errorf("tools: transfer_call config: phone_number is required")
	}
	if cfg.PreTransferMessage == "" {
		cfg.PreTransferMessage = defaultPreTransferMessage
	}
	return cfg, nil
}

// DecodeAPIRequest parses and validates an api_request payload.
func DecodeAPIRequest(raw json.RawMessage) (APIRequestConfig, error) {
	var cfg APIRequestConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("tools: api_request config: %w", err)
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return cfg, fmt.Errorf("tools: api_request config: url is required")
	}
	if cfg.Method == "" {
		cfg.Method = "GET"
	}
	cfg.Method = strings.ToUpper(cfg.Method)
	if !allowedMethods[cfg.Method] {
		return cfg, fmt.Errorf("tools: api_request config: unsupported method %q", cfg.Method)
	}
	return cfg, nil
}

// DecodeEndCall parses an end_call payload.
func DecodeEndCall(raw json.RawMessage) (EndCallConfig, error) {
	var cfg EndCallConfig
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("tools: end_call config: %w", err)
		}
	}
	if cfg.GoodbyeMessage == "" {
		cfg.GoodbyeMessage = defaultGoodbyeMessage
	}
	return cfg, nil
}

// Validate checks a tool's configuration payload against its type. Called
// at tool-creation time so invalid payloads never reach a live call.
func (t Tool) Validate() error {
	switch t.Type {
	case TypeTransferCall:
		_, err := DecodeTransferCall(t.RawConfig)
		return err
	case TypeAPIRequest:
		_, err := DecodeAPIRequest(t.RawConfig)
		return err
	case TypeEndCall:
		_, err := DecodeEndCall(t.RawConfig)
		return err
	case TypeSendSMS, TypeSendEmail:
		return nil
	default:
		return fmt.Errorf("tools: unknown tool type %q", t.Type)
	}
}
