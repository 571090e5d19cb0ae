package assistants

import "time"

// Assistant is a hotel-owned voice agent configuration.
//
// Multi-tenant invariant: HotelID is required on every row.
//
// A call session binds to the snapshot read at session start; dashboard
// edits never mutate a live call. The core treats this model as read-only;
// CRUD belongs to the dashboard service.
type Assistant struct {
	ID      string `json:"id" db:"id"`
	HotelID string `json:"hotel_id" db:"hotel_id"`

	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`

	// Provider selections per pipeline stage.
	STTProvider string `json:"stt_provider" db:"stt_provider"`
	LLMProvider string `json:"llm_provider" db:"llm_provider"`
	TTSProvider string `json:"tts_provider" db:"tts_provider"`

	STTModel string `json:"stt_model,omitempty" db:"stt_model"`
	LLMModel string `json:"llm_model" db:"llm_model"`
	TTSVoice string `json:"tts_voice,omitempty" db:"tts_voice"`

	SystemPrompt string `json:"system_prompt" db:"system_prompt"`
	Greeting     string `json:"greeting,omitempty" db:"greeting"`
	Language     string `json:"language" db:"language"`

	Temperature float64 `json:"temperature" db:"temperature"`
	MaxTokens   int     `json:"max_tokens" db:"max_tokens"`

	IsActive bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// WithDefaults fills the behavioral fields the dashboard leaves optional.
func (a Assistant) WithDefaults() Assistant {
	out := a
	if out.SystemPrompt == "" {
		out.SystemPrompt = "You are a friendly hotel assistant."
	}
	if out.Greeting == "" {
		out.Greeting = "Hello! How can I help you today?"
	}
	if out.Language == "" {
		out.Language = "en"
	}
	if out.Temperature <= 0 {
		out.Temperature = 0.7
	}
	if out.MaxTokens <= 0 {
		// Voice responses are spoken aloud; keep them short.
		out.MaxTokens = 150
	}
	return out
}
