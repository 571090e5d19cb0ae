package assistants

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("assistants: not found")

// Repository is the read-only persistence contract the call engine needs.
type Repository interface {
	GetByID(ctx context.Context, id string) (Assistant, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Assistant, error) {
	const q = `
SELECT id, hotel_id, name, COALESCE(description, ''),
       stt_provider, llm_provider, tts_provider,
       COALESCE(stt_model, ''), llm_model, COALESCE(tts_voice, ''),
       system_prompt, COALESCE(greeting, ''), language,
       temperature, max_tokens, is_active, created_at, updated_at
FROM assistants
WHERE id = $1
`
	var a Assistant
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&a.ID,
		&a.HotelID,
		&a.Name,
		&a.Description,
		&a.STTProvider,
		&a.LLMProvider,
		&a.TTSProvider,
		&a.STTModel,
		&a.LLMModel,
		&a.TTSVoice,
		&a.SystemPrompt,
		&a.Greeting,
		&a.Language,
		&a.Temperature,
		&a.MaxTokens,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assistant{}, ErrNotFound
		}
		return Assistant{}, err
	}
	return a, nil
}
