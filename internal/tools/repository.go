package tools

import (
	"context"
	"database/sql"
)

// Repository is the read-only persistence contract the dispatcher needs.
type Repository interface {
	ListActive(ctx context.Context, assistantID string) ([]Tool, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) ListActive(ctx context.Context, assistantID string) ([]Tool, error) {
	const q = `
SELECT t.id, t.assistant_id, a.hotel_id, t.name, t.description,
       t.tool_type, t.config, t.is_active, t.created_at, t.updated_at
FROM tools t
JOIN assistants a ON a.id = t.assistant_id
WHERE t.assistant_id = $1 AND t.is_active = TRUE
ORDER BY t.created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, assistantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tool
	for rows.Next() {
		var t Tool
		if err := rows.Scan(
			&t.ID,
			&t.AssistantID,
			&t.HotelID,
			&t.Name,
			&t.Description,
			&t.Type,
			&t.RawConfig,
			&t.IsActive,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
