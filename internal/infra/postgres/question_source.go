package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-match-service/internal/domain"
)

// QuestionSource loads the categorized question catalog from Postgres. Each
// row holds one category's pool as a JSONB array.
type QuestionSource struct {
	pool *pgxpool.Pool
}

func NewQuestionSource(pool *pgxpool.Pool) *QuestionSource {
	return &QuestionSource{pool: pool}
}

func (s *QuestionSource) LoadCatalog(ctx context.Context) (map[string][]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT category, data FROM question_sets`)
	if err != nil {
		return nil, fmt.Errorf("query question sets: %w", err)
	}
	defer rows.Close()

	catalog := make(map[string][]domain.Question)
	for rows.Next() {
		var category string
		var raw []byte
		if err := rows.Scan(&category, &raw); err != nil {
			return nil, fmt.Errorf("scan question set: %w", err)
		}
		var questions []domain.Question
		if err := json.Unmarshal(raw, &questions); err != nil {
			return nil, fmt.Errorf("unmarshal question set %s: %w", category, err)
		}
		catalog[category] = questions
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question sets: %w", err)
	}
	return catalog, nil
}
