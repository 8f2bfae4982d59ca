package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"golang.org/x/sync/singleflight"

	"quiz-match-service/internal/domain"
)

// ResultStore persists match outcomes in Postgres: one row per completed match
// (human results as JSONB), one history row per human participant, and a
// recomputed per-participant stats row.
type ResultStore struct {
	pool *pgxpool.Pool
	sf   singleflight.Group
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) RecordCompletedMatch(ctx context.Context, record domain.MatchRecord) (string, error) {
	results, err := json.Marshal(record.Results)
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO match_results (id, category, difficulty, roster_size, started_at, ended_at, results)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		 ON CONFLICT (id) DO NOTHING`,
		record.MatchID, record.Category, record.Difficulty, record.RosterSize,
		record.StartedAt, record.EndedAt, string(results))
	if err != nil {
		return "", fmt.Errorf("insert match result: %w", err)
	}
	return record.MatchID, nil
}

func (s *ResultStore) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO match_history (participant_id, match_id, placement, score, roster_size, played_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (participant_id, match_id) DO NOTHING`,
		entry.ParticipantID, entry.MatchID, entry.Placement, entry.Score, entry.RosterSize, entry.PlayedAt)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// UpdateAggregate recomputes the participant's stats row from match_history.
// Concurrent triggers for the same participant collapse via singleflight.
func (s *ResultStore) UpdateAggregate(ctx context.Context, participantID string) error {
	_, err, _ := s.sf.Do(participantID, func() (interface{}, error) {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO participant_stats (participant_id, matches_played, wins, total_score)
			 SELECT participant_id,
			        COUNT(*),
			        COUNT(*) FILTER (WHERE placement = 1),
			        COALESCE(SUM(score), 0)
			 FROM match_history
			 WHERE participant_id = $1
			 GROUP BY participant_id
			 ON CONFLICT (participant_id) DO UPDATE SET
			        matches_played = EXCLUDED.matches_played,
			        wins = EXCLUDED.wins,
			        total_score = EXCLUDED.total_score`,
			participantID)
		if err != nil {
			return nil, fmt.Errorf("recompute aggregate: %w", err)
		}
		return nil, nil
	})
	return err
}
