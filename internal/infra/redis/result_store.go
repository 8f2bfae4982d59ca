package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-match-service/internal/domain"
)

// historyLimit bounds how many match entries are retained per player.
const historyLimit = 50

// ResultStore persists match outcomes in Redis:
//   - match record JSON at   match:{matchID}:record
//   - per-player history at  player:{participantID}:history (list, newest first)
//   - recomputed stats at    player:{participantID}:stats (hash)
//   - global leaderboard at  leaderboard:total (sorted set by total score)
type ResultStore struct {
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
}

func NewResultStore(client *redis.Client, ttl time.Duration) *ResultStore {
	return &ResultStore{client: client, ttl: ttl}
}

func (s *ResultStore) RecordCompletedMatch(ctx context.Context, record domain.MatchRecord) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal match record: %w", err)
	}
	key := s.recordKey(record.MatchID)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store match record: %w", err)
	}
	return record.MatchID, nil
}

func (s *ResultStore) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	key := s.historyKey(entry.ParticipantID)
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, historyLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// UpdateAggregate recomputes the participant's stat hash and leaderboard entry
// from their stored history. Concurrent triggers for the same participant are
// collapsed with singleflight; the recomputation is idempotent.
func (s *ResultStore) UpdateAggregate(ctx context.Context, participantID string) error {
	_, err, _ := s.sf.Do(participantID, func() (interface{}, error) {
		raw, err := s.client.LRange(ctx, s.historyKey(participantID), 0, historyLimit-1).Result()
		if err != nil {
			return nil, fmt.Errorf("read history: %w", err)
		}

		played, wins, total := 0, 0, 0
		for _, item := range raw {
			var entry domain.HistoryEntry
			if err := json.Unmarshal([]byte(item), &entry); err != nil {
				continue
			}
			played++
			total += entry.Score
			if entry.Placement == 1 {
				wins++
			}
		}

		pipe := s.client.Pipeline()
		pipe.HSet(ctx, s.statsKey(participantID), map[string]interface{}{
			"matchesPlayed": played,
			"wins":          wins,
			"totalScore":    total,
		})
		pipe.ZAdd(ctx, "leaderboard:total", redis.Z{Score: float64(total), Member: participantID})
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("write aggregate: %w", err)
		}
		return nil, nil
	})
	return err
}

func (s *ResultStore) recordKey(matchID string) string {
	return "match:" + matchID + ":record"
}

func (s *ResultStore) historyKey(participantID string) string {
	return "player:" + participantID + ":history"
}

func (s *ResultStore) statsKey(participantID string) string {
	return "player:" + participantID + ":stats"
}
