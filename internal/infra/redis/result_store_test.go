package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-match-service/internal/domain"
)

func newTestStore(t *testing.T) (*ResultStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewResultStore(client, time.Minute), mr
}

func TestRecordCompletedMatchStoresJSON(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	_, err := store.RecordCompletedMatch(ctx, domain.MatchRecord{
		MatchID:    "m1",
		Category:   "python",
		Difficulty: "hard",
		RosterSize: 4,
		EndedAt:    time.Now(),
		Results: []domain.ParticipantResult{
			{ParticipantID: "p1", DisplayName: "Alice", Score: 300, CorrectCount: 3, Rank: 1},
		},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !mr.Exists("match:m1:record") {
		t.Fatalf("expected match record key to be set")
	}
}

func TestHistoryAndAggregate(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	entries := []domain.HistoryEntry{
		{ParticipantID: "p1", MatchID: "m1", Placement: 1, Score: 500, RosterSize: 2, PlayedAt: time.Now()},
		{ParticipantID: "p1", MatchID: "m2", Placement: 3, Score: 100, RosterSize: 4, PlayedAt: time.Now()},
	}
	for _, e := range entries {
		if err := store.AppendHistory(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := store.UpdateAggregate(ctx, "p1"); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if got := mr.HGet("player:p1:stats", "matchesPlayed"); got != "2" {
		t.Fatalf("expected 2 matches played, got %q", got)
	}
	if got := mr.HGet("player:p1:stats", "wins"); got != "1" {
		t.Fatalf("expected 1 win, got %q", got)
	}
	if got := mr.HGet("player:p1:stats", "totalScore"); got != "600" {
		t.Fatalf("expected total 600, got %q", got)
	}

	score, err := mr.ZScore("leaderboard:total", "p1")
	if err != nil {
		t.Fatalf("zscore: %v", err)
	}
	if score != 600 {
		t.Fatalf("expected leaderboard score 600, got %v", score)
	}
}
