package memory

import (
	"context"
	"testing"
	"time"

	"quiz-match-service/internal/domain"
)

func TestResultStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()

	record := domain.MatchRecord{
		MatchID:    "m1",
		Category:   "general",
		Difficulty: "medium",
		RosterSize: 3,
		EndedAt:    time.Now(),
		Results: []domain.ParticipantResult{
			{ParticipantID: "p1", DisplayName: "Alice", Score: 500, CorrectCount: 5, Rank: 1},
		},
	}
	id, err := store.RecordCompletedMatch(ctx, record)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if id != "m1" {
		t.Fatalf("expected record id m1, got %s", id)
	}
	if got, ok := store.Record("m1"); !ok || len(got.Results) != 1 {
		t.Fatalf("expected stored record, got %+v ok=%v", got, ok)
	}
}

func TestAggregateRecomputation(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()

	entries := []domain.HistoryEntry{
		{ParticipantID: "p1", MatchID: "m1", Placement: 1, Score: 500, RosterSize: 2},
		{ParticipantID: "p1", MatchID: "m2", Placement: 2, Score: 200, RosterSize: 4},
	}
	for _, e := range entries {
		if err := store.AppendHistory(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	// Recomputing twice must give the same aggregate.
	for i := 0; i < 2; i++ {
		if err := store.UpdateAggregate(ctx, "p1"); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	agg, ok := store.AggregateFor("p1")
	if !ok {
		t.Fatalf("expected aggregate for p1")
	}
	if agg.MatchesPlayed != 2 || agg.Wins != 1 || agg.TotalScore != 700 {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
	if len(store.History("p1")) != 2 {
		t.Fatalf("expected 2 history entries")
	}
}
