package memory

import (
	"context"
	"sync"

	"quiz-match-service/internal/domain"
)

// Aggregate is the recomputed per-player stat line.
type Aggregate struct {
	ParticipantID string
	MatchesPlayed int
	Wins          int
	TotalScore    int
}

// ResultStore is an in-memory implementation of app.ResultStore. It backs the
// service when no external store is configured and doubles as a recorder in
// tests.
type ResultStore struct {
	mu         sync.Mutex
	records    map[string]domain.MatchRecord
	history    map[string][]domain.HistoryEntry
	aggregates map[string]Aggregate
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		records:    make(map[string]domain.MatchRecord),
		history:    make(map[string][]domain.HistoryEntry),
		aggregates: make(map[string]Aggregate),
	}
}

func (s *ResultStore) RecordCompletedMatch(_ context.Context, record domain.MatchRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.MatchID] = record
	return record.MatchID, nil
}

func (s *ResultStore) AppendHistory(_ context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[entry.ParticipantID] = append(s.history[entry.ParticipantID], entry)
	return nil
}

// UpdateAggregate recomputes the participant's stat line from history. The
// trigger is idempotent: recomputing twice yields the same aggregate.
func (s *ResultStore) UpdateAggregate(_ context.Context, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg := Aggregate{ParticipantID: participantID}
	for _, entry := range s.history[participantID] {
		agg.MatchesPlayed++
		agg.TotalScore += entry.Score
		if entry.Placement == 1 {
			agg.Wins++
		}
	}
	s.aggregates[participantID] = agg
	return nil
}

// Record returns a stored match record, for tests and late queries.
func (s *ResultStore) Record(matchID string) (domain.MatchRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[matchID]
	return record, ok
}

// History returns the participant's stored history entries.
func (s *ResultStore) History(participantID string) []domain.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.HistoryEntry(nil), s.history[participantID]...)
}

// AggregateFor returns the participant's recomputed aggregate.
func (s *ResultStore) AggregateFor(participantID string) (Aggregate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.aggregates[participantID]
	return agg, ok
}
