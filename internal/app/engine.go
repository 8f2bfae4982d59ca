package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-match-service/internal/domain"
)

// ResultStore is the persistence gateway consumed at match completion. All
// calls are best-effort from the engine's perspective: failures are logged and
// swallowed, never surfaced to players.
type ResultStore interface {
	RecordCompletedMatch(ctx context.Context, record domain.MatchRecord) (string, error)
	AppendHistory(ctx context.Context, entry domain.HistoryEntry) error
	UpdateAggregate(ctx context.Context, participantID string) error
}

// Engine owns every live match and routes participant actions to the right
// one. Matches are fully independent; the engine only tracks membership.
type Engine struct {
	provider *QuestionProvider
	bots     *BotPool
	results  ResultStore
	cfg      GameConfig
	now      func() time.Time

	mu        sync.Mutex
	matches   map[string]*Match
	seatIndex map[string]string // participant id -> match id, live matches only
	active    int
}

func NewEngine(provider *QuestionProvider, bots *BotPool, results ResultStore, cfg GameConfig) *Engine {
	return NewEngineWithClock(provider, bots, results, cfg, time.Now)
}

// NewEngineWithClock is test-only for deterministic timestamps.
func NewEngineWithClock(provider *QuestionProvider, bots *BotPool, results ResultStore, cfg GameConfig, now func() time.Time) *Engine {
	return &Engine{
		provider:  provider,
		bots:      bots,
		results:   results,
		cfg:       cfg,
		now:       now,
		matches:   make(map[string]*Match),
		seatIndex: make(map[string]string),
	}
}

// StartMatch forms a match from the given seats plus fillerCount simulated
// participants, announces the roster and schedules the game start.
func (e *Engine) StartMatch(seats []Seat, fillerCount int, prefs domain.Preferences) *Match {
	if len(seats) == 0 {
		return nil
	}

	id := uuid.NewString()
	m := &Match{
		engine:    e,
		id:        id,
		prefs:     prefs,
		status:    domain.MatchForming,
		questions: e.provider.SelectQuestions(e.cfg.QuestionsPerMatch, prefs.Category),
		timeLimit: e.provider.TimeLimitFor(prefs.Difficulty),
		createdAt: e.now(),
	}
	for _, seat := range seats {
		m.seats = append(m.seats, &seatState{
			p: &domain.Participant{
				ID:          seat.ID,
				DisplayName: seat.DisplayName,
				Active:      true,
			},
			client: seat.Client,
		})
	}
	for _, bot := range e.bots.CreateFillers(id, fillerCount) {
		m.seats = append(m.seats, &seatState{
			p: &domain.Participant{
				ID:          bot.ID,
				DisplayName: bot.DisplayName,
				IsBot:       true,
				Active:      true,
			},
			bot: bot,
		})
	}

	e.mu.Lock()
	e.matches[id] = m
	e.active++
	for _, seat := range seats {
		e.seatIndex[seat.ID] = id
	}
	e.mu.Unlock()

	m.mu.Lock()
	roster := make([]domain.RosterEntry, 0, len(m.seats))
	for _, s := range m.seats {
		roster = append(roster, domain.RosterEntry{ParticipantID: s.p.ID, DisplayName: s.p.DisplayName})
	}
	m.broadcastLocked(domain.Event{Type: domain.EventMatchFound, Payload: domain.MatchFound{
		MatchID: id,
		Roster:  roster,
	}})
	m.mu.Unlock()

	time.AfterFunc(e.cfg.AnnounceDelay, m.begin)
	return m
}

// SubmitAnswer routes an answer to the caller's live match.
func (e *Engine) SubmitAnswer(participantID, questionID, optionID string) error {
	m, ok := e.matchFor(participantID)
	if !ok {
		return domain.ErrNotInMatch
	}
	return m.SubmitAnswer(participantID, questionID, optionID)
}

// DropParticipant marks a participant inactive in its live match, if any.
func (e *Engine) DropParticipant(participantID string) {
	if m, ok := e.matchFor(participantID); ok {
		m.Drop(participantID)
	}
}

// Match returns a match by id while it is live or inside the retention window.
func (e *Engine) Match(id string) (*Match, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.matches[id]
	return m, ok
}

// ActiveMatches reports how many matches have not completed yet.
func (e *Engine) ActiveMatches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// HasLiveSeat reports whether the participant is seated in a match that has
// not completed yet. Seats are released at completion, not at discard.
func (e *Engine) HasLiveSeat(participantID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.seatIndex[participantID]
	return ok
}

func (e *Engine) matchFor(participantID string) (*Match, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.seatIndex[participantID]
	if !ok {
		return nil, false
	}
	m, ok := e.matches[id]
	return m, ok
}

// matchCompleted releases seat bindings so players can queue again right away;
// the match itself stays addressable until the retention window expires.
func (e *Engine) matchCompleted(m *Match) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active--
	for _, s := range m.seats {
		if !s.p.IsBot {
			delete(e.seatIndex, s.p.ID)
		}
	}
}

func (e *Engine) discard(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.matches, id)
}
