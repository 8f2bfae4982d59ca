package app

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"quiz-match-service/internal/domain"
)

// seatState binds a participant's mutable match state to its transport (nil
// for bots) and bot profile (nil for humans).
type seatState struct {
	p      *domain.Participant
	client ClientNotifier
	bot    *Bot
}

// Match owns one run of the game from formation through scored completion.
// All state is guarded by mu; every timer callback re-validates status and the
// round generation before touching anything, since the round may have advanced
// between scheduling and firing.
type Match struct {
	engine *Engine

	mu         sync.Mutex
	id         string
	prefs      domain.Preferences
	status     domain.MatchStatus
	seats      []*seatState
	questions  []domain.Question
	idx        int
	resolved   bool
	roundStart time.Time
	timeLimit  time.Duration
	createdAt  time.Time
	startedAt  time.Time
	endedAt    time.Time
}

// ID returns the match identifier.
func (m *Match) ID() string {
	return m.id
}

// Status returns the current lifecycle state.
func (m *Match) Status() domain.MatchStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Standings computes the current ranking; addressable during the retention
// window for late result queries.
func (m *Match) Standings() []domain.Standing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.standingsLocked()
}

// begin moves the match from forming to in progress after the announcement
// delay and emits the first question.
func (m *Match) begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != domain.MatchForming {
		return
	}
	m.status = domain.MatchInProgress
	m.startedAt = m.engine.now()
	m.broadcastLocked(domain.Event{Type: domain.EventGameStart, Payload: domain.GameStart{
		TotalQuestions:  len(m.questions),
		QuestionSeconds: int(m.timeLimit / time.Second),
	}})
	m.startRoundLocked()
}

// startRoundLocked emits the current question, arms the round deadline and
// schedules bot answers. Completes the match when the question list is spent.
func (m *Match) startRoundLocked() {
	if m.idx >= len(m.questions) {
		m.completeLocked()
		return
	}
	m.resolved = false
	m.roundStart = m.engine.now()
	q := m.questions[m.idx]

	m.broadcastLocked(domain.Event{Type: domain.EventQuestion, Payload: domain.QuestionPrompt{
		ID:      q.ID,
		Snippet: q.Snippet,
		Text:    q.Text,
		Options: q.Options,
		Ordinal: m.idx + 1,
		Total:   len(m.questions),
	}})

	gen := m.idx
	time.AfterFunc(m.timeLimit, func() { m.deadlineFired(gen) })

	for _, s := range m.seats {
		if s.bot == nil || !s.p.Active {
			continue
		}
		seat, bot := s, s.bot
		m.engine.bots.ScheduleAnswer(bot, q, m.timeLimit, func(optionID string) {
			m.botAnswer(gen, seat.p.ID, optionID)
		})
	}
}

// deadlineFired resolves the round on timeout. A stale deadline (round already
// resolved or advanced) is a no-op; this guard is correctness, not tuning.
func (m *Match) deadlineFired(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != domain.MatchInProgress || m.idx != gen || m.resolved {
		return
	}
	m.resolveRoundLocked()
}

// SubmitAnswer records a human participant's answer for the current question.
// Exactly one answer record per (participant, question) pair ever exists.
func (m *Match) SubmitAnswer(participantID, questionID, optionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != domain.MatchInProgress {
		if m.status == domain.MatchCompleted {
			return domain.ErrMatchNotFound
		}
		return domain.ErrQuestionNotActive
	}
	seat := m.seatLocked(participantID)
	if seat == nil || !seat.p.Active {
		return domain.ErrNotInMatch
	}
	current := m.questions[m.idx]
	if questionID != current.ID || m.resolved {
		if m.questionKnownLocked(questionID) {
			return domain.ErrQuestionNotActive
		}
		return domain.ErrUnknownQuestion
	}
	if seat.p.HasAnswered(questionID) {
		return domain.ErrDuplicateAnswer
	}
	eval := m.engine.provider.EvaluateAnswer(questionID, optionID, m.prefs.Category)
	if !eval.Valid {
		return domain.ErrUnknownQuestion
	}

	m.recordAnswerLocked(seat, questionID, optionID, eval)
	m.sendLocked(seat, domain.Event{Type: domain.EventAnswer, Payload: domain.AnswerOutcome{
		QuestionID:      questionID,
		Correct:         eval.Correct,
		CorrectOptionID: eval.CorrectOptionID,
		Explanation:     eval.Explanation,
		PointsAwarded:   eval.Points,
		TotalScore:      seat.p.Score,
	}})

	if m.allActiveAnsweredLocked() {
		m.resolveRoundLocked()
	}
	return nil
}

// botAnswer delivers a scheduled filler answer. Deliveries landing after the
// round resolved or advanced are dropped by the same generation guard that
// protects the deadline.
func (m *Match) botAnswer(gen int, participantID, optionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != domain.MatchInProgress || m.idx != gen || m.resolved {
		return
	}
	seat := m.seatLocked(participantID)
	if seat == nil || !seat.p.Active {
		return
	}
	q := m.questions[m.idx]
	if seat.p.HasAnswered(q.ID) {
		return
	}
	eval := m.engine.provider.EvaluateAnswer(q.ID, optionID, m.prefs.Category)
	if !eval.Valid {
		return
	}
	m.recordAnswerLocked(seat, q.ID, optionID, eval)

	if m.allActiveAnsweredLocked() {
		m.resolveRoundLocked()
	}
}

func (m *Match) recordAnswerLocked(seat *seatState, questionID, optionID string, eval domain.Evaluation) {
	elapsed := m.engine.now().Sub(m.roundStart)
	seat.p.Answers = append(seat.p.Answers, domain.AnswerRecord{
		QuestionID: questionID,
		OptionID:   optionID,
		Correct:    eval.Correct,
		Elapsed:    elapsed,
		Points:     eval.Points,
	})
	seat.p.Score += eval.Points
}

// allActiveAnsweredLocked is evaluated against the current active set, so a
// disconnect can satisfy it for the remaining round immediately.
func (m *Match) allActiveAnsweredLocked() bool {
	q := m.questions[m.idx]
	for _, s := range m.seats {
		if s.p.Active && !s.p.HasAnswered(q.ID) {
			return false
		}
	}
	return true
}

// resolveRoundLocked broadcasts the round snapshot and schedules the advance
// to the next question after the inter-round pause.
func (m *Match) resolveRoundLocked() {
	m.resolved = true
	q := m.questions[m.idx]

	scores := make([]domain.RoundScore, 0, len(m.seats))
	for _, s := range m.seats {
		row := domain.RoundScore{
			ParticipantID: s.p.ID,
			DisplayName:   s.p.DisplayName,
			Score:         s.p.Score,
		}
		for _, a := range s.p.Answers {
			if a.QuestionID == q.ID {
				row.Answered = true
				row.Correct = a.Correct
				row.ElapsedMs = a.Elapsed.Milliseconds()
				break
			}
		}
		scores = append(scores, row)
	}
	// Cumulative score descending; roster order breaks ties (stable sort).
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	m.broadcastLocked(domain.Event{Type: domain.EventRoundScores, Payload: domain.RoundScores{
		Ordinal: m.idx + 1,
		Scores:  scores,
	}})

	gen := m.idx
	time.AfterFunc(m.engine.cfg.RoundPause, func() { m.advance(gen) })
}

// advance moves to the next question after the pause; stale pauses no-op.
func (m *Match) advance(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != domain.MatchInProgress || m.idx != gen || !m.resolved {
		return
	}
	m.idx++
	m.startRoundLocked()
}

// Drop marks a participant inactive. It never blocks round resolution: the
// all-answered condition is re-checked against the shrunken active set, and a
// match with no active humans left completes immediately.
func (m *Match) Drop(participantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seat := m.seatLocked(participantID)
	if seat == nil || !seat.p.Active || m.status == domain.MatchCompleted {
		return
	}
	seat.p.Active = false
	m.broadcastLocked(domain.Event{Type: domain.EventPlayerLeft, Payload: domain.PlayerLeft{
		ParticipantID: seat.p.ID,
		DisplayName:   seat.p.DisplayName,
	}})

	if !m.anyActiveHumanLocked() {
		m.completeLocked()
		return
	}
	if m.status == domain.MatchInProgress && !m.resolved && m.allActiveAnsweredLocked() {
		m.resolveRoundLocked()
	}
}

func (m *Match) anyActiveHumanLocked() bool {
	for _, s := range m.seats {
		if !s.p.IsBot && s.p.Active {
			return true
		}
	}
	return false
}

// completeLocked finishes the match: clients are notified first, then the
// result is persisted best-effort. Persistence failures never reach players.
func (m *Match) completeLocked() {
	m.status = domain.MatchCompleted
	m.endedAt = m.engine.now()

	standings := m.standingsLocked()
	winner := standings[0]
	m.broadcastLocked(domain.Event{Type: domain.EventGameEnd, Payload: domain.GameEnd{
		MatchID:    m.id,
		Standings:  standings,
		WinnerID:   winner.ParticipantID,
		WinnerName: winner.DisplayName,
	}})

	m.engine.bots.Release(m.id)
	m.engine.matchCompleted(m)

	record := m.recordLocked(standings)
	if len(record.Results) > 0 {
		go m.engine.persist(record)
	}
	time.AfterFunc(m.engine.cfg.Retention, func() { m.engine.discard(m.id) })
}

// standingsLocked ranks every participant, including inactive ones, by score
// descending. Equal scores rank by roster order; this is a deliberate,
// documented policy rather than an accident of storage order.
func (m *Match) standingsLocked() []domain.Standing {
	standings := make([]domain.Standing, 0, len(m.seats))
	for _, s := range m.seats {
		standings = append(standings, domain.Standing{
			ParticipantID: s.p.ID,
			DisplayName:   s.p.DisplayName,
			Score:         s.p.Score,
			CorrectCount:  s.p.CorrectCount(),
			IsBot:         s.p.IsBot,
		})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

// recordLocked builds the persistence summary, humans only.
func (m *Match) recordLocked(standings []domain.Standing) domain.MatchRecord {
	record := domain.MatchRecord{
		MatchID:    m.id,
		Category:   m.prefs.Category,
		Difficulty: m.prefs.Difficulty,
		RosterSize: len(m.seats),
		StartedAt:  m.startedAt,
		EndedAt:    m.endedAt,
	}
	for _, st := range standings {
		if st.IsBot {
			continue
		}
		record.Results = append(record.Results, domain.ParticipantResult{
			ParticipantID: st.ParticipantID,
			DisplayName:   st.DisplayName,
			Score:         st.Score,
			CorrectCount:  st.CorrectCount,
			Rank:          st.Rank,
		})
	}
	return record
}

func (m *Match) seatLocked(participantID string) *seatState {
	for _, s := range m.seats {
		if s.p.ID == participantID {
			return s
		}
	}
	return nil
}

func (m *Match) questionKnownLocked(questionID string) bool {
	for _, q := range m.questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}

// broadcastLocked fans an event out to every active human seat.
func (m *Match) broadcastLocked(ev domain.Event) {
	for _, s := range m.seats {
		m.sendLocked(s, ev)
	}
}

func (m *Match) sendLocked(s *seatState, ev domain.Event) {
	if s.client == nil || !s.p.Active {
		return
	}
	s.client.Send(ev)
}

// persist is invoked off the match goroutine after clients were notified.
func (e *Engine) persist(record domain.MatchRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := e.results.RecordCompletedMatch(ctx, record); err != nil {
		log.Printf("match %s: record result: %v", record.MatchID, err)
	}
	for _, r := range record.Results {
		entry := domain.HistoryEntry{
			ParticipantID: r.ParticipantID,
			MatchID:       record.MatchID,
			Placement:     r.Rank,
			Score:         r.Score,
			RosterSize:    record.RosterSize,
			PlayedAt:      record.EndedAt,
		}
		if err := e.results.AppendHistory(ctx, entry); err != nil {
			log.Printf("match %s: history for %s: %v", record.MatchID, r.ParticipantID, err)
		}
		if err := e.results.UpdateAggregate(ctx, r.ParticipantID); err != nil {
			log.Printf("match %s: aggregate for %s: %v", record.MatchID, r.ParticipantID, err)
		}
	}
}
