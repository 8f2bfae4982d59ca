package domain

import "time"

// MatchStatus is the lifecycle state of a match. Transitions are one-directional:
// forming -> in_progress -> completed.
type MatchStatus string

const (
	MatchForming    MatchStatus = "forming"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
)

// Preferences select the queue bucket a player waits in.
type Preferences struct {
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}

// Participant holds a seat and score in one match. Simulated participants have
// IsBot set and no transport attached.
type Participant struct {
	ID          string
	DisplayName string
	IsBot       bool
	Score       int
	Answers     []AnswerRecord
	Active      bool
}

// HasAnswered reports whether an answer record exists for the question.
func (p *Participant) HasAnswered(questionID string) bool {
	for _, a := range p.Answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// CorrectCount counts the participant's correct answer records.
func (p *Participant) CorrectCount() int {
	n := 0
	for _, a := range p.Answers {
		if a.Correct {
			n++
		}
	}
	return n
}

// AnswerRecord is one submission by one participant for one question.
// At most one record per (participant, question) pair ever exists.
type AnswerRecord struct {
	QuestionID string
	OptionID   string
	Correct    bool
	Elapsed    time.Duration
	Points     int
}

// Option is a labeled answer choice.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is an immutable content unit. CorrectID must reference one of
// Options and is never sent to a client before that client has answered
// (or the round timed out).
type Question struct {
	ID          string   `json:"id"`
	Snippet     string   `json:"snippet"`
	Text        string   `json:"text"`
	Options     []Option `json:"options"`
	CorrectID   string   `json:"correctId"`
	Explanation string   `json:"explanation"`
}

// Evaluation is the outcome of checking a submitted option against a question.
type Evaluation struct {
	Valid           bool
	Correct         bool
	CorrectOptionID string
	Explanation     string
	Points          int
}

// Standing is one row of the final ranking. Ties on score are broken by
// roster order: whoever was seated first ranks higher.
type Standing struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Score         int    `json:"score"`
	CorrectCount  int    `json:"correctCount"`
	IsBot         bool   `json:"isBot"`
}

// ParticipantResult is the persisted summary for one human participant.
type ParticipantResult struct {
	ParticipantID string
	DisplayName   string
	Score         int
	CorrectCount  int
	Rank          int
}

// MatchRecord is the completion summary handed to the persistence gateway.
// It contains only non-simulated participants.
type MatchRecord struct {
	MatchID    string
	Category   string
	Difficulty string
	RosterSize int
	StartedAt  time.Time
	EndedAt    time.Time
	Results    []ParticipantResult
}

// HistoryEntry is one line of a participant's match history.
type HistoryEntry struct {
	ParticipantID string    `json:"participantId"`
	MatchID       string    `json:"matchId"`
	Placement     int       `json:"placement"`
	Score         int       `json:"score"`
	RosterSize    int       `json:"rosterSize"`
	PlayedAt      time.Time `json:"playedAt"`
}
