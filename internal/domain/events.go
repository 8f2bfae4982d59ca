package domain

// Event is the outbound envelope pushed to clients over the transport.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Outbound event types. Every payload shape below is closed; the transport
// serializes them as-is and never attaches the correct answer to a question
// that has not been resolved for the receiving client.
const (
	EventQueueJoined = "queue_joined"
	EventMatchFound  = "match_found"
	EventGameStart   = "game_start"
	EventQuestion    = "question"
	EventAnswer      = "answer_result"
	EventRoundScores = "round_scores"
	EventGameEnd     = "game_end"
	EventPlayerLeft  = "player_left"
	EventError       = "error"
)

// QueueJoined acknowledges a queue entry to the joining player.
type QueueJoined struct {
	ParticipantID string `json:"participantId"`
	Position      int    `json:"position"`
	WaitingCount  int    `json:"waitingCount"`
}

// RosterEntry is the public view of one seat.
type RosterEntry struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

// MatchFound announces the formed roster to every seat.
type MatchFound struct {
	MatchID string        `json:"matchId"`
	Roster  []RosterEntry `json:"roster"`
}

// GameStart announces the round parameters right before the first question.
type GameStart struct {
	TotalQuestions  int `json:"totalQuestions"`
	QuestionSeconds int `json:"questionSeconds"`
}

// QuestionPrompt is the client view of a question: content only, no answer.
type QuestionPrompt struct {
	ID      string   `json:"id"`
	Snippet string   `json:"snippet"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
	Ordinal int      `json:"ordinal"`
	Total   int      `json:"total"`
}

// AnswerOutcome is unicast to the submitter after their answer is evaluated.
type AnswerOutcome struct {
	QuestionID      string `json:"questionId"`
	Correct         bool   `json:"correct"`
	CorrectOptionID string `json:"correctOptionId"`
	Explanation     string `json:"explanation"`
	PointsAwarded   int    `json:"pointsAwarded"`
	TotalScore      int    `json:"totalScore"`
}

// RoundScore is one participant's line in the end-of-round snapshot.
type RoundScore struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Score         int    `json:"score"`
	Answered      bool   `json:"answered"`
	Correct       bool   `json:"correct"`
	ElapsedMs     int64  `json:"elapsedMs"`
}

// RoundScores is broadcast when a round resolves, sorted by cumulative score
// descending with roster order breaking ties.
type RoundScores struct {
	Ordinal int          `json:"ordinal"`
	Scores  []RoundScore `json:"scores"`
}

// GameEnd carries the final standings and the winner.
type GameEnd struct {
	MatchID    string     `json:"matchId"`
	Standings  []Standing `json:"standings"`
	WinnerID   string     `json:"winnerId"`
	WinnerName string     `json:"winnerName"`
}

// PlayerLeft announces a participant going inactive mid-match.
type PlayerLeft struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

// ErrorPayload carries a caller-facing failure reason.
type ErrorPayload struct {
	Message string `json:"message"`
}
