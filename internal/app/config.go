package app

import "time"

// GameConfig carries every size and timing knob of the match core. All delays
// are fire-once relative timers; tests shrink them to milliseconds.
type GameConfig struct {
	MinPlayers        int
	MaxPlayers        int
	QuestionsPerMatch int
	PointsPerCorrect  int

	FillTimeout   time.Duration
	AnnounceDelay time.Duration
	RoundPause    time.Duration
	Retention     time.Duration

	// TimeLimits maps difficulty to the per-question answer deadline.
	TimeLimits      map[string]time.Duration
	DefaultCategory string
}

// DefaultGameConfig returns production defaults.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		MinPlayers:        2,
		MaxPlayers:        4,
		QuestionsPerMatch: 5,
		PointsPerCorrect:  100,
		FillTimeout:       12 * time.Second,
		AnnounceDelay:     3 * time.Second,
		RoundPause:        3 * time.Second,
		Retention:         60 * time.Second,
		TimeLimits: map[string]time.Duration{
			"easy":   45 * time.Second,
			"medium": 30 * time.Second,
			"hard":   15 * time.Second,
		},
		DefaultCategory: "general",
	}
}
