package app_test

import (
	"testing"
	"time"

	"quiz-match-service/internal/app"
	"quiz-match-service/internal/domain"
)

func botQuestion() domain.Question {
	return domain.Question{
		ID:   "q1",
		Text: "pick b",
		Options: []domain.Option{
			{ID: "a", Text: "wrong"},
			{ID: "b", Text: "right"},
			{ID: "c", Text: "also wrong"},
		},
		CorrectID: "b",
	}
}

func TestCreateFillersProfiles(t *testing.T) {
	pool := app.NewBotPool()

	bots := pool.CreateFillers("m1", 3)
	if len(bots) != 3 {
		t.Fatalf("expected 3 bots, got %d", len(bots))
	}
	names := map[string]bool{}
	for _, b := range bots {
		if names[b.DisplayName] {
			t.Fatalf("duplicate bot name %s", b.DisplayName)
		}
		names[b.DisplayName] = true
		if b.Accuracy < 0.4 || b.Accuracy > 0.9 {
			t.Fatalf("accuracy %v outside [0.4, 0.9]", b.Accuracy)
		}
		if b.MinDelay < 2*time.Second || b.MinDelay > 5*time.Second {
			t.Fatalf("min delay %v outside [2s, 5s]", b.MinDelay)
		}
		if b.MaxDelay < 8*time.Second || b.MaxDelay > 15*time.Second {
			t.Fatalf("max delay %v outside [8s, 15s]", b.MaxDelay)
		}
	}
}

func TestNamePoolExhaustionAddsSuffix(t *testing.T) {
	pool := app.NewBotPool()

	// More fillers than themed names exist; every name must still be unique.
	bots := pool.CreateFillers("m1", 20)
	names := map[string]bool{}
	for _, b := range bots {
		if names[b.DisplayName] {
			t.Fatalf("duplicate bot name %s", b.DisplayName)
		}
		names[b.DisplayName] = true
	}

	// Releasing the match frees every reservation for reuse.
	pool.Release("m1")
	again := pool.CreateFillers("m2", 15)
	if len(again) != 15 {
		t.Fatalf("expected 15 bots after release, got %d", len(again))
	}
}

func TestDecideAnswerFollowsAccuracy(t *testing.T) {
	pool := app.NewBotPool()
	q := botQuestion()

	sharp := &app.Bot{ID: "b1", DisplayName: "Sharp", Accuracy: 1.0}
	for i := 0; i < 50; i++ {
		if got := pool.DecideAnswer(sharp, q); got != "b" {
			t.Fatalf("perfect accuracy picked %s", got)
		}
	}

	blunt := &app.Bot{ID: "b2", DisplayName: "Blunt", Accuracy: 0.0}
	for i := 0; i < 50; i++ {
		if got := pool.DecideAnswer(blunt, q); got == "b" {
			t.Fatalf("zero accuracy picked the correct option")
		}
	}
}

func TestScheduleAnswerStaysInsideDeadline(t *testing.T) {
	pool := app.NewBotPool()
	bot := &app.Bot{
		ID:          "b1",
		DisplayName: "Slow",
		Accuracy:    1.0,
		MinDelay:    5 * time.Second,
		MaxDelay:    10 * time.Second,
	}

	delivered := make(chan string, 1)
	started := time.Now()
	pool.ScheduleAnswer(bot, botQuestion(), 100*time.Millisecond, func(optionID string) {
		delivered <- optionID
	})

	select {
	case opt := <-delivered:
		if opt != "b" {
			t.Fatalf("expected correct option, got %s", opt)
		}
		if elapsed := time.Since(started); elapsed > 150*time.Millisecond {
			t.Fatalf("delivery not clamped below deadline, took %v", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatalf("scheduled answer never delivered")
	}
}
