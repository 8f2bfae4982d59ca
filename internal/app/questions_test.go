package app_test

import (
	"context"
	"testing"
	"time"

	"quiz-match-service/internal/app"
	"quiz-match-service/internal/domain"
	"quiz-match-service/internal/infra/memory"
)

func newTestProvider(t *testing.T) *app.QuestionProvider {
	t.Helper()
	provider, err := app.NewQuestionProvider(context.Background(), memory.NewStaticQuestionSource(testCatalog()), testConfig())
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	return provider
}

func TestSelectQuestionsSubset(t *testing.T) {
	provider := newTestProvider(t)

	picked := provider.SelectQuestions(3, "general")
	if len(picked) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(picked))
	}
	seen := map[string]bool{}
	for _, q := range picked {
		if seen[q.ID] {
			t.Fatalf("question %s repeated in selection", q.ID)
		}
		seen[q.ID] = true
	}

	// Asking for more than the pool holds returns the whole pool.
	if picked := provider.SelectQuestions(50, "general"); len(picked) != 5 {
		t.Fatalf("expected all 5 questions, got %d", len(picked))
	}
}

func TestSelectQuestionsFallsBackToDefaultCategory(t *testing.T) {
	provider := newTestProvider(t)

	picked := provider.SelectQuestions(2, "no-such-category")
	if len(picked) != 2 {
		t.Fatalf("expected fallback selection of 2, got %d", len(picked))
	}
}

func TestEvaluateAnswer(t *testing.T) {
	provider := newTestProvider(t)

	eval := provider.EvaluateAnswer("q1", "b", "general")
	if !eval.Valid || !eval.Correct || eval.Points != 100 {
		t.Fatalf("expected valid correct 100pt evaluation, got %+v", eval)
	}
	if eval.CorrectOptionID != "b" || eval.Explanation == "" {
		t.Fatalf("expected correct option and explanation, got %+v", eval)
	}

	eval = provider.EvaluateAnswer("q1", "a", "general")
	if !eval.Valid || eval.Correct || eval.Points != 0 {
		t.Fatalf("expected valid incorrect 0pt evaluation, got %+v", eval)
	}
	if eval.Explanation == "" {
		t.Fatalf("explanation should be returned regardless of correctness")
	}

	if eval := provider.EvaluateAnswer("nope", "a", "general"); eval.Valid {
		t.Fatalf("expected invalid evaluation for unknown question")
	}
}

func TestTimeLimitForDifficulty(t *testing.T) {
	provider := newTestProvider(t)

	if limit := provider.TimeLimitFor("hard"); limit != 120*time.Millisecond {
		t.Fatalf("expected configured hard limit, got %v", limit)
	}
	medium := provider.TimeLimitFor("medium")
	if limit := provider.TimeLimitFor("impossible"); limit != medium {
		t.Fatalf("unknown difficulty should default to medium, got %v", limit)
	}
}

func TestProviderRejectsBrokenCatalog(t *testing.T) {
	cfg := testConfig()
	broken := map[string][]domain.Question{
		"general": {
			{
				ID:   "bad",
				Text: "correct id points nowhere",
				Options: []domain.Option{
					{ID: "a", Text: "x"},
					{ID: "b", Text: "y"},
				},
				CorrectID: "z",
			},
		},
	}
	if _, err := app.NewQuestionProvider(context.Background(), memory.NewStaticQuestionSource(broken), cfg); err == nil {
		t.Fatalf("expected catalog validation to fail")
	}
}
