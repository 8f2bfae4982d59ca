package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quiz-match-service/internal/domain"
)

// QuestionSource loads the categorized question corpus from a backing store.
type QuestionSource interface {
	LoadCatalog(ctx context.Context) (map[string][]domain.Question, error)
}

// QuestionProvider holds the question corpus partitioned by category. The
// catalog is read-only after construction; only the shuffle source is guarded.
type QuestionProvider struct {
	catalog         map[string][]domain.Question
	defaultCategory string
	limits          map[string]time.Duration
	points          int

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewQuestionProvider loads and validates the catalog once at startup.
func NewQuestionProvider(ctx context.Context, source QuestionSource, cfg GameConfig) (*QuestionProvider, error) {
	catalog, err := source.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load question catalog: %w", err)
	}
	for category, pool := range catalog {
		for _, q := range pool {
			if len(q.Options) < 2 {
				return nil, fmt.Errorf("question %s in %s: needs at least 2 options", q.ID, category)
			}
			if !hasOption(q, q.CorrectID) {
				return nil, fmt.Errorf("question %s in %s: correct option %s not among options", q.ID, category, q.CorrectID)
			}
		}
	}
	if _, ok := catalog[cfg.DefaultCategory]; !ok {
		return nil, fmt.Errorf("default category %q has no question pool", cfg.DefaultCategory)
	}
	return &QuestionProvider{
		catalog:         catalog,
		defaultCategory: cfg.DefaultCategory,
		limits:          cfg.TimeLimits,
		points:          cfg.PointsPerCorrect,
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// HasCategory reports whether a pool exists for the category.
func (p *QuestionProvider) HasCategory(category string) bool {
	_, ok := p.catalog[category]
	return ok
}

// ValidDifficulty reports whether a time limit is configured for the difficulty.
func (p *QuestionProvider) ValidDifficulty(difficulty string) bool {
	_, ok := p.limits[difficulty]
	return ok
}

// SelectQuestions returns a fresh random non-repeating subset of size
// min(count, available) from the category's pool, falling back to the default
// category when the requested one has no pool.
func (p *QuestionProvider) SelectQuestions(count int, category string) []domain.Question {
	pool := p.pool(category)
	picked := make([]domain.Question, len(pool))
	copy(picked, pool)

	p.mu.Lock()
	p.rnd.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	p.mu.Unlock()

	if count < len(picked) {
		picked = picked[:count]
	}
	return picked
}

// EvaluateAnswer checks a submitted option against the stored question. The
// explanation is returned regardless of correctness.
func (p *QuestionProvider) EvaluateAnswer(questionID, optionID, category string) domain.Evaluation {
	for _, q := range p.pool(category) {
		if q.ID != questionID {
			continue
		}
		eval := domain.Evaluation{
			Valid:           true,
			Correct:         q.CorrectID == optionID,
			CorrectOptionID: q.CorrectID,
			Explanation:     q.Explanation,
		}
		if eval.Correct {
			eval.Points = p.points
		}
		return eval
	}
	return domain.Evaluation{}
}

// TimeLimitFor returns the per-question deadline for a difficulty, defaulting
// to medium for unrecognized values.
func (p *QuestionProvider) TimeLimitFor(difficulty string) time.Duration {
	if limit, ok := p.limits[difficulty]; ok {
		return limit
	}
	if limit, ok := p.limits["medium"]; ok {
		return limit
	}
	return 30 * time.Second
}

func (p *QuestionProvider) pool(category string) []domain.Question {
	if pool, ok := p.catalog[category]; ok && len(pool) > 0 {
		return pool
	}
	return p.catalog[p.defaultCategory]
}

func hasOption(q domain.Question, optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}
