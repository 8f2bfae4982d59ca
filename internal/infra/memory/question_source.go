package memory

import (
	"context"

	"quiz-match-service/internal/domain"
)

// StaticQuestionSource serves a fixed in-memory catalog (useful for tests and
// config-less startup).
type StaticQuestionSource struct {
	catalog map[string][]domain.Question
}

func NewStaticQuestionSource(catalog map[string][]domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{catalog: catalog}
}

func (s *StaticQuestionSource) LoadCatalog(_ context.Context) (map[string][]domain.Question, error) {
	return s.catalog, nil
}
