package ai

import (
	"context"

	"github.com/runt18/edx-ora2/internal/model"
)

// MockClient is a Client for tests. With no canned selections it picks each
// criterion's first option, the same choice generated fixtures make.
type MockClient struct {
	Selections map[string]string
	Err        error
	Calls      int
}

func (m *MockClient) ScoreResponse(_ context.Context, rubric model.Rubric, _ []model.TrainingExample, _ string) (map[string]string, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Selections != nil {
		return m.Selections, nil
	}
	selected := make(map[string]string, len(rubric.Criteria))
	for _, c := range rubric.Criteria {
		selected[c.Name] = c.Options[0].Name
	}
	return selected, nil
}

func (m *MockClient) Ping(context.Context) error {
	return m.Err
}
