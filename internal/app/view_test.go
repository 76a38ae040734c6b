package app

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pscheid92/livepoll/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionOverviewViews(t *testing.T) {
	views := NewSessionOverviewViews([]domain.SessionOverview{
		{Session: domain.Session{ID: uuid.New(), Name: "newer"}, QuestionCount: 3, TotalVotes: 12},
		{Session: domain.Session{ID: uuid.New(), Name: "older"}},
	})

	require.Len(t, views, 2)
	assert.Equal(t, "newer", views[0].Name)
	assert.Equal(t, 3, views[0].QuestionCount)
	assert.Equal(t, 12, views[0].TotalVotes)
	assert.Zero(t, views[1].TotalVotes)

	assert.NotNil(t, NewSessionOverviewViews(nil))
}

func TestNewSummaryView_AggregatesQuestions(t *testing.T) {
	q1, q2 := uuid.New(), uuid.New()
	view := NewSummaryView(domain.Session{ID: uuid.New(), Name: "s"}, []domain.QuestionSummary{
		{Question: domain.Question{ID: q1, Text: "a"}, Tally: domain.NewTallySnapshot(q1, map[domain.Rating]int{1: 1, 3: 3})},
		{Question: domain.Question{ID: q2, Text: "b", IsActive: true}, Tally: domain.NewTallySnapshot(q2, nil)},
	})

	assert.Equal(t, 2, view.Session.QuestionCount)
	assert.Equal(t, 4, view.Session.TotalVotes)
	require.Len(t, view.Questions, 2)
	assert.Equal(t, 25, view.Questions[0].Options[0].Percentage)
	assert.Equal(t, 75, view.Questions[0].Options[2].Percentage)
	assert.True(t, view.Questions[1].IsActive)
}
