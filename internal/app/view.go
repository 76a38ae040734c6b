package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/livepoll/internal/domain"
)

// OptionView is one rating bar of a tally.
type OptionView struct {
	Rating     int    `json:"rating"`
	Label      string `json:"label"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// TallyView is the JSON shape of a tally shared by the HTTP API and the live
// channel, so both apply the same percentage rule.
type TallyView struct {
	QuestionID   uuid.UUID    `json:"questionId"`
	QuestionText string       `json:"questionText,omitempty"`
	IsActive     bool         `json:"isActive"`
	TotalVotes   int          `json:"totalVotes"`
	Options      []OptionView `json:"options"`
}

func NewTallyView(question domain.Question, tally domain.TallySnapshot) TallyView {
	options := domain.VoteOptions()
	view := TallyView{
		QuestionID:   question.ID,
		QuestionText: question.Text,
		IsActive:     question.IsActive,
		TotalVotes:   tally.TotalVotes,
		Options:      make([]OptionView, 0, len(options)),
	}
	for _, opt := range options {
		view.Options = append(view.Options, OptionView{
			Rating:     int(opt.Rating),
			Label:      opt.Label,
			Count:      tally.Count(opt.Rating),
			Percentage: tally.Percentage(opt.Rating),
		})
	}
	return view
}

// View renders the live tally.
func (l LiveTally) View() TallyView {
	return NewTallyView(l.Question, l.Tally)
}

// QuestionView is the JSON shape of a question.
type QuestionView struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"sessionId"`
	Text      string    `json:"text"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewQuestionView(q domain.Question) QuestionView {
	return QuestionView{
		ID:        q.ID,
		SessionID: q.SessionID,
		Text:      q.Text,
		IsActive:  q.IsActive,
		CreatedAt: q.CreatedAt,
	}
}

// SessionView is the JSON shape of a session, with activity counts on the
// dashboard listing.
type SessionView struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"createdAt"`
	QuestionCount int       `json:"questionCount"`
	TotalVotes    int       `json:"totalVotes"`
}

func NewSessionView(s domain.Session) SessionView {
	return SessionView{ID: s.ID, Name: s.Name, CreatedAt: s.CreatedAt}
}

func NewSessionOverviewViews(overviews []domain.SessionOverview) []SessionView {
	views := make([]SessionView, 0, len(overviews))
	for _, o := range overviews {
		v := NewSessionView(o.Session)
		v.QuestionCount = o.QuestionCount
		v.TotalVotes = o.TotalVotes
		views = append(views, v)
	}
	return views
}

// SummaryView is a session with every question's final or current tally.
type SummaryView struct {
	Session   SessionView `json:"session"`
	Questions []TallyView `json:"questions"`
}

func NewSummaryView(session domain.Session, summaries []domain.QuestionSummary) SummaryView {
	view := SummaryView{
		Session:   NewSessionView(session),
		Questions: make([]TallyView, 0, len(summaries)),
	}
	for _, qs := range summaries {
		view.Questions = append(view.Questions, NewTallyView(qs.Question, qs.Tally))
		view.Session.QuestionCount++
		view.Session.TotalVotes += qs.Tally.TotalVotes
	}
	return view
}
