// Package memory provides process-local implementations of the domain
// repositories and the vote rate limiter. They back single-instance
// deployments without Postgres or Redis, and tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/livepoll/internal/domain"
)

// Store holds sessions, questions and votes. The vote uniqueness and
// single-active-question invariants are enforced under one lock, which
// stands in for the database constraints.
type Store struct {
	clock clockwork.Clock

	mu        sync.RWMutex
	seq       uint64
	sessions  map[uuid.UUID]storedSession
	questions map[uuid.UUID]storedQuestion
	votes     map[uuid.UUID]map[string]domain.Vote
}

type storedSession struct {
	session domain.Session
	seq     uint64
}

type storedQuestion struct {
	question domain.Question
	seq      uint64
}

func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		clock:     clock,
		sessions:  make(map[uuid.UUID]storedSession),
		questions: make(map[uuid.UUID]storedQuestion),
		votes:     make(map[uuid.UUID]map[string]domain.Vote),
	}
}

func (s *Store) Sessions() *SessionRepo   { return &SessionRepo{s: s} }
func (s *Store) Questions() *QuestionRepo { return &QuestionRepo{s: s} }
func (s *Store) Votes() *VoteRepo         { return &VoteRepo{s: s} }

type SessionRepo struct{ s *Store }

var _ domain.SessionRepository = (*SessionRepo)(nil)

func (r *SessionRepo) Create(_ context.Context, name string) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.seq++
	session := domain.Session{ID: uuid.New(), Name: name, CreatedAt: r.s.clock.Now()}
	r.s.sessions[session.ID] = storedSession{session: session, seq: r.s.seq}
	return &session, nil
}

func (r *SessionRepo) GetByID(_ context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored, ok := r.s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	session := stored.session
	return &session, nil
}

func (r *SessionRepo) List(_ context.Context) ([]domain.SessionOverview, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	type row struct {
		overview domain.SessionOverview
		seq      uint64
	}
	rows := make(map[uuid.UUID]*row, len(r.s.sessions))
	for id, stored := range r.s.sessions {
		rows[id] = &row{overview: domain.SessionOverview{Session: stored.session}, seq: stored.seq}
	}
	for qid, stored := range r.s.questions {
		if rw, ok := rows[stored.question.SessionID]; ok {
			rw.overview.QuestionCount++
			rw.overview.TotalVotes += len(r.s.votes[qid])
		}
	}

	sorted := make([]*row, 0, len(rows))
	for _, rw := range rows {
		sorted = append(sorted, rw)
	}
	slices.SortFunc(sorted, func(a, b *row) int { return cmp.Compare(b.seq, a.seq) })

	out := make([]domain.SessionOverview, 0, len(sorted))
	for _, rw := range sorted {
		out = append(out, rw.overview)
	}
	return out, nil
}

type QuestionRepo struct{ s *Store }

var _ domain.QuestionRepository = (*QuestionRepo)(nil)

func (r *QuestionRepo) GetByID(_ context.Context, questionID uuid.UUID) (*domain.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored, ok := r.s.questions[questionID]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	q := stored.question
	return &q, nil
}

func (r *QuestionRepo) Activate(_ context.Context, sessionID uuid.UUID, text string) (*domain.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sessions[sessionID]; !ok {
		return nil, domain.ErrSessionNotFound
	}

	for id, stored := range r.s.questions {
		if stored.question.SessionID == sessionID && stored.question.IsActive {
			stored.question.IsActive = false
			r.s.questions[id] = stored
		}
	}

	r.s.seq++
	q := domain.Question{
		ID:        uuid.New(),
		SessionID: sessionID,
		Text:      text,
		IsActive:  true,
		CreatedAt: r.s.clock.Now(),
	}
	r.s.questions[q.ID] = storedQuestion{question: q, seq: r.s.seq}
	return &q, nil
}

func (r *QuestionRepo) Close(_ context.Context, questionID uuid.UUID) (*domain.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.questions[questionID]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	stored.question.IsActive = false
	r.s.questions[questionID] = stored

	q := stored.question
	return &q, nil
}

func (r *QuestionRepo) ActiveForSession(_ context.Context, sessionID uuid.UUID) (*domain.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, stored := range r.s.questions {
		if stored.question.SessionID == sessionID && stored.question.IsActive {
			q := stored.question
			return &q, nil
		}
	}
	return nil, domain.ErrQuestionNotFound
}

func (r *QuestionRepo) ListBySession(_ context.Context, sessionID uuid.UUID) ([]domain.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var stored []storedQuestion
	for _, sq := range r.s.questions {
		if sq.question.SessionID == sessionID {
			stored = append(stored, sq)
		}
	}
	slices.SortFunc(stored, func(a, b storedQuestion) int { return cmp.Compare(a.seq, b.seq) })

	out := make([]domain.Question, 0, len(stored))
	for _, sq := range stored {
		out = append(out, sq.question)
	}
	return out, nil
}

type VoteRepo struct{ s *Store }

var _ domain.VoteRepository = (*VoteRepo)(nil)

func (r *VoteRepo) Insert(_ context.Context, questionID uuid.UUID, rating domain.Rating, voterToken string) (*domain.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.questions[questionID]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	if !stored.question.IsActive {
		return nil, domain.ErrVotingClosed
	}

	byToken, ok := r.s.votes[questionID]
	if !ok {
		byToken = make(map[string]domain.Vote)
		r.s.votes[questionID] = byToken
	}
	if _, exists := byToken[voterToken]; exists {
		return nil, domain.ErrDuplicateVote
	}

	vote := domain.Vote{
		ID:         uuid.New(),
		QuestionID: questionID,
		Rating:     rating,
		VoterToken: voterToken,
		CreatedAt:  r.s.clock.Now(),
	}
	byToken[voterToken] = vote
	return &vote, nil
}

func (r *VoteRepo) CountByRating(_ context.Context, questionID uuid.UUID) (map[domain.Rating]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[domain.Rating]int)
	for _, v := range r.s.votes[questionID] {
		counts[v.Rating]++
	}
	return counts, nil
}

// Vote returns the stored vote of voterToken on questionID. It is not part of
// domain.VoteRepository; tests use it to inspect what was stored.
func (r *VoteRepo) Vote(questionID uuid.UUID, voterToken string) (domain.Vote, bool) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	v, ok := r.s.votes[questionID][voterToken]
	return v, ok
}
