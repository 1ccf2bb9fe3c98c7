// Package game implements the per-user idiom round state machine.
//
// A user either has no session or is in a round of K questions. Correct
// answers and skips move the round forward and hit the score ledger; the
// ledger decides, at that instant, whether the scoring window lets the delta
// through. Wrong answers leave the session untouched.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"idiom-quiz-bot/internal/gate"
	"idiom-quiz-bot/internal/metrics"
	"idiom-quiz-bot/internal/model"
)

// ErrNotEnoughQuestions is returned by Start when the bank cannot fill a round.
var ErrNotEnoughQuestions = errors.New("question bank cannot fill a round")

// Sampler draws distinct questions for a round.
type Sampler interface {
	Len() int
	Sample(n int) ([]model.Question, error)
}

// Scorer applies signed score deltas and reports the resulting total.
type Scorer interface {
	ApplyDelta(ctx context.Context, userID string, delta int64) int64
}

// Rules configures a round.
type Rules struct {
	QuestionsPerRound int
	CorrectScore      int64
	SkipScore         int64
}

// DefaultRules returns 3 questions, +3 per correct answer and -2 per skip.
func DefaultRules() Rules {
	return Rules{QuestionsPerRound: 3, CorrectScore: 3, SkipScore: -2}
}

// Session is one user's round in progress.
type Session struct {
	Questions  []model.Question
	Index      int
	RoundScore int64
}

// Current returns the question being asked.
func (s *Session) Current() model.Question {
	return s.Questions[s.Index]
}

func (s *Session) last() bool {
	return s.Index == len(s.Questions)-1
}

// Manager owns every live session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	bank     Sampler
	scorer   Scorer
	gate     gate.Checker
	rules    Rules
	metrics  *metrics.Recorder
}

// NewManager creates a Manager with no sessions.
func NewManager(bank Sampler, scorer Scorer, g gate.Checker, rules Rules, rec *metrics.Recorder) *Manager {
	if rules.QuestionsPerRound < 1 {
		rules.QuestionsPerRound = DefaultRules().QuestionsPerRound
	}
	return &Manager{
		sessions: make(map[string]*Session),
		bank:     bank,
		scorer:   scorer,
		gate:     g,
		rules:    rules,
		metrics:  rec,
	}
}

// Rules returns the round configuration.
func (m *Manager) Rules() Rules {
	return m.rules
}

// StartResult describes the outcome of Start.
type StartResult struct {
	// AlreadyPlaying is set when the user had a session; nothing else is filled in.
	AlreadyPlaying bool
	Question       model.Question
	Number         int
	Of             int
	// Scored reports the window state at the moment the round started.
	Scored bool
}

// Start opens a round for the user.
func (m *Manager) Start(_ context.Context, userID string) (StartResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := m.rules.QuestionsPerRound
	if m.bank.Len() < k {
		return StartResult{}, fmt.Errorf("%w: need %d, have %d", ErrNotEnoughQuestions, k, m.bank.Len())
	}

	if _, ok := m.sessions[userID]; ok {
		return StartResult{AlreadyPlaying: true}, nil
	}

	questions, err := m.bank.Sample(k)
	if err != nil {
		return StartResult{}, fmt.Errorf("%w: %w", ErrNotEnoughQuestions, err)
	}

	s := &Session{Questions: questions}
	m.sessions[userID] = s
	m.metrics.SetActiveSessions(len(m.sessions))

	log.Info().Str("user_id", userID).Int("questions", k).Msg("Round started")

	return StartResult{
		Question: s.Current(),
		Number:   1,
		Of:       k,
		Scored:   m.gate.Active(),
	}, nil
}

// Progress is the shared part of answer and skip outcomes.
type Progress struct {
	// Delta is the configured score change for the action.
	Delta int64
	// Total is the ledger total after the action.
	Total int64
	// Finished is set when the action ended the round.
	Finished bool
	// Next is the following question when the round continues.
	Next   model.Question
	Number int
	Of     int
	// RoundScore counts correct answers only.
	RoundScore int64
}

// AnswerStatus classifies an answer attempt.
type AnswerStatus int

// Answer outcomes.
const (
	AnswerNoSession AnswerStatus = iota
	AnswerWrong
	AnswerCorrect
)

// AnswerResult describes the outcome of Answer.
type AnswerResult struct {
	Status AnswerStatus
	Answer string
	Progress
}

// Answer checks text against the current question. The comparison is exact.
func (m *Manager) Answer(ctx context.Context, userID, text string) (AnswerResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return AnswerResult{Status: AnswerNoSession}, nil
	}
	if text != s.Current().Answer {
		return AnswerResult{Status: AnswerWrong}, nil
	}

	total := m.scorer.ApplyDelta(ctx, userID, m.rules.CorrectScore)
	s.RoundScore += m.rules.CorrectScore

	return AnswerResult{
		Status:   AnswerCorrect,
		Answer:   text,
		Progress: m.advance(userID, s, m.rules.CorrectScore, total),
	}, nil
}

// SkipResult describes the outcome of Skip. Skipped is false when the user had no session.
type SkipResult struct {
	Skipped bool
	Progress
}

// Skip gives up the current question. The penalty goes to the ledger only,
// never to the round score.
func (m *Manager) Skip(ctx context.Context, userID string) (SkipResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return SkipResult{}, nil
	}

	total := m.scorer.ApplyDelta(ctx, userID, m.rules.SkipScore)

	return SkipResult{
		Skipped:  true,
		Progress: m.advance(userID, s, m.rules.SkipScore, total),
	}, nil
}

// advance moves to the next question or destroys the session after the last one.
// Callers hold m.mu.
func (m *Manager) advance(userID string, s *Session, delta, total int64) Progress {
	p := Progress{
		Delta:      delta,
		Total:      total,
		Of:         len(s.Questions),
		RoundScore: s.RoundScore,
	}

	if s.last() {
		delete(m.sessions, userID)
		m.metrics.SetActiveSessions(len(m.sessions))
		p.Finished = true
		log.Info().Str("user_id", userID).Int64("round_score", s.RoundScore).Msg("Round finished")
		return p
	}

	s.Index++
	p.Next = s.Current()
	p.Number = s.Index + 1
	return p
}

// EndResult describes a round ended by the user.
type EndResult struct {
	Answer     string
	RoundScore int64
}

// End abandons the user's round. ok is false when there was none.
func (m *Manager) End(userID string) (EndResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return EndResult{}, false
	}

	delete(m.sessions, userID)
	m.metrics.SetActiveSessions(len(m.sessions))
	log.Info().Str("user_id", userID).Int("index", s.Index).Msg("Round ended by user")

	return EndResult{Answer: s.Current().Answer, RoundScore: s.RoundScore}, true
}

// Session returns a copy of the user's session.
func (m *Manager) Session(userID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return Session{}, false
	}
	cp := *s
	cp.Questions = append([]model.Question(nil), s.Questions...)
	return cp, true
}

// Active returns the number of live sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
