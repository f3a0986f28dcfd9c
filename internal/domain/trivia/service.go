package trivia

import (
	"context"
	"math/rand"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/Yuliannahernandez/backend-app/internal/domain/coupon"
)

// Scoring: a correct answer is worth 100 points, with a speed bonus.
const (
	correctScore    = 100
	fastBonus       = 50 // answered within 5 seconds
	fastBonusLimit  = 5
	quickBonus      = 25 // answered within 10 seconds
	quickBonusLimit = 10

	// prizeMinCorrect is the correct-answer count that earns a coupon.
	prizeMinCorrect = 4
)

// PrizeMinter issues the coupon awarded for a high-scoring session.
type PrizeMinter interface {
	MintFromTrivia(ctx context.Context, customerID string, correctCount int) (*coupon.Coupon, error)
}

// AnswerResult is returned after each submitted answer.
type AnswerResult struct {
	Correct      bool
	PointsGained int
	RunningScore int
	CorrectCount int
}

// FinalizeResult summarizes a completed session.
type FinalizeResult struct {
	SessionID        string
	TotalScore       int
	CorrectCount     int
	TotalAnswered    int
	TotalTimeSeconds int
	// AwardedCoupon is set when the session earned a prize.
	AwardedCoupon *coupon.Coupon
}

// Service drives trivia sessions: question selection, scoring, and prize
// delegation on completion.
type Service struct {
	questions QuestionRepository
	sessions  SessionRepository
	minter    PrizeMinter
	coupons   coupon.Repository
	shuffle   func(n int, swap func(i, j int))
	now       func() time.Time
}

// NewService creates a trivia Service. The coupon repository is used only to
// rehydrate the awarded coupon when re-finalizing a completed session.
func NewService(questions QuestionRepository, sessions SessionRepository, minter PrizeMinter, coupons coupon.Repository) *Service {
	return &Service{
		questions: questions,
		sessions:  sessions,
		minter:    minter,
		coupons:   coupons,
		shuffle:   rand.Shuffle,
		now:       time.Now,
	}
}

// Start creates a fresh active session, optionally tied to an order.
func (s *Service) Start(ctx context.Context, customerID, orderID string) (*Session, error) {
	session := &Session{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		OrderID:    orderID,
		State:      StateActive,
		StartedAt:  s.now(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, errors.Wrap(err, "create session")
	}
	return session, nil
}

// NextQuestion selects the lowest-ID question the session has not answered
// yet, so a session never repeats a question. The answer options are returned
// in randomized order. Returns ErrNoMoreQuestions when the pool is exhausted;
// the session stays active and the caller is expected to finalize it.
func (s *Service) NextQuestion(ctx context.Context, sessionID string) (*Question, error) {
	session, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	pool, err := s.questions.ListOrdered(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list questions")
	}

	for _, q := range pool {
		if session.Answered(q.ID) {
			continue
		}
		return s.withShuffledOptions(q), nil
	}
	return nil, ErrNoMoreQuestions
}

// Answer grades a response, appends it to the session, and updates counters.
// Each question may be answered at most once per session, so correct-answer
// counts reflect distinct questions.
func (s *Service) Answer(ctx context.Context, sessionID string, questionID, selectedOptionID, responseSeconds int) (*AnswerResult, error) {
	if responseSeconds < 0 {
		return nil, ErrInvalidResponseTime
	}

	session, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Answered(questionID) {
		return nil, ErrAlreadyAnswered
	}

	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	var selected *Option
	for i := range question.Options {
		if question.Options[i].ID == selectedOptionID {
			selected = &question.Options[i]
			break
		}
	}
	if selected == nil {
		return nil, ErrOptionNotFound
	}

	points := 0
	if selected.Correct {
		points = score(responseSeconds)
		session.CorrectCount++
	}
	session.TotalAnswered++
	session.TotalScore += points
	session.Answers = append(session.Answers, Answer{
		QuestionID:       questionID,
		SelectedOptionID: selectedOptionID,
		Correct:          selected.Correct,
		ResponseSeconds:  responseSeconds,
	})

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, errors.Wrap(err, "update session")
	}

	return &AnswerResult{
		Correct:      selected.Correct,
		PointsGained: points,
		RunningScore: session.TotalScore,
		CorrectCount: session.CorrectCount,
	}, nil
}

// Finalize seals the session and awards the prize coupon when the score
// qualifies. Finalizing an already-completed session returns the stored
// outcome without minting again.
func (s *Service) Finalize(ctx context.Context, sessionID string) (*FinalizeResult, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.State == StateCompleted {
		return s.storedResult(ctx, session)
	}

	now := s.now()
	session.State = StateCompleted
	session.FinishedAt = &now
	session.TotalTimeSeconds = 0
	for _, a := range session.Answers {
		session.TotalTimeSeconds += a.ResponseSeconds
	}

	var awarded *coupon.Coupon
	if session.CorrectCount >= prizeMinCorrect {
		awarded, err = s.minter.MintFromTrivia(ctx, session.CustomerID, session.CorrectCount)
		if err != nil {
			return nil, errors.Wrap(err, "mint trivia prize")
		}
		session.AwardedCouponID = awarded.ID
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, errors.Wrap(err, "update session")
	}

	return &FinalizeResult{
		SessionID:        session.ID,
		TotalScore:       session.TotalScore,
		CorrectCount:     session.CorrectCount,
		TotalAnswered:    session.TotalAnswered,
		TotalTimeSeconds: session.TotalTimeSeconds,
		AwardedCoupon:    awarded,
	}, nil
}

// History lists the customer's sessions, most recent first per the repository.
func (s *Service) History(ctx context.Context, customerID string) ([]Session, error) {
	return s.sessions.ListByCustomer(ctx, customerID)
}

func (s *Service) activeSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State == StateCompleted {
		return nil, ErrSessionCompleted
	}
	return session, nil
}

// storedResult rebuilds the finalize outcome of an already-completed session,
// rehydrating the awarded coupon when one was minted.
func (s *Service) storedResult(ctx context.Context, session *Session) (*FinalizeResult, error) {
	res := &FinalizeResult{
		SessionID:        session.ID,
		TotalScore:       session.TotalScore,
		CorrectCount:     session.CorrectCount,
		TotalAnswered:    session.TotalAnswered,
		TotalTimeSeconds: session.TotalTimeSeconds,
	}
	if session.AwardedCouponID != "" {
		awarded, err := s.coupons.GetByID(ctx, session.AwardedCouponID)
		if err != nil {
			return nil, errors.Wrap(err, "load awarded coupon")
		}
		res.AwardedCoupon = awarded
	}
	return res, nil
}

// withShuffledOptions returns a copy of the question with its options in
// Fisher-Yates shuffled order, so the correct answer is never positionally
// predictable.
func (s *Service) withShuffledOptions(q Question) *Question {
	shuffled := make([]Option, len(q.Options))
	copy(shuffled, q.Options)
	s.shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	q.Options = shuffled
	return &q
}

func score(responseSeconds int) int {
	switch {
	case responseSeconds <= fastBonusLimit:
		return correctScore + fastBonus
	case responseSeconds <= quickBonusLimit:
		return correctScore + quickBonus
	default:
		return correctScore
	}
}
