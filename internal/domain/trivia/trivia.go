// Package trivia runs the scored question mini-game. Sessions move from
// active to completed exactly once; good scores earn a discount coupon.
package trivia

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrSessionNotFound is returned when a session ID is unknown.
	ErrSessionNotFound = errors.New("trivia session not found")
	// ErrSessionCompleted is returned when mutating a finished session.
	ErrSessionCompleted = errors.New("trivia session already completed")
	// ErrNoMoreQuestions is returned when the pool is exhausted for a session.
	ErrNoMoreQuestions = errors.New("no more questions available")
	// ErrQuestionNotFound is returned when a question ID is unknown.
	ErrQuestionNotFound = errors.New("trivia question not found")
	// ErrOptionNotFound is returned when an option does not belong to the question.
	ErrOptionNotFound = errors.New("answer option not found")
	// ErrAlreadyAnswered is returned when a session answers the same question twice.
	ErrAlreadyAnswered = errors.New("question already answered in this session")
	// ErrInvalidResponseTime is returned for a negative response time.
	ErrInvalidResponseTime = errors.New("response time must not be negative")
)

// State of a session. The only transition is active -> completed.
type State string

const (
	StateActive    State = "active"
	StateCompleted State = "completed"
)

// Question is a trivia question with its answer options.
type Question struct {
	ID      int
	Text    string
	Options []Option
}

// Option is one selectable answer. Correct is never exposed to clients.
type Option struct {
	ID      int
	Text    string
	Correct bool
}

// Answer records one response within a session.
type Answer struct {
	QuestionID       int
	SelectedOptionID int
	Correct          bool
	ResponseSeconds  int
}

// Session is one play-through of the trivia game.
type Session struct {
	ID               string
	CustomerID       string
	OrderID          string
	State            State
	TotalScore       int
	CorrectCount     int
	TotalAnswered    int
	TotalTimeSeconds int
	AwardedCouponID  string
	Answers          []Answer
	StartedAt        time.Time
	FinishedAt       *time.Time
}

// Answered reports whether the session already contains the question.
func (s *Session) Answered(questionID int) bool {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// QuestionRepository provides read access to the question pool.
type QuestionRepository interface {
	// ListOrdered returns the full pool in ascending ID order.
	ListOrdered(ctx context.Context) ([]Question, error)
	GetByID(ctx context.Context, id int) (*Question, error)
}

// SessionRepository persists sessions and their answers.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	ListByCustomer(ctx context.Context, customerID string) ([]Session, error)
}
