package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Yuliannahernandez/backend-app/internal/domain/trivia"
)

const (
	listQuestionsSQL = `SELECT id, text FROM trivia_questions ORDER BY id`

	getQuestionByIDSQL = `SELECT id, text FROM trivia_questions WHERE id = $1`

	listOptionsSQL = `SELECT id, question_id, text, correct
		FROM trivia_options WHERE question_id = ANY($1) ORDER BY id`

	sessionColumns = `id, customer_id, order_id, state, total_score, correct_count,
		total_answered, total_time_seconds, awarded_coupon_id, started_at, finished_at`

	insertSessionSQL = `INSERT INTO trivia_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getSessionByIDSQL = `SELECT ` + sessionColumns + ` FROM trivia_sessions WHERE id = $1`

	updateSessionSQL = `UPDATE trivia_sessions SET
		state = $2, total_score = $3, correct_count = $4, total_answered = $5,
		total_time_seconds = $6, awarded_coupon_id = $7, finished_at = $8
		WHERE id = $1`

	listSessionsByCustomerSQL = `SELECT ` + sessionColumns + `
		FROM trivia_sessions WHERE customer_id = $1 ORDER BY started_at DESC`

	deleteSessionAnswersSQL = `DELETE FROM trivia_answers WHERE session_id = $1`

	insertSessionAnswerSQL = `INSERT INTO trivia_answers
		(session_id, question_id, selected_option_id, correct, response_seconds)
		VALUES ($1, $2, $3, $4, $5)`

	listSessionAnswersSQL = `SELECT session_id, question_id, selected_option_id, correct, response_seconds
		FROM trivia_answers WHERE session_id = ANY($1) ORDER BY question_id`
)

var _ trivia.QuestionRepository = (*TriviaQuestionRepository)(nil)

// TriviaQuestionRepository reads the question pool from PostgreSQL.
type TriviaQuestionRepository struct {
	pool *pgxpool.Pool
}

// NewTriviaQuestionRepository returns a TriviaQuestionRepository that uses the given pool.
func NewTriviaQuestionRepository(pool *pgxpool.Pool) *TriviaQuestionRepository {
	return &TriviaQuestionRepository{pool: pool}
}

// ListOrdered returns the full pool in ascending ID order, options included.
func (r *TriviaQuestionRepository) ListOrdered(ctx context.Context) ([]trivia.Question, error) {
	rows, err := r.pool.Query(ctx, listQuestionsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing trivia questions: %w", err)
	}
	questions, err := pgx.CollectRows(rows, scanQuestion)
	if err != nil {
		return nil, fmt.Errorf("listing trivia questions: %w", err)
	}
	if err := r.attachOptions(ctx, questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// GetByID returns a single question with its options.
func (r *TriviaQuestionRepository) GetByID(ctx context.Context, id int) (*trivia.Question, error) {
	rows, err := r.pool.Query(ctx, getQuestionByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting trivia question %d: %w", id, err)
	}

	q, err := pgx.CollectExactlyOneRow(rows, scanQuestion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trivia.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("getting trivia question %d: %w", id, err)
	}

	questions := []trivia.Question{q}
	if err := r.attachOptions(ctx, questions); err != nil {
		return nil, err
	}
	return &questions[0], nil
}

func (r *TriviaQuestionRepository) attachOptions(ctx context.Context, questions []trivia.Question) error {
	if len(questions) == 0 {
		return nil
	}
	ids := make([]int, len(questions))
	byID := make(map[int]*trivia.Question, len(questions))
	for i := range questions {
		ids[i] = questions[i].ID
		byID[questions[i].ID] = &questions[i]
	}

	rows, err := r.pool.Query(ctx, listOptionsSQL, ids)
	if err != nil {
		return fmt.Errorf("loading trivia options: %w", err)
	}

	type optionRow struct {
		questionID int
		option     trivia.Option
	}
	options, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (optionRow, error) {
		var o optionRow
		err := row.Scan(&o.option.ID, &o.questionID, &o.option.Text, &o.option.Correct)
		return o, err
	})
	if err != nil {
		return fmt.Errorf("loading trivia options: %w", err)
	}
	for _, o := range options {
		q := byID[o.questionID]
		q.Options = append(q.Options, o.option)
	}
	return nil
}

func scanQuestion(row pgx.CollectableRow) (trivia.Question, error) {
	var q trivia.Question
	err := row.Scan(&q.ID, &q.Text)
	return q, err
}

var _ trivia.SessionRepository = (*TriviaSessionRepository)(nil)

// TriviaSessionRepository persists sessions and their answers in PostgreSQL.
type TriviaSessionRepository struct {
	pool *pgxpool.Pool
}

// NewTriviaSessionRepository returns a TriviaSessionRepository that uses the given pool.
func NewTriviaSessionRepository(pool *pgxpool.Pool) *TriviaSessionRepository {
	return &TriviaSessionRepository{pool: pool}
}

// Create inserts a fresh session.
func (r *TriviaSessionRepository) Create(ctx context.Context, s *trivia.Session) error {
	_, err := r.pool.Exec(ctx, insertSessionSQL, sessionArgs(s)...)
	if err != nil {
		return fmt.Errorf("creating trivia session %q: %w", s.ID, err)
	}
	return nil
}

// GetByID loads a session with its answers.
func (r *TriviaSessionRepository) GetByID(ctx context.Context, id string) (*trivia.Session, error) {
	rows, err := r.pool.Query(ctx, getSessionByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting trivia session %q: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trivia.ErrSessionNotFound
		}
		return nil, fmt.Errorf("getting trivia session %q: %w", id, err)
	}
	if err := r.attachAnswers(ctx, []*trivia.Session{&s}); err != nil {
		return nil, err
	}
	return &s, nil
}

// Update persists the session and replaces its answers.
func (r *TriviaSessionRepository) Update(ctx context.Context, s *trivia.Session) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, updateSessionSQL,
		s.ID, string(s.State), s.TotalScore, s.CorrectCount, s.TotalAnswered,
		s.TotalTimeSeconds, s.AwardedCouponID, s.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("updating trivia session %q: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return trivia.ErrSessionNotFound
	}

	if _, err := tx.Exec(ctx, deleteSessionAnswersSQL, s.ID); err != nil {
		return fmt.Errorf("clearing answers for session %q: %w", s.ID, err)
	}
	for _, a := range s.Answers {
		_, err := tx.Exec(ctx, insertSessionAnswerSQL,
			s.ID, a.QuestionID, a.SelectedOptionID, a.Correct, a.ResponseSeconds,
		)
		if err != nil {
			return fmt.Errorf("inserting answer for session %q: %w", s.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListByCustomer returns the customer's sessions newest-first.
func (r *TriviaSessionRepository) ListByCustomer(ctx context.Context, customerID string) ([]trivia.Session, error) {
	rows, err := r.pool.Query(ctx, listSessionsByCustomerSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing trivia sessions for %q: %w", customerID, err)
	}
	sessions, err := pgx.CollectRows(rows, scanSession)
	if err != nil {
		return nil, fmt.Errorf("listing trivia sessions for %q: %w", customerID, err)
	}

	refs := make([]*trivia.Session, len(sessions))
	for i := range sessions {
		refs[i] = &sessions[i]
	}
	if err := r.attachAnswers(ctx, refs); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *TriviaSessionRepository) attachAnswers(ctx context.Context, sessions []*trivia.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]string, len(sessions))
	byID := make(map[string]*trivia.Session, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
		byID[s.ID] = s
	}

	rows, err := r.pool.Query(ctx, listSessionAnswersSQL, ids)
	if err != nil {
		return fmt.Errorf("loading trivia answers: %w", err)
	}

	type answerRow struct {
		sessionID string
		answer    trivia.Answer
	}
	answers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (answerRow, error) {
		var a answerRow
		err := row.Scan(&a.sessionID, &a.answer.QuestionID, &a.answer.SelectedOptionID,
			&a.answer.Correct, &a.answer.ResponseSeconds)
		return a, err
	})
	if err != nil {
		return fmt.Errorf("loading trivia answers: %w", err)
	}
	for _, a := range answers {
		s := byID[a.sessionID]
		s.Answers = append(s.Answers, a.answer)
	}
	return nil
}

func sessionArgs(s *trivia.Session) []any {
	return []any{
		s.ID, s.CustomerID, s.OrderID, string(s.State),
		s.TotalScore, s.CorrectCount, s.TotalAnswered, s.TotalTimeSeconds,
		s.AwardedCouponID, s.StartedAt, s.FinishedAt,
	}
}

func scanSession(row pgx.CollectableRow) (trivia.Session, error) {
	var (
		s     trivia.Session
		state string
	)
	err := row.Scan(
		&s.ID, &s.CustomerID, &s.OrderID, &state,
		&s.TotalScore, &s.CorrectCount, &s.TotalAnswered, &s.TotalTimeSeconds,
		&s.AwardedCouponID, &s.StartedAt, &s.FinishedAt,
	)
	s.State = trivia.State(state)
	return s, err
}
