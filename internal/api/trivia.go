package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Yuliannahernandez/backend-app/internal/domain/trivia"
)

type triviaOptionDTO struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type triviaQuestionDTO struct {
	ID      int               `json:"id"`
	Text    string            `json:"text"`
	Options []triviaOptionDTO `json:"options"`
}

type triviaSessionDTO struct {
	ID               string     `json:"id"`
	OrderID          string     `json:"order_id,omitempty"`
	State            string     `json:"state"`
	TotalScore       int        `json:"total_score"`
	CorrectCount     int        `json:"correct_count"`
	TotalAnswered    int        `json:"total_answered"`
	TotalTimeSeconds int        `json:"total_time_seconds"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// StartTrivia opens a new session for the customer.
func (h *Handler) StartTrivia(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	var req struct {
		OrderID string `json:"order_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := h.trivia.Start(r.Context(), cid, req.OrderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionDTO(session))
}

// NextTriviaQuestion returns the next unanswered question with shuffled
// options. The correct flag is never serialized.
func (h *Handler) NextTriviaQuestion(w http.ResponseWriter, r *http.Request) {
	if _, ok := customerID(w, r); !ok {
		return
	}
	q, err := h.trivia.NextQuestion(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	options := make([]triviaOptionDTO, len(q.Options))
	for i, o := range q.Options {
		options[i] = triviaOptionDTO{ID: o.ID, Text: o.Text}
	}
	writeJSON(w, http.StatusOK, triviaQuestionDTO{ID: q.ID, Text: q.Text, Options: options})
}

// AnswerTrivia grades a submitted answer.
func (h *Handler) AnswerTrivia(w http.ResponseWriter, r *http.Request) {
	if _, ok := customerID(w, r); !ok {
		return
	}
	var req struct {
		QuestionID      int `json:"question_id"`
		OptionID        int `json:"option_id"`
		ResponseSeconds int `json:"response_seconds"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.trivia.Answer(r.Context(), chi.URLParam(r, "sessionID"),
		req.QuestionID, req.OptionID, req.ResponseSeconds)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Correct      bool `json:"correct"`
		PointsGained int  `json:"points_gained"`
		RunningScore int  `json:"running_score"`
		CorrectCount int  `json:"correct_count"`
	}{result.Correct, result.PointsGained, result.RunningScore, result.CorrectCount})
}

// FinalizeTrivia seals the session and reports the outcome, including the
// awarded coupon when the score qualified.
func (h *Handler) FinalizeTrivia(w http.ResponseWriter, r *http.Request) {
	if _, ok := customerID(w, r); !ok {
		return
	}
	result, err := h.trivia.Finalize(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := struct {
		SessionID        string     `json:"session_id"`
		TotalScore       int        `json:"total_score"`
		CorrectCount     int        `json:"correct_count"`
		TotalAnswered    int        `json:"total_answered"`
		TotalTimeSeconds int        `json:"total_time_seconds"`
		AwardedCoupon    *couponDTO `json:"awarded_coupon,omitempty"`
	}{
		SessionID:        result.SessionID,
		TotalScore:       result.TotalScore,
		CorrectCount:     result.CorrectCount,
		TotalAnswered:    result.TotalAnswered,
		TotalTimeSeconds: result.TotalTimeSeconds,
	}
	if result.AwardedCoupon != nil {
		dto := toCouponDTO(result.AwardedCoupon)
		resp.AwardedCoupon = &dto
	}
	writeJSON(w, http.StatusOK, resp)
}

// TriviaHistory lists the customer's past sessions.
func (h *Handler) TriviaHistory(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(w, r)
	if !ok {
		return
	}
	sessions, err := h.trivia.History(r.Context(), cid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]triviaSessionDTO, len(sessions))
	for i := range sessions {
		out[i] = toSessionDTO(&sessions[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func toSessionDTO(s *trivia.Session) triviaSessionDTO {
	return triviaSessionDTO{
		ID:               s.ID,
		OrderID:          s.OrderID,
		State:            string(s.State),
		TotalScore:       s.TotalScore,
		CorrectCount:     s.CorrectCount,
		TotalAnswered:    s.TotalAnswered,
		TotalTimeSeconds: s.TotalTimeSeconds,
		StartedAt:        s.StartedAt,
		FinishedAt:       s.FinishedAt,
	}
}
