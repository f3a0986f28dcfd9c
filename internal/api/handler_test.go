package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yuliannahernandez/backend-app/internal/domain/audit"
	"github.com/Yuliannahernandez/backend-app/internal/domain/cart"
	"github.com/Yuliannahernandez/backend-app/internal/domain/catalog"
	"github.com/Yuliannahernandez/backend-app/internal/domain/coupon"
	"github.com/Yuliannahernandez/backend-app/internal/domain/loyalty"
	"github.com/Yuliannahernandez/backend-app/internal/domain/reward"
	"github.com/Yuliannahernandez/backend-app/internal/domain/trivia"
)

// --- In-memory fakes ---

type memOrders struct {
	byID map[string]*cart.Order
}

func (m *memOrders) ActiveCart(_ context.Context, customerID string) (*cart.Order, error) {
	for _, o := range m.byID {
		if o.CustomerID == customerID && o.State == cart.StateCart {
			cp := *o
			return &cp, nil
		}
	}
	return nil, cart.ErrNoActiveCart
}

func (m *memOrders) Create(_ context.Context, o *cart.Order) error {
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *memOrders) Update(_ context.Context, o *cart.Order) error {
	if _, ok := m.byID[o.ID]; !ok {
		return cart.ErrOrderNotFound
	}
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (*cart.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, cart.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) ListByCustomer(_ context.Context, customerID string) ([]cart.Order, error) {
	var out []cart.Order
	for _, o := range m.byID {
		if o.CustomerID == customerID && o.State != cart.StateCart {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) ListActive(context.Context) ([]cart.Order, error) {
	var out []cart.Order
	for _, o := range m.byID {
		if o.State != cart.StateCart && !o.State.Terminal() {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) Confirm(ctx context.Context, o *cart.Order, _ *coupon.Usage) error {
	return m.Update(ctx, o)
}

type memCoupons struct {
	byCode map[string]*coupon.Coupon
}

func (m *memCoupons) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := m.byCode[coupon.Normalize(code)]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}

func (m *memCoupons) GetByID(_ context.Context, id string) (*coupon.Coupon, error) {
	for _, c := range m.byCode {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, coupon.ErrNotFound
}

func (m *memCoupons) Create(_ context.Context, c *coupon.Coupon) error {
	m.byCode[c.Code] = c
	return nil
}

func (m *memCoupons) CountUsage(context.Context, string) (int, error) { return 0, nil }

func (m *memCoupons) CountCustomerUsage(context.Context, string, string) (int, error) {
	return 0, nil
}

func (m *memCoupons) ListActive(_ context.Context, now time.Time) ([]coupon.Coupon, error) {
	var out []coupon.Coupon
	for _, c := range m.byCode {
		if c.Active && !now.Before(c.ValidFrom) && !now.After(c.ValidTo) {
			out = append(out, *c)
		}
	}
	return out, nil
}

type memProducts struct {
	byID map[string]*catalog.Product
}

func (m *memProducts) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *memProducts) List(context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

type memBranches struct{}

func (memBranches) GetByID(_ context.Context, id string) (*catalog.Branch, error) {
	if id != "branch-1" {
		return nil, catalog.ErrBranchNotFound
	}
	return &catalog.Branch{ID: id, Name: "Centro", Open: true}, nil
}

func (memBranches) List(context.Context) ([]catalog.Branch, error) {
	return []catalog.Branch{{ID: "branch-1", Name: "Centro", Open: true}}, nil
}

type memLedger struct {
	entries []loyalty.Entry
}

func (m *memLedger) Balance(_ context.Context, customerID string) (int, error) {
	sum := 0
	for _, e := range m.entries {
		if e.CustomerID == customerID {
			sum += e.Points
		}
	}
	return sum, nil
}

func (m *memLedger) Append(_ context.Context, e *loyalty.Entry) error {
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memLedger) HasAccrual(_ context.Context, orderID string) (bool, error) {
	for _, e := range m.entries {
		if e.OrderID == orderID && e.Kind == loyalty.KindEarned {
			return true, nil
		}
	}
	return false, nil
}

func (m *memLedger) History(_ context.Context, customerID string, _ int) ([]loyalty.Entry, error) {
	var out []loyalty.Entry
	for _, e := range m.entries {
		if e.CustomerID == customerID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memRewards struct {
	byID map[string]*reward.Reward
}

func (m *memRewards) GetByID(_ context.Context, id string) (*reward.Reward, error) {
	rw, ok := m.byID[id]
	if !ok {
		return nil, reward.ErrNotFound
	}
	return rw, nil
}

func (m *memRewards) ListActive(context.Context) ([]reward.Reward, error) {
	var out []reward.Reward
	for _, rw := range m.byID {
		if rw.Active {
			out = append(out, *rw)
		}
	}
	return out, nil
}

type memQuestions struct {
	questions []trivia.Question
}

func (m *memQuestions) ListOrdered(context.Context) ([]trivia.Question, error) {
	return m.questions, nil
}

func (m *memQuestions) GetByID(_ context.Context, id int) (*trivia.Question, error) {
	for i := range m.questions {
		if m.questions[i].ID == id {
			return &m.questions[i], nil
		}
	}
	return nil, trivia.ErrQuestionNotFound
}

type memSessions struct {
	byID map[string]*trivia.Session
}

func (m *memSessions) Create(_ context.Context, s *trivia.Session) error {
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *memSessions) GetByID(_ context.Context, id string) (*trivia.Session, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, trivia.ErrSessionNotFound
	}
	cp := *s
	cp.Answers = append([]trivia.Answer(nil), s.Answers...)
	return &cp, nil
}

func (m *memSessions) Update(_ context.Context, s *trivia.Session) error {
	if _, ok := m.byID[s.ID]; !ok {
		return trivia.ErrSessionNotFound
	}
	cp := *s
	cp.Answers = append([]trivia.Answer(nil), s.Answers...)
	m.byID[s.ID] = &cp
	return nil
}

func (m *memSessions) ListByCustomer(_ context.Context, customerID string) ([]trivia.Session, error) {
	var out []trivia.Session
	for _, s := range m.byID {
		if s.CustomerID == customerID {
			out = append(out, *s)
		}
	}
	return out, nil
}

// --- Test server ---

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	couponRepo := &memCoupons{byCode: map[string]*coupon.Coupon{
		"SAVE10": {
			ID:            "cpn-10",
			Code:          "SAVE10",
			DiscountType:  "percentage",
			DiscountValue: decimal.NewFromInt(10),
			MinimumAmount: decimal.NewFromInt(5000),
			ValidFrom:     time.Now().Add(-time.Hour),
			ValidTo:       time.Now().Add(24 * time.Hour),
			Active:        true,
		},
	}}
	products := &memProducts{byID: map[string]*catalog.Product{
		"prod-a": {ID: "prod-a", Name: "Combo A", Price: decimal.NewFromInt(5000), PrepMinutes: 20, Orderable: true},
	}}
	orders := &memOrders{byID: make(map[string]*cart.Order)}
	ledger := &memLedger{}
	rewards := &memRewards{byID: map[string]*reward.Reward{
		"rw-1": {ID: "rw-1", Name: "10% off", PointsRequired: 100, Kind: reward.KindDiscount, Value: "10%", Active: true},
	}}
	questions := &memQuestions{questions: []trivia.Question{
		{ID: 1, Text: "q1", Options: []trivia.Option{
			{ID: 11, Text: "right", Correct: true},
			{ID: 12, Text: "wrong"},
		}},
	}}
	sessions := &memSessions{byID: make(map[string]*trivia.Session)}

	validator := coupon.NewValidator(couponRepo)
	issuer := reward.NewIssuer(couponRepo)
	loyaltySvc := loyalty.NewService(ledger, rewards, issuer)
	triviaSvc := trivia.NewService(questions, sessions, issuer, couponRepo)
	cartSvc := cart.NewService(orders, products, memBranches{}, couponRepo, validator, loyaltySvc, audit.NopObserver{})

	return NewRouter(NewHandler(cartSvc, loyaltySvc, triviaSvc, validator, products, memBranches{}))
}

func doJSON(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Customer-ID", "cust-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestMissingCustomerHeader(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetCart_EmptyView(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp orderDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.ID)
	assert.Equal(t, "cart", resp.State)
	assert.Equal(t, 15, resp.EstimatedMinutes)
}

func TestAddItem(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/cart/items", `{"product_id":"prod-a","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp orderDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.InDelta(t, 10000, resp.Subtotal, 0.001)
	assert.InDelta(t, 10000, resp.Total, 0.001)
}

func TestAddItem_Errors(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/cart/items", `{"product_id":"missing","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/cart/items", `{"product_id":"prod-a","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/cart/items", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplyCoupon_ErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/cart/items", `{"product_id":"prod-a","quantity":2}`)

	// Unknown code.
	rec := doJSON(t, srv, http.MethodPost, "/cart/coupon", `{"code":"NOPE"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Valid code applies.
	rec = doJSON(t, srv, http.MethodPost, "/cart/coupon", `{"code":"save10"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp orderDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SAVE10", resp.CouponCode)
	assert.InDelta(t, 1000, resp.Discount, 0.001)
}

func TestConfirm_BranchRequired(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/cart/items", `{"product_id":"prod-a","quantity":1}`)

	rec := doJSON(t, srv, http.MethodPost, "/cart/confirm", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestConfirmAndManagerFlow(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/cart/items", `{"product_id":"prod-a","quantity":1}`)
	doJSON(t, srv, http.MethodPut, "/cart/branch", `{"branch_id":"branch-1"}`)

	rec := doJSON(t, srv, http.MethodPost, "/cart/confirm", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var confirmed orderDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &confirmed))
	assert.Equal(t, "confirmed", confirmed.State)

	// Manager sees it among active orders.
	rec = doJSON(t, srv, http.MethodGet, "/manager/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var active []orderDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	require.Len(t, active, 1)

	// Legal transition.
	rec = doJSON(t, srv, http.MethodPut, "/manager/orders/"+confirmed.ID+"/state",
		`{"state":"in_preparation"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Skipping ahead is a business-rule violation.
	rec = doJSON(t, srv, http.MethodPut, "/manager/orders/"+confirmed.ID+"/state",
		`{"state":"delivered"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Unknown order.
	rec = doJSON(t, srv, http.MethodPut, "/manager/orders/nope/state",
		`{"state":"in_preparation"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoyaltyEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/loyalty/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"balance":0}`, rec.Body.String())

	// Redeeming without points is rejected.
	rec = doJSON(t, srv, http.MethodPost, "/loyalty/redeem", `{"reward_id":"rw-1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Unknown reward.
	rec = doJSON(t, srv, http.MethodPost, "/loyalty/redeem", `{"reward_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/loyalty/rewards", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rewards []rewardDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rewards))
	require.Len(t, rewards, 1)
	assert.Equal(t, "10%", rewards[0].Value)
}

func TestTriviaQuestionHidesCorrectFlag(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/trivia/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var session triviaSessionDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	rec = doJSON(t, srv, http.MethodGet, "/trivia/sessions/"+session.ID+"/question", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correct")

	// Answering the right option scores.
	rec = doJSON(t, srv, http.MethodPost, "/trivia/sessions/"+session.ID+"/answers",
		`{"question_id":1,"option_id":11,"response_seconds":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"points_gained":150`)

	// Pool of one question is now exhausted.
	rec = doJSON(t, srv, http.MethodGet, "/trivia/sessions/"+session.ID+"/question", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Finalize works and, with 1/5 correct, awards nothing.
	rec = doJSON(t, srv, http.MethodPost, "/trivia/sessions/"+session.ID+"/finalize", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "awarded_coupon")
}
