package loyalty

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yuliannahernandez/backend-app/internal/domain/coupon"
	"github.com/Yuliannahernandez/backend-app/internal/domain/reward"
)

type mockLedger struct {
	mu        sync.Mutex
	entries   []Entry
	appendErr error
}

func (m *mockLedger) Balance(_ context.Context, customerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := 0
	for _, e := range m.entries {
		if e.CustomerID == customerID {
			sum += e.Points
		}
	}
	return sum, nil
}

func (m *mockLedger) Append(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockLedger) HasAccrual(_ context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Kind == KindEarned && e.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLedger) History(_ context.Context, customerID string, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.CustomerID == customerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockRewardRepo struct {
	byID map[string]*reward.Reward
}

func (m *mockRewardRepo) GetByID(_ context.Context, id string) (*reward.Reward, error) {
	rw, ok := m.byID[id]
	if !ok {
		return nil, reward.ErrNotFound
	}
	return rw, nil
}

func (m *mockRewardRepo) ListActive(context.Context) ([]reward.Reward, error) { return nil, nil }

type mockMinter struct {
	minted *coupon.Coupon
	err    error
	calls  int
}

func (m *mockMinter) MintFromReward(_ context.Context, _ string, _ *reward.Reward) (*coupon.Coupon, error) {
	m.calls++
	return m.minted, m.err
}

func newTestService(ledger *mockLedger, rewards map[string]*reward.Reward, minter *mockMinter) *Service {
	svc := NewService(ledger, &mockRewardRepo{byID: rewards}, minter)
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestAccrue(t *testing.T) {
	ledger := &mockLedger{}
	svc := newTestService(ledger, nil, &mockMinter{})

	points, err := svc.Accrue(context.Background(), "cust-1", "order-1", decimal.NewFromInt(12500))
	require.NoError(t, err)
	assert.Equal(t, 120, points)

	balance, err := svc.Balance(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, 120, balance)

	require.Len(t, ledger.entries, 1)
	assert.Equal(t, KindEarned, ledger.entries[0].Kind)
	assert.Equal(t, "order-1", ledger.entries[0].OrderID)
}

func TestAccrue_IdempotentPerOrder(t *testing.T) {
	ledger := &mockLedger{}
	svc := newTestService(ledger, nil, &mockMinter{})

	first, err := svc.Accrue(context.Background(), "cust-1", "order-1", decimal.NewFromInt(12500))
	require.NoError(t, err)
	assert.Equal(t, 120, first)

	second, err := svc.Accrue(context.Background(), "cust-1", "order-1", decimal.NewFromInt(12500))
	require.NoError(t, err)
	assert.Equal(t, 0, second)

	balance, _ := svc.Balance(context.Background(), "cust-1")
	assert.Equal(t, 120, balance)
	assert.Len(t, ledger.entries, 1)
}

func TestAccrue_SmallOrderGrantsNothing(t *testing.T) {
	ledger := &mockLedger{}
	svc := newTestService(ledger, nil, &mockMinter{})

	points, err := svc.Accrue(context.Background(), "cust-1", "order-2", decimal.NewFromInt(999))
	require.NoError(t, err)
	assert.Equal(t, 0, points)
	assert.Empty(t, ledger.entries)
}

func TestRedeem(t *testing.T) {
	ledger := &mockLedger{entries: []Entry{
		{ID: "e1", CustomerID: "cust-1", Points: 150, Kind: KindEarned},
	}}
	rewards := map[string]*reward.Reward{
		"r1": {ID: "r1", Name: "Free delivery", PointsRequired: 100, Kind: reward.KindFreeProduct},
	}
	minter := &mockMinter{}
	svc := newTestService(ledger, rewards, minter)

	res, err := svc.Redeem(context.Background(), "cust-1", "r1")
	require.NoError(t, err)
	assert.Equal(t, 50, res.RemainingBalance)
	assert.Nil(t, res.IssuedCoupon)
	assert.Equal(t, 0, minter.calls, "free product rewards must not mint coupons")

	require.Len(t, ledger.entries, 2)
	redeemed := ledger.entries[1]
	assert.Equal(t, KindRedeemed, redeemed.Kind)
	assert.Equal(t, -100, redeemed.Points)
	assert.Equal(t, "r1", redeemed.RewardID)

	balance, _ := svc.Balance(context.Background(), "cust-1")
	assert.Equal(t, 50, balance)
}

func TestRedeem_InsufficientPoints(t *testing.T) {
	ledger := &mockLedger{entries: []Entry{
		{ID: "e1", CustomerID: "cust-1", Points: 40, Kind: KindEarned},
	}}
	rewards := map[string]*reward.Reward{
		"r1": {ID: "r1", Name: "Big discount", PointsRequired: 100, Kind: reward.KindCoupon, Value: "10%"},
	}
	svc := newTestService(ledger, rewards, &mockMinter{})

	_, err := svc.Redeem(context.Background(), "cust-1", "r1")
	require.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Len(t, ledger.entries, 1, "rejected redemption must not append an entry")
}

func TestRedeem_ConcurrentRedemptionsCannotOverdraw(t *testing.T) {
	ledger := &mockLedger{entries: []Entry{
		{ID: "e1", CustomerID: "cust-1", Points: 150, Kind: KindEarned},
	}}
	rewards := map[string]*reward.Reward{
		"r1": {ID: "r1", Name: "Free delivery", PointsRequired: 100, Kind: reward.KindFreeProduct},
	}
	svc := newTestService(ledger, rewards, &mockMinter{})

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), "cust-1", "r1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrInsufficientPoints)
		}
	}
	assert.Equal(t, 1, succeeded, "balance 150 covers exactly one 100-point redemption")

	balance, err := svc.Balance(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, 50, balance, "ledger must never go negative")
}

func TestRedeem_UnknownReward(t *testing.T) {
	svc := newTestService(&mockLedger{}, nil, &mockMinter{})

	_, err := svc.Redeem(context.Background(), "cust-1", "missing")
	require.ErrorIs(t, err, reward.ErrNotFound)
}

func TestRedeem_CouponKindMintsCoupon(t *testing.T) {
	ledger := &mockLedger{entries: []Entry{
		{ID: "e1", CustomerID: "cust-1", Points: 200, Kind: KindEarned},
	}}
	rewards := map[string]*reward.Reward{
		"r1": {ID: "r1", Name: "15% off", PointsRequired: 150, Kind: reward.KindCoupon, Value: "15%"},
	}
	minted := &coupon.Coupon{ID: "cpn-1", Code: "REWARDABC123"}
	minter := &mockMinter{minted: minted}
	svc := newTestService(ledger, rewards, minter)

	res, err := svc.Redeem(context.Background(), "cust-1", "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, minter.calls)
	assert.Equal(t, minted, res.IssuedCoupon)
	assert.Equal(t, 50, res.RemainingBalance)
}

func TestRedeem_MintFailureAbortsRedemption(t *testing.T) {
	ledger := &mockLedger{entries: []Entry{
		{ID: "e1", CustomerID: "cust-1", Points: 200, Kind: KindEarned},
	}}
	rewards := map[string]*reward.Reward{
		"r1": {ID: "r1", Name: "15% off", PointsRequired: 150, Kind: reward.KindCoupon, Value: "15%"},
	}
	svc := newTestService(ledger, rewards, &mockMinter{err: assert.AnError})

	_, err := svc.Redeem(context.Background(), "cust-1", "r1")
	require.Error(t, err)

	balance, _ := svc.Balance(context.Background(), "cust-1")
	assert.Equal(t, 200, balance, "points must not be spent when minting fails")
}

func TestHistory_NewestFirst(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ledger := &mockLedger{entries: []Entry{
		{ID: "e1", CustomerID: "cust-1", Points: 100, Kind: KindEarned, CreatedAt: base},
		{ID: "e2", CustomerID: "cust-1", Points: -50, Kind: KindRedeemed, CreatedAt: base.Add(time.Hour)},
		{ID: "e3", CustomerID: "cust-2", Points: 70, Kind: KindEarned, CreatedAt: base.Add(2 * time.Hour)},
	}}
	svc := newTestService(ledger, nil, &mockMinter{})

	history, err := svc.History(context.Background(), "cust-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "e2", history[0].ID)
	assert.Equal(t, "e1", history[1].ID)
}
