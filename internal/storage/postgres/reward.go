package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Yuliannahernandez/backend-app/internal/domain/reward"
)

const (
	getRewardByIDSQL = `SELECT id, name, description, points_required, kind, value, active
		FROM rewards WHERE id = $1`

	listActiveRewardsSQL = `SELECT id, name, description, points_required, kind, value, active
		FROM rewards WHERE active = TRUE ORDER BY points_required`
)

var _ reward.Repository = (*RewardRepository)(nil)

// RewardRepository implements reward.Repository backed by PostgreSQL.
type RewardRepository struct {
	pool *pgxpool.Pool
}

// NewRewardRepository returns a RewardRepository that uses the given pool.
func NewRewardRepository(pool *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{pool: pool}
}

// GetByID returns a single reward by its identifier.
func (r *RewardRepository) GetByID(ctx context.Context, id string) (*reward.Reward, error) {
	rows, err := r.pool.Query(ctx, getRewardByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting reward %q: %w", id, err)
	}

	rw, err := pgx.CollectExactlyOneRow(rows, scanReward)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reward.ErrNotFound
		}
		return nil, fmt.Errorf("getting reward %q: %w", id, err)
	}
	return &rw, nil
}

// ListActive returns redeemable rewards, cheapest first.
func (r *RewardRepository) ListActive(ctx context.Context) ([]reward.Reward, error) {
	rows, err := r.pool.Query(ctx, listActiveRewardsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing rewards: %w", err)
	}
	return pgx.CollectRows(rows, scanReward)
}

func scanReward(row pgx.CollectableRow) (reward.Reward, error) {
	var (
		rw     reward.Reward
		points int32
		kind   string
	)
	err := row.Scan(&rw.ID, &rw.Name, &rw.Description, &points, &kind, &rw.Value, &rw.Active)
	rw.PointsRequired = int(points)
	rw.Kind = reward.Kind(kind)
	return rw, err
}
