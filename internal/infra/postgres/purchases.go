package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Purchases reads the shop's bonus-test purchase ledger.
type Purchases struct {
	pool *pgxpool.Pool
}

// NewPurchases reads purchases through pool.
func NewPurchases(pool *pgxpool.Pool) *Purchases {
	return &Purchases{pool: pool}
}

func (p *Purchases) HasPurchased(ctx context.Context, userID, testID string) (bool, error) {
	var ok bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM purchases WHERE user_id=$1 AND test_id=$2)`, userID, testID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	return ok, nil
}

// Grant records a purchase; the shop owns this table, the engine only uses it in seeding and tests.
func (p *Purchases) Grant(ctx context.Context, userID, testID string) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO purchases (user_id, test_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, testID)
	return err
}
