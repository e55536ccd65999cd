package quota

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matasmazeikaa/copyviral-sub002/internal/models"
)

// PGTierSource reads the subscription tier flag from the accounts table.
// Accounts without a row are treated as free tier.
type PGTierSource struct {
	pool *pgxpool.Pool
}

func NewPGTierSource(pool *pgxpool.Pool) *PGTierSource {
	return &PGTierSource{pool: pool}
}

func (s *PGTierSource) Tier(ctx context.Context, accountID string) (models.Tier, error) {
	var tier string
	err := s.pool.QueryRow(ctx,
		`SELECT tier FROM accounts WHERE id=$1`,
		accountID,
	).Scan(&tier)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.TierFree, nil
		}
		return models.TierFree, err
	}

	if t := models.Tier(tier); t == models.TierPremium {
		return t, nil
	}
	return models.TierFree, nil
}
