package repo

import (
	"context"

	"telepost/internal/biz/domain"
)

// StatsRepo is the durable counter store: read once at startup, written
// through on every stats mutation.
type StatsRepo interface {
	Load(ctx context.Context) (*domain.StatsSnapshot, error)
	Save(ctx context.Context, snap *domain.StatsSnapshot) error
	Close() error
}
