package port

import (
	"context"
	"time"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
)

// PlantRepository persists catalog records.
type PlantRepository interface {
	Create(ctx context.Context, plants ...domain.Plant) ([]domain.Plant, error)
	GetByID(ctx context.Context, id string) (*domain.Plant, error)
	List(ctx context.Context, filter domain.PlantFilter) ([]domain.Plant, int, error)
	AppendImage(ctx context.Context, id, url string, at time.Time) (*domain.Plant, error)
}
