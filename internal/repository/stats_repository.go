// internal/repository/stats_repository.go
package repository

import (
	"context"
	"net/http"

	"github.com/unclebandit/isp-broadcast/internal/model"
)

// StatsRepositoryInterface exposes the expensive aggregate counts; callers are expected to cache them.
type StatsRepositoryInterface interface {
	RegionStats(ctx context.Context) ([]model.RegionStat, error)
	CustomerStats(ctx context.Context) (*model.CustomerStats, error)
}

type StatsRepository struct {
	Client *Client
}

func (r *StatsRepository) RegionStats(ctx context.Context) ([]model.RegionStat, error) {
	var out listEnvelope[model.RegionStat]
	if err := r.Client.do(ctx, http.MethodGet, "/stats/regions", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (r *StatsRepository) CustomerStats(ctx context.Context) (*model.CustomerStats, error) {
	var out model.CustomerStats
	if err := r.Client.do(ctx, http.MethodGet, "/stats/customers", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var _ StatsRepositoryInterface = (*StatsRepository)(nil)
