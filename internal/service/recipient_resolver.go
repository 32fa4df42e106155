// internal/service/recipient_resolver.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	appErrors "github.com/unclebandit/isp-broadcast/internal/errors"
	"github.com/unclebandit/isp-broadcast/internal/model"
	"github.com/unclebandit/isp-broadcast/internal/repository"
)

const (
	GroupAllActive = "all_active_customers"
	GroupAll       = "all_customers"
)

// StatsCache shares the last snapshot between admin sessions. Load returns nil, nil on a miss.
type StatsCache interface {
	Load(ctx context.Context) (*model.StatsSnapshot, error)
	Store(ctx context.Context, snap *model.StatsSnapshot) error
}

type Resolution struct {
	Count      int    `json:"count"`
	GroupToken string `json:"groupToken"`
	Sendable   bool   `json:"sendable"`
}

// RecipientResolver answers counts from a cached snapshot and never aggregates on its own.
// The snapshot only changes through Start or an explicit Refresh.
type RecipientResolver struct {
	Stats repository.StatsRepositoryInterface
	Cache StatsCache
	Log   logrus.FieldLogger
	Now   func() time.Time

	mu   sync.RWMutex
	snap *model.StatsSnapshot
}

// Start loads the session snapshot, preferring a warm cache over the expensive remote aggregates.
func (r *RecipientResolver) Start(ctx context.Context) error {
	if r.Cache != nil {
		snap, err := r.Cache.Load(ctx)
		if err != nil {
			r.logger().WithError(err).Warn("stats cache load failed")
		}
		if snap != nil {
			r.set(snap)
			r.logger().WithField("fetched_at", snap.FetchedAt).Info("recipient stats loaded from cache")
			return nil
		}
	}
	_, err := r.Refresh(ctx)
	return err
}

// Refresh fetches region and customer stats concurrently and swaps the snapshot once both settle.
func (r *RecipientResolver) Refresh(ctx context.Context) (*model.StatsSnapshot, error) {
	var (
		regions   []model.RegionStat
		customers *model.CustomerStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		regions, err = r.Stats.RegionStats(gctx)
		if err != nil {
			return fmt.Errorf("region stats: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		customers, err = r.Stats.CustomerStats(gctx)
		if err != nil {
			return fmt.Errorf("customer stats: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &model.StatsSnapshot{Regions: regions, FetchedAt: r.now()}
	if customers != nil {
		snap.Customers = *customers
	}
	r.set(snap)

	if r.Cache != nil {
		if err := r.Cache.Store(ctx, snap); err != nil {
			r.logger().WithError(err).Warn("stats cache store failed")
		}
	}
	r.logger().WithFields(logrus.Fields{
		"regions": len(regions),
		"total":   snap.Customers.Total,
		"active":  snap.Customers.Active,
	}).Info("recipient stats refreshed")
	return snap, nil
}

func (r *RecipientResolver) Snapshot() *model.StatsSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

func (r *RecipientResolver) Resolve(scope model.RecipientScope) (Resolution, error) {
	active, err := activeOnly(scope.StatusFilter)
	if err != nil {
		return Resolution{}, err
	}

	snap := r.Snapshot()

	switch scope.Population {
	case model.PopulationAll:
		if snap == nil {
			return Resolution{}, appErrors.ErrStatsNotLoaded
		}
		if active {
			return Resolution{Count: snap.Customers.Active, GroupToken: GroupAllActive, Sendable: true}, nil
		}
		return Resolution{Count: snap.Customers.Total, GroupToken: GroupAll, Sendable: true}, nil

	case model.PopulationRegion:
		if scope.RegionID == "" {
			return Resolution{Count: 0, Sendable: false}, nil
		}
		if snap == nil {
			return Resolution{}, appErrors.ErrStatsNotLoaded
		}
		// A region missing from the snapshot is not a sendable segment.
		for _, region := range snap.Regions {
			if region.ID != scope.RegionID {
				continue
			}
			if active {
				return Resolution{Count: region.ActiveCount, GroupToken: scope.RegionID + "_active", Sendable: true}, nil
			}
			return Resolution{Count: region.CustomerCount, GroupToken: scope.RegionID, Sendable: true}, nil
		}
		return Resolution{Count: 0, Sendable: false}, nil
	}
	return Resolution{}, appErrors.NewValidation("populationScope", fmt.Errorf("unknown population scope %q", scope.Population))
}

func activeOnly(f model.StatusFilter) (bool, error) {
	switch f {
	case model.StatusFilterActive, "":
		return true, nil
	case model.StatusFilterAll:
		return false, nil
	}
	return false, appErrors.NewValidation("statusFilter", fmt.Errorf("unknown status filter %q", f))
}

func (r *RecipientResolver) set(snap *model.StatsSnapshot) {
	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()
}

func (r *RecipientResolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *RecipientResolver) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}
