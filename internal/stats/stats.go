// Package stats computes the admin dashboard totals.
package stats

import (
	"context"

	"marketplace/internal/apperr"
	"marketplace/internal/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Snapshot struct {
	TotalUsers    int64           `json:"totalUsers"`
	TotalProducts int64           `json:"totalProducts"`
	TotalOrders   int64           `json:"totalOrders"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}

type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Snapshot runs the four aggregates in parallel. Revenue is the sum of the
// prices of orders currently stored; cancelled orders are deleted and so
// do not count.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	var out Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&domain.User{}).Count(&out.TotalUsers).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&domain.Product{}).Count(&out.TotalProducts).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&domain.Order{}).Count(&out.TotalOrders).Error
	})
	g.Go(func() error {
		var sum decimal.NullDecimal
		if err := s.db.WithContext(gctx).Model(&domain.Order{}).Select("SUM(price)").Row().Scan(&sum); err != nil {
			return err
		}
		out.TotalRevenue = sum.Decimal
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, apperr.Internal("admin stats", err)
	}
	return out, nil
}
