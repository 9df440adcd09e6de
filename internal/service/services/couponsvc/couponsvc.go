package couponsvc

import (
	"context"
	"time"

	"github.com/mercatolabs/fulfillment/internal/dal/postgres"
	couponrepo "github.com/mercatolabs/fulfillment/internal/dal/repositories/coupon/postgres"
	"github.com/mercatolabs/fulfillment/internal/service/models/coupon"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
)

// CouponService manages the coupon lifecycle: creation, the approval flow
// for store-owned coupons, and deactivation. Redemption happens through the
// order service so it shares the order transaction.
type CouponService struct {
	pgClient *postgres.Client
	now      func() time.Time
}

// option is a function that configures the CouponService.
type option func(*CouponService)

// MustNewCouponService creates a new CouponService.
func MustNewCouponService(opts ...option) *CouponService {
	s := &CouponService{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the CouponService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *CouponService) {
		s.pgClient = pgClient
	}
}

// WithClock overrides the time source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *CouponService) {
		s.now = now
	}
}

func (s *CouponService) repo() *couponrepo.PostgresCouponRepository {
	return couponrepo.NewPostgresCouponRepository(s.pgClient.Pool())
}

// CreateCoupon creates a coupon. Store coupons start pending approval.
func (s *CouponService) CreateCoupon(ctx context.Context, params coupon.NewCouponParams) (*coupon.Coupon, error) {
	c, err := coupon.New(params, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo().Insert(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

// GetCoupon loads one coupon with its ledger and rules.
func (s *CouponService) GetCoupon(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return s.repo().GetByID(ctx, id)
}

// ValidateCoupon reports the violations that currently block a coupon,
// without consuming a usage.
func (s *CouponService) ValidateCoupon(ctx context.Context, code string, userID int64, orderTotal money.Money, productIDs []int64, storeID *int64) ([]string, error) {
	c, err := s.repo().GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	return c.Validate(userID, orderTotal, productIDs, storeID, s.now()), nil
}

func (s *CouponService) transition(ctx context.Context, id int64, fn func(c *coupon.Coupon, now time.Time) error) (*coupon.Coupon, error) {
	repo := s.repo()

	c, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(c, s.now()); err != nil {
		return nil, err
	}

	if err := repo.Update(ctx, c, c.CurrentUsageCount); err != nil {
		return nil, err
	}

	return c, nil
}

// ApproveCoupon activates a store coupon pending approval.
func (s *CouponService) ApproveCoupon(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return s.transition(ctx, id, func(c *coupon.Coupon, now time.Time) error {
		return c.Approve(now)
	})
}

// RejectCoupon declines a store coupon pending approval.
func (s *CouponService) RejectCoupon(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return s.transition(ctx, id, func(c *coupon.Coupon, now time.Time) error {
		return c.Reject(now)
	})
}

// DeactivateCoupon retires a coupon for good.
func (s *CouponService) DeactivateCoupon(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return s.transition(ctx, id, func(c *coupon.Coupon, now time.Time) error {
		return c.Deactivate(now)
	})
}
