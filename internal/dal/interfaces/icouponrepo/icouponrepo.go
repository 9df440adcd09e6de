package icouponrepo

import (
	"context"

	"github.com/mercatolabs/fulfillment/internal/service/models/coupon"
)

// ICouponRepository is the persistence contract for coupons, including their
// usage ledger and rules.
type ICouponRepository interface {
	GetByID(ctx context.Context, id int64) (*coupon.Coupon, error)
	GetByCode(ctx context.Context, code string) (*coupon.Coupon, error)
	Insert(ctx context.Context, c *coupon.Coupon) error

	// Update saves the coupon with a guard on current_usage_count so two
	// concurrent redemptions cannot both pass a usage cap. A lost race
	// returns apperror.ErrConflict.
	Update(ctx context.Context, c *coupon.Coupon, expectedUsageCount int) error
}
