package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/event"
	"github.com/mercatolabs/fulfillment/internal/service/models/order"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderpackage"
	"github.com/mercatolabs/fulfillment/internal/service/models/outbox"
)

// ApplyCoupon validates a coupon against one package, applies the computed
// discount and consumes one usage, saving the order and the coupon ledger in
// the same transaction.
func (s *OrderService) ApplyCoupon(ctx context.Context, orderID, packageID int64, couponCode string, by order.Executor) (*order.Order, error) {
	var lastErr error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		o, err := s.tryApplyCoupon(ctx, orderID, packageID, couponCode, by)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		lastErr = err
		slog.Warn("Concurrent coupon redemption, retrying", "order_id", orderID, "coupon", couponCode, "attempt", attempt+1)
	}

	return nil, lastErr
}

func (s *OrderService) tryApplyCoupon(ctx context.Context, orderID, packageID int64, couponCode string, by order.Executor) (*order.Order, error) {
	now := s.now()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = work.Rollback(ctx)
	}()

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	pkg, err := o.Package(packageID)
	if err != nil {
		return nil, err
	}

	c, err := work.CouponRepository().GetByCode(ctx, couponCode)
	if err != nil {
		return nil, err
	}

	storeID := pkg.StoreID()
	violations := c.Validate(o.UserID(), pkg.SubTotal(), pkg.ProductIDs(), &storeID, now)
	if len(violations) > 0 {
		return nil, apperror.New(apperror.CodeCouponInvalid, "coupon", violations[0])
	}

	discount, err := c.CalculateDiscount(pkg.SubTotal())
	if err != nil {
		return nil, err
	}

	expectedUsageCount := c.CurrentUsageCount
	if err := c.MarkAsUsed(o.UserID(), o.ID(), discount, now); err != nil {
		return nil, err
	}

	err = o.ApplyCouponDiscount(packageID, orderpackage.Discount{
		CouponID: c.ID,
		Code:     c.Code,
		Amount:   discount,
	}, by, now)
	if err != nil {
		return nil, err
	}

	if err := work.CouponRepository().Update(ctx, c, expectedUsageCount); err != nil {
		return nil, err
	}
	if err := work.OrderRepository().Update(ctx, o); err != nil {
		return nil, err
	}

	msg, err := outbox.FromEvent(event.CouponRedeemed{
		CouponID:      c.ID,
		Code:          c.Code,
		OrderID:       o.ID(),
		UserID:        o.UserID(),
		DiscountCents: discount.AmountCents,
	}, work.OperationID(), now)
	if err != nil {
		return nil, err
	}
	if err := work.OutboxRepository().Insert(ctx, msg); err != nil {
		return nil, err
	}
	if err := recordEvents(ctx, work, o, now); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit coupon application: %w", err)
	}

	return o, nil
}
