package ordersvc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mercatolabs/fulfillment/internal/dal/interfaces/icouponrepo"
	"github.com/mercatolabs/fulfillment/internal/dal/interfaces/iorderrepo"
	"github.com/mercatolabs/fulfillment/internal/dal/interfaces/ioutboxrepo"
	"github.com/mercatolabs/fulfillment/internal/dal/postgres"
	"github.com/mercatolabs/fulfillment/internal/dal/uow"
	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
	"github.com/mercatolabs/fulfillment/internal/service/models/order"
	"github.com/mercatolabs/fulfillment/internal/service/models/outbox"
	"github.com/spf13/viper"
)

// conflictRetries bounds how often a use case is replayed from a fresh read
// after losing an optimistic concurrency race.
const conflictRetries = 3

// OrderService coordinates order use cases. Every mutation runs inside a
// unit of work that commits the aggregate change and the outbox rows derived
// from its raised events atomically.
type OrderService struct {
	pgClient   *postgres.Client
	now        func() time.Time
	codCeiling money.Money
	expiresIn  time.Duration
	feeRate    float64
}

func (s *OrderService) newUOW() unitOfWork {
	return uow.NewUnitOfWork(s.pgClient)
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OperationID() uuid.UUID
	OrderRepository() iorderrepo.IOrderRepository
	CouponRepository() icouponrepo.ICouponRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	codCeilingCents := viper.GetInt64("order.cod_ceiling_cents")
	if codCeilingCents == 0 {
		codCeilingCents = 2_000_000
	}

	expirationMinutes := viper.GetInt("order.expiration_minutes")
	if expirationMinutes == 0 {
		expirationMinutes = 2 * 24 * 60
	}

	feeRate := viper.GetFloat64("order.service_fee_percent")
	if feeRate == 0 {
		feeRate = 9.9
	}

	s := &OrderService{
		now:        time.Now,
		codCeiling: money.Money{AmountCents: codCeilingCents, Currency: currency.CurrencyVND},
		expiresIn:  time.Duration(expirationMinutes) * time.Minute,
		feeRate:    feeRate,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
	}
}

// WithClock overrides the time source. Used by tests to make transition
// timestamps deterministic.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *OrderService) {
		s.now = now
	}
}

// recordEvents turns the events raised by the aggregate into outbox rows
// within the same unit of work, then clears them.
func recordEvents(ctx context.Context, work unitOfWork, o *order.Order, now time.Time) error {
	for _, ev := range o.Events() {
		msg, err := outbox.FromEvent(ev, work.OperationID(), now)
		if err != nil {
			return err
		}
		if err := work.OutboxRepository().Insert(ctx, msg); err != nil {
			return err
		}
	}
	o.ClearEvents()

	return nil
}

// mutate runs one use case against a freshly loaded aggregate and saves it.
// A lost optimistic concurrency race is replayed from a new read, never
// merged.
func (s *OrderService) mutate(ctx context.Context, orderID int64, fn func(o *order.Order, now time.Time) error) (*order.Order, error) {
	var lastErr error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		o, err := s.tryMutate(ctx, orderID, fn)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		lastErr = err
		slog.Warn("Concurrent order modification, retrying", "order_id", orderID, "attempt", attempt+1)
	}

	return nil, lastErr
}

func (s *OrderService) tryMutate(ctx context.Context, orderID int64, fn func(o *order.Order, now time.Time) error) (*order.Order, error) {
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

	if err := fn(o, now); err != nil {
		return nil, err
	}

	if err := recordEvents(ctx, work, o, now); err != nil {
		return nil, err
	}
	if err := work.OrderRepository().Update(ctx, o); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	return o, nil
}

// GetOrder loads one full aggregate.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	work := s.newUOW()

	return work.OrderRepository().GetByID(ctx, orderID)
}

// ListOrders lists orders without child collections.
func (s *OrderService) ListOrders(ctx context.Context, filter *iorderrepo.QueryOrdersModel) ([]*order.Order, error) {
	work := s.newUOW()

	return work.OrderRepository().Query(ctx, filter)
}

// MarkAsPaid records a successful payment.
func (s *OrderService) MarkAsPaid(ctx context.Context, orderID int64, by order.Executor) (*order.Order, error) {
	return s.mutate(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.MarkAsPaid(by, now)
	})
}

// MarkAsCOD selects cash on delivery, subject to the configured ceiling.
func (s *OrderService) MarkAsCOD(ctx context.Context, orderID int64, by order.Executor) (*order.Order, error) {
	return s.mutate(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.MarkAsCOD(s.codCeiling, by, now)
	})
}

// ConfirmPackage confirms one package on behalf of its seller.
func (s *OrderService) ConfirmPackage(ctx context.Context, orderID, packageID int64, by order.Executor) (*order.Order, error) {
	return s.mutate(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.ConfirmPackage(packageID, by, now)
	})
}

// RejectPackage rejects one package with a reason.
func (s *OrderService) RejectPackage(ctx context.Context, orderID, packageID int64, reason string, by order.Executor) (*order.Order, error) {
	return s.mutate(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.RejectPackage(packageID, reason, by, now)
	})
}

// AssignShipping attaches a shipping order to a confirmed package.
func (s *OrderService) AssignShipping(ctx context.Context, orderID, packageID, shippingID int64, by order.Executor) (*order.Order, error) {
	return s.mutate(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.AssignShipping(packageID, shippingID, by, now)
	})
}

// ShipPackage marks a package as handed to the carrier.
func (s *OrderService) ShipPackage(ctx context.Context, orderID, packageID int64, by order.Executor) (*order.Order, error) {
	return s.mutate(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.ShipPackage(packageID, by, now)
	})
}

// MarkPackageAsDelivered marks a package as delivered to the buyer.
func (s *OrderService) MarkPackageAsDelivered(ctx context.Context, orderID, packageID int64, by order.Executor) (*order.Order, error) {
	return s.mutate(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.MarkPackageAsDelivered(packageID, by, now)
	})
}

// CompleteOrder finishes a delivered order and reports the seller payout
// after the platform service fee.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID int64, by order.Executor) (*order.Order, error) {
	o, err := s.mutate(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.Complete(by, now)
	})
	if err != nil {
		return nil, err
	}

	for _, pkg := range o.Packages() {
		fee, err := pkg.TotalAmount().PercentOf(s.feeRate)
		if err != nil {
			continue
		}
		payout, err := pkg.TotalAmount().Subtract(fee)
		if err != nil {
			continue
		}
		slog.Info("Package completed",
			"order_id", o.ID(),
			"package_id", pkg.ID(),
			"store_id", pkg.StoreID(),
			"service_fee", fee.String(),
			"seller_payout", payout.String(),
		)
	}

	return o, nil
}

// CancelOrder cancels the order and its still-cancellable packages.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64, reason string, by order.Executor) (*order.Order, error) {
	return s.mutate(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.Cancel(reason, by, now)
	})
}

// ExpireOrder expires an unpaid order whose payment window passed.
func (s *OrderService) ExpireOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	return s.mutate(ctx, orderID, func(o *order.Order, now time.Time) error {
		return o.MarkAsExpired(now)
	})
}
