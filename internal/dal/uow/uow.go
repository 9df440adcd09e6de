package uow

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mercatolabs/fulfillment/internal/dal/interfaces/icouponrepo"
	"github.com/mercatolabs/fulfillment/internal/dal/interfaces/iorderrepo"
	"github.com/mercatolabs/fulfillment/internal/dal/interfaces/ioutboxrepo"
	"github.com/mercatolabs/fulfillment/internal/dal/postgres"
	couponrepo "github.com/mercatolabs/fulfillment/internal/dal/repositories/coupon/postgres"
	orderrepo "github.com/mercatolabs/fulfillment/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/mercatolabs/fulfillment/internal/dal/repositories/outbox/postgres"
)

// unitOfWork scopes one business transaction. The order aggregate, the
// coupon ledger and the outbox rows written through it commit or roll back
// together, and every outbox row carries the operation id of the unit of
// work that produced it.
type unitOfWork struct {
	pool        *postgres.Client
	tx          pgx.Tx
	operationID uuid.UUID
	orderRepo   iorderrepo.IOrderRepository
	couponRepo  icouponrepo.ICouponRepository
	outboxRepo  ioutboxrepo.IOutboxRepository
}

func NewUnitOfWork(pgClient *postgres.Client) *unitOfWork {
	return &unitOfWork{
		pool:       pgClient,
		orderRepo:  orderrepo.NewPostgresOrderRepository(pgClient.Pool()),
		couponRepo: couponrepo.NewPostgresCouponRepository(pgClient.Pool()),
		outboxRepo: outboxrepo.NewOutboxRepository(pgClient.Pool()),
	}
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) CouponRepository() icouponrepo.ICouponRepository {
	return u.couponRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

// OperationID correlates everything written by this unit of work.
func (u *unitOfWork) OperationID() uuid.UUID {
	return u.operationID
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.pool.Pool().Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.operationID = uuid.New()
	// Rebind repositories to the transaction
	u.orderRepo = orderrepo.NewPostgresOrderRepository(tx)
	u.couponRepo = couponrepo.NewPostgresCouponRepository(tx)
	u.outboxRepo = outboxrepo.NewOutboxRepository(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit(ctx)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Rollback(ctx)
}
