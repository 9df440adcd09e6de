package ordersvc

import (
	"context"

	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
	"github.com/mercatolabs/fulfillment/internal/service/models/order"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderitem"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderpackage"
)

// CreateOrderItem describes one product line of a new order.
type CreateOrderItem struct {
	ProductID    int64
	SkuID        int64
	Quantity     int
	UnitPrice    money.Money
	IsCOD        bool
	ProductTitle string
	ImageURL     string
	SkuName      string
}

// CreateOrderPackage describes one per-store package of a new order.
type CreateOrderPackage struct {
	StoreID                int64
	Items                  []CreateOrderItem
	ShippingFee            money.Money
	IsShippingPaidBySeller bool
}

// CreateOrderParams describes a new order.
type CreateOrderParams struct {
	UserID          int64
	DeliveryAddress string
	Currency        currency.Currency
	Packages        []CreateOrderPackage
}

// CreateOrder builds the aggregate from the request, persists it and records
// the order-created event, all in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, params CreateOrderParams) (*order.Order, error) {
	if len(params.Packages) == 0 {
		return nil, apperror.Validation("packages", "an order needs at least one package")
	}

	now := s.now()

	o, err := order.New(params.UserID, params.DeliveryAddress, params.Currency, s.expiresIn, now)
	if err != nil {
		return nil, err
	}

	for _, pkgParams := range params.Packages {
		if len(pkgParams.Items) == 0 {
			return nil, apperror.Validation("items", "a package needs at least one item")
		}

		pkg := orderpackage.New(pkgParams.StoreID, params.UserID, params.Currency, now)
		for _, itemParams := range pkgParams.Items {
			item, err := orderitem.New(
				itemParams.ProductID,
				itemParams.SkuID,
				itemParams.Quantity,
				itemParams.UnitPrice,
				itemParams.IsCOD,
				orderitem.ProductSnapshot{
					Title:    itemParams.ProductTitle,
					ImageURL: itemParams.ImageURL,
					SkuName:  itemParams.SkuName,
				},
				now,
			)
			if err != nil {
				return nil, err
			}
			if err := pkg.AddItem(item, now); err != nil {
				return nil, err
			}
		}

		if !pkgParams.ShippingFee.IsZero() || pkgParams.IsShippingPaidBySeller {
			if err := pkg.SetShippingFee(pkgParams.ShippingFee, pkgParams.IsShippingPaidBySeller, now); err != nil {
				return nil, err
			}
		}

		if err := o.AddPackage(pkg, now); err != nil {
			return nil, err
		}
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = work.Rollback(ctx)
	}()

	if err := work.OrderRepository().Insert(ctx, o); err != nil {
		return nil, err
	}

	// The created event carries the persistence identity, so it is raised
	// only after the insert assigned one.
	o.RaiseCreated(now)
	if err := recordEvents(ctx, work, o, now); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	return o, nil
}
