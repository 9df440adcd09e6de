package postgresrepo

import (
	"errors"
	"time"

	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
	"github.com/mercatolabs/fulfillment/internal/service/models/order"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderitem"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderpackage"
)

var errInvalidStatus = errors.New("invalid status value in database")

// OrderDal represents the orders table row.
type OrderDal struct {
	Id               int64      `db:"id"`
	ShortId          string     `db:"short_id"`
	UserId           int64      `db:"user_id"`
	DeliveryAddress  string     `db:"delivery_address"`
	Status           string     `db:"status"`
	Currency         string     `db:"currency"`
	TotalAmountCents int64      `db:"total_amount_cents"`
	Version          int64      `db:"version"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
	PaidAt           *time.Time `db:"paid_at"`
	ExpiredAt        time.Time  `db:"expired_at"`
}

// PackageDal represents the order_packages table row.
type PackageDal struct {
	Id                     int64      `db:"id"`
	OrderId                int64      `db:"order_id"`
	StoreId                int64      `db:"store_id"`
	BuyerId                int64      `db:"buyer_id"`
	Status                 string     `db:"status"`
	Currency               string     `db:"currency"`
	SubTotalCents          int64      `db:"sub_total_cents"`
	TotalDiscountCents     int64      `db:"total_discount_cents"`
	ShippingFeeCents       int64      `db:"shipping_fee_cents"`
	TotalAmountCents       int64      `db:"total_amount_cents"`
	IsShippingPaidBySeller bool       `db:"is_shipping_paid_by_seller"`
	ShippingId             *int64     `db:"shipping_id"`
	RejectionReason        string     `db:"rejection_reason"`
	ConfirmedAt            *time.Time `db:"confirmed_at"`
	RejectedAt             *time.Time `db:"rejected_at"`
	ShippedAt              *time.Time `db:"shipped_at"`
	DeliveredAt            *time.Time `db:"delivered_at"`
	CompletedAt            *time.Time `db:"completed_at"`
	CancelledAt            *time.Time `db:"cancelled_at"`
	CreatedAt              time.Time  `db:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at"`
}

// ItemDal represents the order_items table row.
type ItemDal struct {
	Id              int64     `db:"id"`
	PackageId       int64     `db:"package_id"`
	ProductId       int64     `db:"product_id"`
	SkuId           int64     `db:"sku_id"`
	Quantity        int       `db:"quantity"`
	UnitPriceCents  int64     `db:"unit_price_cents"`
	Currency        string    `db:"currency"`
	IsCod           bool      `db:"is_cod"`
	ProductTitle    string    `db:"product_title"`
	ProductImageUrl string    `db:"product_image_url"`
	SkuName         string    `db:"sku_name"`
	CreatedAt       time.Time `db:"created_at"`
}

// DiscountDal represents the package_discounts table row.
type DiscountDal struct {
	Id          int64  `db:"id"`
	PackageId   int64  `db:"package_id"`
	CouponId    int64  `db:"coupon_id"`
	Code        string `db:"code"`
	AmountCents int64  `db:"amount_cents"`
	Currency    string `db:"currency"`
}

// CheckoutDal represents the package_checkouts table row.
type CheckoutDal struct {
	Id            int64     `db:"id"`
	PackageId     int64     `db:"package_id"`
	PaymentMethod string    `db:"payment_method"`
	AmountCents   int64     `db:"amount_cents"`
	Currency      string    `db:"currency"`
	CreatedAt     time.Time `db:"created_at"`
}

// TrackingDal represents the order_trackings table row.
type TrackingDal struct {
	Id           int64     `db:"id"`
	OrderId      int64     `db:"order_id"`
	Type         string    `db:"type"`
	ExecutorType string    `db:"executor_type"`
	ExecutorId   int64     `db:"executor_id"`
	Message      string    `db:"message"`
	CreatedAt    time.Time `db:"created_at"`
}

func (i *ItemDal) ToModel() (orderitem.OrderItem, error) {
	cur, err := currency.ParseCurrency(i.Currency)
	if err != nil {
		return orderitem.OrderItem{}, err
	}

	return orderitem.OrderItem{
		ID:        i.Id,
		PackageID: i.PackageId,
		ProductID: i.ProductId,
		SkuID:     i.SkuId,
		Quantity:  i.Quantity,
		UnitPrice: money.Money{AmountCents: i.UnitPriceCents, Currency: cur},
		IsCOD:     i.IsCod,
		ProductSnapshot: orderitem.ProductSnapshot{
			Title:    i.ProductTitle,
			ImageURL: i.ProductImageUrl,
			SkuName:  i.SkuName,
		},
		CreatedAt: i.CreatedAt,
	}, nil
}

func (d *DiscountDal) ToModel() (orderpackage.Discount, error) {
	cur, err := currency.ParseCurrency(d.Currency)
	if err != nil {
		return orderpackage.Discount{}, err
	}

	return orderpackage.Discount{
		ID:       d.Id,
		CouponID: d.CouponId,
		Code:     d.Code,
		Amount:   money.Money{AmountCents: d.AmountCents, Currency: cur},
	}, nil
}

func (c *CheckoutDal) ToModel() (orderpackage.Checkout, error) {
	cur, err := currency.ParseCurrency(c.Currency)
	if err != nil {
		return orderpackage.Checkout{}, err
	}

	return orderpackage.Checkout{
		ID:            c.Id,
		PaymentMethod: c.PaymentMethod,
		Amount:        money.Money{AmountCents: c.AmountCents, Currency: cur},
		CreatedAt:     c.CreatedAt,
	}, nil
}

func (t *TrackingDal) ToModel() order.OrderTracking {
	return order.OrderTracking{
		ID:           t.Id,
		OrderID:      t.OrderId,
		Type:         order.TrackingType(t.Type),
		ExecutorType: order.ExecutorType(t.ExecutorType),
		ExecutorID:   t.ExecutorId,
		Message:      t.Message,
		CreatedAt:    t.CreatedAt,
	}
}

// ToModel assembles a package from its row and child rows.
func (p *PackageDal) ToModel(
	items []orderitem.OrderItem,
	discounts []orderpackage.Discount,
	checkouts []orderpackage.Checkout,
) (*orderpackage.OrderPackage, error) {
	cur, err := currency.ParseCurrency(p.Currency)
	if err != nil {
		return nil, err
	}
	status, ok := orderpackage.ParseStatus(p.Status)
	if !ok {
		return nil, errInvalidStatus
	}

	return orderpackage.Restore(orderpackage.RestoreParams{
		ID:                     p.Id,
		OrderID:                p.OrderId,
		StoreID:                p.StoreId,
		BuyerID:                p.BuyerId,
		Status:                 status,
		Currency:               cur,
		Items:                  items,
		Discounts:              discounts,
		Checkouts:              checkouts,
		SubTotal:               money.Money{AmountCents: p.SubTotalCents, Currency: cur},
		TotalDiscount:          money.Money{AmountCents: p.TotalDiscountCents, Currency: cur},
		ShippingFee:            money.Money{AmountCents: p.ShippingFeeCents, Currency: cur},
		TotalAmount:            money.Money{AmountCents: p.TotalAmountCents, Currency: cur},
		IsShippingPaidBySeller: p.IsShippingPaidBySeller,
		ShippingID:             p.ShippingId,
		RejectionReason:        p.RejectionReason,
		ConfirmedAt:            p.ConfirmedAt,
		RejectedAt:             p.RejectedAt,
		ShippedAt:              p.ShippedAt,
		DeliveredAt:            p.DeliveredAt,
		CompletedAt:            p.CompletedAt,
		CancelledAt:            p.CancelledAt,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}), nil
}

// ToModel assembles the aggregate from its row and fully built children.
func (o *OrderDal) ToModel(
	packages []*orderpackage.OrderPackage,
	trackings []order.OrderTracking,
) (*order.Order, error) {
	cur, err := currency.ParseCurrency(o.Currency)
	if err != nil {
		return nil, err
	}
	status, ok := order.ParseStatus(o.Status)
	if !ok {
		return nil, errInvalidStatus
	}

	return order.Restore(order.RestoreParams{
		ID:              o.Id,
		ShortID:         o.ShortId,
		UserID:          o.UserId,
		DeliveryAddress: o.DeliveryAddress,
		Status:          status,
		Currency:        cur,
		TotalAmount:     money.Money{AmountCents: o.TotalAmountCents, Currency: cur},
		Packages:        packages,
		Trackings:       trackings,
		Version:         o.Version,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		PaidAt:          o.PaidAt,
		ExpiredAt:       o.ExpiredAt,
	}), nil
}
