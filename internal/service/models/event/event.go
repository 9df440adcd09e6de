package event

import "time"

// Event is an integration event raised by an aggregate. Events are recorded
// in the outbox within the same transaction as the aggregate mutation and
// relayed to the broker asynchronously.
type Event interface {
	EventType() string
}

const (
	TypeOrderCreated     = "order.created"
	TypeOrderPaid        = "order.paid"
	TypeOrderCODPlaced   = "order.cod_placed"
	TypeOrderConfirmed   = "order.confirmed"
	TypeOrderDelivered   = "order.delivered"
	TypeOrderCompleted   = "order.completed"
	TypeOrderCancelled   = "order.cancelled"
	TypeOrderExpired     = "order.expired"
	TypePackageConfirmed = "package.confirmed"
	TypePackageRejected  = "package.rejected"
	TypePackageShipped   = "package.shipped"
	TypeCouponRedeemed   = "coupon.redeemed"
)

type OrderCreated struct {
	OrderID         int64     `json:"order_id"`
	ShortID         string    `json:"short_id"`
	UserID          int64     `json:"user_id"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Currency        string    `json:"currency"`
	CreatedAt       time.Time `json:"created_at"`
}

func (OrderCreated) EventType() string { return TypeOrderCreated }

type OrderPaid struct {
	OrderID         int64     `json:"order_id"`
	UserID          int64     `json:"user_id"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Currency        string    `json:"currency"`
	PaidAt          time.Time `json:"paid_at"`
}

func (OrderPaid) EventType() string { return TypeOrderPaid }

type OrderCODPlaced struct {
	OrderID         int64  `json:"order_id"`
	UserID          int64  `json:"user_id"`
	TotalPriceCents int64  `json:"total_price_cents"`
	Currency        string `json:"currency"`
}

func (OrderCODPlaced) EventType() string { return TypeOrderCODPlaced }

type OrderConfirmed struct {
	OrderID     int64     `json:"order_id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

func (OrderConfirmed) EventType() string { return TypeOrderConfirmed }

type OrderDelivered struct {
	OrderID     int64     `json:"order_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

func (OrderDelivered) EventType() string { return TypeOrderDelivered }

type OrderCompleted struct {
	OrderID     int64     `json:"order_id"`
	CompletedAt time.Time `json:"completed_at"`
}

func (OrderCompleted) EventType() string { return TypeOrderCompleted }

type OrderCancelled struct {
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

func (OrderCancelled) EventType() string { return TypeOrderCancelled }

type OrderExpired struct {
	OrderID   int64     `json:"order_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

func (OrderExpired) EventType() string { return TypeOrderExpired }

type PackageConfirmed struct {
	OrderID   int64 `json:"order_id"`
	PackageID int64 `json:"package_id"`
	StoreID   int64 `json:"store_id"`
}

func (PackageConfirmed) EventType() string { return TypePackageConfirmed }

type PackageRejected struct {
	OrderID   int64  `json:"order_id"`
	PackageID int64  `json:"package_id"`
	StoreID   int64  `json:"store_id"`
	Reason    string `json:"reason"`
}

func (PackageRejected) EventType() string { return TypePackageRejected }

type PackageShipped struct {
	OrderID    int64 `json:"order_id"`
	PackageID  int64 `json:"package_id"`
	ShippingID int64 `json:"shipping_id"`
}

func (PackageShipped) EventType() string { return TypePackageShipped }

type CouponRedeemed struct {
	CouponID      int64  `json:"coupon_id"`
	Code          string `json:"code"`
	OrderID       int64  `json:"order_id"`
	UserID        int64  `json:"user_id"`
	DiscountCents int64  `json:"discount_cents"`
}

func (CouponRedeemed) EventType() string { return TypeCouponRedeemed }
