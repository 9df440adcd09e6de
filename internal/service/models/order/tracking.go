package order

import "time"

// TrackingType names the state change an OrderTracking entry records.
type TrackingType string

const (
	TrackingOrderCreated     TrackingType = "order_created"
	TrackingOrderPaid        TrackingType = "order_paid"
	TrackingCODPlaced        TrackingType = "cod_placed"
	TrackingPackageConfirmed TrackingType = "package_confirmed"
	TrackingOrderConfirmed   TrackingType = "order_confirmed"
	TrackingPackageRejected  TrackingType = "package_rejected"
	TrackingShippingAssigned TrackingType = "shipping_assigned"
	TrackingPackageShipped   TrackingType = "package_shipped"
	TrackingPackageDelivered TrackingType = "package_delivered"
	TrackingOrderDelivered   TrackingType = "order_delivered"
	TrackingOrderCompleted   TrackingType = "order_completed"
	TrackingOrderCancelled   TrackingType = "order_cancelled"
	TrackingOrderExpired     TrackingType = "order_expired"
	TrackingCouponApplied    TrackingType = "coupon_applied"
)

// ExecutorType identifies who performed a state change.
type ExecutorType string

const (
	ExecutorBuyer  ExecutorType = "buyer"
	ExecutorSeller ExecutorType = "seller"
	ExecutorAdmin  ExecutorType = "admin"
	ExecutorSystem ExecutorType = "system"
)

// Executor is the actor of a state change. System-initiated transitions use
// SystemExecutor.
type Executor struct {
	Type ExecutorType `json:"type"`
	ID   int64        `json:"id"`
}

// SystemExecutor marks transitions triggered by the aggregate itself, such as
// auto-advancing the order once every package is confirmed.
var SystemExecutor = Executor{Type: ExecutorSystem}

// OrderTracking is one entry of the append-only audit ledger. Every state
// change of the order or one of its packages appends exactly one entry,
// including auto-transitions.
type OrderTracking struct {
	ID           int64        `json:"id"`
	OrderID      int64        `json:"orderId"`
	Type         TrackingType `json:"type"`
	ExecutorType ExecutorType `json:"executorType"`
	ExecutorID   int64        `json:"executorId"`
	Message      string       `json:"message"`
	CreatedAt    time.Time    `json:"createdAt"`
}
