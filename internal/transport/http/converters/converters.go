package converters

import (
	"time"

	"github.com/mercatolabs/fulfillment/internal/service/models/money"
	"github.com/mercatolabs/fulfillment/internal/service/models/order"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderitem"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderpackage"
)

// OrderResponse is the JSON representation of a full order aggregate.
type OrderResponse struct {
	ID              int64              `json:"id"`
	ShortID         string             `json:"shortId"`
	UserID          int64              `json:"userId"`
	DeliveryAddress string             `json:"deliveryAddress"`
	Status          string             `json:"status"`
	Currency        string             `json:"currency"`
	TotalAmount     money.Money        `json:"totalAmount"`
	Version         int64              `json:"version"`
	Packages        []PackageResponse  `json:"packages,omitempty"`
	Trackings       []TrackingResponse `json:"trackings,omitempty"`
	PaidAt          *time.Time         `json:"paidAt,omitempty"`
	ExpiredAt       time.Time          `json:"expiredAt"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// PackageResponse is the JSON representation of one per-store package.
type PackageResponse struct {
	ID                     int64                   `json:"id"`
	OrderID                int64                   `json:"orderId"`
	StoreID                int64                   `json:"storeId"`
	Status                 string                  `json:"status"`
	SubTotal               money.Money             `json:"subTotal"`
	TotalDiscount          money.Money             `json:"totalDiscount"`
	ShippingFee            money.Money             `json:"shippingFee"`
	IsShippingPaidBySeller bool                    `json:"isShippingPaidBySeller"`
	TotalAmount            money.Money             `json:"totalAmount"`
	ShippingID             *int64                  `json:"shippingId,omitempty"`
	RejectionReason        string                  `json:"rejectionReason,omitempty"`
	Items                  []orderitem.OrderItem   `json:"items"`
	Discounts              []orderpackage.Discount `json:"discounts,omitempty"`
	Checkouts              []orderpackage.Checkout `json:"checkouts,omitempty"`
	CreatedAt              time.Time               `json:"createdAt"`
	UpdatedAt              time.Time               `json:"updatedAt"`
}

// TrackingResponse is one entry of the order history ledger.
type TrackingResponse struct {
	ID           int64     `json:"id"`
	Type         string    `json:"type"`
	ExecutorType string    `json:"executorType"`
	ExecutorID   int64     `json:"executorId"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"createdAt"`
}

// OrderToResponse converts an order aggregate to its JSON representation.
func OrderToResponse(o *order.Order) OrderResponse {
	packages := make([]PackageResponse, 0, len(o.Packages()))
	for _, pkg := range o.Packages() {
		packages = append(packages, PackageToResponse(pkg))
	}

	trackings := make([]TrackingResponse, 0, len(o.Trackings()))
	for _, t := range o.Trackings() {
		trackings = append(trackings, TrackingResponse{
			ID:           t.ID,
			Type:         string(t.Type),
			ExecutorType: string(t.ExecutorType),
			ExecutorID:   t.ExecutorID,
			Message:      t.Message,
			CreatedAt:    t.CreatedAt,
		})
	}

	return OrderResponse{
		ID:              o.ID(),
		ShortID:         o.ShortID(),
		UserID:          o.UserID(),
		DeliveryAddress: o.DeliveryAddress(),
		Status:          string(o.Status()),
		Currency:        o.Currency().String(),
		TotalAmount:     o.TotalAmount(),
		Version:         o.Version(),
		Packages:        packages,
		Trackings:       trackings,
		PaidAt:          o.PaidAt(),
		ExpiredAt:       o.ExpiredAt(),
		CreatedAt:       o.CreatedAt(),
		UpdatedAt:       o.UpdatedAt(),
	}
}

// PackageToResponse converts one package to its JSON representation.
func PackageToResponse(pkg *orderpackage.OrderPackage) PackageResponse {
	return PackageResponse{
		ID:                     pkg.ID(),
		OrderID:                pkg.OrderID(),
		StoreID:                pkg.StoreID(),
		Status:                 string(pkg.Status()),
		SubTotal:               pkg.SubTotal(),
		TotalDiscount:          pkg.TotalDiscount(),
		ShippingFee:            pkg.ShippingFee(),
		IsShippingPaidBySeller: pkg.IsShippingPaidBySeller(),
		TotalAmount:            pkg.TotalAmount(),
		ShippingID:             pkg.ShippingID(),
		RejectionReason:        pkg.RejectionReason(),
		Items:                  pkg.Items(),
		Discounts:              pkg.Discounts(),
		Checkouts:              pkg.Checkouts(),
		CreatedAt:              pkg.CreatedAt(),
		UpdatedAt:              pkg.UpdatedAt(),
	}
}

// OrdersToResponse converts a list of aggregates.
func OrdersToResponse(orders []*order.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = OrderToResponse(o)
	}

	return out
}
