package createorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
	"github.com/mercatolabs/fulfillment/internal/service/models/order"
	"github.com/mercatolabs/fulfillment/internal/service/services/ordersvc"
	"github.com/mercatolabs/fulfillment/internal/transport/http/converters"
	"github.com/mercatolabs/fulfillment/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, params ordersvc.CreateOrderParams) (*order.Order, error)
}

// itemInCreateOrderRequest represents an item in a create order request.
type itemInCreateOrderRequest struct {
	ProductID      int64  `json:"productId"      validate:"gt=0"`
	SkuID          int64  `json:"skuId"`
	Quantity       int    `json:"quantity"       validate:"gt=0"`
	UnitPriceCents int64  `json:"unitPriceCents" validate:"gte=0"`
	IsCOD          bool   `json:"isCod"`
	ProductTitle   string `json:"productTitle"   validate:"required"`
	ImageURL       string `json:"imageUrl"`
	SkuName        string `json:"skuName"`
}

// packageInCreateOrderRequest represents one per-store package in a create
// order request.
type packageInCreateOrderRequest struct {
	StoreID                int64                      `json:"storeId"     validate:"gt=0"`
	ShippingFeeCents       int64                      `json:"shippingFeeCents" validate:"gte=0"`
	IsShippingPaidBySeller bool                       `json:"isShippingPaidBySeller"`
	Items                  []itemInCreateOrderRequest `json:"items"       validate:"required,min=1,dive"`
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	UserID          int64                         `json:"userId"          validate:"gt=0"`
	DeliveryAddress string                        `json:"deliveryAddress" validate:"required"`
	Currency        string                        `json:"currency"        validate:"required"`
	Packages        []packageInCreateOrderRequest `json:"packages"        validate:"required,min=1,dive"`
}

// Validate validates the create order request.
func (r *createOrderRequest) Validate() error {
	return validator.New().Struct(r)
}

func (r *createOrderRequest) toParams() (ordersvc.CreateOrderParams, error) {
	cur, err := currency.ParseCurrency(r.Currency)
	if err != nil {
		return ordersvc.CreateOrderParams{}, err
	}

	packages := make([]ordersvc.CreateOrderPackage, len(r.Packages))
	for i, pkg := range r.Packages {
		items := make([]ordersvc.CreateOrderItem, len(pkg.Items))
		for j, item := range pkg.Items {
			unitPrice, err := money.New(item.UnitPriceCents, cur)
			if err != nil {
				return ordersvc.CreateOrderParams{}, err
			}
			items[j] = ordersvc.CreateOrderItem{
				ProductID:    item.ProductID,
				SkuID:        item.SkuID,
				Quantity:     item.Quantity,
				UnitPrice:    unitPrice,
				IsCOD:        item.IsCOD,
				ProductTitle: item.ProductTitle,
				ImageURL:     item.ImageURL,
				SkuName:      item.SkuName,
			}
		}

		shippingFee, err := money.New(pkg.ShippingFeeCents, cur)
		if err != nil {
			return ordersvc.CreateOrderParams{}, err
		}
		packages[i] = ordersvc.CreateOrderPackage{
			StoreID:                pkg.StoreID,
			Items:                  items,
			ShippingFee:            shippingFee,
			IsShippingPaidBySeller: pkg.IsShippingPaidBySeller,
		}
	}

	return ordersvc.CreateOrderParams{
		UserID:          r.UserID,
		DeliveryAddress: r.DeliveryAddress,
		Currency:        cur,
		Packages:        packages,
	}, nil
}

// CreateOrder handles the create order request.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	req := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, err.Error())
		slog.Error("Error decoding request body for create order", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		respond.BadRequest(w, err.Error())
		slog.Error("Error validating request body for create order", "error", err)

		return
	}

	params, err := req.toParams()
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error converting create order request to params", "error", err)

		return
	}

	o, err := service.CreateOrder(r.Context(), params)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error creating order", "error", err)

		return
	}

	respond.JSON(w, http.StatusCreated, converters.OrderToResponse(o))
}
