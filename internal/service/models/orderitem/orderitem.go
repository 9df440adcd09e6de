package orderitem

import (
	"time"

	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
)

// ProductSnapshot captures the product data at the moment the order is
// placed. The snapshot never changes afterwards, even if the catalog does.
type ProductSnapshot struct {
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
	SkuName  string `json:"skuName"`
}

// OrderItem is a single product line within an order package. It is immutable
// once created: the owning package only adds items while it is still pending.
type OrderItem struct {
	ID              int64           `json:"id"`
	PackageID       int64           `json:"packageId"`
	ProductID       int64           `json:"productId"`
	SkuID           int64           `json:"skuId"`
	Quantity        int             `json:"quantity"`
	UnitPrice       money.Money     `json:"unitPrice"`
	IsCOD           bool            `json:"isCod"`
	ProductSnapshot ProductSnapshot `json:"productSnapshot"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// New creates an order item. Quantity must be positive.
func New(productID, skuID int64, quantity int, unitPrice money.Money, isCOD bool, snapshot ProductSnapshot, now time.Time) (OrderItem, error) {
	if quantity <= 0 {
		return OrderItem{}, apperror.Validation("quantity", "quantity must be positive")
	}

	return OrderItem{
		ProductID:       productID,
		SkuID:           skuID,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		IsCOD:           isCOD,
		ProductSnapshot: snapshot,
		CreatedAt:       now,
	}, nil
}

// LineTotal returns unit price times quantity.
func (i OrderItem) LineTotal() money.Money {
	total, err := i.UnitPrice.Multiply(int64(i.Quantity))
	if err != nil {
		// Quantity is validated positive at construction.
		return money.Zero(i.UnitPrice.Currency)
	}

	return total
}
