package coupons

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mercatolabs/fulfillment/internal/service/models/coupon"
	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
	"github.com/mercatolabs/fulfillment/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	CreateCoupon(ctx context.Context, params coupon.NewCouponParams) (*coupon.Coupon, error)
	GetCoupon(ctx context.Context, id int64) (*coupon.Coupon, error)
	ApproveCoupon(ctx context.Context, id int64) (*coupon.Coupon, error)
	RejectCoupon(ctx context.Context, id int64) (*coupon.Coupon, error)
	DeactivateCoupon(ctx context.Context, id int64) (*coupon.Coupon, error)
	ValidateCoupon(ctx context.Context, code string, userID int64, orderTotal money.Money, productIDs []int64, storeID *int64) ([]string, error)
}

// ruleInCreateCouponRequest is one extra eligibility rule on a new coupon.
type ruleInCreateCouponRequest struct {
	RuleType string `json:"ruleType" validate:"required"`
	Value    string `json:"value"`
}

// createCouponRequest represents a create coupon request.
type createCouponRequest struct {
	Code                   string                      `json:"code"         validate:"required"`
	DiscountType           string                      `json:"discountType" validate:"required"`
	DiscountAmountCents    int64                       `json:"discountAmountCents"`
	DiscountPercentage     float64                     `json:"discountPercentage"`
	MaxDiscountAmountCents *int64                      `json:"maxDiscountAmountCents,omitempty"`
	MinOrderAmountCents    int64                       `json:"minOrderAmountCents"`
	Currency               string                      `json:"currency"  validate:"required"`
	OwnerType              string                      `json:"ownerType" validate:"required"`
	StoreID                *int64                      `json:"storeId,omitempty"`
	StartDate              time.Time                   `json:"startDate" validate:"required"`
	EndDate                time.Time                   `json:"endDate"   validate:"required"`
	MaxUsageCount          *int                        `json:"maxUsageCount,omitempty"`
	MaxUsagePerUser        *int                        `json:"maxUsagePerUser,omitempty"`
	ApplicableProductIDs   []int64                     `json:"applicableProductIds,omitempty"`
	ApplicableStoreIDs     []int64                     `json:"applicableStoreIds,omitempty"`
	Rules                  []ruleInCreateCouponRequest `json:"rules,omitempty"`
}

// Validate validates the create coupon request.
func (r *createCouponRequest) Validate() error {
	return validator.New().Struct(r)
}

func (r *createCouponRequest) toParams() (coupon.NewCouponParams, error) {
	cur, err := currency.ParseCurrency(r.Currency)
	if err != nil {
		return coupon.NewCouponParams{}, err
	}

	discountAmount, err := money.New(r.DiscountAmountCents, cur)
	if err != nil {
		return coupon.NewCouponParams{}, err
	}
	minOrderAmount, err := money.New(r.MinOrderAmountCents, cur)
	if err != nil {
		return coupon.NewCouponParams{}, err
	}

	var maxDiscountAmount *money.Money
	if r.MaxDiscountAmountCents != nil {
		m, err := money.New(*r.MaxDiscountAmountCents, cur)
		if err != nil {
			return coupon.NewCouponParams{}, err
		}
		maxDiscountAmount = &m
	}

	rules := make([]coupon.CouponRule, 0, len(r.Rules))
	for _, rule := range r.Rules {
		rules = append(rules, coupon.CouponRule{RuleType: rule.RuleType, Value: rule.Value})
	}

	return coupon.NewCouponParams{
		Code:                 r.Code,
		DiscountType:         coupon.DiscountType(r.DiscountType),
		DiscountAmount:       discountAmount,
		DiscountPercentage:   r.DiscountPercentage,
		MaxDiscountAmount:    maxDiscountAmount,
		MinOrderAmount:       minOrderAmount,
		OwnerType:            coupon.OwnerType(r.OwnerType),
		StoreID:              r.StoreID,
		StartDate:            r.StartDate,
		EndDate:              r.EndDate,
		MaxUsageCount:        r.MaxUsageCount,
		MaxUsagePerUser:      r.MaxUsagePerUser,
		ApplicableProductIDs: r.ApplicableProductIDs,
		ApplicableStoreIDs:   r.ApplicableStoreIDs,
		Rules:                rules,
	}, nil
}

// CreateCoupon handles the create coupon request.
func CreateCoupon(w http.ResponseWriter, r *http.Request, service service) {
	req := createCouponRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, err.Error())
		slog.Error("Error decoding request body for create coupon", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		respond.BadRequest(w, err.Error())
		slog.Error("Error validating request body for create coupon", "error", err)

		return
	}

	params, err := req.toParams()
	if err != nil {
		respond.Error(w, err)

		return
	}

	c, err := service.CreateCoupon(r.Context(), params)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error creating coupon", "code", req.Code, "error", err)

		return
	}

	respond.JSON(w, http.StatusCreated, c)
}

// GetCoupon handles the get coupon request.
func GetCoupon(w http.ResponseWriter, r *http.Request, service service) {
	id, err := couponID(r)
	if err != nil {
		respond.BadRequest(w, "invalid coupon id")

		return
	}

	c, err := service.GetCoupon(r.Context(), id)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error getting coupon", "coupon_id", id, "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, c)
}

// ApproveCoupon handles the approve coupon request.
func ApproveCoupon(w http.ResponseWriter, r *http.Request, service service) {
	transition(w, r, "approve", service.ApproveCoupon)
}

// RejectCoupon handles the reject coupon request.
func RejectCoupon(w http.ResponseWriter, r *http.Request, service service) {
	transition(w, r, "reject", service.RejectCoupon)
}

// DeactivateCoupon handles the deactivate coupon request.
func DeactivateCoupon(w http.ResponseWriter, r *http.Request, service service) {
	transition(w, r, "deactivate", service.DeactivateCoupon)
}

func transition(w http.ResponseWriter, r *http.Request, action string,
	fn func(ctx context.Context, id int64) (*coupon.Coupon, error),
) {
	id, err := couponID(r)
	if err != nil {
		respond.BadRequest(w, "invalid coupon id")

		return
	}

	c, err := fn(r.Context(), id)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error executing coupon action", "action", action, "coupon_id", id, "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, c)
}

// validateCouponRequest represents a validate coupon request.
type validateCouponRequest struct {
	Code            string  `json:"code"     validate:"required"`
	UserID          int64   `json:"userId"   validate:"gt=0"`
	OrderTotalCents int64   `json:"orderTotalCents"`
	Currency        string  `json:"currency" validate:"required"`
	ProductIDs      []int64 `json:"productIds,omitempty"`
	StoreID         *int64  `json:"storeId,omitempty"`
}

// Validate validates the validate coupon request.
func (r *validateCouponRequest) Validate() error {
	return validator.New().Struct(r)
}

// validateCouponResponse reports whether a coupon can currently be applied
// and the full list of violations when it cannot.
type validateCouponResponse struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

// ValidateCoupon handles the validate coupon request without consuming a
// usage.
func ValidateCoupon(w http.ResponseWriter, r *http.Request, service service) {
	req := validateCouponRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, err.Error())
		slog.Error("Error decoding request body for validate coupon", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		respond.BadRequest(w, err.Error())

		return
	}

	cur, err := currency.ParseCurrency(req.Currency)
	if err != nil {
		respond.Error(w, err)

		return
	}
	orderTotal, err := money.New(req.OrderTotalCents, cur)
	if err != nil {
		respond.Error(w, err)

		return
	}

	violations, err := service.ValidateCoupon(r.Context(), req.Code, req.UserID, orderTotal, req.ProductIDs, req.StoreID)
	if err != nil {
		respond.Error(w, err)
		slog.Error("Error validating coupon", "code", req.Code, "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, validateCouponResponse{
		Valid:      len(violations) == 0,
		Violations: violations,
	})
}

func couponID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "couponID"), 10, 64)
}
