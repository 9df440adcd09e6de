package coupon

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
)

type DiscountType string

const (
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
	DiscountTypePercentage  DiscountType = "percentage"
)

type OwnerType string

const (
	OwnerTypePlatform OwnerType = "platform"
	OwnerTypeStore    OwnerType = "store"
)

type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusActive          Status = "active"
	StatusRejected        Status = "rejected"
	StatusDeactivated     Status = "deactivated"
)

// CouponUsage is one entry in the usage ledger.
type CouponUsage struct {
	ID            int64     `json:"id"`
	CouponID      int64     `json:"couponId"`
	UserID        int64     `json:"userId"`
	OrderID       int64     `json:"orderId"`
	DiscountCents int64     `json:"discountCents"`
	UsedAt        time.Time `json:"usedAt"`
}

// Rule types understood by Validate. RuleMaxOrderAmount carries a minor-unit
// amount, RuleExcludedProducts a comma-separated product id list and
// RuleFirstUsePerUser takes no value.
const (
	RuleMaxOrderAmount   = "max_order_amount"
	RuleExcludedProducts = "excluded_products"
	RuleFirstUsePerUser  = "first_use_per_user"
)

// CouponRule is an additional eligibility constraint attached to a coupon.
type CouponRule struct {
	ID       int64  `json:"id"`
	CouponID int64  `json:"couponId"`
	RuleType string `json:"ruleType"`
	Value    string `json:"value"`
}

func validateRule(rule CouponRule) error {
	switch rule.RuleType {
	case RuleMaxOrderAmount:
		if _, err := strconv.ParseInt(rule.Value, 10, 64); err != nil {
			return apperror.Validation("rules",
				fmt.Sprintf("rule %s needs a numeric amount, got %q", rule.RuleType, rule.Value))
		}
	case RuleExcludedProducts:
		if rule.Value == "" {
			return apperror.Validation("rules", "rule excluded_products needs at least one product id")
		}
		for _, part := range strings.Split(rule.Value, ",") {
			if _, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err != nil {
				return apperror.Validation("rules",
					fmt.Sprintf("rule excluded_products has a bad product id %q", part))
			}
		}
	case RuleFirstUsePerUser:
	default:
		return apperror.Validation("rules", fmt.Sprintf("unknown rule type %q", rule.RuleType))
	}

	return nil
}

func ruleListsProduct(value string, productID int64) bool {
	for _, part := range strings.Split(value, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && id == productID {
			return true
		}
	}

	return false
}

// Coupon is a discount definition with an eligibility window, usage caps and
// scope restrictions. Store-owned coupons require platform approval before
// they become active.
type Coupon struct {
	ID                   int64         `json:"id"`
	Code                 string        `json:"code"`
	DiscountType         DiscountType  `json:"discountType"`
	DiscountAmount       money.Money   `json:"discountAmount"`
	DiscountPercentage   float64       `json:"discountPercentage"`
	MaxDiscountAmount    *money.Money  `json:"maxDiscountAmount,omitempty"`
	MinOrderAmount       money.Money   `json:"minOrderAmount"`
	OwnerType            OwnerType     `json:"ownerType"`
	StoreID              *int64        `json:"storeId,omitempty"`
	StartDate            time.Time     `json:"startDate"`
	EndDate              time.Time     `json:"endDate"`
	MaxUsageCount        *int          `json:"maxUsageCount,omitempty"`
	CurrentUsageCount    int           `json:"currentUsageCount"`
	MaxUsagePerUser      *int          `json:"maxUsagePerUser,omitempty"`
	Status               Status        `json:"status"`
	ApplicableProductIDs []int64       `json:"applicableProductIds,omitempty"`
	ApplicableStoreIDs   []int64       `json:"applicableStoreIds,omitempty"`
	Usages               []CouponUsage `json:"usages,omitempty"`
	Rules                []CouponRule  `json:"rules,omitempty"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

// NewCouponParams carries the fields needed to create a coupon.
type NewCouponParams struct {
	Code                 string
	DiscountType         DiscountType
	DiscountAmount       money.Money
	DiscountPercentage   float64
	MaxDiscountAmount    *money.Money
	MinOrderAmount       money.Money
	OwnerType            OwnerType
	StoreID              *int64
	StartDate            time.Time
	EndDate              time.Time
	MaxUsageCount        *int
	MaxUsagePerUser      *int
	ApplicableProductIDs []int64
	ApplicableStoreIDs   []int64
	Rules                []CouponRule
}

// New creates a coupon. Platform coupons start active; store coupons start
// pending approval.
func New(p NewCouponParams, now time.Time) (*Coupon, error) {
	if p.Code == "" {
		return nil, apperror.Validation("code", "code must not be empty")
	}
	if !p.EndDate.After(p.StartDate) {
		return nil, apperror.Validation("endDate", "end date must be after start date")
	}
	switch p.DiscountType {
	case DiscountTypeFixedAmount:
		if p.DiscountAmount.IsZero() {
			return nil, apperror.Validation("discountAmount", "fixed discount amount must be positive")
		}
	case DiscountTypePercentage:
		if p.DiscountPercentage <= 0 || p.DiscountPercentage > 100 {
			return nil, apperror.Validation("discountPercentage", "percentage must be in (0, 100]")
		}
	default:
		return nil, apperror.Validation("discountType", "unknown discount type")
	}
	if p.OwnerType == OwnerTypeStore && p.StoreID == nil {
		return nil, apperror.Validation("storeId", "store coupon requires a store id")
	}
	for _, rule := range p.Rules {
		if err := validateRule(rule); err != nil {
			return nil, err
		}
	}

	status := StatusActive
	if p.OwnerType == OwnerTypeStore {
		status = StatusPendingApproval
	}

	return &Coupon{
		Code:                 p.Code,
		DiscountType:         p.DiscountType,
		DiscountAmount:       p.DiscountAmount,
		DiscountPercentage:   p.DiscountPercentage,
		MaxDiscountAmount:    p.MaxDiscountAmount,
		MinOrderAmount:       p.MinOrderAmount,
		OwnerType:            p.OwnerType,
		StoreID:              p.StoreID,
		StartDate:            p.StartDate,
		EndDate:              p.EndDate,
		MaxUsageCount:        p.MaxUsageCount,
		MaxUsagePerUser:      p.MaxUsagePerUser,
		ApplicableProductIDs: p.ApplicableProductIDs,
		ApplicableStoreIDs:   p.ApplicableStoreIDs,
		Rules:                p.Rules,
		Status:               status,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// isLive reports whether the coupon is active and inside its date window.
func (c *Coupon) isLive(now time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	if now.Before(c.StartDate) || now.After(c.EndDate) {
		return false
	}

	return true
}

func (c *Coupon) usageCountByUser(userID int64) int {
	count := 0
	for _, u := range c.Usages {
		if u.UserID == userID {
			count++
		}
	}

	return count
}

// Validate checks every eligibility rule and returns the full list of
// human-readable violations instead of stopping at the first one. An empty
// list means the coupon may be applied.
func (c *Coupon) Validate(userID int64, orderTotal money.Money, productIDs []int64, storeID *int64, now time.Time) []string {
	var violations []string

	if c.Status != StatusActive {
		violations = append(violations, fmt.Sprintf("coupon %s is not active", c.Code))
	}
	if now.Before(c.StartDate) {
		violations = append(violations, fmt.Sprintf("coupon %s is not valid yet", c.Code))
	}
	if now.After(c.EndDate) {
		violations = append(violations, fmt.Sprintf("coupon %s has expired", c.Code))
	}

	if below, err := orderTotal.LessThan(c.MinOrderAmount); err != nil {
		violations = append(violations, fmt.Sprintf("order currency does not match coupon currency %s", c.MinOrderAmount.Currency))
	} else if below {
		violations = append(violations, fmt.Sprintf("order total is below the minimum of %s", c.MinOrderAmount))
	}

	if c.MaxUsageCount != nil && c.CurrentUsageCount >= *c.MaxUsageCount {
		violations = append(violations, fmt.Sprintf("coupon %s has reached its usage limit", c.Code))
	}
	if c.MaxUsagePerUser != nil && c.usageCountByUser(userID) >= *c.MaxUsagePerUser {
		violations = append(violations, fmt.Sprintf("coupon %s has reached its per-user usage limit", c.Code))
	}

	if len(c.ApplicableProductIDs) > 0 {
		matched := false
		for _, pid := range productIDs {
			if slices.Contains(c.ApplicableProductIDs, pid) {
				matched = true
				break
			}
		}
		if !matched {
			violations = append(violations, fmt.Sprintf("coupon %s does not apply to any product in the order", c.Code))
		}
	}

	if len(c.ApplicableStoreIDs) > 0 {
		if storeID == nil || !slices.Contains(c.ApplicableStoreIDs, *storeID) {
			violations = append(violations, fmt.Sprintf("coupon %s does not apply to this store", c.Code))
		}
	}

	// A store-owned coupon may only be used against its own store.
	if c.OwnerType == OwnerTypeStore && c.StoreID != nil {
		if storeID == nil || *storeID != *c.StoreID {
			violations = append(violations, fmt.Sprintf("coupon %s belongs to another store", c.Code))
		}
	}

	return append(violations, c.ruleViolations(userID, orderTotal, productIDs)...)
}

// ruleViolations evaluates the attached rule ledger. Rules this build cannot
// read fail closed: the coupon is not applied.
func (c *Coupon) ruleViolations(userID int64, orderTotal money.Money, productIDs []int64) []string {
	var violations []string
	for _, rule := range c.Rules {
		switch rule.RuleType {
		case RuleMaxOrderAmount:
			limit, err := strconv.ParseInt(rule.Value, 10, 64)
			if err != nil {
				violations = append(violations, fmt.Sprintf("coupon %s carries an unreadable %s rule", c.Code, rule.RuleType))
				continue
			}
			if orderTotal.AmountCents > limit {
				violations = append(violations, fmt.Sprintf("order total is above the maximum of %d for coupon %s", limit, c.Code))
			}
		case RuleExcludedProducts:
			for _, pid := range productIDs {
				if ruleListsProduct(rule.Value, pid) {
					violations = append(violations, fmt.Sprintf("coupon %s excludes a product in the order", c.Code))
					break
				}
			}
		case RuleFirstUsePerUser:
			if c.usageCountByUser(userID) > 0 {
				violations = append(violations, fmt.Sprintf("coupon %s is limited to a user's first use", c.Code))
			}
		default:
			violations = append(violations, fmt.Sprintf("coupon %s carries an unknown rule %q", c.Code, rule.RuleType))
		}
	}

	return violations
}

// CalculateDiscount computes the discount for the given order total. The
// result never exceeds the order total, and a percentage discount is
// additionally capped at MaxDiscountAmount when set.
func (c *Coupon) CalculateDiscount(orderTotal money.Money) (money.Money, error) {
	switch c.DiscountType {
	case DiscountTypeFixedAmount:
		exceeds, err := c.DiscountAmount.GreaterThan(orderTotal)
		if err != nil {
			return money.Money{}, err
		}
		if exceeds {
			return orderTotal, nil
		}

		return c.DiscountAmount, nil

	case DiscountTypePercentage:
		discount, err := orderTotal.PercentOf(c.DiscountPercentage)
		if err != nil {
			return money.Money{}, err
		}
		if c.MaxDiscountAmount != nil {
			capped, err := discount.GreaterThan(*c.MaxDiscountAmount)
			if err != nil {
				return money.Money{}, err
			}
			if capped {
				discount = *c.MaxDiscountAmount
			}
		}
		exceeds, err := discount.GreaterThan(orderTotal)
		if err != nil {
			return money.Money{}, err
		}
		if exceeds {
			return orderTotal, nil
		}

		return discount, nil

	default:
		return money.Money{}, apperror.Validation("discountType", "unknown discount type")
	}
}

// MarkAsUsed appends a usage ledger entry and bumps the usage counter. It
// re-checks liveness and both usage caps on its own: callers may invoke it
// without going through Validate first.
func (c *Coupon) MarkAsUsed(userID, orderID int64, amount money.Money, now time.Time) error {
	if !c.isLive(now) {
		return apperror.New(apperror.CodeCouponInvalid, "status",
			fmt.Sprintf("coupon %s is not usable", c.Code))
	}
	if c.MaxUsageCount != nil && c.CurrentUsageCount >= *c.MaxUsageCount {
		return apperror.New(apperror.CodeUsageLimitReached, "maxUsageCount",
			fmt.Sprintf("coupon %s has reached its usage limit", c.Code))
	}
	if c.MaxUsagePerUser != nil && c.usageCountByUser(userID) >= *c.MaxUsagePerUser {
		return apperror.New(apperror.CodeUserLimitReached, "maxUsagePerUser",
			fmt.Sprintf("coupon %s has reached its per-user usage limit", c.Code))
	}

	c.Usages = append(c.Usages, CouponUsage{
		CouponID:      c.ID,
		UserID:        userID,
		OrderID:       orderID,
		DiscountCents: amount.AmountCents,
		UsedAt:        now,
	})
	c.CurrentUsageCount++
	c.UpdatedAt = now

	return nil
}

// Approve activates a store-owned coupon pending approval.
func (c *Coupon) Approve(now time.Time) error {
	if err := c.requireApprovable(); err != nil {
		return err
	}

	c.Status = StatusActive
	c.UpdatedAt = now

	return nil
}

// Reject declines a store-owned coupon pending approval.
func (c *Coupon) Reject(now time.Time) error {
	if err := c.requireApprovable(); err != nil {
		return err
	}

	c.Status = StatusRejected
	c.UpdatedAt = now

	return nil
}

func (c *Coupon) requireApprovable() error {
	if c.OwnerType != OwnerTypeStore {
		return apperror.InvalidTransition("ownerType", "only store coupons go through approval")
	}
	if c.Status != StatusPendingApproval {
		return apperror.InvalidTransition("status",
			fmt.Sprintf("coupon %s is not pending approval", c.Code))
	}

	return nil
}

// Deactivate puts the coupon into its terminal state.
func (c *Coupon) Deactivate(now time.Time) error {
	if c.Status == StatusDeactivated {
		return apperror.InvalidTransition("status", fmt.Sprintf("coupon %s is already deactivated", c.Code))
	}

	c.Status = StatusDeactivated
	c.UpdatedAt = now

	return nil
}
