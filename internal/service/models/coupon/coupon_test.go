package coupon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func fixedCoupon(t *testing.T) *Coupon {
	t.Helper()

	c, err := New(NewCouponParams{
		Code:           "SAVE500",
		DiscountType:   DiscountTypeFixedAmount,
		DiscountAmount: money.MustNew(500, currency.CurrencyVND),
		MinOrderAmount: money.MustNew(1000, currency.CurrencyVND),
		OwnerType:      OwnerTypePlatform,
		StartDate:      testNow.Add(-time.Hour),
		EndDate:        testNow.Add(24 * time.Hour),
	}, testNow)
	require.NoError(t, err)

	return c
}

func TestNewPlatformCouponStartsActive(t *testing.T) {
	c := fixedCoupon(t)
	assert.Equal(t, StatusActive, c.Status)
}

func TestNewStoreCouponStartsPendingApproval(t *testing.T) {
	c, err := New(NewCouponParams{
		Code:               "STORE10",
		DiscountType:       DiscountTypePercentage,
		DiscountPercentage: 10,
		MinOrderAmount:     money.Zero(currency.CurrencyVND),
		OwnerType:          OwnerTypeStore,
		StoreID:            int64Ptr(7),
		StartDate:          testNow,
		EndDate:            testNow.Add(time.Hour),
	}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, c.Status)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		params NewCouponParams
	}{
		{
			name: "empty code",
			params: NewCouponParams{
				DiscountType:   DiscountTypeFixedAmount,
				DiscountAmount: money.MustNew(100, currency.CurrencyVND),
				OwnerType:      OwnerTypePlatform,
				StartDate:      testNow,
				EndDate:        testNow.Add(time.Hour),
			},
		},
		{
			name: "end before start",
			params: NewCouponParams{
				Code:           "X",
				DiscountType:   DiscountTypeFixedAmount,
				DiscountAmount: money.MustNew(100, currency.CurrencyVND),
				OwnerType:      OwnerTypePlatform,
				StartDate:      testNow,
				EndDate:        testNow.Add(-time.Hour),
			},
		},
		{
			name: "percentage out of range",
			params: NewCouponParams{
				Code:               "X",
				DiscountType:       DiscountTypePercentage,
				DiscountPercentage: 101,
				OwnerType:          OwnerTypePlatform,
				StartDate:          testNow,
				EndDate:            testNow.Add(time.Hour),
			},
		},
		{
			name: "store coupon without store id",
			params: NewCouponParams{
				Code:           "X",
				DiscountType:   DiscountTypeFixedAmount,
				DiscountAmount: money.MustNew(100, currency.CurrencyVND),
				OwnerType:      OwnerTypeStore,
				StartDate:      testNow,
				EndDate:        testNow.Add(time.Hour),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.params, testNow)
			assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
		})
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	c := fixedCoupon(t)
	c.Status = StatusDeactivated
	c.MaxUsageCount = intPtr(1)
	c.CurrentUsageCount = 1

	// Inactive, below minimum and over the usage cap at the same time.
	violations := c.Validate(1, money.MustNew(500, currency.CurrencyVND), nil, nil, testNow)
	assert.Len(t, violations, 3)
}

func TestValidateDateWindow(t *testing.T) {
	c := fixedCoupon(t)
	total := money.MustNew(2000, currency.CurrencyVND)

	assert.Empty(t, c.Validate(1, total, nil, nil, testNow))
	assert.NotEmpty(t, c.Validate(1, total, nil, nil, c.StartDate.Add(-time.Minute)))
	assert.NotEmpty(t, c.Validate(1, total, nil, nil, c.EndDate.Add(time.Minute)))
}

func TestValidatePerUserLimit(t *testing.T) {
	c := fixedCoupon(t)
	c.MaxUsagePerUser = intPtr(1)
	c.Usages = []CouponUsage{{UserID: 1, OrderID: 10}}

	total := money.MustNew(2000, currency.CurrencyVND)
	assert.NotEmpty(t, c.Validate(1, total, nil, nil, testNow))
	assert.Empty(t, c.Validate(2, total, nil, nil, testNow))
}

func TestValidateProductScope(t *testing.T) {
	c := fixedCoupon(t)
	c.ApplicableProductIDs = []int64{100, 101}

	total := money.MustNew(2000, currency.CurrencyVND)
	assert.Empty(t, c.Validate(1, total, []int64{101, 999}, nil, testNow))
	assert.NotEmpty(t, c.Validate(1, total, []int64{999}, nil, testNow))
}

func TestValidateStoreOwnership(t *testing.T) {
	c, err := New(NewCouponParams{
		Code:           "STORE5",
		DiscountType:   DiscountTypeFixedAmount,
		DiscountAmount: money.MustNew(500, currency.CurrencyVND),
		MinOrderAmount: money.Zero(currency.CurrencyVND),
		OwnerType:      OwnerTypeStore,
		StoreID:        int64Ptr(7),
		StartDate:      testNow.Add(-time.Hour),
		EndDate:        testNow.Add(time.Hour),
	}, testNow)
	require.NoError(t, err)
	require.NoError(t, c.Approve(testNow))

	total := money.MustNew(2000, currency.CurrencyVND)
	assert.Empty(t, c.Validate(1, total, nil, int64Ptr(7), testNow))
	assert.NotEmpty(t, c.Validate(1, total, nil, int64Ptr(8), testNow))
	assert.NotEmpty(t, c.Validate(1, total, nil, nil, testNow))
}

func TestCalculateDiscountFixedCappedByTotal(t *testing.T) {
	c := fixedCoupon(t)

	d, err := c.CalculateDiscount(money.MustNew(2000, currency.CurrencyVND))
	require.NoError(t, err)
	assert.Equal(t, int64(500), d.AmountCents)

	d, err = c.CalculateDiscount(money.MustNew(300, currency.CurrencyVND))
	require.NoError(t, err)
	assert.Equal(t, int64(300), d.AmountCents, "fixed discount never exceeds the total")
}

func TestCalculateDiscountPercentage(t *testing.T) {
	maxDiscount := money.MustNew(150, currency.CurrencyVND)
	c, err := New(NewCouponParams{
		Code:               "PCT10",
		DiscountType:       DiscountTypePercentage,
		DiscountPercentage: 10,
		MaxDiscountAmount:  &maxDiscount,
		MinOrderAmount:     money.Zero(currency.CurrencyVND),
		OwnerType:          OwnerTypePlatform,
		StartDate:          testNow.Add(-time.Hour),
		EndDate:            testNow.Add(time.Hour),
	}, testNow)
	require.NoError(t, err)

	d, err := c.CalculateDiscount(money.MustNew(1000, currency.CurrencyVND))
	require.NoError(t, err)
	assert.Equal(t, int64(100), d.AmountCents)

	d, err = c.CalculateDiscount(money.MustNew(10000, currency.CurrencyVND))
	require.NoError(t, err)
	assert.Equal(t, int64(150), d.AmountCents, "capped at max discount amount")
}

func TestMarkAsUsed(t *testing.T) {
	c := fixedCoupon(t)

	err := c.MarkAsUsed(1, 10, money.MustNew(500, currency.CurrencyVND), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, c.CurrentUsageCount)
	require.Len(t, c.Usages, 1)
	assert.Equal(t, int64(10), c.Usages[0].OrderID)
}

func TestMarkAsUsedGuardsIndependently(t *testing.T) {
	c := fixedCoupon(t)
	c.Status = StatusDeactivated
	err := c.MarkAsUsed(1, 10, money.MustNew(500, currency.CurrencyVND), testNow)
	assert.True(t, apperror.IsCode(err, apperror.CodeCouponInvalid))

	c = fixedCoupon(t)
	c.MaxUsageCount = intPtr(1)
	c.CurrentUsageCount = 1
	err = c.MarkAsUsed(1, 10, money.MustNew(500, currency.CurrencyVND), testNow)
	assert.True(t, apperror.IsCode(err, apperror.CodeUsageLimitReached))

	c = fixedCoupon(t)
	c.MaxUsagePerUser = intPtr(1)
	c.Usages = []CouponUsage{{UserID: 1}}
	err = c.MarkAsUsed(1, 10, money.MustNew(500, currency.CurrencyVND), testNow)
	assert.True(t, apperror.IsCode(err, apperror.CodeUserLimitReached))
}

func TestApproveRejectOnlyStorePending(t *testing.T) {
	platform := fixedCoupon(t)
	assert.True(t, apperror.IsCode(platform.Approve(testNow), apperror.CodeInvalidTransition))

	store, err := New(NewCouponParams{
		Code:           "STORE1",
		DiscountType:   DiscountTypeFixedAmount,
		DiscountAmount: money.MustNew(100, currency.CurrencyVND),
		MinOrderAmount: money.Zero(currency.CurrencyVND),
		OwnerType:      OwnerTypeStore,
		StoreID:        int64Ptr(3),
		StartDate:      testNow,
		EndDate:        testNow.Add(time.Hour),
	}, testNow)
	require.NoError(t, err)

	require.NoError(t, store.Approve(testNow))
	assert.Equal(t, StatusActive, store.Status)

	// Already decided, cannot be rejected afterwards.
	assert.True(t, apperror.IsCode(store.Reject(testNow), apperror.CodeInvalidTransition))
}

func TestDeactivateIsTerminal(t *testing.T) {
	c := fixedCoupon(t)

	require.NoError(t, c.Deactivate(testNow))
	assert.Equal(t, StatusDeactivated, c.Status)
	assert.True(t, apperror.IsCode(c.Deactivate(testNow), apperror.CodeInvalidTransition))
	assert.True(t, apperror.IsCode(c.Approve(testNow), apperror.CodeInvalidTransition))
}

func TestNewRejectsBadRules(t *testing.T) {
	tests := []struct {
		name string
		rule CouponRule
	}{
		{name: "unknown rule type", rule: CouponRule{RuleType: "free_shipping"}},
		{name: "non-numeric max order amount", rule: CouponRule{RuleType: RuleMaxOrderAmount, Value: "a lot"}},
		{name: "empty excluded products", rule: CouponRule{RuleType: RuleExcludedProducts}},
		{name: "bad excluded product id", rule: CouponRule{RuleType: RuleExcludedProducts, Value: "100,oops"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(NewCouponParams{
				Code:           "RULED",
				DiscountType:   DiscountTypeFixedAmount,
				DiscountAmount: money.MustNew(500, currency.CurrencyVND),
				MinOrderAmount: money.Zero(currency.CurrencyVND),
				OwnerType:      OwnerTypePlatform,
				StartDate:      testNow.Add(-time.Hour),
				EndDate:        testNow.Add(time.Hour),
				Rules:          []CouponRule{tt.rule},
			}, testNow)
			assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
		})
	}
}

func TestValidateMaxOrderAmountRule(t *testing.T) {
	c := fixedCoupon(t)
	c.Rules = []CouponRule{{RuleType: RuleMaxOrderAmount, Value: "5000"}}

	violations := c.Validate(1, money.MustNew(5000, currency.CurrencyVND), nil, nil, testNow)
	assert.Empty(t, violations)

	violations = c.Validate(1, money.MustNew(5001, currency.CurrencyVND), nil, nil, testNow)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "above the maximum")
}

func TestValidateExcludedProductsRule(t *testing.T) {
	c := fixedCoupon(t)
	c.Rules = []CouponRule{{RuleType: RuleExcludedProducts, Value: "100, 200"}}

	violations := c.Validate(1, money.MustNew(2000, currency.CurrencyVND), []int64{300}, nil, testNow)
	assert.Empty(t, violations)

	violations = c.Validate(1, money.MustNew(2000, currency.CurrencyVND), []int64{300, 200}, nil, testNow)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "excludes a product")
}

func TestValidateFirstUsePerUserRule(t *testing.T) {
	c := fixedCoupon(t)
	c.Rules = []CouponRule{{RuleType: RuleFirstUsePerUser}}

	violations := c.Validate(1, money.MustNew(2000, currency.CurrencyVND), nil, nil, testNow)
	assert.Empty(t, violations)

	require.NoError(t, c.MarkAsUsed(1, 7, money.MustNew(500, currency.CurrencyVND), testNow))

	violations = c.Validate(1, money.MustNew(2000, currency.CurrencyVND), nil, nil, testNow)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "first use")

	// A different user is unaffected.
	assert.Empty(t, c.Validate(2, money.MustNew(2000, currency.CurrencyVND), nil, nil, testNow))
}

func TestValidateUnknownStoredRuleFailsClosed(t *testing.T) {
	c := fixedCoupon(t)
	c.Rules = []CouponRule{{RuleType: "loyalty_tier", Value: "gold"}}

	violations := c.Validate(1, money.MustNew(2000, currency.CurrencyVND), nil, nil, testNow)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "unknown rule")
}
