package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/mercatolabs/fulfillment/internal/dal/postgres"
	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/coupon"
	"github.com/mercatolabs/fulfillment/internal/service/models/currency"
	"github.com/mercatolabs/fulfillment/internal/service/models/money"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// CouponDal represents the coupons table row.
type CouponDal struct {
	Id                     int64      `db:"id"`
	Code                   string     `db:"code"`
	DiscountType           string     `db:"discount_type"`
	DiscountAmountCents    int64      `db:"discount_amount_cents"`
	DiscountPercentage     float64    `db:"discount_percentage"`
	MaxDiscountAmountCents *int64     `db:"max_discount_amount_cents"`
	MinOrderAmountCents    int64      `db:"min_order_amount_cents"`
	Currency               string     `db:"currency"`
	OwnerType              string     `db:"owner_type"`
	StoreId                *int64     `db:"store_id"`
	StartDate              time.Time  `db:"start_date"`
	EndDate                time.Time  `db:"end_date"`
	MaxUsageCount          *int       `db:"max_usage_count"`
	CurrentUsageCount      int        `db:"current_usage_count"`
	MaxUsagePerUser        *int       `db:"max_usage_per_user"`
	Status                 string     `db:"status"`
	ApplicableProductIds   []int64    `db:"applicable_product_ids"`
	ApplicableStoreIds     []int64    `db:"applicable_store_ids"`
	CreatedAt              time.Time  `db:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at"`
}

// ToModel converts the row plus child rows to the domain model.
func (d *CouponDal) ToModel(usages []coupon.CouponUsage, rules []coupon.CouponRule) (*coupon.Coupon, error) {
	cur, err := currency.ParseCurrency(d.Currency)
	if err != nil {
		return nil, err
	}

	var maxDiscount *money.Money
	if d.MaxDiscountAmountCents != nil {
		m := money.Money{AmountCents: *d.MaxDiscountAmountCents, Currency: cur}
		maxDiscount = &m
	}

	return &coupon.Coupon{
		ID:                   d.Id,
		Code:                 d.Code,
		DiscountType:         coupon.DiscountType(d.DiscountType),
		DiscountAmount:       money.Money{AmountCents: d.DiscountAmountCents, Currency: cur},
		DiscountPercentage:   d.DiscountPercentage,
		MaxDiscountAmount:    maxDiscount,
		MinOrderAmount:       money.Money{AmountCents: d.MinOrderAmountCents, Currency: cur},
		OwnerType:            coupon.OwnerType(d.OwnerType),
		StoreID:              d.StoreId,
		StartDate:            d.StartDate,
		EndDate:              d.EndDate,
		MaxUsageCount:        d.MaxUsageCount,
		CurrentUsageCount:    d.CurrentUsageCount,
		MaxUsagePerUser:      d.MaxUsagePerUser,
		Status:               coupon.Status(d.Status),
		ApplicableProductIDs: d.ApplicableProductIds,
		ApplicableStoreIDs:   d.ApplicableStoreIds,
		Usages:               usages,
		Rules:                rules,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}, nil
}

// PostgresCouponRepository persists coupons across the coupons,
// coupon_usages and coupon_rules tables.
type PostgresCouponRepository struct {
	conn postgres.Querier
}

func NewPostgresCouponRepository(conn postgres.Querier) *PostgresCouponRepository {
	return &PostgresCouponRepository{conn: conn}
}

var couponColumns = []string{
	"id", "code", "discount_type", "discount_amount_cents", "discount_percentage",
	"max_discount_amount_cents", "min_order_amount_cents", "currency", "owner_type", "store_id",
	"start_date", "end_date", "max_usage_count", "current_usage_count", "max_usage_per_user",
	"status", "applicable_product_ids", "applicable_store_ids", "created_at", "updated_at",
}

func scanCoupon(row pgx.Row) (*CouponDal, error) {
	var dal CouponDal
	err := row.Scan(
		&dal.Id, &dal.Code, &dal.DiscountType, &dal.DiscountAmountCents, &dal.DiscountPercentage,
		&dal.MaxDiscountAmountCents, &dal.MinOrderAmountCents, &dal.Currency, &dal.OwnerType, &dal.StoreId,
		&dal.StartDate, &dal.EndDate, &dal.MaxUsageCount, &dal.CurrentUsageCount, &dal.MaxUsagePerUser,
		&dal.Status, &dal.ApplicableProductIds, &dal.ApplicableStoreIds, &dal.CreatedAt, &dal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &dal, nil
}

func (r *PostgresCouponRepository) getBy(ctx context.Context, pred sq.Eq, what string) (*coupon.Coupon, error) {
	query, args, err := psql.Select(couponColumns...).From("coupons").Where(pred).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	dal, err := scanCoupon(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("coupon", fmt.Sprintf("coupon %s not found", what))
		}

		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}

	usages, err := r.loadUsages(ctx, dal.Id)
	if err != nil {
		return nil, err
	}
	rules, err := r.loadRules(ctx, dal.Id)
	if err != nil {
		return nil, err
	}

	return dal.ToModel(usages, rules)
}

func (r *PostgresCouponRepository) GetByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return r.getBy(ctx, sq.Eq{"id": id}, fmt.Sprintf("%d", id))
}

func (r *PostgresCouponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.getBy(ctx, sq.Eq{"code": code}, code)
}

func (r *PostgresCouponRepository) loadUsages(ctx context.Context, couponID int64) ([]coupon.CouponUsage, error) {
	query, args, err := psql.Select(
		"id", "coupon_id", "user_id", "order_id", "discount_cents", "used_at",
	).
		From("coupon_usages").
		Where(sq.Eq{"coupon_id": couponID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query coupon usages: %w", err)
	}
	defer rows.Close()

	var out []coupon.CouponUsage
	for rows.Next() {
		var u coupon.CouponUsage
		if err := rows.Scan(&u.ID, &u.CouponID, &u.UserID, &u.OrderID, &u.DiscountCents, &u.UsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan coupon usage: %w", err)
		}
		out = append(out, u)
	}

	return out, rows.Err()
}

func (r *PostgresCouponRepository) loadRules(ctx context.Context, couponID int64) ([]coupon.CouponRule, error) {
	query, args, err := psql.Select("id", "coupon_id", "rule_type", "value").
		From("coupon_rules").
		Where(sq.Eq{"coupon_id": couponID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query coupon rules: %w", err)
	}
	defer rows.Close()

	var out []coupon.CouponRule
	for rows.Next() {
		var rule coupon.CouponRule
		if err := rows.Scan(&rule.ID, &rule.CouponID, &rule.RuleType, &rule.Value); err != nil {
			return nil, fmt.Errorf("failed to scan coupon rule: %w", err)
		}
		out = append(out, rule)
	}

	return out, rows.Err()
}

// Insert persists a new coupon with its rules.
func (r *PostgresCouponRepository) Insert(ctx context.Context, c *coupon.Coupon) error {
	var maxDiscountCents *int64
	if c.MaxDiscountAmount != nil {
		maxDiscountCents = &c.MaxDiscountAmount.AmountCents
	}

	query, args, err := psql.Insert("coupons").
		Columns(
			"code", "discount_type", "discount_amount_cents", "discount_percentage",
			"max_discount_amount_cents", "min_order_amount_cents", "currency", "owner_type", "store_id",
			"start_date", "end_date", "max_usage_count", "current_usage_count", "max_usage_per_user",
			"status", "applicable_product_ids", "applicable_store_ids", "created_at", "updated_at",
		).
		Values(
			c.Code, string(c.DiscountType), c.DiscountAmount.AmountCents, c.DiscountPercentage,
			maxDiscountCents, c.MinOrderAmount.AmountCents, c.MinOrderAmount.Currency.String(), string(c.OwnerType), c.StoreID,
			c.StartDate, c.EndDate, c.MaxUsageCount, c.CurrentUsageCount, c.MaxUsagePerUser,
			string(c.Status), c.ApplicableProductIDs, c.ApplicableStoreIDs, c.CreatedAt, c.UpdatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&c.ID); err != nil {
		return fmt.Errorf("failed to insert coupon: %w", err)
	}

	for i := range c.Rules {
		c.Rules[i].CouponID = c.ID
		query, args, err := psql.Insert("coupon_rules").
			Columns("coupon_id", "rule_type", "value").
			Values(c.ID, c.Rules[i].RuleType, c.Rules[i].Value).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert query: %w", err)
		}
		if _, err := r.conn.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert coupon rule: %w", err)
		}
	}

	return nil
}

// Update saves the coupon guarded by its usage counter so two concurrent
// redemptions cannot both slip under a usage cap. New ledger entries
// (id == 0) are appended.
func (r *PostgresCouponRepository) Update(ctx context.Context, c *coupon.Coupon, expectedUsageCount int) error {
	query, args, err := psql.Update("coupons").
		Set("status", string(c.Status)).
		Set("current_usage_count", c.CurrentUsageCount).
		Set("updated_at", c.UpdatedAt).
		Where(sq.Eq{"id": c.ID, "current_usage_count": expectedUsageCount}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrConflict
	}

	for i := range c.Usages {
		if c.Usages[i].ID != 0 {
			continue
		}
		c.Usages[i].CouponID = c.ID
		query, args, err := psql.Insert("coupon_usages").
			Columns("coupon_id", "user_id", "order_id", "discount_cents", "used_at").
			Values(c.ID, c.Usages[i].UserID, c.Usages[i].OrderID, c.Usages[i].DiscountCents, c.Usages[i].UsedAt).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert query: %w", err)
		}
		if err := r.conn.QueryRow(ctx, query, args...).Scan(&c.Usages[i].ID); err != nil {
			return fmt.Errorf("failed to insert coupon usage: %w", err)
		}
	}

	return nil
}
