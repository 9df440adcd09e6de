package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/mercatolabs/fulfillment/internal/dal/interfaces/iorderrepo"
	"github.com/mercatolabs/fulfillment/internal/dal/postgres"
	"github.com/mercatolabs/fulfillment/internal/service/models/apperror"
	"github.com/mercatolabs/fulfillment/internal/service/models/order"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderitem"
	"github.com/mercatolabs/fulfillment/internal/service/models/orderpackage"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresOrderRepository persists the order aggregate across the orders,
// order_packages, order_items, package_discounts, package_checkouts and
// order_trackings tables.
type PostgresOrderRepository struct {
	conn postgres.Querier
}

func NewPostgresOrderRepository(conn postgres.Querier) *PostgresOrderRepository {
	return &PostgresOrderRepository{conn: conn}
}

var orderColumns = []string{
	"id", "short_id", "user_id", "delivery_address", "status", "currency",
	"total_amount_cents", "version", "created_at", "updated_at", "paid_at", "expired_at",
}

func scanOrder(row pgx.Row) (*OrderDal, error) {
	var dal OrderDal
	err := row.Scan(
		&dal.Id, &dal.ShortId, &dal.UserId, &dal.DeliveryAddress, &dal.Status,
		&dal.Currency, &dal.TotalAmountCents, &dal.Version, &dal.CreatedAt,
		&dal.UpdatedAt, &dal.PaidAt, &dal.ExpiredAt,
	)
	if err != nil {
		return nil, err
	}

	return &dal, nil
}

// GetByID loads the full aggregate. Returns a not-found domain error when no
// order with the id exists.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	query, args, err := psql.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	dal, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("order", fmt.Sprintf("order %d not found", id))
		}

		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	packages, err := r.loadPackages(ctx, id)
	if err != nil {
		return nil, err
	}

	trackings, err := r.loadTrackings(ctx, id)
	if err != nil {
		return nil, err
	}

	return dal.ToModel(packages, trackings)
}

func (r *PostgresOrderRepository) loadPackages(ctx context.Context, orderID int64) ([]*orderpackage.OrderPackage, error) {
	query, args, err := psql.Select(
		"id", "order_id", "store_id", "buyer_id", "status", "currency",
		"sub_total_cents", "total_discount_cents", "shipping_fee_cents", "total_amount_cents",
		"is_shipping_paid_by_seller", "shipping_id", "rejection_reason",
		"confirmed_at", "rejected_at", "shipped_at", "delivered_at", "completed_at", "cancelled_at",
		"created_at", "updated_at",
	).
		From("order_packages").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order packages: %w", err)
	}
	defer rows.Close()

	var dals []PackageDal
	for rows.Next() {
		var dal PackageDal
		err := rows.Scan(
			&dal.Id, &dal.OrderId, &dal.StoreId, &dal.BuyerId, &dal.Status, &dal.Currency,
			&dal.SubTotalCents, &dal.TotalDiscountCents, &dal.ShippingFeeCents, &dal.TotalAmountCents,
			&dal.IsShippingPaidBySeller, &dal.ShippingId, &dal.RejectionReason,
			&dal.ConfirmedAt, &dal.RejectedAt, &dal.ShippedAt, &dal.DeliveredAt, &dal.CompletedAt, &dal.CancelledAt,
			&dal.CreatedAt, &dal.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order package: %w", err)
		}
		dals = append(dals, dal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(dals) == 0 {
		return nil, nil
	}

	pkgIDs := make([]int64, len(dals))
	for i, d := range dals {
		pkgIDs[i] = d.Id
	}

	items, err := r.loadItems(ctx, pkgIDs)
	if err != nil {
		return nil, err
	}
	discounts, err := r.loadDiscounts(ctx, pkgIDs)
	if err != nil {
		return nil, err
	}
	checkouts, err := r.loadCheckouts(ctx, pkgIDs)
	if err != nil {
		return nil, err
	}

	packages := make([]*orderpackage.OrderPackage, 0, len(dals))
	for _, dal := range dals {
		pkg, err := dal.ToModel(items[dal.Id], discounts[dal.Id], checkouts[dal.Id])
		if err != nil {
			return nil, fmt.Errorf("failed to convert package dal to model: %w", err)
		}
		packages = append(packages, pkg)
	}

	return packages, nil
}

func (r *PostgresOrderRepository) loadItems(ctx context.Context, pkgIDs []int64) (map[int64][]orderitem.OrderItem, error) {
	query, args, err := psql.Select(
		"id", "package_id", "product_id", "sku_id", "quantity", "unit_price_cents",
		"currency", "is_cod", "product_title", "product_image_url", "sku_name", "created_at",
	).
		From("order_items").
		Where(sq.Eq{"package_id": pkgIDs}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]orderitem.OrderItem)
	for rows.Next() {
		var dal ItemDal
		err := rows.Scan(
			&dal.Id, &dal.PackageId, &dal.ProductId, &dal.SkuId, &dal.Quantity,
			&dal.UnitPriceCents, &dal.Currency, &dal.IsCod,
			&dal.ProductTitle, &dal.ProductImageUrl, &dal.SkuName, &dal.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert item dal to model: %w", err)
		}
		out[dal.PackageId] = append(out[dal.PackageId], item)
	}

	return out, rows.Err()
}

func (r *PostgresOrderRepository) loadDiscounts(ctx context.Context, pkgIDs []int64) (map[int64][]orderpackage.Discount, error) {
	query, args, err := psql.Select(
		"id", "package_id", "coupon_id", "code", "amount_cents", "currency",
	).
		From("package_discounts").
		Where(sq.Eq{"package_id": pkgIDs}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query package discounts: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]orderpackage.Discount)
	for rows.Next() {
		var dal DiscountDal
		if err := rows.Scan(&dal.Id, &dal.PackageId, &dal.CouponId, &dal.Code, &dal.AmountCents, &dal.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan package discount: %w", err)
		}
		d, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert discount dal to model: %w", err)
		}
		out[dal.PackageId] = append(out[dal.PackageId], d)
	}

	return out, rows.Err()
}

func (r *PostgresOrderRepository) loadCheckouts(ctx context.Context, pkgIDs []int64) (map[int64][]orderpackage.Checkout, error) {
	query, args, err := psql.Select(
		"id", "package_id", "payment_method", "amount_cents", "currency", "created_at",
	).
		From("package_checkouts").
		Where(sq.Eq{"package_id": pkgIDs}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query package checkouts: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]orderpackage.Checkout)
	for rows.Next() {
		var dal CheckoutDal
		if err := rows.Scan(&dal.Id, &dal.PackageId, &dal.PaymentMethod, &dal.AmountCents, &dal.Currency, &dal.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan package checkout: %w", err)
		}
		c, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert checkout dal to model: %w", err)
		}
		out[dal.PackageId] = append(out[dal.PackageId], c)
	}

	return out, rows.Err()
}

func (r *PostgresOrderRepository) loadTrackings(ctx context.Context, orderID int64) ([]order.OrderTracking, error) {
	query, args, err := psql.Select(
		"id", "order_id", "type", "executor_type", "executor_id", "message", "created_at",
	).
		From("order_trackings").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order trackings: %w", err)
	}
	defer rows.Close()

	var out []order.OrderTracking
	for rows.Next() {
		var dal TrackingDal
		if err := rows.Scan(&dal.Id, &dal.OrderId, &dal.Type, &dal.ExecutorType, &dal.ExecutorId, &dal.Message, &dal.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order tracking: %w", err)
		}
		out = append(out, dal.ToModel())
	}

	return out, rows.Err()
}

// Insert persists a new aggregate and assigns identities to the order, its
// packages and child records.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o *order.Order) error {
	query, args, err := psql.Insert("orders").
		Columns(
			"short_id", "user_id", "delivery_address", "status", "currency",
			"total_amount_cents", "version", "created_at", "updated_at", "paid_at", "expired_at",
		).
		Values(
			o.ShortID(), o.UserID(), o.DeliveryAddress(), string(o.Status()), o.Currency().String(),
			o.TotalAmount().AmountCents, o.Version(), o.CreatedAt(), o.UpdatedAt(), o.PaidAt(), o.ExpiredAt(),
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	var id int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	o.SetID(id)

	for _, pkg := range o.Packages() {
		if err := r.insertPackage(ctx, pkg); err != nil {
			return err
		}
	}

	return r.insertTrackings(ctx, o)
}

func (r *PostgresOrderRepository) insertPackage(ctx context.Context, pkg *orderpackage.OrderPackage) error {
	query, args, err := psql.Insert("order_packages").
		Columns(
			"order_id", "store_id", "buyer_id", "status", "currency",
			"sub_total_cents", "total_discount_cents", "shipping_fee_cents", "total_amount_cents",
			"is_shipping_paid_by_seller", "shipping_id", "rejection_reason",
			"confirmed_at", "rejected_at", "shipped_at", "delivered_at", "completed_at", "cancelled_at",
			"created_at", "updated_at",
		).
		Values(
			pkg.OrderID(), pkg.StoreID(), pkg.BuyerID(), string(pkg.Status()), pkg.Currency().String(),
			pkg.SubTotal().AmountCents, pkg.TotalDiscount().AmountCents, pkg.ShippingFee().AmountCents, pkg.TotalAmount().AmountCents,
			pkg.IsShippingPaidBySeller(), pkg.ShippingID(), pkg.RejectionReason(),
			pkg.ConfirmedAt(), pkg.RejectedAt(), pkg.ShippedAt(), pkg.DeliveredAt(), pkg.CompletedAt(), pkg.CancelledAt(),
			pkg.CreatedAt(), pkg.UpdatedAt(),
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	var id int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return fmt.Errorf("failed to insert order package: %w", err)
	}
	pkg.SetID(id)

	return r.insertPackageChildren(ctx, pkg)
}

func (r *PostgresOrderRepository) insertPackageChildren(ctx context.Context, pkg *orderpackage.OrderPackage) error {
	for _, item := range pkg.Items() {
		query, args, err := psql.Insert("order_items").
			Columns(
				"package_id", "product_id", "sku_id", "quantity", "unit_price_cents",
				"currency", "is_cod", "product_title", "product_image_url", "sku_name", "created_at",
			).
			Values(
				pkg.ID(), item.ProductID, item.SkuID, item.Quantity, item.UnitPrice.AmountCents,
				item.UnitPrice.Currency.String(), item.IsCOD,
				item.ProductSnapshot.Title, item.ProductSnapshot.ImageURL, item.ProductSnapshot.SkuName,
				item.CreatedAt,
			).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert query: %w", err)
		}
		if _, err := r.conn.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	for _, d := range pkg.Discounts() {
		query, args, err := psql.Insert("package_discounts").
			Columns("package_id", "coupon_id", "code", "amount_cents", "currency").
			Values(pkg.ID(), d.CouponID, d.Code, d.Amount.AmountCents, d.Amount.Currency.String()).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert query: %w", err)
		}
		if _, err := r.conn.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert package discount: %w", err)
		}
	}

	for _, c := range pkg.Checkouts() {
		query, args, err := psql.Insert("package_checkouts").
			Columns("package_id", "payment_method", "amount_cents", "currency", "created_at").
			Values(pkg.ID(), c.PaymentMethod, c.Amount.AmountCents, c.Amount.Currency.String(), c.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert query: %w", err)
		}
		if _, err := r.conn.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert package checkout: %w", err)
		}
	}

	return nil
}

func (r *PostgresOrderRepository) insertTrackings(ctx context.Context, o *order.Order) error {
	for _, t := range o.NewTrackings() {
		query, args, err := psql.Insert("order_trackings").
			Columns("order_id", "type", "executor_type", "executor_id", "message", "created_at").
			Values(o.ID(), string(t.Type), string(t.ExecutorType), t.ExecutorID, t.Message, t.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert query: %w", err)
		}
		if _, err := r.conn.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert order tracking: %w", err)
		}
	}

	return nil
}

// Update saves the aggregate guarded by the version column. A concurrent
// writer that saved first makes this call fail with apperror.ErrConflict;
// the use case must re-read and retry.
func (r *PostgresOrderRepository) Update(ctx context.Context, o *order.Order) error {
	query, args, err := psql.Update("orders").
		Set("status", string(o.Status())).
		Set("total_amount_cents", o.TotalAmount().AmountCents).
		Set("updated_at", o.UpdatedAt()).
		Set("paid_at", o.PaidAt()).
		Set("version", o.Version()+1).
		Where(sq.Eq{"id": o.ID(), "version": o.Version()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrConflict
	}
	o.BumpVersion()

	for _, pkg := range o.Packages() {
		if pkg.ID() == 0 {
			if err := r.insertPackage(ctx, pkg); err != nil {
				return err
			}
			continue
		}
		if err := r.updatePackage(ctx, pkg); err != nil {
			return err
		}
	}

	return r.insertTrackings(ctx, o)
}

func (r *PostgresOrderRepository) updatePackage(ctx context.Context, pkg *orderpackage.OrderPackage) error {
	query, args, err := psql.Update("order_packages").
		Set("status", string(pkg.Status())).
		Set("sub_total_cents", pkg.SubTotal().AmountCents).
		Set("total_discount_cents", pkg.TotalDiscount().AmountCents).
		Set("shipping_fee_cents", pkg.ShippingFee().AmountCents).
		Set("total_amount_cents", pkg.TotalAmount().AmountCents).
		Set("is_shipping_paid_by_seller", pkg.IsShippingPaidBySeller()).
		Set("shipping_id", pkg.ShippingID()).
		Set("rejection_reason", pkg.RejectionReason()).
		Set("confirmed_at", pkg.ConfirmedAt()).
		Set("rejected_at", pkg.RejectedAt()).
		Set("shipped_at", pkg.ShippedAt()).
		Set("delivered_at", pkg.DeliveredAt()).
		Set("completed_at", pkg.CompletedAt()).
		Set("cancelled_at", pkg.CancelledAt()).
		Set("updated_at", pkg.UpdatedAt()).
		Where(sq.Eq{"id": pkg.ID()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}
	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update order package: %w", err)
	}

	// Child rows are rewritten wholesale: items and discounts only change
	// while the package is pending, and the volume per package is small.
	for _, table := range []string{"order_items", "package_discounts", "package_checkouts"} {
		query, args, err := psql.Delete(table).Where(sq.Eq{"package_id": pkg.ID()}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete query: %w", err)
		}
		if _, err := r.conn.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	return r.insertPackageChildren(ctx, pkg)
}

// Query lists orders without child collections.
func (r *PostgresOrderRepository) Query(ctx context.Context, filter *iorderrepo.QueryOrdersModel) ([]*order.Order, error) {
	builder := psql.Select(orderColumns...).From("orders").OrderBy("id DESC")

	if len(filter.Ids) > 0 {
		builder = builder.Where(sq.Eq{"id": filter.Ids})
	}
	if len(filter.UserIds) > 0 {
		builder = builder.Where(sq.Eq{"user_id": filter.UserIds})
	}
	if len(filter.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"status": filter.Statuses})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []*order.Order
	for rows.Next() {
		var dal OrderDal
		err := rows.Scan(
			&dal.Id, &dal.ShortId, &dal.UserId, &dal.DeliveryAddress, &dal.Status,
			&dal.Currency, &dal.TotalAmountCents, &dal.Version, &dal.CreatedAt,
			&dal.UpdatedAt, &dal.PaidAt, &dal.ExpiredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel(nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, model)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
