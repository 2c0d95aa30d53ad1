package database

import (
	"context"
	"fmt"
	"time"

	"app/forecast"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SalesRepo reads the daily sales aggregates the forecasting engine trains
// on. It satisfies forecast.SalesSource.
type SalesRepo struct {
	pool *pgxpool.Pool
}

// NewSalesRepo wraps a connection pool.
func NewSalesRepo(pool *pgxpool.Pool) *SalesRepo {
	return &SalesRepo{pool: pool}
}

// DailyUnits returns one row per day with recorded sales in [from, to],
// summed across sale line items. Product scopes filter on the inventory
// item; the aggregate scope sums the whole store. Days without sales are
// simply absent, the series builder fills those.
func (r *SalesRepo) DailyUnits(ctx context.Context, scope forecast.Scope, from, to time.Time) ([]forecast.Point, error) {
	query := `
		SELECT s.sale_date::date AS day, COALESCE(SUM(si.quantity_sold), 0) AS units
		FROM sales s
		JOIN sale_items si ON si.sale_id = s.id
		WHERE s.sale_date >= $1 AND s.sale_date < $2
	`
	args := []interface{}{from, to.AddDate(0, 0, 1)}
	if scope.IsProduct() {
		query += " AND si.inventory_item_id = $3"
		args = append(args, int64(scope))
	}
	query += `
		GROUP BY day
		ORDER BY day
	`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying daily units: %w", err)
	}
	defer rows.Close()

	var points []forecast.Point
	for rows.Next() {
		var p forecast.Point
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("scanning daily units row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading daily units rows: %w", err)
	}
	return points, nil
}

// TopProducts ranks products by units sold in [from, to], highest first.
func (r *SalesRepo) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]forecast.ProductVolume, error) {
	query := `
		SELECT si.inventory_item_id, COALESCE(SUM(si.quantity_sold), 0) AS units
		FROM sales s
		JOIN sale_items si ON si.sale_id = s.id
		WHERE s.sale_date >= $1 AND s.sale_date < $2
		GROUP BY si.inventory_item_id
		ORDER BY units DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, from, to.AddDate(0, 0, 1), limit)
	if err != nil {
		return nil, fmt.Errorf("querying top products: %w", err)
	}
	defer rows.Close()

	var volumes []forecast.ProductVolume
	for rows.Next() {
		var v forecast.ProductVolume
		if err := rows.Scan(&v.ProductID, &v.Units); err != nil {
			return nil, fmt.Errorf("scanning top product row: %w", err)
		}
		volumes = append(volumes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading top product rows: %w", err)
	}
	return volumes, nil
}
