package dataset

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/retailops/ims-analytics/internal/models"
)

// PostgresSource loads the snapshot from relational tables instead of CSV
// exports. It is a read-only batch loader: every query is a plain SELECT
// and the engine still only ever sees an immutable snapshot.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates a source over an existing connection pool.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Name identifies the source kind in logs and metrics.
func (s *PostgresSource) Name() string { return "postgres" }

// Version reads the content/version key maintained by the upstream ETL in
// dataset_versions. Any table refresh bumps it.
func (s *PostgresSource) Version(ctx context.Context) (string, error) {
	var version string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(EXTRACT(EPOCH FROM updated_at))::text, '0') FROM dataset_versions`,
	).Scan(&version)
	if err != nil {
		return "", fmt.Errorf("query dataset version: %w", err)
	}
	return version, nil
}

// Load reads every table. The three analytic tables are optional: when a
// table does not exist the corresponding batch stays nil.
func (s *PostgresSource) Load(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	var err error

	if snap.Orders, err = s.loadOrders(ctx); err != nil {
		return nil, err
	}
	if snap.Clustered, err = s.loadClustered(ctx); err != nil {
		return nil, err
	}
	if snap.Events, err = s.loadEventStats(ctx); err != nil {
		return nil, err
	}
	if snap.Pages, err = s.loadPageStats(ctx); err != nil {
		return nil, err
	}
	if snap.Clicks, err = s.loadClickStats(ctx); err != nil {
		return nil, err
	}
	if snap.ClusterChannel, err = s.loadClusterChannels(ctx); err != nil {
		return nil, err
	}
	if snap.Efficiency, err = s.loadEfficiency(ctx); err != nil {
		return nil, err
	}

	if ok, err := s.tableExists(ctx, "ltv_scores"); err != nil {
		return nil, err
	} else if ok {
		if snap.LTV, err = s.loadLTV(ctx); err != nil {
			return nil, err
		}
	}
	if ok, err := s.tableExists(ctx, "order_intervals"); err != nil {
		return nil, err
	} else if ok {
		if snap.Intervals, err = s.loadIntervals(ctx); err != nil {
			return nil, err
		}
	}
	if ok, err := s.tableExists(ctx, "channel_attribution"); err != nil {
		return nil, err
	} else if ok {
		if snap.Attribution, err = s.loadAttribution(ctx); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (s *PostgresSource) tableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return exists, nil
}

func (s *PostgresSource) loadOrders(ctx context.Context) ([]models.OrderLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT order_id, order_date, channel, payment_method, product_code,
		       product_name, COALESCE(grade, ''), COALESCE(weight_class, ''),
		       is_set, is_event, quantity, paid_amount, COALESCE(supply_cost, 0)
		FROM orders
		ORDER BY order_date, order_id`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []models.OrderLine
	for rows.Next() {
		var o models.OrderLine
		if err := rows.Scan(&o.OrderID, &o.OrderDate, &o.Channel, &o.PaymentMethod,
			&o.ProductCode, &o.ProductName, &o.Grade, &o.WeightClass,
			&o.IsSet, &o.IsEvent, &o.Quantity, &o.PaidAmount, &o.SupplyCost); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresSource) loadClustered(ctx context.Context) ([]models.ClusteredOrder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT order_id, order_date, channel, payment_method, product_code,
		       product_name, COALESCE(grade, ''), COALESCE(weight_class, ''),
		       is_set, is_event, quantity, paid_amount, COALESCE(supply_cost, 0),
		       cluster
		FROM orders_clustered
		ORDER BY order_date, order_id`)
	if err != nil {
		return nil, fmt.Errorf("query clustered orders: %w", err)
	}
	defer rows.Close()

	var out []models.ClusteredOrder
	for rows.Next() {
		var c models.ClusteredOrder
		if err := rows.Scan(&c.OrderID, &c.OrderDate, &c.Channel, &c.PaymentMethod,
			&c.ProductCode, &c.ProductName, &c.Grade, &c.WeightClass,
			&c.IsSet, &c.IsEvent, &c.Quantity, &c.PaidAmount, &c.SupplyCost,
			&c.Cluster); err != nil {
			return nil, fmt.Errorf("scan clustered order: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresSource) loadEventStats(ctx context.Context) ([]models.DailyEventStat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date, page_views, dau_members, COALESCE(revisit_rate_pct, 0)
		FROM event_stats ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("query event stats: %w", err)
	}
	defer rows.Close()

	var out []models.DailyEventStat
	for rows.Next() {
		var e models.DailyEventStat
		if err := rows.Scan(&e.Date, &e.PageViews, &e.DAUMembers, &e.RevisitRatePct); err != nil {
			return nil, fmt.Errorf("scan event stat: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresSource) loadPageStats(ctx context.Context) ([]models.PageStat, error) {
	rows, err := s.pool.Query(ctx, `SELECT title, views FROM page_stats ORDER BY views DESC`)
	if err != nil {
		return nil, fmt.Errorf("query page stats: %w", err)
	}
	defer rows.Close()

	var out []models.PageStat
	for rows.Next() {
		var p models.PageStat
		if err := rows.Scan(&p.Title, &p.Views); err != nil {
			return nil, fmt.Errorf("scan page stat: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresSource) loadClickStats(ctx context.Context) ([]models.ClickStat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(date, 'epoch'::date), product_name, views, clicks
		FROM click_stats ORDER BY product_name`)
	if err != nil {
		return nil, fmt.Errorf("query click stats: %w", err)
	}
	defer rows.Close()

	var out []models.ClickStat
	for rows.Next() {
		var c models.ClickStat
		if err := rows.Scan(&c.Date, &c.ProductName, &c.Views, &c.Clicks); err != nil {
			return nil, fmt.Errorf("scan click stat: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresSource) loadClusterChannels(ctx context.Context) ([]models.ClusterChannelShare, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cluster, channel, share_pct FROM cluster_channels
		ORDER BY cluster, channel`)
	if err != nil {
		return nil, fmt.Errorf("query cluster channels: %w", err)
	}
	defer rows.Close()

	var out []models.ClusterChannelShare
	for rows.Next() {
		var c models.ClusterChannelShare
		if err := rows.Scan(&c.Cluster, &c.Channel, &c.SharePct); err != nil {
			return nil, fmt.Errorf("scan cluster channel: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresSource) loadEfficiency(ctx context.Context) ([]models.ProductEfficiency, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_code, product_name, ctr_pct, rpc, rpv, view_count,
		       revenue, COALESCE(supply_cost, 0)
		FROM product_efficiency ORDER BY product_code`)
	if err != nil {
		return nil, fmt.Errorf("query product efficiency: %w", err)
	}
	defer rows.Close()

	var out []models.ProductEfficiency
	for rows.Next() {
		var p models.ProductEfficiency
		if err := rows.Scan(&p.ProductCode, &p.ProductName, &p.CTRPct, &p.RPC,
			&p.RPV, &p.ViewCount, &p.Revenue, &p.SupplyCost); err != nil {
			return nil, fmt.Errorf("scan product efficiency: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresSource) loadLTV(ctx context.Context) ([]models.CustomerLTVRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT customer_id, recency_days, frequency, monetary, ltv_score, cluster
		FROM ltv_scores ORDER BY customer_id`)
	if err != nil {
		return nil, fmt.Errorf("query ltv scores: %w", err)
	}
	defer rows.Close()

	var out []models.CustomerLTVRecord
	for rows.Next() {
		var r models.CustomerLTVRecord
		if err := rows.Scan(&r.CustomerID, &r.RecencyDays, &r.Frequency,
			&r.Monetary, &r.LTVScore, &r.Cluster); err != nil {
			return nil, fmt.Errorf("scan ltv score: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresSource) loadIntervals(ctx context.Context) ([]models.OrderIntervalRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cluster, avg_interval_days FROM order_intervals ORDER BY cluster`)
	if err != nil {
		return nil, fmt.Errorf("query order intervals: %w", err)
	}
	defer rows.Close()

	var out []models.OrderIntervalRecord
	for rows.Next() {
		var r models.OrderIntervalRecord
		if err := rows.Scan(&r.Cluster, &r.AvgIntervalDays); err != nil {
			return nil, fmt.Errorf("scan order interval: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresSource) loadAttribution(ctx context.Context) ([]models.ChannelAttributionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT channel, spend, revenue, orders FROM channel_attribution
		ORDER BY channel`)
	if err != nil {
		return nil, fmt.Errorf("query channel attribution: %w", err)
	}
	defer rows.Close()

	var out []models.ChannelAttributionRecord
	for rows.Next() {
		var r models.ChannelAttributionRecord
		if err := rows.Scan(&r.Channel, &r.Spend, &r.Revenue, &r.Orders); err != nil {
			return nil, fmt.Errorf("scan channel attribution: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
