package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"markettrack-api/internal/model"

	"github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL. Preferred for
// multi-instance deployments where SQLite's single writer is limiting.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL using the given DSN.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	if err := createPostgresTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[PostgresStore] Initialized")
	return &PostgresStore{db: db}, nil
}

func createPostgresTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS products (
		asin TEXT PRIMARY KEY,
		last_scraped_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS product_changes (
		id BIGSERIAL PRIMARY KEY,
		asin TEXT NOT NULL REFERENCES products(asin),
		captured_at TIMESTAMPTZ NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		price DOUBLE PRECISION,
		main_category TEXT NOT NULL DEFAULT '',
		main_category_rank BIGINT,
		second_category TEXT NOT NULL DEFAULT '',
		second_category_rank BIGINT,
		bought_last_month BIGINT,
		revenue DOUBLE PRECISION,
		review_count BIGINT,
		rating DOUBLE PRECISION,
		image_path TEXT NOT NULL DEFAULT '',
		store TEXT NOT NULL DEFAULT '',
		manufacturer TEXT NOT NULL DEFAULT '',
		change_summary TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_product_changes_asin_time ON product_changes(asin, captured_at);
	CREATE TABLE IF NOT EXISTS markets (
		id BIGSERIAL PRIMARY KEY,
		keyword TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS market_products (
		market_id BIGINT NOT NULL REFERENCES markets(id),
		asin TEXT NOT NULL REFERENCES products(asin),
		PRIMARY KEY (market_id, asin)
	);
	CREATE TABLE IF NOT EXISTS market_changes (
		id BIGSERIAL PRIMARY KEY,
		market_id BIGINT NOT NULL REFERENCES markets(id),
		captured_at TIMESTAMPTZ NOT NULL,
		total_revenue DOUBLE PRECISION,
		added_asins TEXT NOT NULL DEFAULT '',
		removed_asins TEXT NOT NULL DEFAULT '',
		top_suggestions TEXT NOT NULL DEFAULT '',
		change_summary TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_market_changes_market_time ON market_changes(market_id, captured_at);
	CREATE TABLE IF NOT EXISTS market_clusters (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		total_revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS cluster_markets (
		cluster_id BIGINT NOT NULL REFERENCES market_clusters(id),
		market_id BIGINT NOT NULL REFERENCES markets(id),
		PRIMARY KEY (cluster_id, market_id)
	);
	CREATE TABLE IF NOT EXISTS user_products (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		asin TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, asin)
	);
	CREATE TABLE IF NOT EXISTS update_runs (
		id BIGSERIAL PRIMARY KEY,
		kind TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		updated INT NOT NULL DEFAULT 0,
		unchanged INT NOT NULL DEFAULT 0,
		skipped INT NOT NULL DEFAULT 0,
		failed INT NOT NULL DEFAULT 0
	);
	`
	_, err := db.Exec(query)
	return err
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// --- ProductRepository ---

func (s *PostgresStore) EnsureProduct(ctx context.Context, asin string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (asin) VALUES ($1) ON CONFLICT (asin) DO NOTHING`, asin)
	if err != nil {
		return fmt.Errorf("failed to ensure product %s: %w", asin, err)
	}
	return nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, asin string) (*model.Product, error) {
	var p model.Product
	var lastScraped sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT asin, last_scraped_at, created_at FROM products WHERE asin = $1`, asin).
		Scan(&p.ASIN, &lastScraped, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", asin, err)
	}
	if lastScraped.Valid {
		t := lastScraped.Time
		p.LastScrapedAt = &t
	}
	return &p, nil
}

func (s *PostgresStore) ListProductASINs(ctx context.Context) ([]string, error) {
	return s.listStrings(ctx, `SELECT asin FROM products ORDER BY asin`)
}

func (s *PostgresStore) TouchLastScraped(ctx context.Context, asin string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE products SET last_scraped_at = $1 WHERE asin = $2`, at, asin)
	if err != nil {
		return fmt.Errorf("failed to touch product %s: %w", asin, err)
	}
	return nil
}

func (s *PostgresStore) AppendProductChange(ctx context.Context, change *model.ProductChange) error {
	query := `INSERT INTO product_changes (asin, captured_at, title, price, main_category, main_category_rank,
		second_category, second_category_rank, bought_last_month, revenue, review_count, rating,
		image_path, store, manufacturer, change_summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	if err := insertProductChange(ctx, s.db, query, change); err != nil {
		return fmt.Errorf("failed to append product change for %s: %w", change.ASIN, err)
	}
	return nil
}

func (s *PostgresStore) LatestProductChange(ctx context.Context, asin string) (*model.ProductChange, error) {
	query := `SELECT ` + productChangeColumns + ` FROM product_changes
		WHERE asin = $1 ORDER BY captured_at DESC, id DESC LIMIT 1`
	c, err := scanProductChange(s.db.QueryRowContext(ctx, query, asin))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest change for %s: %w", asin, err)
	}
	return c, nil
}

func (s *PostgresStore) LatestProductChangeBefore(ctx context.Context, asin string, before time.Time) (*model.ProductChange, error) {
	query := `SELECT ` + productChangeColumns + ` FROM product_changes
		WHERE asin = $1 AND captured_at < $2 ORDER BY captured_at DESC, id DESC LIMIT 1`
	c, err := scanProductChange(s.db.QueryRowContext(ctx, query, asin, before))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get change before %v for %s: %w", before, asin, err)
	}
	return c, nil
}

func (s *PostgresStore) ListProductChanges(ctx context.Context, asin string) ([]model.ProductChange, error) {
	query := `SELECT ` + productChangeColumns + ` FROM product_changes
		WHERE asin = $1 ORDER BY captured_at ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query, asin)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes for %s: %w", asin, err)
	}
	defer rows.Close()

	var changes []model.ProductChange
	for rows.Next() {
		c, err := scanProductChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, *c)
	}
	return changes, rows.Err()
}

func (s *PostgresStore) ListProductChangeSummaries(ctx context.Context) ([]SummaryRow, error) {
	return s.listSummaries(ctx, `SELECT id, change_summary FROM product_changes`)
}

func (s *PostgresStore) UpdateProductChangeSummary(ctx context.Context, id int64, summary string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE product_changes SET change_summary = $1 WHERE id = $2`, summary, id)
	return err
}

func (s *PostgresStore) listSummaries(ctx context.Context, query string) ([]SummaryRow, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var r SummaryRow
		if err := rows.Scan(&r.ID, &r.Summary); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) listStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// --- MarketRepository ---

func (s *PostgresStore) CreateMarket(ctx context.Context, keyword string) (*model.Market, error) {
	var m model.Market
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO markets (keyword) VALUES ($1) RETURNING id, keyword, created_at`, keyword).
		Scan(&m.ID, &m.Keyword, &m.CreatedAt)
	if err != nil {
		if isPostgresUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create market %q: %w", keyword, err)
	}
	return &m, nil
}

func (s *PostgresStore) GetMarket(ctx context.Context, id int64) (*model.Market, error) {
	var m model.Market
	err := s.db.QueryRowContext(ctx,
		`SELECT id, keyword, created_at FROM markets WHERE id = $1`, id).
		Scan(&m.ID, &m.Keyword, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market %d: %w", id, err)
	}
	return &m, nil
}

func (s *PostgresStore) GetMarketByKeyword(ctx context.Context, keyword string) (*model.Market, error) {
	var m model.Market
	err := s.db.QueryRowContext(ctx,
		`SELECT id, keyword, created_at FROM markets WHERE keyword = $1`, keyword).
		Scan(&m.ID, &m.Keyword, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market %q: %w", keyword, err)
	}
	return &m, nil
}

func (s *PostgresStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, keyword, created_at FROM markets ORDER BY keyword`)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		var m model.Market
		if err := rows.Scan(&m.ID, &m.Keyword, &m.CreatedAt); err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

func (s *PostgresStore) ListMemberASINs(ctx context.Context, marketID int64) ([]string, error) {
	return s.listStrings(ctx,
		`SELECT asin FROM market_products WHERE market_id = $1 ORDER BY asin`, marketID)
}

func (s *PostgresStore) CountScrapedMembers(ctx context.Context, marketID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM market_products mp
		 JOIN products p ON p.asin = mp.asin
		 WHERE mp.market_id = $1 AND p.last_scraped_at IS NOT NULL`, marketID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count scraped members of market %d: %w", marketID, err)
	}
	return count, nil
}

func (s *PostgresStore) LatestMarketChange(ctx context.Context, marketID int64) (*model.MarketChange, error) {
	query := `SELECT ` + marketChangeColumns + ` FROM market_changes
		WHERE market_id = $1 ORDER BY captured_at DESC, id DESC LIMIT 1`
	c, err := scanMarketChange(s.db.QueryRowContext(ctx, query, marketID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest market change for %d: %w", marketID, err)
	}
	return c, nil
}

func (s *PostgresStore) ListMarketChanges(ctx context.Context, marketID int64) ([]model.MarketChange, error) {
	query := `SELECT ` + marketChangeColumns + ` FROM market_changes
		WHERE market_id = $1 ORDER BY captured_at ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list market changes for %d: %w", marketID, err)
	}
	defer rows.Close()

	var changes []model.MarketChange
	for rows.Next() {
		c, err := scanMarketChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, *c)
	}
	return changes, rows.Err()
}

func (s *PostgresStore) ApplyMarketUpdate(ctx context.Context, marketID int64, change *model.MarketChange) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO market_changes (market_id, captured_at, total_revenue, added_asins, removed_asins, top_suggestions, change_summary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		marketID, change.CapturedAt, change.TotalRevenue,
		encodeList(change.AddedASINs), encodeList(change.RemovedASINs),
		encodeList(change.TopSuggestions), change.ChangeSummary)
	if err != nil {
		return fmt.Errorf("failed to insert market change: %w", err)
	}

	for _, asin := range change.AddedASINs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO products (asin) VALUES ($1) ON CONFLICT (asin) DO NOTHING`, asin); err != nil {
			return fmt.Errorf("failed to ensure product %s: %w", asin, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO market_products (market_id, asin) VALUES ($1, $2) ON CONFLICT DO NOTHING`, marketID, asin); err != nil {
			return fmt.Errorf("failed to attach product %s: %w", asin, err)
		}
	}
	for _, asin := range change.RemovedASINs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM market_products WHERE market_id = $1 AND asin = $2`, marketID, asin); err != nil {
			return fmt.Errorf("failed to detach product %s: %w", asin, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit market update: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMarketChangeSummaries(ctx context.Context) ([]SummaryRow, error) {
	return s.listSummaries(ctx, `SELECT id, change_summary FROM market_changes`)
}

func (s *PostgresStore) UpdateMarketChangeSummary(ctx context.Context, id int64, summary string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE market_changes SET change_summary = $1 WHERE id = $2`, summary, id)
	return err
}

// --- ClusterRepository ---

func (s *PostgresStore) CreateCluster(ctx context.Context, userID int64, name string) (*model.MarketCluster, error) {
	var c model.MarketCluster
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO market_clusters (user_id, name) VALUES ($1, $2)
		 RETURNING id, user_id, name, total_revenue, created_at`, userID, name).
		Scan(&c.ID, &c.UserID, &c.Name, &c.TotalRevenue, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster %q: %w", name, err)
	}
	return &c, nil
}

func (s *PostgresStore) GetCluster(ctx context.Context, id int64) (*model.MarketCluster, error) {
	var c model.MarketCluster
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, total_revenue, created_at FROM market_clusters WHERE id = $1`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.TotalRevenue, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster %d: %w", id, err)
	}
	return &c, nil
}

func (s *PostgresStore) ListClustersByUser(ctx context.Context, userID int64) ([]model.MarketCluster, error) {
	return s.listClusters(ctx, `SELECT id, user_id, name, total_revenue, created_at
		FROM market_clusters WHERE user_id = $1 ORDER BY name`, userID)
}

func (s *PostgresStore) ListAllClusters(ctx context.Context) ([]model.MarketCluster, error) {
	return s.listClusters(ctx, `SELECT id, user_id, name, total_revenue, created_at
		FROM market_clusters ORDER BY id`)
}

func (s *PostgresStore) listClusters(ctx context.Context, query string, args ...interface{}) ([]model.MarketCluster, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}
	defer rows.Close()

	var clusters []model.MarketCluster
	for rows.Next() {
		var c model.MarketCluster
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.TotalRevenue, &c.CreatedAt); err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

func (s *PostgresStore) AttachMarket(ctx context.Context, clusterID, marketID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cluster_markets (cluster_id, market_id) VALUES ($1, $2)`, clusterID, marketID)
	if err != nil {
		if isPostgresUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to attach market %d to cluster %d: %w", marketID, clusterID, err)
	}
	return nil
}

func (s *PostgresStore) ListClusterMarketIDs(ctx context.Context, clusterID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT market_id FROM cluster_markets WHERE cluster_id = $1 ORDER BY market_id`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cluster markets: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) ListClusterASINs(ctx context.Context, clusterID int64) ([]string, error) {
	return s.listStrings(ctx,
		`SELECT DISTINCT mp.asin FROM cluster_markets cm
		 JOIN market_products mp ON mp.market_id = cm.market_id
		 WHERE cm.cluster_id = $1 ORDER BY mp.asin`, clusterID)
}

func (s *PostgresStore) SetClusterRevenue(ctx context.Context, clusterID int64, total float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE market_clusters SET total_revenue = $1 WHERE id = $2`, total, clusterID)
	if err != nil {
		return fmt.Errorf("failed to set cluster %d revenue: %w", clusterID, err)
	}
	return nil
}

// --- WatchlistRepository ---

func (s *PostgresStore) AddWatch(ctx context.Context, userID int64, asin string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_products (user_id, asin) VALUES ($1, $2)`, userID, asin)
	if err != nil {
		if isPostgresUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to add watch %d/%s: %w", userID, asin, err)
	}
	return nil
}

func (s *PostgresStore) RemoveWatch(ctx context.Context, userID int64, asin string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM user_products WHERE user_id = $1 AND asin = $2`, userID, asin)
	if err != nil {
		return fmt.Errorf("failed to remove watch %d/%s: %w", userID, asin, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListWatchedASINs(ctx context.Context, userID int64) ([]string, error) {
	return s.listStrings(ctx,
		`SELECT asin FROM user_products WHERE user_id = $1 ORDER BY created_at`, userID)
}

// --- RunRepository ---

func (s *PostgresStore) InsertRun(ctx context.Context, run *model.UpdateRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO update_runs (kind, started_at, finished_at, updated, unchanged, skipped, failed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.Kind, run.StartedAt, run.FinishedAt, run.Updated, run.Unchanged, run.Skipped, run.Failed)
	if err != nil {
		return fmt.Errorf("failed to insert update run: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit, offset int) ([]model.UpdateRun, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM update_runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, started_at, finished_at, updated, unchanged, skipped, failed
		 FROM update_runs ORDER BY started_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list update runs: %w", err)
	}
	defer rows.Close()

	var runs []model.UpdateRun
	for rows.Next() {
		var r model.UpdateRun
		if err := rows.Scan(&r.ID, &r.Kind, &r.StartedAt, &r.FinishedAt, &r.Updated, &r.Unchanged, &r.Skipped, &r.Failed); err != nil {
			return nil, 0, err
		}
		runs = append(runs, r)
	}
	return runs, total, rows.Err()
}

// --- Store ---

func (s *PostgresStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	counts := map[string]string{
		"products":        `SELECT COUNT(*) FROM products`,
		"product_changes": `SELECT COUNT(*) FROM product_changes`,
		"markets":         `SELECT COUNT(*) FROM markets`,
		"market_changes":  `SELECT COUNT(*) FROM market_changes`,
		"clusters":        `SELECT COUNT(*) FROM market_clusters`,
		"watch_entries":   `SELECT COUNT(*) FROM user_products`,
		"update_runs":     `SELECT COUNT(*) FROM update_runs`,
	}
	for name, query := range counts {
		var count int64
		if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, err
		}
		stats[name] = count
	}

	var lastCapture sql.NullTime
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(captured_at) FROM product_changes`).Scan(&lastCapture); err == nil && lastCapture.Valid {
		stats["last_capture"] = lastCapture.Time
	}

	return stats, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)
