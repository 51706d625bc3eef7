package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"markettrack-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore implements Store using SQLite. Thread-safe with WAL mode
// for high-concurrency reads; writes are serialized through one writer.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return &SQLiteStore{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS products (
		asin TEXT PRIMARY KEY,
		last_scraped_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT (datetime('now'))
	);
	CREATE TABLE IF NOT EXISTS product_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asin TEXT NOT NULL REFERENCES products(asin),
		captured_at DATETIME NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		price REAL,
		main_category TEXT NOT NULL DEFAULT '',
		main_category_rank INTEGER,
		second_category TEXT NOT NULL DEFAULT '',
		second_category_rank INTEGER,
		bought_last_month INTEGER,
		revenue REAL,
		review_count INTEGER,
		rating REAL,
		image_path TEXT NOT NULL DEFAULT '',
		store TEXT NOT NULL DEFAULT '',
		manufacturer TEXT NOT NULL DEFAULT '',
		change_summary TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_product_changes_asin_time ON product_changes(asin, captured_at);
	CREATE TABLE IF NOT EXISTS markets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		keyword TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL DEFAULT (datetime('now'))
	);
	CREATE TABLE IF NOT EXISTS market_products (
		market_id INTEGER NOT NULL REFERENCES markets(id),
		asin TEXT NOT NULL REFERENCES products(asin),
		PRIMARY KEY (market_id, asin)
	);
	CREATE TABLE IF NOT EXISTS market_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		market_id INTEGER NOT NULL REFERENCES markets(id),
		captured_at DATETIME NOT NULL,
		total_revenue REAL,
		added_asins TEXT NOT NULL DEFAULT '',
		removed_asins TEXT NOT NULL DEFAULT '',
		top_suggestions TEXT NOT NULL DEFAULT '',
		change_summary TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_market_changes_market_time ON market_changes(market_id, captured_at);
	CREATE TABLE IF NOT EXISTS market_clusters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		total_revenue REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT (datetime('now'))
	);
	CREATE TABLE IF NOT EXISTS cluster_markets (
		cluster_id INTEGER NOT NULL REFERENCES market_clusters(id),
		market_id INTEGER NOT NULL REFERENCES markets(id),
		PRIMARY KEY (cluster_id, market_id)
	);
	CREATE TABLE IF NOT EXISTS user_products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		asin TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT (datetime('now')),
		UNIQUE (user_id, asin)
	);
	CREATE TABLE IF NOT EXISTS update_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		updated INTEGER NOT NULL DEFAULT 0,
		unchanged INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := db.Exec(query)
	return err
}

const productChangeColumns = `id, asin, captured_at, title, price, main_category, main_category_rank,
	second_category, second_category_rank, bought_last_month, revenue, review_count, rating,
	image_path, store, manufacturer, change_summary`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProductChange(row rowScanner) (*model.ProductChange, error) {
	var c model.ProductChange
	var price, revenue, rating sql.NullFloat64
	var mainRank, secondRank, blm, reviews sql.NullInt64

	err := row.Scan(&c.ID, &c.ASIN, &c.CapturedAt, &c.Title, &price, &c.MainCategory, &mainRank,
		&c.SecondCategory, &secondRank, &blm, &revenue, &reviews, &rating,
		&c.ImagePath, &c.Store, &c.Manufacturer, &c.ChangeSummary)
	if err != nil {
		return nil, err
	}
	c.Price = nullFloat(price)
	c.Revenue = nullFloat(revenue)
	c.Rating = nullFloat(rating)
	c.MainCategoryRank = nullInt(mainRank)
	c.SecondCategoryRank = nullInt(secondRank)
	c.BoughtLastMonth = nullInt(blm)
	c.ReviewCount = nullInt(reviews)
	return &c, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func insertProductChange(ctx context.Context, ex interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
}, query string, c *model.ProductChange) error {
	_, err := ex.ExecContext(ctx, query,
		c.ASIN, c.CapturedAt, c.Title, c.Price, c.MainCategory, c.MainCategoryRank,
		c.SecondCategory, c.SecondCategoryRank, c.BoughtLastMonth, c.Revenue, c.ReviewCount,
		c.Rating, c.ImagePath, c.Store, c.Manufacturer, c.ChangeSummary)
	return err
}

// --- ProductRepository ---

func (s *SQLiteStore) EnsureProduct(ctx context.Context, asin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (asin) VALUES (?) ON CONFLICT(asin) DO NOTHING`, asin)
	if err != nil {
		return fmt.Errorf("failed to ensure product %s: %w", asin, err)
	}
	return nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, asin string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p model.Product
	var lastScraped sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT asin, last_scraped_at, created_at FROM products WHERE asin = ?`, asin).
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

func (s *SQLiteStore) ListProductASINs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT asin FROM products ORDER BY asin`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var asins []string
	for rows.Next() {
		var asin string
		if err := rows.Scan(&asin); err != nil {
			return nil, err
		}
		asins = append(asins, asin)
	}
	return asins, rows.Err()
}

func (s *SQLiteStore) TouchLastScraped(ctx context.Context, asin string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE products SET last_scraped_at = ? WHERE asin = ?`, at, asin)
	if err != nil {
		return fmt.Errorf("failed to touch product %s: %w", asin, err)
	}
	return nil
}

func (s *SQLiteStore) AppendProductChange(ctx context.Context, change *model.ProductChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `INSERT INTO product_changes (asin, captured_at, title, price, main_category, main_category_rank,
		second_category, second_category_rank, bought_last_month, revenue, review_count, rating,
		image_path, store, manufacturer, change_summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if err := insertProductChange(ctx, s.db, query, change); err != nil {
		return fmt.Errorf("failed to append product change for %s: %w", change.ASIN, err)
	}
	return nil
}

func (s *SQLiteStore) LatestProductChange(ctx context.Context, asin string) (*model.ProductChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + productChangeColumns + ` FROM product_changes
		WHERE asin = ? ORDER BY captured_at DESC, id DESC LIMIT 1`
	c, err := scanProductChange(s.db.QueryRowContext(ctx, query, asin))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest change for %s: %w", asin, err)
	}
	return c, nil
}

func (s *SQLiteStore) LatestProductChangeBefore(ctx context.Context, asin string, before time.Time) (*model.ProductChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + productChangeColumns + ` FROM product_changes
		WHERE asin = ? AND captured_at < ? ORDER BY captured_at DESC, id DESC LIMIT 1`
	c, err := scanProductChange(s.db.QueryRowContext(ctx, query, asin, before))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get change before %v for %s: %w", before, asin, err)
	}
	return c, nil
}

func (s *SQLiteStore) ListProductChanges(ctx context.Context, asin string) ([]model.ProductChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + productChangeColumns + ` FROM product_changes
		WHERE asin = ? ORDER BY captured_at ASC, id ASC`
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

func (s *SQLiteStore) ListProductChangeSummaries(ctx context.Context) ([]SummaryRow, error) {
	return s.listSummaries(ctx, `SELECT id, change_summary FROM product_changes`)
}

func (s *SQLiteStore) UpdateProductChangeSummary(ctx context.Context, id int64, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE product_changes SET change_summary = ? WHERE id = ?`, summary, id)
	return err
}

func (s *SQLiteStore) listSummaries(ctx context.Context, query string) ([]SummaryRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

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

// --- MarketRepository ---

func (s *SQLiteStore) CreateMarket(ctx context.Context, keyword string) (*model.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT INTO markets (keyword) VALUES (?)`, keyword)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create market %q: %w", keyword, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Market{ID: id, Keyword: keyword, CreatedAt: time.Now().UTC()}, nil
}

func (s *SQLiteStore) GetMarket(ctx context.Context, id int64) (*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m model.Market
	err := s.db.QueryRowContext(ctx,
		`SELECT id, keyword, created_at FROM markets WHERE id = ?`, id).
		Scan(&m.ID, &m.Keyword, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market %d: %w", id, err)
	}
	return &m, nil
}

func (s *SQLiteStore) GetMarketByKeyword(ctx context.Context, keyword string) (*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m model.Market
	err := s.db.QueryRowContext(ctx,
		`SELECT id, keyword, created_at FROM markets WHERE keyword = ?`, keyword).
		Scan(&m.ID, &m.Keyword, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market %q: %w", keyword, err)
	}
	return &m, nil
}

func (s *SQLiteStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

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

func (s *SQLiteStore) ListMemberASINs(ctx context.Context, marketID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT asin FROM market_products WHERE market_id = ? ORDER BY asin`, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of market %d: %w", marketID, err)
	}
	defer rows.Close()

	var asins []string
	for rows.Next() {
		var asin string
		if err := rows.Scan(&asin); err != nil {
			return nil, err
		}
		asins = append(asins, asin)
	}
	return asins, rows.Err()
}

func (s *SQLiteStore) CountScrapedMembers(ctx context.Context, marketID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM market_products mp
		 JOIN products p ON p.asin = mp.asin
		 WHERE mp.market_id = ? AND p.last_scraped_at IS NOT NULL`, marketID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count scraped members of market %d: %w", marketID, err)
	}
	return count, nil
}

func scanMarketChange(row rowScanner) (*model.MarketChange, error) {
	var c model.MarketChange
	var revenue sql.NullFloat64
	var added, removed, suggestions string

	err := row.Scan(&c.ID, &c.MarketID, &c.CapturedAt, &revenue, &added, &removed, &suggestions, &c.ChangeSummary)
	if err != nil {
		return nil, err
	}
	c.TotalRevenue = nullFloat(revenue)
	c.AddedASINs = decodeList(added)
	c.RemovedASINs = decodeList(removed)
	c.TopSuggestions = decodeList(suggestions)
	return &c, nil
}

const marketChangeColumns = `id, market_id, captured_at, total_revenue, added_asins, removed_asins, top_suggestions, change_summary`

func (s *SQLiteStore) LatestMarketChange(ctx context.Context, marketID int64) (*model.MarketChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + marketChangeColumns + ` FROM market_changes
		WHERE market_id = ? ORDER BY captured_at DESC, id DESC LIMIT 1`
	c, err := scanMarketChange(s.db.QueryRowContext(ctx, query, marketID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest market change for %d: %w", marketID, err)
	}
	return c, nil
}

func (s *SQLiteStore) ListMarketChanges(ctx context.Context, marketID int64) ([]model.MarketChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + marketChangeColumns + ` FROM market_changes
		WHERE market_id = ? ORDER BY captured_at ASC, id ASC`
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

func (s *SQLiteStore) ApplyMarketUpdate(ctx context.Context, marketID int64, change *model.MarketChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO market_changes (market_id, captured_at, total_revenue, added_asins, removed_asins, top_suggestions, change_summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		marketID, change.CapturedAt, change.TotalRevenue,
		encodeList(change.AddedASINs), encodeList(change.RemovedASINs),
		encodeList(change.TopSuggestions), change.ChangeSummary)
	if err != nil {
		return fmt.Errorf("failed to insert market change: %w", err)
	}

	for _, asin := range change.AddedASINs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO products (asin) VALUES (?) ON CONFLICT(asin) DO NOTHING`, asin); err != nil {
			return fmt.Errorf("failed to ensure product %s: %w", asin, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO market_products (market_id, asin) VALUES (?, ?) ON CONFLICT DO NOTHING`, marketID, asin); err != nil {
			return fmt.Errorf("failed to attach product %s: %w", asin, err)
		}
	}
	// Detach only removes live membership; products and their history stay.
	for _, asin := range change.RemovedASINs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM market_products WHERE market_id = ? AND asin = ?`, marketID, asin); err != nil {
			return fmt.Errorf("failed to detach product %s: %w", asin, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit market update: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMarketChangeSummaries(ctx context.Context) ([]SummaryRow, error) {
	return s.listSummaries(ctx, `SELECT id, change_summary FROM market_changes`)
}

func (s *SQLiteStore) UpdateMarketChangeSummary(ctx context.Context, id int64, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE market_changes SET change_summary = ? WHERE id = ?`, summary, id)
	return err
}

// --- ClusterRepository ---

func (s *SQLiteStore) CreateCluster(ctx context.Context, userID int64, name string) (*model.MarketCluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO market_clusters (user_id, name) VALUES (?, ?)`, userID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.MarketCluster{ID: id, UserID: userID, Name: name, CreatedAt: time.Now().UTC()}, nil
}

func (s *SQLiteStore) GetCluster(ctx context.Context, id int64) (*model.MarketCluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c model.MarketCluster
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, total_revenue, created_at FROM market_clusters WHERE id = ?`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.TotalRevenue, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster %d: %w", id, err)
	}
	return &c, nil
}

func (s *SQLiteStore) ListClustersByUser(ctx context.Context, userID int64) ([]model.MarketCluster, error) {
	return s.listClusters(ctx, `SELECT id, user_id, name, total_revenue, created_at
		FROM market_clusters WHERE user_id = ? ORDER BY name`, userID)
}

func (s *SQLiteStore) ListAllClusters(ctx context.Context) ([]model.MarketCluster, error) {
	return s.listClusters(ctx, `SELECT id, user_id, name, total_revenue, created_at
		FROM market_clusters ORDER BY id`)
}

func (s *SQLiteStore) listClusters(ctx context.Context, query string, args ...interface{}) ([]model.MarketCluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

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

func (s *SQLiteStore) AttachMarket(ctx context.Context, clusterID, marketID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cluster_markets (cluster_id, market_id) VALUES (?, ?)`, clusterID, marketID)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to attach market %d to cluster %d: %w", marketID, clusterID, err)
	}
	return nil
}

func (s *SQLiteStore) ListClusterMarketIDs(ctx context.Context, clusterID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT market_id FROM cluster_markets WHERE cluster_id = ? ORDER BY market_id`, clusterID)
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

func (s *SQLiteStore) ListClusterASINs(ctx context.Context, clusterID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT mp.asin FROM cluster_markets cm
		 JOIN market_products mp ON mp.market_id = cm.market_id
		 WHERE cm.cluster_id = ? ORDER BY mp.asin`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cluster products: %w", err)
	}
	defer rows.Close()

	var asins []string
	for rows.Next() {
		var asin string
		if err := rows.Scan(&asin); err != nil {
			return nil, err
		}
		asins = append(asins, asin)
	}
	return asins, rows.Err()
}

func (s *SQLiteStore) SetClusterRevenue(ctx context.Context, clusterID int64, total float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE market_clusters SET total_revenue = ? WHERE id = ?`, total, clusterID)
	if err != nil {
		return fmt.Errorf("failed to set cluster %d revenue: %w", clusterID, err)
	}
	return nil
}

// --- WatchlistRepository ---

func (s *SQLiteStore) AddWatch(ctx context.Context, userID int64, asin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_products (user_id, asin) VALUES (?, ?)`, userID, asin)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to add watch %d/%s: %w", userID, asin, err)
	}
	return nil
}

func (s *SQLiteStore) RemoveWatch(ctx context.Context, userID int64, asin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM user_products WHERE user_id = ? AND asin = ?`, userID, asin)
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

func (s *SQLiteStore) ListWatchedASINs(ctx context.Context, userID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT asin FROM user_products WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch list for user %d: %w", userID, err)
	}
	defer rows.Close()

	var asins []string
	for rows.Next() {
		var asin string
		if err := rows.Scan(&asin); err != nil {
			return nil, err
		}
		asins = append(asins, asin)
	}
	return asins, rows.Err()
}

// --- RunRepository ---

func (s *SQLiteStore) InsertRun(ctx context.Context, run *model.UpdateRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO update_runs (kind, started_at, finished_at, updated, unchanged, skipped, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.Kind, run.StartedAt, run.FinishedAt, run.Updated, run.Unchanged, run.Skipped, run.Failed)
	if err != nil {
		return fmt.Errorf("failed to insert update run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]model.UpdateRun, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM update_runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, started_at, finished_at, updated, unchanged, skipped, failed
		 FROM update_runs ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
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

func (s *SQLiteStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

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

	var pageCount, pageSize int64
	s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed")
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
