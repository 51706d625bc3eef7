package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/go-sql-driver/mysql"
)

// MySQLWatchlistRepository implements WatchlistRepository against the
// shared user database. Deployments that keep user data in MySQL plug
// this in; otherwise the main store serves the watch list.
type MySQLWatchlistRepository struct {
	db *sql.DB
}

// NewMySQLWatchlistRepository wraps an existing MySQL connection.
func NewMySQLWatchlistRepository(db *sql.DB) (*MySQLWatchlistRepository, error) {
	query := `CREATE TABLE IF NOT EXISTS user_products (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		asin VARCHAR(32) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uniq_user_asin (user_id, asin)
	)`
	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("failed to create user_products table: %w", err)
	}
	log.Printf("[MySQLWatchlistRepository] Initialized")
	return &MySQLWatchlistRepository{db: db}, nil
}

func isMySQLDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}

// AddWatch adds a watch entry; (user_id, asin) is unique.
func (r *MySQLWatchlistRepository) AddWatch(ctx context.Context, userID int64, asin string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_products (user_id, asin) VALUES (?, ?)`, userID, asin)
	if err != nil {
		if isMySQLDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to add watch %d/%s: %w", userID, asin, err)
	}
	return nil
}

// RemoveWatch deletes a watch entry.
func (r *MySQLWatchlistRepository) RemoveWatch(ctx context.Context, userID int64, asin string) error {
	res, err := r.db.ExecContext(ctx,
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

// ListWatchedASINs returns the product keys a user watches.
func (r *MySQLWatchlistRepository) ListWatchedASINs(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
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

// Ensure MySQLWatchlistRepository implements WatchlistRepository
var _ WatchlistRepository = (*MySQLWatchlistRepository)(nil)
