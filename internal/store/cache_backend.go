package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kickoffai/predictions-api/internal/cache"
	"github.com/kickoffai/predictions-api/internal/logic"
)

// CacheTable is a cache.Backend over the cache_entries table.
type CacheTable struct {
	pool logic.PgPool
}

func NewCacheTable(pool logic.PgPool) *CacheTable {
	return &CacheTable{pool: pool}
}

var _ cache.Backend = (*CacheTable)(nil)

func (c *CacheTable) Get(ctx context.Context, key string) (string, time.Time, error) {
	var value string
	var expiresAt time.Time
	err := c.pool.QueryRow(ctx, `SELECT value, expires_at FROM cache_entries WHERE key = $1`, key).Scan(&value, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", time.Time{}, cache.ErrMiss
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("read cache entry: %w", err)
	}
	return value, expiresAt, nil
}

func (c *CacheTable) Set(ctx context.Context, key, value string, expiresAt time.Time) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO cache_entries (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, expiresAt)
	return err
}

func (c *CacheTable) Delete(ctx context.Context, key string) error {
	_, err := c.pool.Exec(ctx, `DELETE FROM cache_entries WHERE key = $1`, key)
	return err
}

func (c *CacheTable) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := c.pool.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
