package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Get returns the value stored under key. The boolean is false when the key is absent.
func (d *Database) Get(ctx context.Context, key string) ([]byte, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, errors.New("key is empty")
	}

	query := "select value from kv where key = ?"

	var value []byte
	err := d.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scan row: %w", err)
	}

	return value, true, nil
}

func (d *Database) Put(ctx context.Context, key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("key is empty")
	}

	query := `insert into kv (key, value, updated_at)
	values (?, ?, ?)
	on conflict (key) do update
	set value = excluded.value,
	updated_at = excluded.updated_at`

	_, err := d.db.ExecContext(ctx, query, key, value, time.Now().Unix())

	return err
}

func (d *Database) Delete(ctx context.Context, key string) error {
	query := "delete from kv where key = ?"

	_, err := d.db.ExecContext(ctx, query, strings.TrimSpace(key))

	return err
}

// PurgeBefore deletes entries whose key starts with prefix and that were last written before cutoff.
func (d *Database) PurgeBefore(ctx context.Context, prefix string, cutoff time.Time) (int64, error) {
	query := "delete from kv where substr(key, 1, ?) = ? and updated_at < ?"

	res, err := d.db.ExecContext(ctx, query, len(prefix), prefix, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("execute query: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	d.log.DebugContext(ctx, "Purged KV entries",
		"prefix", prefix,
		"cutoff", cutoff,
		"purged", n)

	return n, nil
}
