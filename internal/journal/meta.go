package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// Meta keys for engine limits persisted at init.
const (
	MetaMaxEntries = "max_entries"
	MetaMaxSteps   = "max_steps"
)

// SetMeta writes a meta entry. Entries are write-once: re-setting an
// existing key is silently ignored, the first value wins.
func (j *Journal) SetMeta(ctx context.Context, key, value string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO NOTHING
	`, key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// GetMeta reads a meta entry. The second return is false when the key was
// never set.
func (j *Journal) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := j.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, true, nil
}

// MetaInt reads an integer meta entry, 0 when unset.
func (j *Journal) MetaInt(ctx context.Context, key string) (int, error) {
	s, ok, err := j.GetMeta(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("meta %s: %w", key, err)
	}
	return n, nil
}
