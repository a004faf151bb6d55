package metricrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
)

// sqliteTimeLayout is fixed width so text comparison orders chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS wearables_data (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	integration_id TEXT NOT NULL,
	metric_type TEXT NOT NULL,
	metric_value TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	sync_date TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (user_id, integration_id, metric_type, recorded_at)
);
CREATE INDEX IF NOT EXISTS wearables_data_user_sync_date_idx
	ON wearables_data (user_id, integration_id, sync_date);
`

const sqliteUpsert = `
INSERT INTO wearables_data (user_id, integration_id, metric_type, metric_value, recorded_at, sync_date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, integration_id, metric_type, recorded_at)
DO UPDATE SET metric_value = excluded.metric_value,
              sync_date = excluded.sync_date,
              updated_at = excluded.updated_at
`

var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	encodeTime:  func(ts time.Time) any { return formatSQLiteTime(ts) },
}

// SQLiteRepository implements healthsync.RecordStore on a local SQLite file.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository opens path and creates the schema if needed.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Upsert writes the whole batch in one transaction.
func (r *SQLiteRepository) Upsert(ctx context.Context, records []healthsync.MetricRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := formatSQLiteTime(r.now())
	for _, record := range records {
		value, err := json.Marshal(record.Value)
		if err != nil {
			return 0, fmt.Errorf("encode %s value: %w", record.MetricType, err)
		}
		if _, err := stmt.ExecContext(ctx,
			record.UserID,
			record.IntegrationID,
			string(record.MetricType),
			string(value),
			formatSQLiteTime(record.RecordedAt),
			record.SyncDate().Format(time.DateOnly),
			now,
			now,
		); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

// List returns stored records ordered by recorded_at.
func (r *SQLiteRepository) List(ctx context.Context, filter healthsync.RecordFilter) ([]healthsync.MetricRecord, error) {
	query, args := buildListQuery(filter, sqliteDialect)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]healthsync.MetricRecord, 0)
	for rows.Next() {
		var (
			record     healthsync.MetricRecord
			metric     string
			value      string
			recordedAt string
		)
		if err := rows.Scan(&record.UserID, &record.IntegrationID, &metric, &value, &recordedAt); err != nil {
			return nil, err
		}
		record.MetricType = healthsync.CanonicalMetric(metric)
		if record.RecordedAt, err = time.Parse(sqliteTimeLayout, recordedAt); err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		if err := json.Unmarshal([]byte(value), &record.Value); err != nil {
			return nil, fmt.Errorf("decode %s value: %w", metric, err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func formatSQLiteTime(ts time.Time) string {
	return ts.UTC().Format(sqliteTimeLayout)
}

var _ healthsync.RecordStore = (*SQLiteRepository)(nil)
