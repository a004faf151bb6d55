package metricrepo

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
)

//go:embed schema.sql
var schemaSQL string

const upsertSQL = `
	INSERT INTO wearables_data (user_id, integration_id, metric_type, metric_value, recorded_at, sync_date)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (user_id, integration_id, metric_type, recorded_at)
	DO UPDATE SET metric_value = EXCLUDED.metric_value,
	              sync_date = EXCLUDED.sync_date,
	              updated_at = NOW()
`

// PostgresRepository implements healthsync.RecordStore using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the wearables_data table when it is missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schemaSQL)
	return err
}

// Upsert writes the whole batch in one transaction.
func (r *PostgresRepository) Upsert(ctx context.Context, records []healthsync.MetricRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, record := range records {
		value, err := json.Marshal(record.Value)
		if err != nil {
			return 0, fmt.Errorf("encode %s value: %w", record.MetricType, err)
		}
		batch.Queue(upsertSQL,
			record.UserID,
			record.IntegrationID,
			string(record.MetricType),
			value,
			record.RecordedAt.UTC(),
			record.SyncDate(),
		)
	}

	results := tx.SendBatch(ctx, batch)
	written := 0
	for range records {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, err
		}
		written += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return written, nil
}

// List returns stored records ordered by recorded_at.
func (r *PostgresRepository) List(ctx context.Context, filter healthsync.RecordFilter) ([]healthsync.MetricRecord, error) {
	query, args := buildListQuery(filter, postgresDialect)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]healthsync.MetricRecord, 0)
	for rows.Next() {
		var (
			record healthsync.MetricRecord
			metric string
			value  []byte
		)
		if err := rows.Scan(&record.UserID, &record.IntegrationID, &metric, &value, &record.RecordedAt); err != nil {
			return nil, err
		}
		record.MetricType = healthsync.CanonicalMetric(metric)
		record.RecordedAt = record.RecordedAt.UTC()
		if err := json.Unmarshal(value, &record.Value); err != nil {
			return nil, fmt.Errorf("decode %s value: %w", metric, err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// dialect adapts the list query to a driver's bind markers and time encoding.
type dialect struct {
	placeholder func(n int) string
	encodeTime  func(ts time.Time) any
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	encodeTime:  func(ts time.Time) any { return ts.UTC() },
}

func buildListQuery(filter healthsync.RecordFilter, d dialect) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, d.placeholder(len(args))))
	}
	if filter.UserID != "" {
		add("user_id = %s", filter.UserID)
	}
	if filter.IntegrationID != "" {
		add("integration_id = %s", filter.IntegrationID)
	}
	if filter.MetricType != "" {
		add("metric_type = %s", string(filter.MetricType))
	}
	if !filter.From.IsZero() {
		add("recorded_at >= %s", d.encodeTime(filter.From))
	}
	if !filter.To.IsZero() {
		add("recorded_at < %s", d.encodeTime(filter.To))
	}

	var b strings.Builder
	b.WriteString("SELECT user_id, integration_id, metric_type, metric_value, recorded_at FROM wearables_data")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY recorded_at ASC, metric_type ASC")
	if filter.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", filter.Limit)
	}
	return b.String(), args
}

var _ healthsync.RecordStore = (*PostgresRepository)(nil)
