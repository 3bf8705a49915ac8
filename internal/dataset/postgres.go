package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

// PostgresProvider reads flow records from a table holding an IDS2017 export.
type PostgresProvider struct {
	dsn    string
	table  string
	limit  int
	sample int
	logger *slog.Logger
}

// NewPostgresProvider targets table on the database at dsn. limit bounds the rows
// fetched before cleaning; zero fetches everything.
func NewPostgresProvider(dsn, table string, limit, sample int, logger *slog.Logger) *PostgresProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProvider{dsn: dsn, table: table, limit: limit, sample: sample, logger: logger}
}

// Load fetches the rows in physical order and prepares them like a CSV export.
func (p *PostgresProvider) Load(ctx context.Context) (Table, error) {
	if p.dsn == "" || p.table == "" {
		return Table{}, utils.DatasetLoadError("dataset.postgres", fmt.Errorf("dsn and table are required"))
	}

	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return Table{}, utils.DatasetLoadError("dataset.postgres", fmt.Errorf("connect: %w", err))
	}
	defer conn.Close(context.Background())

	query := "SELECT * FROM " + pgx.Identifier{p.table}.Sanitize()
	var args []any
	if p.limit > 0 {
		query += " LIMIT $1"
		args = append(args, p.limit)
	}

	start := time.Now()
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return Table{}, utils.DatasetLoadError("dataset.postgres", fmt.Errorf("query %s: %w", p.table, err))
	}
	raw, err := collectRows(rows)
	if err != nil {
		return Table{}, utils.DatasetLoadError("dataset.postgres", err)
	}
	p.logger.Info("postgres rows fetched",
		slog.String("table", p.table),
		slog.Int("rows", raw.Len()),
		slog.Duration("elapsed", time.Since(start)),
	)

	prepared, err := Prepare(raw, p.sample, p.logger)
	if err != nil {
		return Table{}, utils.DatasetLoadError("dataset.postgres", err)
	}
	return prepared, nil
}

func collectRows(rows pgx.Rows) (Table, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	table := Table{Columns: make([]string, len(fields))}
	for i, fd := range fields {
		table.Columns[i] = fd.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return Table{}, fmt.Errorf("scan row %d: %w", table.Len(), err)
		}
		record := make(map[string]any, len(values))
		for i, v := range values {
			record[table.Columns[i]] = normalizeSQLValue(v)
		}
		table.Rows = append(table.Rows, Row{Index: table.Len(), Values: record})
	}
	if err := rows.Err(); err != nil {
		return Table{}, fmt.Errorf("iterate rows: %w", err)
	}
	return table, nil
}

// normalizeSQLValue maps driver types onto the float64/string/nil cells used by Table.
func normalizeSQLValue(v any) any {
	switch value := v.(type) {
	case nil:
		return nil
	case float64:
		return value
	case float32:
		return float64(value)
	case int64:
		return float64(value)
	case int32:
		return float64(value)
	case int16:
		return float64(value)
	case int:
		return float64(value)
	case string:
		return ParseCell(value)
	case []byte:
		return ParseCell(string(value))
	case *big.Int:
		f, _ := new(big.Float).SetInt(value).Float64()
		return f
	case pgtype.Numeric:
		f, err := value.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	default:
		return fmt.Sprint(value)
	}
}
