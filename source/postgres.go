package source

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// PostgresSource runs a query returning `(id, document)` rows, the document
// column being JSON text or jsonb.
type PostgresSource struct {
	db    *sqlx.DB
	query string
	args  []any
}

func NewPostgresSource(db *sqlx.DB, query string, args ...any) *PostgresSource {
	return &PostgresSource{
		db:    db,
		query: query,
		args:  args,
	}
}

func (s *PostgresSource) Documents(ctx context.Context, handler Handler) error {
	zlog.Info("querying documents", zap.String("query", s.query))

	rows, err := s.db.QueryxContext(ctx, s.query, s.args...)
	if err != nil {
		return fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("scan row #%d: %w", count+1, err)
		}

		value, err := decodeJSON(raw)
		if err != nil {
			return fmt.Errorf("row %q: %w", id, err)
		}

		if err := handler(Document{ID: id, Value: value}); err != nil {
			return err
		}
		count++
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}

	zlog.Info("documents queried", zap.Int("row_count", count))
	return nil
}
