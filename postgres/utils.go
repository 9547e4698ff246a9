package postgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const DefaultMaxConnections = 10

// Connect opens a lib/pq backed pool on dsn, either a `postgres://` URL or a
// `key=value` connection string. maxConnections below 1 uses
// DefaultMaxConnections.
func Connect(ctx context.Context, dsn string, maxConnections int) (*sqlx.DB, error) {
	zlog.Info("connecting to postgres", zap.String("data_source", redacted(dsn)))
	dbConnectCtx, dbCancel := context.WithTimeout(ctx, 5*time.Second)
	defer dbCancel()

	db, err := sqlx.ConnectContext(dbConnectCtx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if maxConnections < 1 {
		maxConnections = DefaultMaxConnections
	}
	db.SetMaxOpenConns(maxConnections)

	zlog.Info("database connections created", zap.Int("max_connections", maxConnections))
	return db, nil
}

// redacted hides the password of URL formatted DSNs, other forms are logged
// only when tracing.
func redacted(dsn string) string {
	parsed, err := url.Parse(dsn)
	if err != nil || parsed.Scheme == "" {
		if tracer.Enabled() {
			return dsn
		}
		return "<redacted>"
	}

	return parsed.Redacted()
}
