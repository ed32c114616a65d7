package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dambry/nemsis-ingest/internal/config"
	"github.com/dambry/nemsis-ingest/internal/debug"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

// connectRetryMaxElapsed bounds how long Open retries the initial ping.
const connectRetryMaxElapsed = 30 * time.Second

// Open connects to PostgreSQL and verifies the connection with a ping,
// retrying transient failures with exponential backoff. Retry only applies
// at open time; in-flight statement errors are never retried because the
// pipeline's correctness depends on transaction-scoped failure.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	db, err := sql.Open("pgx", ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectRetryMaxElapsed
	attempts := 0
	err = backoff.Retry(func() error {
		attempts++
		err := db.PingContext(ctx)
		if err != nil && !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s:%s/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	if attempts > 1 {
		debug.Logf("connected after %d ping attempts\n", attempts)
	}

	return &Store{
		db:     db,
		schema: cfg.Schema,
		cache:  NewSchemaCache(cfg.Schema),
	}, nil
}

// isRetryableError reports whether a connect-time error is transient.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection refused") {
		return true
	}
	if strings.Contains(errStr, "connection reset") {
		return true
	}
	if strings.Contains(errStr, "broken pipe") {
		return true
	}
	if strings.Contains(errStr, "i/o timeout") {
		return true
	}
	if strings.Contains(errStr, "driver: bad connection") {
		return true
	}
	// Server boot race: postgres accepts TCP connections before recovery
	// finishes and rejects them with this message until ready.
	if strings.Contains(errStr, "the database system is starting up") {
		return true
	}
	return false
}
