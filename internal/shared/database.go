package shared

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const defaultConnectTimeout = 10 * time.Second

// Driver names a database/sql driver supported by the store.
type Driver string

const (
	SQLite Driver = "sqlite3"
	MySQL  Driver = "mysql"
)

// NewDatabase opens a connection pool for driver and verifies it with a ping.
//
// For SQLite the dsn is a file path or ":memory:"; foreign keys and a busy timeout are enabled
// and the pool is limited to a single connection so every statement sees the same database.
// For MySQL the dsn uses the go-sql-driver format and parseTime is forced on.
// A failing ping is retried with exponential back-off until connectTimeout elapses.
func NewDatabase(driver Driver, dsn string, connectTimeout time.Duration) (*sql.DB, error) {
	switch driver {
	case SQLite:
		dsn = sqliteDSN(dsn)
	case MySQL:
		dsn = mysqlDSN(dsn)
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, driver)
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == SQLite {
		db.SetMaxOpenConns(1)
	}

	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = connectTimeout

	if err := backoff.Retry(db.Ping, b); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
//
// SQLite pools keep their single connection.
func ConfigureDatabase(db *sql.DB, driver Driver, maxOpenConns, maxIdleConns int) {
	if driver == SQLite {
		return
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
}

// sqliteDSN turns on foreign keys and a busy timeout unless the DSN already sets them,
// under either the long or the short parameter name.
func sqliteDSN(dsn string) string {
	dsn = withParam(dsn, "_foreign_keys=on", "_foreign_keys", "_fk")
	return withParam(dsn, "_busy_timeout=5000", "_busy_timeout", "_timeout")
}

// withParam appends param to the query of dsn when none of names is present.
func withParam(dsn, param string, names ...string) string {
	_, query, found := strings.Cut(dsn, "?")
	if found {
		values, _ := url.ParseQuery(query)
		for _, name := range names {
			if values.Has(name) {
				return dsn
			}
		}
	}
	switch {
	case !found:
		return dsn + "?" + param
	case query == "" || strings.HasSuffix(query, "&"):
		return dsn + param
	default:
		return dsn + "&" + param
	}
}

func mysqlDSN(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}
