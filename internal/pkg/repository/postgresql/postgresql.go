// Package postgresql opens the bun database handle shared by the repositories.
package postgresql

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// UniqueViolation is the SQLSTATE of a unique constraint violation.
const UniqueViolation = "23505"

// Config is the required properties to use the database.
type Config struct {
	User         string
	Password     string
	Host         string
	Port         string
	Name         string
	DisableTLS   bool
	MaxOpenConns int
	Debug        bool
}

// Database embeds the bun handle repositories query through.
type Database struct {
	*bun.DB
}

// New opens a database connection pool. It does not ping.
func New(cfg Config) *Database {
	addr := cfg.Host
	if cfg.Port != "" {
		addr = net.JoinHostPort(cfg.Host, cfg.Port)
	}

	opts := []pgdriver.Option{
		pgdriver.WithAddr(addr),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.Name),
		pgdriver.WithApplicationName("attendance-dashboard"),
	}
	if cfg.DisableTLS {
		opts = append(opts, pgdriver.WithInsecure(true))
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(cfg.Debug),
		bundebug.WithVerbose(cfg.Debug),
		bundebug.FromEnv("BUNDEBUG"),
	))

	return &Database{DB: db}
}

// StatusCheck returns nil if it can successfully talk to the database. It
// retries until ctx is done.
func (d *Database) StatusCheck(ctx context.Context) error {
	var pingErr error
	for attempts := 1; ; attempts++ {
		pingErr = d.PingContext(ctx)
		if pingErr == nil {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(pingErr, "database not ready")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}

	// Run a simple query to determine connectivity. Running this query forces
	// a round trip through the database.
	var tmp bool
	return d.QueryRowContext(ctx, `SELECT true`).Scan(&tmp)
}

// NewListener returns a LISTEN/NOTIFY listener on its own connection.
func (d *Database) NewListener() *pgdriver.Listener {
	return pgdriver.NewListener(d.DB)
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == UniqueViolation
	}
	return false
}
