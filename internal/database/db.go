// Package database opens the MySQL connection pool and applies the embedded
// schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/inventory-api/internal/config"
)

// Collation matches the users table default. refresh_token is ascii_bin so
// the rotation UPDATE compares bytes.
const Collation = "utf8mb4_0900_ai_ci"

// Options describes the connection and pool. Zero pool values fall back to
// 25 open / 25 idle connections recycled every 30 minutes.
type Options struct {
	User, Pass, Host, Port, Name string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OptionsFrom takes the DB_* settings out of cfg.
func OptionsFrom(cfg config.Config) Options {
	return Options{User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName}
}

// DSN builds the driver DSN. Times are parsed into time.Time in UTC.
func DSN(o Options) string {
	c := mysql.NewConfig()
	c.User = o.User
	c.Passwd = o.Pass
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(o.Host, o.Port)
	c.DBName = o.Name
	c.ParseTime = true
	c.Loc = time.UTC
	c.Collation = Collation
	return c.FormatDSN()
}

// Open connects to MySQL and pings it within 5 seconds.
func Open(ctx context.Context, o Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(o))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(orInt(o.MaxOpenConns, 25))
	db.SetMaxIdleConns(orInt(o.MaxIdleConns, 25))
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = 30 * time.Minute
	}
	db.SetConnMaxLifetime(o.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", o.Name, err)
	}
	return db, nil
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
