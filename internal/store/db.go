package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Pool bounds the Postgres connection pool. Zero fields fall back to
// defaults sized for a single instance.
type Pool struct {
	MaxOpen      int
	MaxIdle      int
	ConnLifetime time.Duration
}

func (p Pool) withDefaults() Pool {
	if p.MaxOpen <= 0 {
		p.MaxOpen = 10
	}
	if p.MaxIdle <= 0 {
		p.MaxIdle = p.MaxOpen / 2
	}
	if p.MaxIdle > p.MaxOpen {
		p.MaxIdle = p.MaxOpen
	}
	if p.ConnLifetime <= 0 {
		p.ConnLifetime = 30 * time.Minute
	}
	return p
}

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB opens a Postgres pool and verifies connectivity before handing it
// out. The ping is bounded so a dead database fails fast at startup.
func NewDB(connString string, pool Pool) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	p := pool.withDefaults()
	db.SetMaxOpenConns(p.MaxOpen)
	db.SetMaxIdleConns(p.MaxIdle)
	db.SetConnMaxLifetime(p.ConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{Client: db}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
