package store

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var pool *pgxpool.Pool

// Connect initializes the shared connection pool from POSTGRES_URL.
func Connect() (*pgxpool.Pool, error) {
	dsn := os.Getenv("POSTGRES_URL")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := p.Ping(ctx); err != nil {
		return nil, err
	}

	pool = p

	return p, nil
}

// ClosePool is for graceful shutdown
func ClosePool() {
	if pool != nil {
		pool.Close()
	}
}
