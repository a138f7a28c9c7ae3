// Package database persists users, finished matches, the action log and
// ratings in PostgreSQL.
package database

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/uno/internal/config"
	log "github.com/sirupsen/logrus"
)

// DB is the pool every query in this package runs on.
var DB *pgxpool.Pool

//go:embed schema.sql
var schema string

// ConnectDB opens the pool for cfg, pings it and stores it in DB.
func ConnectDB(ctx context.Context, cfg config.Postgres) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	DB = pool
	log.WithFields(log.Fields{"host": cfg.Host, "database": cfg.Database}).Info("connected to database")
	return pool, nil
}

// EnsureSchema creates any missing tables.
func EnsureSchema(ctx context.Context) error {
	if _, err := DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// beginTxFunc runs f in a transaction on DB, committing when f succeeds.
func beginTxFunc(ctx context.Context, f func(tx pgx.Tx) error) error {
	tx, err := DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx rollback error: %v; original error: %w", rbErr, err)
		}
		return err
	}
	return tx.Commit(ctx)
}
