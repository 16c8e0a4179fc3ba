// Package database — Transaction yönetimi.
//
// WithTx, birden fazla DB operasyonunun atomik (all-or-nothing) çalışmasını
// sağlar: hepsi başarılı → COMMIT, herhangi biri başarısız → ROLLBACK.
//
// Dikkat: transaction SADECE kalıcı (SQLite) tarafı kapsar. Ephemeral
// connection state kvstore'da yaşar ve oraya yapılan yazmalar transaction'a
// dahil DEĞİLDİR — o tarafın tutarlılığı per-user lock ile sağlanır
// (bkz. pkg/lock).
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TxQuerier, hem *sql.DB hem *sql.Tx tarafından karşılanan interface.
//
// Repository'ler bu interface'i dependency olarak alırsa,
// normal operasyonlarda *sql.DB, transaction içinde *sql.Tx geçilebilir.
type TxQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx, verilen fonksiyonu bir SQL transaction içinde çalıştırır.
//
// 1. BEGIN TRANSACTION
// 2. fn(tx) çağır
// 3. fn nil dönerse → COMMIT
// 4. fn error dönerse → ROLLBACK
// 5. fn panic atarsa → ROLLBACK + panic'i tekrar fırlat
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
