package database

import (
	"context"
	"database/sql"
)

// Executor はSQL実行の共通インターフェース。
// *sql.DB と *sql.Tx の両方が満たす。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Executor = (*sql.DB)(nil)
	_ Executor = (*sql.Tx)(nil)
)

type txKey struct{}

// ContextWithTx はトランザクションをコンテキストに紐付ける。
func ContextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext はコンテキストに紐付いたトランザクションを返す。
func TxFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// ExecutorFrom はコンテキストにトランザクションがあればそれを、なければdbを返す。
// リポジトリはこの関数経由でクエリを発行し、リクエスト単位のトランザクションに参加する。
func ExecutorFrom(ctx context.Context, db *sql.DB) Executor {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return db
}

// TxBeginner はトランザクションを開始できることを表す。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
