// Package pipeline はリクエスト単位のトランザクションでコマンド・クエリを実行する。
//
// 1回の実行につき1つのトランザクションを開始し、ハンドラーが成功すればコミット、
// エラー・パニック・キャンセルのいずれかであればロールバックする。
// ハンドラーが返したエラーは変換せずそのまま呼び出し元に返す。
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/conduit/internal/database"
)

// ErrNestedTransaction は実行中のパイプライン内から再度パイプラインを起動した場合のエラー。
var ErrNestedTransaction = errors.New("pipeline: nested transaction is not supported")

// 実行結果の種別（メトリクスのoutcomeラベル）
const (
	OutcomeCommitted    = "committed"
	OutcomeRolledBack   = "rolled_back"
	OutcomePanicked     = "panicked"
	OutcomeCancelled    = "cancelled"
	OutcomeBeginFailed  = "begin_failed"
	OutcomeCommitFailed = "commit_failed"
)

// Tx はパイプラインが管理するトランザクションのスコープ。
// 本番では *sql.Tx を使用する。
type Tx interface {
	Commit() error
	Rollback() error
}

// Recorder はトランザクションの結果と所要時間を記録するインターフェース。
type Recorder interface {
	RecordTransaction(operation, outcome string, duration time.Duration)
}

// Config はパイプラインの設定を表す。
type Config struct {
	Recorder Recorder     // nil の場合は記録しない
	Logger   *slog.Logger // nil の場合は slog.Default()
}

// Pipeline はトランザクションの開始とコンテキストへの紐付けを保持する。
type Pipeline[T Tx] struct {
	begin    func(ctx context.Context) (T, error)
	bind     func(ctx context.Context, tx T) context.Context
	recorder Recorder
	logger   *slog.Logger
}

// New は新しいPipelineを生成する。
// begin はトランザクションを開始し、bind はトランザクションをコンテキストに紐付ける。
func New[T Tx](begin func(ctx context.Context) (T, error), bind func(ctx context.Context, tx T) context.Context, cfg Config) *Pipeline[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline[T]{begin: begin, bind: bind, recorder: cfg.Recorder, logger: logger}
}

// NewSQL は database/sql のトランザクションを使用するPipelineを生成する。
// トランザクションは database.ContextWithTx でコンテキストに紐付けられ、
// リポジトリは database.ExecutorFrom 経由でそれを使用する。
func NewSQL(db database.TxBeginner, cfg Config) *Pipeline[*sql.Tx] {
	return New(
		func(ctx context.Context) (*sql.Tx, error) { return db.BeginTx(ctx, nil) },
		database.ContextWithTx,
		cfg,
	)
}

type scopeKey struct{}

// InScope はコンテキストがパイプラインのトランザクション内であれば true を返す。
func InScope(ctx context.Context) bool {
	return ctx.Value(scopeKey{}) != nil
}

// Execute は fn を1つのトランザクション内で実行する。
//
//   - fn が成功: コミットして結果を返す
//   - fn がエラー: ロールバックし、そのエラーをそのまま返す
//   - fn がパニック: ロールバックして再度パニックする
//   - fn の完了時点でコンテキストが終了済み: ロールバックして ctx.Err() を返す
//
// ロールバック自体の失敗はログに出力するのみで、返すエラーには影響しない。
func Execute[T Tx, R any](ctx context.Context, p *Pipeline[T], op string, fn func(ctx context.Context) (R, error)) (R, error) {
	var zero R

	if InScope(ctx) {
		return zero, ErrNestedTransaction
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	start := time.Now()
	tx, err := p.begin(ctx)
	if err != nil {
		p.record(op, OutcomeBeginFailed, start)
		p.logger.ErrorContext(ctx, "failed to begin transaction",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}

	scoped := context.WithValue(p.bind(ctx, tx), scopeKey{}, struct{}{})

	defer func() {
		if r := recover(); r != nil {
			p.rollback(ctx, op, tx)
			p.record(op, OutcomePanicked, start)
			p.logger.ErrorContext(ctx, "transaction rolled back after panic",
				slog.String("operation", op),
				slog.Any("panic", r),
			)
			panic(r)
		}
	}()

	res, err := fn(scoped)
	if err != nil {
		p.rollback(ctx, op, tx)
		p.record(op, OutcomeRolledBack, start)
		p.logger.WarnContext(ctx, "transaction rolled back",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return zero, err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		p.rollback(ctx, op, tx)
		p.record(op, OutcomeCancelled, start)
		p.logger.WarnContext(ctx, "transaction rolled back on cancellation",
			slog.String("operation", op),
			slog.String("error", ctxErr.Error()),
		)
		return zero, ctxErr
	}

	if err := tx.Commit(); err != nil {
		p.record(op, OutcomeCommitFailed, start)
		p.logger.ErrorContext(ctx, "failed to commit transaction",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return zero, fmt.Errorf("failed to commit transaction: %w", err)
	}

	p.record(op, OutcomeCommitted, start)
	p.logger.DebugContext(ctx, "transaction committed",
		slog.String("operation", op),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// Run は結果を返さないコマンドを1つのトランザクション内で実行する。
func Run[T Tx](ctx context.Context, p *Pipeline[T], op string, fn func(ctx context.Context) error) error {
	_, err := Execute(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Handler はパイプラインで包むリクエストハンドラー。
type Handler[Req, Res any] func(ctx context.Context, req Req) (Res, error)

// Wrap はハンドラーをパイプラインで包む。コマンドとクエリのどちらにも同じように適用する。
func Wrap[T Tx, Req, Res any](p *Pipeline[T], op string, h Handler[Req, Res]) Handler[Req, Res] {
	return func(ctx context.Context, req Req) (Res, error) {
		return Execute(ctx, p, op, func(ctx context.Context) (Res, error) {
			return h(ctx, req)
		})
	}
}

func (p *Pipeline[T]) rollback(ctx context.Context, op string, tx T) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		p.logger.ErrorContext(ctx, "failed to rollback transaction",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Pipeline[T]) record(op, outcome string, start time.Time) {
	if p.recorder != nil {
		p.recorder.RecordTransaction(op, outcome, time.Since(start))
	}
}
