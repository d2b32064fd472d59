// Package app はサブコマンドごとの起動処理と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/conduit/internal/article"
	"github.com/hitoshi/conduit/internal/config"
	"github.com/hitoshi/conduit/internal/database"
	"github.com/hitoshi/conduit/internal/handler"
	"github.com/hitoshi/conduit/internal/logger"
	"github.com/hitoshi/conduit/internal/metrics"
	"github.com/hitoshi/conduit/internal/middleware"
	"github.com/hitoshi/conduit/internal/pipeline"
	"github.com/hitoshi/conduit/internal/profile"
	"github.com/hitoshi/conduit/internal/repository"
	"github.com/hitoshi/conduit/internal/security"
	"github.com/hitoshi/conduit/internal/tag"
	"github.com/hitoshi/conduit/internal/user"
	"github.com/hitoshi/conduit/internal/validation"
	"github.com/hitoshi/conduit/internal/worker/cleanup"
)

// opTagSweep はワーカーのタグスイープのトランザクション操作名。
const opTagSweep = "tag.sweep"

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルでログを再構成する
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("log_level", cfg.LogLevel.String()),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newMetrics はアプリケーション用のレジストリとCollectorを生成する。
func newMetrics() (*prometheus.Registry, *metrics.Collector) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, metrics.NewCollector(registry)
}

// newWorkerMetricsServer はワーカーのレジストリを /metrics で公開するサーバーを返す。
// port が空の場合は nil を返す。
func newWorkerMetricsServer(port string, registry *prometheus.Registry) *http.Server {
	if port == "" {
		return nil
	}
	return &http.Server{
		Addr:              ":" + port,
		Handler:           metrics.SetupMetricsRoute(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// services はドメインサービスをパイプラインで包んだハンドラー向けアダプタ群。
type services struct {
	articles *handler.ArticleServiceAdapter
	profiles *handler.ProfileServiceAdapter
	tags     *handler.TagServiceAdapter
	users    *handler.UserServiceAdapter
}

// buildServices はリポジトリ・ドメインサービス・パイプラインを組み立てる。
func buildServices(db *sql.DB, cfg *config.Config, collector *metrics.Collector, log *slog.Logger) services {
	// 1. リポジトリの初期化
	personRepo := repository.NewPostgresPersonRepo(db)
	followRepo := repository.NewPostgresFollowRepo(db)
	articleRepo := repository.NewPostgresArticleRepo(db)
	tagRepo := repository.NewPostgresTagRepo(db)
	articleTagRepo := repository.NewPostgresArticleTagRepo(db)
	favoriteRepo := repository.NewPostgresFavoriteRepo(db)

	// 2. ドメインサービスの初期化
	validator := validation.New()
	profileService := profile.NewService(personRepo, followRepo)
	articleService := article.NewService(article.Deps{
		Articles:    articleRepo,
		Persons:     personRepo,
		Tags:        tagRepo,
		ArticleTags: articleTagRepo,
		Favorites:   favoriteRepo,
		Reconciler:  tag.NewReconciler(tagRepo, articleTagRepo),
		Collector:   tag.NewCollector(tagRepo, collector, log),
		Reader:      profileService.Reader(),
		Sanitizer:   security.NewContentSanitizer(),
		Validator:   validator,
		MaxLimit:    cfg.ListMaxLimit,
	})
	tagService := tag.NewService(tagRepo)
	userService := user.NewService(personRepo, validator)

	// 3. リクエスト単位のトランザクションで包む
	p := pipeline.NewSQL(db, pipeline.Config{Recorder: collector, Logger: log})

	return services{
		articles: handler.NewArticleServiceAdapter(p, articleService),
		profiles: handler.NewProfileServiceAdapter(p, profileService),
		tags:     handler.NewTagServiceAdapter(p, tagService),
		users:    handler.NewUserServiceAdapter(p, userService),
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	registry, collector := newMetrics()
	svc := buildServices(db, cfg, collector, slog.Default())

	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitWrite),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		SessionFinder:     repository.NewPostgresSessionRepo(db),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		StatusRecorder:    collector,
		Logger:            slog.Default(),

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),

		ArticleService: svc.articles,
		ProfileService: svc.profiles,
		TagService:     svc.tags,
		UserService:    svc.users,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 未参照タグのスイープと期限切れセッションの削除を定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	registry, collector := newMetrics()
	log := slog.Default()

	// タグスイープはAPIと同じパイプラインで1トランザクションとして実行する
	p := pipeline.NewSQL(db, pipeline.Config{Recorder: collector, Logger: log})
	tagCollector := tag.NewCollector(repository.NewPostgresTagRepo(db), collector, log)
	tagSweep := cleanup.NewTagSweepJob(func(ctx context.Context) ([]string, error) {
		return pipeline.Execute(ctx, p, opTagSweep, tagCollector.Collect)
	}, log)

	sessionPurge := cleanup.NewSessionPurgeJob(db, collector, log)
	sessionPurge.RetentionDays = cfg.SessionRetentionDays

	scheduler := cleanup.NewScheduler(log)
	scheduler.Add(tagSweep, cfg.TagSweepInterval)
	scheduler.Add(sessionPurge, 24*time.Hour)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if srv := newWorkerMetricsServer(cfg.WorkerMetricsPort, registry); srv != nil {
		go func() {
			slog.Info("worker metrics server starting", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("worker metrics server failed", slog.String("error", err.Error()))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("worker metrics server shutdown failed", slog.String("error", err.Error()))
			}
		}()
	}

	slog.Info("worker starting",
		slog.Duration("tag_sweep_interval", cfg.TagSweepInterval),
		slog.Int("session_retention_days", cfg.SessionRetentionDays),
	)

	// コンテキストがキャンセルされるまでブロックする
	scheduler.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
