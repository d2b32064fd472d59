package cleanup

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job はスケジューラから定期実行されるジョブ。
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler はジョブごとに固定間隔のティッカーを回す。
type Scheduler struct {
	logger *slog.Logger
	mu     sync.Mutex
	jobs   []scheduledJob
}

type scheduledJob struct {
	job      Job
	interval time.Duration
}

// NewScheduler は新しいSchedulerを生成する。
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add はジョブを実行間隔とともに登録する。Start より前に呼ぶこと。
func (s *Scheduler) Add(job Job, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, scheduledJob{job: job, interval: interval})
}

// Start は登録済みの全ジョブを起動し、コンテキストがキャンセルされるまでブロックする。
// 各ジョブは起動直後に1回実行される。ジョブのエラーはログに出力して継続する。
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	jobs := append([]scheduledJob(nil), s.jobs...)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, sj := range jobs {
		wg.Add(1)
		go func(sj scheduledJob) {
			defer wg.Done()
			s.loop(ctx, sj)
		}(sj)
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, sj scheduledJob) {
	ticker := time.NewTicker(sj.interval)
	defer ticker.Stop()

	s.logger.Info("ジョブを開始しました",
		slog.String("job", sj.job.Name()),
		slog.Duration("interval", sj.interval),
	)

	s.runOnce(ctx, sj.job)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ジョブを停止しました", slog.String("job", sj.job.Name()))
			return
		case <-ticker.C:
			s.runOnce(ctx, sj.job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	if err := job.Run(ctx); err != nil {
		s.logger.Error("ジョブの実行に失敗しました",
			slog.String("job", job.Name()),
			slog.String("error", err.Error()),
		)
	}
}
