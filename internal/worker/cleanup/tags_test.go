package cleanup

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestTagSweepJob_Run_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	calls := 0
	job := NewTagSweepJob(func(ctx context.Context) ([]string, error) {
		calls++
		return []string{"old", "stale"}, nil
	}, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}
	if calls != 1 {
		t.Errorf("sweep calls = %d, want 1", calls)
	}
	if !strings.Contains(buf.String(), `"deleted_count":2`) {
		t.Errorf("ログに deleted_count=2 が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestTagSweepJob_Run_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	sweepErr := errors.New("lock timeout")
	job := NewTagSweepJob(func(ctx context.Context) ([]string, error) {
		return nil, sweepErr
	}, newTestLogger(&buf))

	err := job.Run(context.Background())
	if !errors.Is(err, sweepErr) {
		t.Fatalf("err = %v, want wrapped sweep error", err)
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", buf.String())
	}
}

func TestTagSweepJob_Name(t *testing.T) {
	job := NewTagSweepJob(nil, nil)
	if job.Name() != "tag_sweep" {
		t.Errorf("Name() = %q, want %q", job.Name(), "tag_sweep")
	}
}
