package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Long: 45 * time.Second})

	if got := Long(); got != 45*time.Second {
		t.Errorf("Long: got %v, want %v", got, 45*time.Second)
	}
	if got := Short(); got != DefaultShort {
		t.Errorf("Short: got %v, want %v", got, DefaultShort)
	}

	Reset()
	if got := Current(); got != defaults() {
		t.Errorf("Reset: got %+v, want defaults", got)
	}
}

func TestWithTimeout_LogsDeadline(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)

	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, log, "allocate pending")
	<-ctx.Done()
	cancel()

	if logs.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", logs.Len())
	}
	if op := logs.All()[0].ContextMap()["operation"]; op != "allocate pending" {
		t.Errorf("operation: got %v, want %q", op, "allocate pending")
	}

	ctx, cancel = WithTimeout(context.Background(), time.Minute, log, "quick")
	cancel()
	_ = ctx
	if logs.Len() != 1 {
		t.Errorf("cancel before deadline should not log, got %d entries", logs.Len())
	}
}
