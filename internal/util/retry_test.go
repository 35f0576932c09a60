package util

import (
	"context"
	"errors"
	"testing"
)

func TestRetryErrWithContext_SuccessImmediate(t *testing.T) {
	err := RetryErrWithContext(context.Background(), 3, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestRetryErrWithContext_SuccessAfterRetries(t *testing.T) {
	calls := 0
	err := RetryErrWithContext(context.Background(), 3, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryErrWithContext_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	calls := 0
	err := RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err == nil {
		t.Fatal("expected context error, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected 0 calls due to immediate cancellation, got %d", calls)
	}
}

func TestRetryErrWithContext_FunctionReturnsContextError(t *testing.T) {
	calls := 0
	err := RetryErrWithContext(context.Background(), 3, func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return context.Canceled
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}
