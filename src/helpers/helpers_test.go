package helpers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRetryWithBackoffSucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := RetryWithBackoff(context.Background(), "flaky", 3, time.Millisecond, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("boom")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got != 42 || calls != 3 {
		t.Errorf("expected 42 after 3 calls, got %d after %d", got, calls)
	}
}

func TestRetryWithBackoffReturnsLastError(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), "always", 2, time.Millisecond, func() (string, error) {
		calls++
		return "", fmt.Errorf("fail %d", calls)
	})
	if err == nil || err.Error() != "fail 2" {
		t.Errorf("expected last error 'fail 2', got %v", err)
	}
}

func TestRetryWithBackoffHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RetryWithBackoff(ctx, "cancelled", 5, time.Hour, func() (int, error) {
		return 0, errors.New("nope")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestErrorTypes(t *testing.T) {
	wrapped := fmt.Errorf("signup: %w", NewValidationError("email %q is taken", "a@b.c"))
	if !IsValidation(wrapped) {
		t.Error("expected wrapped validation error to be detected")
	}
	if IsAuth(wrapped) {
		t.Error("validation error must not look like an auth error")
	}

	cause := errors.New("connection refused")
	dbErr := NewDatabaseError("record trade", cause)
	if !errors.Is(dbErr, cause) {
		t.Error("database error should unwrap to its cause")
	}
	if dbErr.Error() != "record trade: connection refused" {
		t.Errorf("unexpected message: %s", dbErr.Error())
	}
}

func TestErrorHandlerCounts(t *testing.T) {
	h := NewErrorHandler("test")
	if !h.Handle(nil, "noop") {
		t.Error("nil error should report success")
	}
	if h.Handle(errors.New("x"), "op") {
		t.Error("non-nil error should report failure")
	}
	if h.ErrorCount() != 1 {
		t.Errorf("expected 1 error, got %d", h.ErrorCount())
	}
	h.ResetErrorCount()
	if h.ErrorCount() != 0 {
		t.Error("expected reset count")
	}
}

func TestProxyManager(t *testing.T) {
	pm := NewProxyManager([]string{"10.0.0.1:8080", "", "socks5://10.0.0.2:1080"}, "")
	if !pm.HasProxies() {
		t.Fatal("expected proxies")
	}
	first, _ := pm.GetCurrentProxy()
	if first != "http://10.0.0.1:8080" {
		t.Errorf("expected scheme to be added, got %s", first)
	}
	pm.RotateProxy()
	second, _ := pm.GetCurrentProxy()
	if second != "socks5://10.0.0.2:1080" {
		t.Errorf("unexpected proxy after rotation: %s", second)
	}
	if pm.GetUserAgent() != "paper-trader/1.0" {
		t.Errorf("unexpected default user agent %q", pm.GetUserAgent())
	}
}
