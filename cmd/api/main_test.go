package main

import (
	"context"
	"testing"
	"time"

	serviceMocks "docvault/internal/service/mocks"
	"github.com/stretchr/testify/mock"
)

func TestEvictLoop_StopsOnContextCancel(t *testing.T) {
	svc := new(serviceMocks.MockDocumentService)
	svc.On("EvictExpired", mock.Anything).Return(int64(0), nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		evictLoop(ctx, svc, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("evictLoop kept running after cancellation")
	}
}

func TestEvictLoop_DisabledWhenIntervalNotPositive(t *testing.T) {
	svc := new(serviceMocks.MockDocumentService)

	done := make(chan struct{})
	go func() {
		evictLoop(context.Background(), svc, 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("evictLoop should return immediately when disabled")
	}
	svc.AssertNotCalled(t, "EvictExpired", mock.Anything)
}
