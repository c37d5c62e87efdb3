package mocks

import (
	"context"
	"time"

	"docvault/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockIdempotencyLedger struct {
	mock.Mock
}

func (m *MockIdempotencyLedger) Lookup(ctx context.Context, fingerprint string) (*model.IdempotencyEntry, error) {
	args := m.Called(ctx, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IdempotencyEntry), args.Error(1)
}

func (m *MockIdempotencyLedger) Reserve(ctx context.Context, fingerprint, documentID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, fingerprint, documentID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyLedger) Advance(ctx context.Context, fingerprint string, status model.DocumentStatus) error {
	args := m.Called(ctx, fingerprint, status)
	return args.Error(0)
}

func (m *MockIdempotencyLedger) Release(ctx context.Context, fingerprint string) error {
	args := m.Called(ctx, fingerprint)
	return args.Error(0)
}

func (m *MockIdempotencyLedger) Evict(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}
