package mocks

import (
	"context"

	"docvault/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Create(ctx context.Context, md *model.Metadata) error {
	args := m.Called(ctx, md)
	return args.Error(0)
}

func (m *MockClient) Get(ctx context.Context, documentID string) (*model.Metadata, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Metadata), args.Error(1)
}

func (m *MockClient) Update(ctx context.Context, md *model.Metadata) error {
	args := m.Called(ctx, md)
	return args.Error(0)
}

func (m *MockClient) Delete(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockClient) List(ctx context.Context, limit, offset int) ([]model.Metadata, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Metadata), args.Error(1)
}
