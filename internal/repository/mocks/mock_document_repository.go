package mocks

import (
	"context"

	"docvault/internal/model"
	"docvault/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) UpdateCAS(ctx context.Context, doc *model.Document, expectedVersion int64) (*model.Document, error) {
	args := m.Called(ctx, doc, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) SetStatus(ctx context.Context, id string, from, to model.DocumentStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockDocumentRepository) List(ctx context.Context, status model.DocumentStatus, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	args := m.Called(ctx, status, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Document]), args.Error(1)
}
