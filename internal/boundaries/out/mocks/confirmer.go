package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/ledgerctl/internal/domain"
)

// MockConfirmer is a mock implementation of out.Confirmer
type MockConfirmer struct {
	mock.Mock
}

// NewMockConfirmer creates a MockConfirmer and asserts its expectations at test cleanup.
func NewMockConfirmer(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockConfirmer {
	m := &MockConfirmer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockConfirmer) Confirm(ctx context.Context, req domain.ConfirmRequest) (bool, error) {
	args := m.Called(ctx, req)
	return args.Bool(0), args.Error(1)
}
