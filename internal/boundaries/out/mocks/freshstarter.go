package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockFreshStarter is a mock implementation of out.FreshStarter
type MockFreshStarter struct {
	mock.Mock
}

// NewMockFreshStarter creates a MockFreshStarter and asserts its expectations at test cleanup.
func NewMockFreshStarter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockFreshStarter {
	m := &MockFreshStarter{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockFreshStarter) FreshStart(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
