package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockProber is a mock implementation of out.Prober
type MockProber struct {
	mock.Mock
}

// NewMockProber creates a MockProber and asserts its expectations at test cleanup.
func NewMockProber(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProber {
	m := &MockProber{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockProber) Probe(ctx context.Context, url string) (int, int64, error) {
	args := m.Called(ctx, url)
	return args.Int(0), args.Get(1).(int64), args.Error(2)
}
