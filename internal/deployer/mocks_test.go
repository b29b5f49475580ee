package deployer

import (
	"context"
	"math/big"

	"github.com/stretchr/testify/mock"

	"github.com/bettingplatform/deployer/internal/ledger"
)

// MockClient is a mock implementation of ledger.Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Signers(ctx context.Context) ([]ledger.Signer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Signer), args.Error(1)
}

func (m *MockClient) ContractFactory(ctx context.Context, name string, signer ledger.Signer) (ledger.ContractFactory, error) {
	args := m.Called(ctx, name, signer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ledger.ContractFactory), args.Error(1)
}

// MockSigner is a mock implementation of ledger.Signer for testing.
type MockSigner struct {
	mock.Mock
	address string
}

func (m *MockSigner) Address() string {
	return m.address
}

func (m *MockSigner) Balance(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

// MockFactory is a mock implementation of ledger.ContractFactory for testing.
type MockFactory struct {
	mock.Mock
}

func (m *MockFactory) Name() string {
	return DefaultContract
}

func (m *MockFactory) Deploy(ctx context.Context, args ...any) (ledger.Deployment, error) {
	called := m.Called(ctx, args)
	if called.Get(0) == nil {
		return nil, called.Error(1)
	}
	return called.Get(0).(ledger.Deployment), called.Error(1)
}

// MockDeployment is a mock implementation of ledger.Deployment for testing.
type MockDeployment struct {
	mock.Mock
	txHash string
}

func (m *MockDeployment) TxHash() string {
	return m.txHash
}

func (m *MockDeployment) WaitForDeployment(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDeployment) Address() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}
