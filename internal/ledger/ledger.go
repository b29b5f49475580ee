// Package ledger provides the ledger-facing half of a contract deployment:
// signer enumeration, balance queries, contract factories resolved from
// compiled artifacts, and deployment handles that wait for confirmation.
package ledger

import (
	"context"
	"errors"
	"math/big"
)

// Sentinel errors - Signers
var (
	ErrNoSigners          = errors.New("ledger: no signer configured")
	ErrProductionDevChain = errors.New("ledger: dev accounts refused on production network")
	ErrChainIDMismatch    = errors.New("ledger: configured chain ID does not match the node")
)

// Sentinel errors - Artifacts
var (
	ErrArtifactNotFound = errors.New("ledger: contract artifact not found")
	ErrInvalidArtifact  = errors.New("ledger: contract artifact is not deployable")
)

// Sentinel errors - Deployments
var (
	ErrNotConfirmed       = errors.New("ledger: deployment not confirmed")
	ErrDeploymentReverted = errors.New("ledger: deployment transaction reverted")
	ErrNoCode             = errors.New("ledger: no code at deployed address")
)

// Client is the ledger surface the deployment pipeline talks to.
type Client interface {
	// Signers lists the configured signing identities in order. An empty
	// list with a nil error means no identity is available.
	Signers(ctx context.Context) ([]Signer, error)

	// ContractFactory resolves the compiled contract called name and binds
	// it to signer for deployment.
	ContractFactory(ctx context.Context, name string, signer Signer) (ContractFactory, error)
}

// Signer is an account able to authorize transactions.
type Signer interface {
	// Address returns the account address as 0x-prefixed hex.
	Address() string
	// Balance returns the account's latest balance in wei.
	Balance(ctx context.Context) (*big.Int, error)
}

// ContractFactory deploys instances of one compiled contract.
type ContractFactory interface {
	Name() string
	// Deploy submits a contract-creation transaction and returns without
	// waiting for it to be mined.
	Deploy(ctx context.Context, args ...any) (Deployment, error)
}

// Deployment tracks a submitted contract creation until it is confirmed.
type Deployment interface {
	TxHash() string
	// WaitForDeployment blocks until the creation transaction is mined and
	// the contract code is present. It enforces no timeout of its own.
	WaitForDeployment(ctx context.Context) error
	// Address returns the deployed contract address. It fails with
	// ErrNotConfirmed until WaitForDeployment has succeeded.
	Address() (string, error)
}
