package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// DefaultGasMultiplierPercent pads gas estimates by 20%.
const DefaultGasMultiplierPercent = 120

// Backend is the part of an Ethereum JSON-RPC client that deployments need.
// Both *ethclient.Client and simulated.Client satisfy it.
type Backend interface {
	bind.DeployBackend

	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// EthClientOptions configures an EthClient.
type EthClientOptions struct {
	// PrivateKeys are hex-encoded signer keys, in priority order.
	PrivateKeys []string
	// DevAccounts falls back to DevPrivateKeys when PrivateKeys is empty.
	DevAccounts bool
	// ChainID, when set, is the chain the node must report. Signing always
	// uses the node's chain ID.
	ChainID int64
	// ArtifactsDir is where compiled artifacts are looked up.
	ArtifactsDir string
	// GasMultiplierPercent is applied to gas estimates. Defaults to 120.
	GasMultiplierPercent uint64
	Logger               *slog.Logger
}

// EthClient is a Client backed by an Ethereum JSON-RPC endpoint.
type EthClient struct {
	backend   Backend
	artifacts *ArtifactStore
	opts      EthClientOptions
	logger    *slog.Logger
	close     func()
}

// Dial connects to rpcURL and returns an EthClient using it.
func Dial(ctx context.Context, rpcURL string, opts EthClientOptions) (*EthClient, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", rpcURL, err)
	}

	c := NewEthClient(client, opts)
	c.close = client.Close
	return c, nil
}

// NewEthClient creates an EthClient on top of an existing backend.
func NewEthClient(backend Backend, opts EthClientOptions) *EthClient {
	if opts.GasMultiplierPercent == 0 {
		opts.GasMultiplierPercent = DefaultGasMultiplierPercent
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &EthClient{
		backend:   backend,
		artifacts: NewArtifactStore(opts.ArtifactsDir),
		opts:      opts,
		logger:    logger,
	}
}

// Close releases the underlying RPC connection, if the client owns one.
func (c *EthClient) Close() {
	if c.close != nil {
		c.close()
	}
}

// Signers returns one signer per configured private key. With no keys and
// DevAccounts enabled it returns the dev accounts instead.
func (c *EthClient) Signers(ctx context.Context) ([]Signer, error) {
	if len(c.opts.PrivateKeys) == 0 && !c.opts.DevAccounts {
		return nil, nil
	}

	chainID, err := c.chainID(ctx)
	if err != nil {
		return nil, err
	}

	var locals []*LocalSigner
	if len(c.opts.PrivateKeys) > 0 {
		for i, key := range c.opts.PrivateKeys {
			s, err := NewLocalSigner(key, chainID, c.backend)
			if err != nil {
				return nil, fmt.Errorf("private key #%d: %w", i, err)
			}
			locals = append(locals, s)
		}
	} else {
		c.logger.Warn("no private keys configured, using publicly known dev accounts",
			slog.String("chain_id", chainID.String()),
		)
		locals, err = devSigners(chainID, c.backend)
		if err != nil {
			return nil, err
		}
	}

	signers := make([]Signer, len(locals))
	for i, s := range locals {
		signers[i] = s
	}
	return signers, nil
}

// ContractFactory loads the named artifact and binds it to signer, which
// must be able to sign transactions locally.
func (c *EthClient) ContractFactory(ctx context.Context, name string, signer Signer) (ContractFactory, error) {
	txSigner, ok := signer.(TransactionSigner)
	if !ok {
		return nil, fmt.Errorf("signer %s cannot sign transactions", signer.Address())
	}

	artifact, err := c.artifacts.Load(name)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("contract artifact loaded",
		slog.String("contract", artifact.ContractName),
		slog.String("path", artifact.Path),
	)

	return &contractFactory{
		name:          name,
		artifact:      artifact,
		signer:        txSigner,
		backend:       c.backend,
		gasMultiplier: c.opts.GasMultiplierPercent,
		logger:        c.logger,
	}, nil
}

// chainID asks the node for its chain ID and checks it against the
// configured one, if any.
func (c *EthClient) chainID(ctx context.Context) (*big.Int, error) {
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain ID: %w", err)
	}
	if c.opts.ChainID != 0 && chainID.Cmp(big.NewInt(c.opts.ChainID)) != 0 {
		return nil, fmt.Errorf("%w: configured %d, node reports %s", ErrChainIDMismatch, c.opts.ChainID, chainID)
	}
	return chainID, nil
}

var _ Client = (*EthClient)(nil)
