package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// DevPrivateKeys are the deterministic accounts Anvil and Hardhat Network
// prefund, derived from "test test test test test test test test test test test junk".
//
// These keys are publicly known. Funds sent to them on a real network are lost.
var DevPrivateKeys = []string{
	"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", // 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d", // 0x70997970C51812dc3A010C7d01b50e0d17dc79C8
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a", // 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC
}

// productionChains are networks where DevPrivateKeys must never sign.
var productionChains = map[int64]string{
	1:     "Ethereum Mainnet",
	10:    "Optimism",
	137:   "Polygon",
	8453:  "Base",
	42161: "Arbitrum One",
}

// TransactionSigner is a Signer that can also sign transactions locally.
type TransactionSigner interface {
	Signer
	ChainID() *big.Int
	SignTransaction(ctx context.Context, tx *types.Transaction) (*types.Transaction, error)
}

// LocalSigner signs with an in-process secp256k1 key and reads its balance
// through the backend it was created with.
type LocalSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
	txSigner   types.Signer
	backend    Backend
}

// NewLocalSigner creates a LocalSigner from a hex-encoded private key, with
// or without a "0x" prefix.
func NewLocalSigner(hexKey string, chainID *big.Int, backend Backend) (*LocalSigner, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	chainID = new(big.Int).Set(chainID)
	return &LocalSigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    chainID,
		txSigner:   types.LatestSignerForChainID(chainID),
		backend:    backend,
	}, nil
}

// Address returns the checksummed signer address.
func (s *LocalSigner) Address() string {
	return s.address.Hex()
}

// ChainID returns the chain ID used for EIP-155 signing.
func (s *LocalSigner) ChainID() *big.Int {
	return s.chainID
}

// Balance returns the signer's balance at the latest block.
func (s *LocalSigner) Balance(ctx context.Context) (*big.Int, error) {
	balance, err := s.backend.BalanceAt(ctx, s.address, nil)
	if err != nil {
		return nil, fmt.Errorf("get balance of %s: %w", s.address.Hex(), err)
	}
	return balance, nil
}

// SignTransaction signs tx for the signer's chain. The context is unused;
// signing never leaves the process.
func (s *LocalSigner) SignTransaction(_ context.Context, tx *types.Transaction) (*types.Transaction, error) {
	if tx.Protected() && tx.ChainId().Sign() != 0 && tx.ChainId().Cmp(s.chainID) != 0 {
		return nil, fmt.Errorf("transaction is for chain %s, signer is for chain %s", tx.ChainId(), s.chainID)
	}
	return types.SignTx(tx, s.txSigner, s.privateKey)
}

// devSigners builds signers for DevPrivateKeys, refusing production chains.
func devSigners(chainID *big.Int, backend Backend) ([]*LocalSigner, error) {
	if name, ok := productionChains[chainID.Int64()]; ok {
		return nil, fmt.Errorf("%w: %s (chain_id=%s)", ErrProductionDevChain, name, chainID)
	}

	signers := make([]*LocalSigner, 0, len(DevPrivateKeys))
	for _, key := range DevPrivateKeys {
		s, err := NewLocalSigner(key, chainID, backend)
		if err != nil {
			return nil, err
		}
		signers = append(signers, s)
	}
	return signers, nil
}

var _ TransactionSigner = (*LocalSigner)(nil)
