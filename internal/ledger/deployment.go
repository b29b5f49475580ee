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
)

type contractFactory struct {
	name          string
	artifact      *Artifact
	signer        TransactionSigner
	backend       Backend
	gasMultiplier uint64
	logger        *slog.Logger
}

func (f *contractFactory) Name() string {
	return f.name
}

// Deploy builds, signs and broadcasts the contract-creation transaction.
func (f *contractFactory) Deploy(ctx context.Context, args ...any) (Deployment, error) {
	data, err := f.artifact.DeployData(args...)
	if err != nil {
		return nil, fmt.Errorf("build deploy data: %w", err)
	}

	from := common.HexToAddress(f.signer.Address())

	nonce, err := f.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := f.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get gas price: %w", err)
	}

	gasLimit, err := f.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     from,
		To:       nil, // contract creation
		GasPrice: gasPrice,
		Value:    big.NewInt(0),
		Data:     data,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	gasLimit = gasLimit * f.gasMultiplier / 100

	tx := types.NewContractCreation(nonce, big.NewInt(0), gasLimit, gasPrice, data)

	signedTx, err := f.signer.SignTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := f.backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	f.logger.Info("contract creation submitted",
		slog.String("contract", f.name),
		slog.String("tx_hash", signedTx.Hash().Hex()),
		slog.Uint64("nonce", nonce),
		slog.Uint64("gas_limit", gasLimit),
		slog.String("gas_price", gasPrice.String()),
	)

	return &deployment{
		backend: f.backend,
		tx:      signedTx,
		logger:  f.logger,
	}, nil
}

// deployment is a submitted contract creation. It is not safe for
// concurrent use.
type deployment struct {
	backend Backend
	tx      *types.Transaction
	receipt *types.Receipt
	logger  *slog.Logger
}

func (d *deployment) TxHash() string {
	return d.tx.Hash().Hex()
}

// WaitForDeployment waits for the receipt and checks that code landed at the
// new address. Cancellation comes only from ctx.
func (d *deployment) WaitForDeployment(ctx context.Context) error {
	if d.receipt != nil {
		return nil
	}

	receipt, err := bind.WaitMined(ctx, d.backend, d.tx)
	if err != nil {
		return fmt.Errorf("wait for receipt of %s: %w", d.tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s", ErrDeploymentReverted, d.tx.Hash().Hex())
	}

	code, err := d.backend.CodeAt(ctx, receipt.ContractAddress, nil)
	if err != nil {
		return fmt.Errorf("get code at %s: %w", receipt.ContractAddress.Hex(), err)
	}
	if len(code) == 0 {
		return fmt.Errorf("%w: %s", ErrNoCode, receipt.ContractAddress.Hex())
	}

	d.receipt = receipt
	d.logger.Info("contract creation confirmed",
		slog.String("tx_hash", d.tx.Hash().Hex()),
		slog.String("address", receipt.ContractAddress.Hex()),
		slog.Uint64("block_number", receipt.BlockNumber.Uint64()),
		slog.Uint64("gas_used", receipt.GasUsed),
	)
	return nil
}

func (d *deployment) Address() (string, error) {
	if d.receipt == nil {
		return "", ErrNotConfirmed
	}
	return d.receipt.ContractAddress.Hex(), nil
}
