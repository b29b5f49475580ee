// Package deployer runs the contract deployment pipeline: resolve the
// deployer identity, read its balance, resolve the compiled contract, submit
// the creation transaction, wait for confirmation and report the address.
package deployer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/bettingplatform/deployer/internal/ledger"
)

// DefaultContract is the artifact deployed when no other name is given.
const DefaultContract = "BettingPlatform"

// Result is the outcome of a successful run.
type Result struct {
	Contract string
	Deployer string
	Balance  *big.Int
	Address  string
	TxHash   string
}

// Pipeline deploys one contract per Run. It keeps no state between runs.
type Pipeline struct {
	client   ledger.Client
	out      io.Writer
	logger   *slog.Logger
	contract string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOutput sets where the human-readable progress lines go.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) {
		p.out = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContract overrides the contract artifact name.
func WithContract(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.contract = name
		}
	}
}

// New creates a Pipeline deploying through client.
func New(client ledger.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:   client,
		out:      io.Discard,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		contract: DefaultContract,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline once. Any failure stops the remaining steps and
// is returned as a *StepError. No step is retried.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	logger := p.logger.With(slog.String("contract", p.contract))
	p.printf("Deploying %s contract...\n", p.contract)

	result, err := p.run(ctx, logger)
	if err != nil {
		logger.Error("deployment failed",
			slog.String("step", string(err.Step)),
			slog.String("error", err.Err.Error()),
		)
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger) (*Result, *StepError) {
	signer, err := p.resolveSigner(ctx)
	if err != nil {
		return nil, stepError(StepIdentity, err)
	}
	logger = logger.With(slog.String("deployer", signer.Address()))
	logger.Debug("signer resolved")
	p.printf("Deploying contracts with the account: %s\n", signer.Address())

	balance, err := signer.Balance(ctx)
	if err != nil {
		return nil, stepError(StepBalance, err)
	}
	logger.Debug("balance read", slog.String("balance_wei", balance.String()))
	p.printf("Account balance: %s\n", balance.String())

	factory, err := p.client.ContractFactory(ctx, p.contract, signer)
	if err != nil {
		return nil, stepError(StepArtifact, err)
	}

	deployment, err := factory.Deploy(ctx)
	if err != nil {
		return nil, stepError(StepSubmission, fmt.Errorf("deploy: %w", err))
	}
	logger = logger.With(slog.String("tx_hash", deployment.TxHash()))
	logger.Info("waiting for deployment confirmation")

	if err := deployment.WaitForDeployment(ctx); err != nil {
		return nil, stepError(StepSubmission, fmt.Errorf("wait for deployment: %w", err))
	}

	address, err := deployment.Address()
	if err != nil {
		return nil, stepError(StepSubmission, fmt.Errorf("get address: %w", err))
	}
	logger.Info("contract deployed", slog.String("address", address))
	p.printf("%s deployed to: %s\n", p.contract, address)

	return &Result{
		Contract: p.contract,
		Deployer: signer.Address(),
		Balance:  balance,
		Address:  address,
		TxHash:   deployment.TxHash(),
	}, nil
}

func (p *Pipeline) resolveSigner(ctx context.Context) (ledger.Signer, error) {
	signers, err := p.client.Signers(ctx)
	if err != nil {
		return nil, fmt.Errorf("get signers: %w", err)
	}
	if len(signers) == 0 {
		return nil, ledger.ErrNoSigners
	}
	return signers[0], nil
}

func (p *Pipeline) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}
