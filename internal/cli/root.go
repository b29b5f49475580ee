// Package cli wires configuration, logging and the ledger client into the
// deployment pipeline and maps its outcome to a process exit status.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bettingplatform/deployer/internal/config"
	"github.com/bettingplatform/deployer/internal/deployer"
	"github.com/bettingplatform/deployer/internal/ledger"
)

// Exit statuses.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// ClientFactory builds the ledger client for one run. The returned func
// releases it.
type ClientFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ledger.Client, func(), error)

type rootFlags struct {
	configFile   string
	envFile      string
	network      string
	rpcURL       string
	artifactsDir string
	contract     string
}

// Run executes the deploy command with args and returns the exit status.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return run(ctx, args, stdout, stderr, DialClient)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, newClient ClientFactory) int {
	cmd := newRootCmd(stdout, stderr, newClient)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error deploying contract: %v\n", err)
		return ExitFailure
	}
	return ExitOK
}

func newRootCmd(stdout, stderr io.Writer, newClient ClientFactory) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the BettingPlatform contract",
		Long: `Deploy a compiled contract to an EVM network and print its address.

Network, credentials and artifact location come from deployer.yaml, .env and
DEPLOYER_* environment variables. PRIVATE_KEY is honoured as in Hardhat projects.

Examples:
  # Local node (http://127.0.0.1:8545), key from .env
  deploy

  # Named network from deployer.yaml
  deploy --network sepolia

  # Foundry output directory
  deploy --artifacts ./out`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), flags, stdout, stderr, newClient)
		},
	}

	cmd.Flags().StringVar(&flags.configFile, "config", "", "config file (default: ./deployer.yaml or ./config/deployer.yaml)")
	cmd.Flags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file to load")
	cmd.Flags().StringVar(&flags.network, "network", "", "network name (overrides config)")
	cmd.Flags().StringVar(&flags.rpcURL, "rpc-url", "", "RPC endpoint (overrides the network's rpc_url)")
	cmd.Flags().StringVar(&flags.artifactsDir, "artifacts", "", "compiled artifacts directory (overrides config)")
	cmd.Flags().StringVar(&flags.contract, "contract", "", "contract name to deploy (overrides config)")

	return cmd
}

func runDeploy(ctx context.Context, flags rootFlags, stdout, stderr io.Writer, newClient ClientFactory) error {
	cfg, err := config.Load(config.Options{
		ConfigFile: flags.configFile,
		EnvFile:    flags.envFile,
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	logger = logger.With(
		slog.String("run_id", uuid.NewString()),
		slog.String("network", cfg.Network),
	)

	client, release, err := newClient(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create ledger client: %w", err)
	}
	defer release()

	pipeline := deployer.New(client,
		deployer.WithOutput(stdout),
		deployer.WithLogger(logger),
		deployer.WithContract(cfg.Contract.Name),
	)
	_, err = pipeline.Run(ctx)
	return err
}

func applyOverrides(cfg *config.Config, flags rootFlags) {
	if flags.network != "" {
		cfg.Network = flags.network
	}
	if flags.rpcURL != "" {
		cfg.RPCURL = flags.rpcURL
	}
	if flags.artifactsDir != "" {
		cfg.Artifacts.Dir = flags.artifactsDir
	}
	if flags.contract != "" {
		cfg.Contract.Name = flags.contract
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// DialClient connects to the configured network over JSON-RPC.
func DialClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ledger.Client, func(), error) {
	network, err := cfg.SelectedNetwork()
	if err != nil {
		return nil, nil, err
	}

	client, err := ledger.Dial(ctx, network.RPCURL, ledger.EthClientOptions{
		PrivateKeys:          cfg.Deployer.PrivateKeys,
		DevAccounts:          cfg.Deployer.DevAccounts,
		ChainID:              network.ChainID,
		ArtifactsDir:         cfg.Artifacts.Dir,
		GasMultiplierPercent: cfg.Gas.MultiplierPercent,
		Logger:               logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}
