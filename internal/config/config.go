// Package config provides configuration loading for the contract deployer.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Built-in network names. Both point at a local node on the default port and
// take the chain ID from the node, so Anvil, Hardhat and geth --dev all work.
const (
	NetworkHardhat   = "hardhat"
	NetworkLocalhost = "localhost"

	localRPCURL = "http://127.0.0.1:8545"
)

// Config holds all configuration for a deployment run.
type Config struct {
	Network   string                   `mapstructure:"network"`
	Networks  map[string]NetworkConfig `mapstructure:"networks"`
	RPCURL    string                   `mapstructure:"rpc_url"`
	ChainID   int64                    `mapstructure:"chain_id"`
	Deployer  DeployerConfig           `mapstructure:"deployer"`
	Artifacts ArtifactsConfig          `mapstructure:"artifacts"`
	Contract  ContractConfig           `mapstructure:"contract"`
	Gas       GasConfig                `mapstructure:"gas"`
	Log       LogConfig                `mapstructure:"log"`
}

// NetworkConfig describes one named ledger network.
type NetworkConfig struct {
	RPCURL  string `mapstructure:"rpc_url"`
	ChainID int64  `mapstructure:"chain_id"` // 0 = any; otherwise the node must match
}

// DeployerConfig holds signing credentials.
type DeployerConfig struct {
	PrivateKeys []string `mapstructure:"private_keys"`
	DevAccounts bool     `mapstructure:"dev_accounts"`
}

// ArtifactsConfig locates compiled contracts.
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

// ContractConfig selects the contract to deploy.
type ContractConfig struct {
	Name string `mapstructure:"name"`
}

// GasConfig tunes transaction gas.
type GasConfig struct {
	MultiplierPercent uint64 `mapstructure:"multiplier_percent"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// Options tweak where configuration is read from.
type Options struct {
	// ConfigFile is an explicit config file. When empty, deployer.yaml is
	// searched for in . and ./config and may be absent.
	ConfigFile string
	// EnvFile is the dotenv file loaded before reading the environment.
	// Variables already set in the process win over it.
	EnvFile string
}

// Load reads configuration from the dotenv file, the config file and
// DEPLOYER_* environment variables, in increasing precedence.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("deployer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("DEPLOYER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Nested keys are not picked up by AutomaticEnv on Unmarshal.
	v.BindEnv("deployer.private_keys", "DEPLOYER_DEPLOYER_PRIVATE_KEYS", "DEPLOYER_PRIVATE_KEYS", "PRIVATE_KEY")
	v.BindEnv("deployer.dev_accounts", "DEPLOYER_DEPLOYER_DEV_ACCOUNTS", "DEPLOYER_DEV_ACCOUNTS")
	v.BindEnv("artifacts.dir", "DEPLOYER_ARTIFACTS_DIR")
	v.BindEnv("contract.name", "DEPLOYER_CONTRACT_NAME")
	v.BindEnv("gas.multiplier_percent", "DEPLOYER_GAS_MULTIPLIER_PERCENT")
	v.BindEnv("log.level", "DEPLOYER_LOG_LEVEL")
	v.BindEnv("log.format", "DEPLOYER_LOG_FORMAT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine, defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Deployer.PrivateKeys = splitKeys(cfg.Deployer.PrivateKeys)

	return &cfg, nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("network", NetworkLocalhost)
	v.SetDefault("rpc_url", "")
	v.SetDefault("chain_id", 0)

	v.SetDefault("deployer.private_keys", []string{})
	v.SetDefault("deployer.dev_accounts", false)

	// Hardhat project layout: paths.artifacts = ./src/artifacts
	v.SetDefault("artifacts.dir", "./src/artifacts")
	v.SetDefault("contract.name", "BettingPlatform")
	v.SetDefault("gas.multiplier_percent", 120)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// splitKeys flattens comma separated entries and drops blanks, so a single
// env var can carry several keys.
func splitKeys(keys []string) []string {
	var out []string
	for _, entry := range keys {
		for _, key := range strings.Split(entry, ",") {
			if key = strings.TrimSpace(key); key != "" {
				out = append(out, key)
			}
		}
	}
	return out
}

// SelectedNetwork resolves the active network, applying the top-level
// rpc_url and chain_id overrides.
func (c *Config) SelectedNetwork() (NetworkConfig, error) {
	// viper lower-cases map keys
	name := strings.ToLower(c.Network)
	network, ok := c.Networks[name]
	if !ok {
		switch name {
		case NetworkHardhat, NetworkLocalhost:
			network = NetworkConfig{RPCURL: localRPCURL}
		default:
			if c.RPCURL == "" {
				return NetworkConfig{}, fmt.Errorf("unknown network %q", c.Network)
			}
		}
	}

	if c.RPCURL != "" {
		network.RPCURL = c.RPCURL
	}
	if c.ChainID != 0 {
		network.ChainID = c.ChainID
	}
	return network, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	network, err := c.SelectedNetwork()
	if err != nil {
		return err
	}
	if network.RPCURL == "" {
		return fmt.Errorf("network %q has no rpc_url", c.Network)
	}
	if network.ChainID < 0 {
		return fmt.Errorf("network %q has negative chain_id", c.Network)
	}
	if c.Contract.Name == "" {
		return errors.New("contract.name is required")
	}
	if c.Gas.MultiplierPercent < 100 {
		return fmt.Errorf("gas.multiplier_percent must be at least 100, got %d", c.Gas.MultiplierPercent)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// SlogLevel parses the configured level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log.level %q: %w", c.Level, err)
	}
	return level, nil
}
