package ledger

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var oneEther = big.NewInt(1_000_000_000_000_000_000)

type simChain struct {
	backend *simulated.Backend
	keyHex  string
	address common.Address
}

func newSimChain(t *testing.T) *simChain {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey)

	backend := simulated.NewBackend(types.GenesisAlloc{
		address: {Balance: new(big.Int).Mul(big.NewInt(100), oneEther)},
	})
	t.Cleanup(func() { _ = backend.Close() })

	return &simChain{
		backend: backend,
		keyHex:  hex.EncodeToString(crypto.FromECDSA(key)),
		address: address,
	}
}

func (c *simChain) client(t *testing.T, artifactsDir string) *EthClient {
	t.Helper()
	return NewEthClient(c.backend.Client(), EthClientOptions{
		PrivateKeys:  []string{c.keyHex},
		ArtifactsDir: artifactsDir,
	})
}

func TestEthClient_Signers(t *testing.T) {
	chain := newSimChain(t)
	client := chain.client(t, t.TempDir())

	signers, err := client.Signers(context.Background())
	require.NoError(t, err)
	require.Len(t, signers, 1)
	assert.Equal(t, chain.address.Hex(), signers[0].Address())

	balance, err := signers[0].Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(100), oneEther).String(), balance.String())
}

func TestEthClient_SignersEmptyWithoutKeys(t *testing.T) {
	chain := newSimChain(t)
	client := NewEthClient(chain.backend.Client(), EthClientOptions{})

	signers, err := client.Signers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, signers)
}

func TestEthClient_SignersBadKey(t *testing.T) {
	chain := newSimChain(t)
	client := NewEthClient(chain.backend.Client(), EthClientOptions{PrivateKeys: []string{"zz"}})

	_, err := client.Signers(context.Background())
	assert.ErrorContains(t, err, "private key #0")
}

func TestEthClient_SignersDevAccounts(t *testing.T) {
	chain := newSimChain(t)
	client := NewEthClient(chain.backend.Client(), EthClientOptions{DevAccounts: true})

	signers, err := client.Signers(context.Background())
	require.NoError(t, err)
	require.Len(t, signers, len(DevPrivateKeys))
	assert.Equal(t, devAccount0, signers[0].Address())

	mainnet := NewEthClient(fixedChainBackend{Backend: chain.backend.Client(), chainID: big.NewInt(1)},
		EthClientOptions{DevAccounts: true})
	_, err = mainnet.Signers(context.Background())
	assert.ErrorIs(t, err, ErrProductionDevChain)
}

// fixedChainBackend reports a chain ID other than the simulated one.
type fixedChainBackend struct {
	Backend
	chainID *big.Int
}

func (b fixedChainBackend) ChainID(context.Context) (*big.Int, error) {
	return b.chainID, nil
}

func TestEthClient_SignersUseNodeChainID(t *testing.T) {
	chain := newSimChain(t)
	client := chain.client(t, t.TempDir())

	signers, err := client.Signers(context.Background())
	require.NoError(t, err)
	require.Len(t, signers, 1)

	nodeChainID, err := chain.backend.Client().ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nodeChainID.String(), signers[0].(TransactionSigner).ChainID().String())
}

func TestEthClient_SignersChainIDMismatch(t *testing.T) {
	chain := newSimChain(t)

	tests := []struct {
		name string
		opts EthClientOptions
	}{
		{name: "private key", opts: EthClientOptions{PrivateKeys: []string{chain.keyHex}, ChainID: 31337}},
		{name: "dev accounts on a stale id", opts: EthClientOptions{DevAccounts: true, ChainID: 31337}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewEthClient(chain.backend.Client(), tt.opts)
			_, err := client.Signers(context.Background())
			assert.ErrorIs(t, err, ErrChainIDMismatch)
		})
	}

	// A stale local id does not hide a production node from the dev-account guard.
	mainnet := NewEthClient(fixedChainBackend{Backend: chain.backend.Client(), chainID: big.NewInt(1)},
		EthClientOptions{DevAccounts: true, ChainID: 31337})
	_, err := mainnet.Signers(context.Background())
	assert.ErrorIs(t, err, ErrChainIDMismatch)
}

func TestEthClient_DeployConfirmsBeforeAddress(t *testing.T) {
	ctx := context.Background()
	chain := newSimChain(t)
	dir := t.TempDir()
	writeArtifact(t, dir, "contracts/BettingPlatform.sol", "BettingPlatform", stubRuntimeInitCode, "")
	client := chain.client(t, dir)

	signers, err := client.Signers(ctx)
	require.NoError(t, err)

	factory, err := client.ContractFactory(ctx, "BettingPlatform", signers[0])
	require.NoError(t, err)
	assert.Equal(t, "BettingPlatform", factory.Name())

	dep, err := factory.Deploy(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, dep.TxHash())

	_, err = dep.Address()
	assert.ErrorIs(t, err, ErrNotConfirmed)

	chain.backend.Commit()
	require.NoError(t, dep.WaitForDeployment(ctx))

	address, err := dep.Address()
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(chain.address, 0).Hex(), address)

	code, err := chain.backend.Client().CodeAt(ctx, common.HexToAddress(address), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, code)
}

func TestEthClient_DeployTwiceUsesFreshNonces(t *testing.T) {
	ctx := context.Background()
	chain := newSimChain(t)
	dir := t.TempDir()
	writeArtifact(t, dir, "contracts/BettingPlatform.sol", "BettingPlatform", stubRuntimeInitCode, "")
	client := chain.client(t, dir)

	signers, err := client.Signers(ctx)
	require.NoError(t, err)

	var addresses []string
	for i := 0; i < 2; i++ {
		factory, err := client.ContractFactory(ctx, "BettingPlatform", signers[0])
		require.NoError(t, err)
		dep, err := factory.Deploy(ctx)
		require.NoError(t, err)
		chain.backend.Commit()
		require.NoError(t, dep.WaitForDeployment(ctx))
		address, err := dep.Address()
		require.NoError(t, err)
		addresses = append(addresses, address)
	}

	assert.NotEqual(t, addresses[0], addresses[1])
}

func TestEthClient_DeployWithoutCode(t *testing.T) {
	ctx := context.Background()
	chain := newSimChain(t)
	dir := t.TempDir()
	// RETURN(0, 0): the creation succeeds but leaves no runtime code.
	writeArtifact(t, dir, "contracts/Empty.sol", "Empty", "0x60006000f3", "")
	client := chain.client(t, dir)

	signers, err := client.Signers(ctx)
	require.NoError(t, err)
	factory, err := client.ContractFactory(ctx, "Empty", signers[0])
	require.NoError(t, err)
	dep, err := factory.Deploy(ctx)
	require.NoError(t, err)
	chain.backend.Commit()

	assert.ErrorIs(t, dep.WaitForDeployment(ctx), ErrNoCode)
	_, err = dep.Address()
	assert.ErrorIs(t, err, ErrNotConfirmed)
}

func TestEthClient_DeployRevertingConstructor(t *testing.T) {
	ctx := context.Background()
	chain := newSimChain(t)
	dir := t.TempDir()
	// REVERT(0, 0)
	writeArtifact(t, dir, "contracts/Reverts.sol", "Reverts", "0x60006000fd", "")
	client := chain.client(t, dir)

	signers, err := client.Signers(ctx)
	require.NoError(t, err)
	factory, err := client.ContractFactory(ctx, "Reverts", signers[0])
	require.NoError(t, err)

	_, err = factory.Deploy(ctx)
	assert.ErrorContains(t, err, "estimate gas")
}

func TestEthClient_ContractFactoryUnknownArtifact(t *testing.T) {
	chain := newSimChain(t)
	client := chain.client(t, t.TempDir())

	signers, err := client.Signers(context.Background())
	require.NoError(t, err)

	_, err = client.ContractFactory(context.Background(), "BettingPlatform", signers[0])
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestEthClient_ContractFactoryRejectsUndeployableArtifact(t *testing.T) {
	tests := []struct {
		name     string
		bytecode string
		abi      string
	}{
		{name: "abstract contract", bytecode: "0x"},
		{name: "unlinked library", bytecode: "0x73__$5b2c1f0e3d$__6001"},
		{name: "malformed hex", bytecode: "0xzz"},
		{name: "malformed abi", bytecode: stubRuntimeInitCode, abi: `[{"type":"function","inputs":[{"type":"uint999"}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := newSimChain(t)
			dir := t.TempDir()
			writeArtifact(t, dir, "contracts/BettingPlatform.sol", "BettingPlatform", tt.bytecode, tt.abi)
			client := chain.client(t, dir)

			signers, err := client.Signers(context.Background())
			require.NoError(t, err)

			factory, err := client.ContractFactory(context.Background(), "BettingPlatform", signers[0])
			assert.ErrorIs(t, err, ErrInvalidArtifact)
			assert.Nil(t, factory)
		})
	}
}

type addressOnlySigner struct{}

func (addressOnlySigner) Address() string { return "0xABC" }
func (addressOnlySigner) Balance(context.Context) (*big.Int, error) {
	return big.NewInt(0), nil
}

func TestEthClient_ContractFactoryNeedsTransactionSigner(t *testing.T) {
	chain := newSimChain(t)
	client := chain.client(t, t.TempDir())

	_, err := client.ContractFactory(context.Background(), "BettingPlatform", addressOnlySigner{})
	assert.ErrorContains(t, err, "cannot sign transactions")
}
