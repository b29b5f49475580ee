package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Artifact is a compiled contract: its ABI and creation bytecode, as written
// by Hardhat (artifacts/) or Foundry (out/).
type Artifact struct {
	ContractName string          `json:"contractName,omitempty"`
	SourceName   string          `json:"sourceName,omitempty"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     Bytecode        `json:"bytecode"`

	// Path is the file the artifact was read from.
	Path string `json:"-"`
}

// Bytecode accepts both artifact encodings:
//   - Hardhat: "0x6080..."
//   - Foundry: {"object": "0x6080...", ...}
type Bytecode struct {
	hex string
}

// UnmarshalJSON accepts a hex string or an object carrying it under "object".
func (b *Bytecode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		b.hex = ""
		return nil
	}

	switch data[0] {
	case '"':
		return json.Unmarshal(data, &b.hex)
	case '{':
		var linked struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(data, &linked); err != nil {
			return err
		}
		b.hex = linked.Object
		return nil
	default:
		return fmt.Errorf("bytecode: unexpected JSON %.20s", data)
	}
}

func (b Bytecode) String() string {
	return b.hex
}

// Bytes decodes the creation bytecode. Abstract contracts and interfaces
// compile to empty bytecode and unlinked libraries leave "__$...$__"
// placeholders; both are reported as ErrInvalidArtifact.
func (b Bytecode) Bytes() ([]byte, error) {
	code := strings.TrimSpace(b.hex)
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	if code == "0x" {
		return nil, fmt.Errorf("%w: empty bytecode (abstract contract or interface?)", ErrInvalidArtifact)
	}
	if strings.Contains(code, "__") {
		return nil, fmt.Errorf("%w: bytecode has unlinked library placeholders", ErrInvalidArtifact)
	}

	decoded, err := hexutil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("%w: decode bytecode: %v", ErrInvalidArtifact, err)
	}
	return decoded, nil
}

// ParsedABI parses the artifact's ABI.
func (a *Artifact) ParsedABI() (abi.ABI, error) {
	if len(a.ABI) == 0 {
		return abi.ABI{}, nil
	}
	return abi.JSON(bytes.NewReader(a.ABI))
}

// DeployData returns the creation bytecode followed by the ABI-encoded
// constructor arguments.
func (a *Artifact) DeployData(args ...any) ([]byte, error) {
	code, err := a.Bytecode.Bytes()
	if err != nil {
		return nil, err
	}

	parsed, err := a.ParsedABI()
	if err != nil {
		return nil, fmt.Errorf("%w: parse ABI: %v", ErrInvalidArtifact, err)
	}

	if want := len(parsed.Constructor.Inputs); want != len(args) {
		return nil, fmt.Errorf("constructor expects %d arguments, got %d", want, len(args))
	}
	if len(args) == 0 {
		return code, nil
	}

	packed, err := parsed.Constructor.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("pack constructor args: %w", err)
	}
	return append(code, packed...), nil
}

// ArtifactStore resolves artifacts by contract name under a directory.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates a store rooted at dir.
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

// Dir returns the root directory of the store.
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Load reads the artifact for name. The name is either a bare contract name
// ("BettingPlatform") or fully qualified ("contracts/BettingPlatform.sol:BettingPlatform"),
// which is needed when two sources declare the same contract name.
func (s *ArtifactStore) Load(name string) (*Artifact, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty contract name", ErrArtifactNotFound)
	}

	path, err := s.locate(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidArtifact, path, err)
	}
	artifact.Path = path
	if artifact.ContractName == "" {
		artifact.ContractName = contractName(name)
	}
	if err := artifact.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &artifact, nil
}

// validate rejects artifacts that cannot be deployed as they are: abstract
// contracts, unlinked libraries and malformed ABIs.
func (a *Artifact) validate() error {
	if _, err := a.Bytecode.Bytes(); err != nil {
		return err
	}
	if _, err := a.ParsedABI(); err != nil {
		return fmt.Errorf("%w: parse ABI: %v", ErrInvalidArtifact, err)
	}
	return nil
}

func (s *ArtifactStore) locate(name string) (string, error) {
	if source, contract, ok := strings.Cut(name, ":"); ok {
		path := filepath.Join(s.dir, filepath.FromSlash(source), contract+".json")
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s in %s", ErrArtifactNotFound, name, s.dir)
		}
		return path, nil
	}

	target := name + ".json"
	var matches []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == target {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s (artifacts directory %s does not exist)", ErrArtifactNotFound, name, s.dir)
		}
		return "", fmt.Errorf("scan artifacts in %s: %w", s.dir, err)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s in %s", ErrArtifactNotFound, name, s.dir)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s is ambiguous, use a fully qualified name: %v", ErrArtifactNotFound, name, matches)
	}
}

func contractName(name string) string {
	if _, contract, ok := strings.Cut(name, ":"); ok {
		return contract
	}
	return name
}
