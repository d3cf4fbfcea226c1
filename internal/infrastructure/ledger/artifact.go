package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Artifact is the subset of a Truffle build artifact needed to bind to a
// deployed contract: its ABI and the address recorded per network id.
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	Networks     map[string]common.Address
}

type rawArtifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Networks     map[string]struct {
		Address string `json:"address"`
	} `json:"networks"`
}

// LoadArtifact reads and parses the artifact at path.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("contract artifact not found at %s (run the contract migration first): %w", path, err)
	}
	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse contract artifact: %w", err)
	}
	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("contract artifact %s has no abi", path)
	}
	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}
	for _, name := range []string{methodSubmitReview, methodGetReviews, methodGetReviewCount} {
		if _, ok := parsed.Methods[name]; !ok {
			return nil, fmt.Errorf("contract abi lacks method %q", name)
		}
	}

	art := &Artifact{ContractName: raw.ContractName, ABI: parsed, Networks: make(map[string]common.Address)}
	for id, n := range raw.Networks {
		if common.IsHexAddress(n.Address) {
			art.Networks[id] = common.HexToAddress(n.Address)
		}
	}
	return art, nil
}

// Address returns the deployment address for networkID. A non-empty override
// wins over the artifact's network table.
func (a *Artifact) Address(networkID *big.Int, override string) (common.Address, error) {
	if override != "" {
		if !common.IsHexAddress(override) {
			return common.Address{}, fmt.Errorf("invalid contract address %q", override)
		}
		return common.HexToAddress(override), nil
	}
	addr, ok := a.Networks[networkID.String()]
	if !ok {
		return common.Address{}, fmt.Errorf("%s not deployed to network %s", a.ContractName, networkID)
	}
	return addr, nil
}
