package custodian

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const tokenABIJSON = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"safeTransferFrom","stateMutability":"nonpayable",
	 "inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],
	 "outputs":[]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"ownerOf","stateMutability":"view",
	 "inputs":[{"name":"tokenId","type":"uint256"}],
	 "outputs":[{"name":"","type":"address"}]}
]`

const (
	MethodTransfer         = "transfer"
	MethodSafeTransferFrom = "safeTransferFrom"
)

// TokenABI is the subset of ERC-20 and ERC-721 interfaces used for dispatching actions.
var TokenABI = mustParseABI(tokenABIJSON)

func mustParseABI(def string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Errorf("parsing token ABI: %w", err))
	}
	return a
}

// PackTransfer returns calldata of ERC-20 transfer(to, amount).
func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return TokenABI.Pack(MethodTransfer, to, amount)
}

// PackSafeTransferFrom returns calldata of ERC-721 safeTransferFrom(from, to, tokenId).
func PackSafeTransferFrom(from, to common.Address, tokenID *big.Int) ([]byte, error) {
	return TokenABI.Pack(MethodSafeTransferFrom, from, to, tokenID)
}

// Call is decoded calldata.
type Call struct {
	Method string
	Args   []any
}

// DecodeCall decodes calldata of one of the TokenABI methods.
func DecodeCall(data []byte) (*Call, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("calldata too short: %d bytes", len(data))
	}
	m, err := TokenABI.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("decoding %s arguments: %w", m.Name, err)
	}
	return &Call{Method: m.Name, Args: args}, nil
}
