package types

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	abiBytes32 = mustNewType("bytes32")
	abiUint256 = mustNewType("uint256")
	abiAddress = mustNewType("address")
	abiBytes   = mustNewType("bytes")
)

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Errorf("creating ABI type %q: %w", t, err))
	}
	return typ
}

func arguments(types ...abi.Type) abi.Arguments {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		args[i] = abi.Argument{Type: t}
	}
	return args
}

func u256(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

// saturatingUint64 returns v as uint64, values which do not fit are clamped to MaxUint64.
func saturatingUint64(v *big.Int) uint64 {
	if v.IsUint64() {
		return v.Uint64()
	}
	return math.MaxUint64
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func unpack(args abi.Arguments, data []byte) ([]any, error) {
	values, err := args.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedClaim, err)
	}
	return values, nil
}

func expectEmpty(data []byte) error {
	if len(data) != 0 {
		return fmt.Errorf("%w: expected no data, got %d bytes", ErrMalformedClaim, len(data))
	}
	return nil
}

func asHash(v any) common.Hash {
	return common.Hash(v.([32]byte))
}
