package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type (
	// StateCheck is a predicate over the ambient execution state.
	StateCheck interface {
		Struct
		isStateCheck()
	}

	// CallerCheck is a predicate identifying who may redeem the claim.
	CallerCheck interface {
		Struct
		isCallerCheck()
	}

	// TimeRange passes iff ValidFrom <= now <= ValidTo, both bounds inclusive.
	TimeRange struct {
		ValidFrom uint64
		ValidTo   uint64
	}

	// Always passes unconditionally.
	Always struct{}

	// AnyCaller passes for every caller.
	AnyCaller struct{}

	// DirectAddress passes iff the caller is Address.
	DirectAddress struct {
		Address common.Address
	}

	// NFTOwnership passes iff the caller currently owns TokenID of Collection.
	NFTOwnership struct {
		Collection common.Address
		TokenID    *big.Int
	}

	/*
	RegisteredAccount passes iff the caller currently holds the registration
	token of Account in the Registry collection. Equivalent to NFTOwnership
	with token ID derived from the account address.
	*/
	RegisteredAccount struct {
		Registry common.Address
		Account  common.Address
	}

	UnknownState  struct{ unknownStruct }
	UnknownCaller struct{ unknownStruct }
)

var (
	noArgs            = arguments()
	timeRangeArgs     = arguments(abiUint256, abiUint256)
	directAddressArgs = arguments(abiAddress)
	nftOwnershipArgs  = arguments(abiAddress, abiUint256)
	registeredArgs    = arguments(abiAddress, abiAddress)
)

func (TimeRange) isStateCheck()          {}
func (Always) isStateCheck()             {}
func (UnknownState) isStateCheck()       {}
func (AnyCaller) isCallerCheck()         {}
func (DirectAddress) isCallerCheck()     {}
func (NFTOwnership) isCallerCheck()      {}
func (RegisteredAccount) isCallerCheck() {}
func (UnknownCaller) isCallerCheck()     {}

func (TimeRange) TypeName() string { return "TimeRangeSeconds" }

func (t TimeRange) TypeString() string {
	return formatTypeString(t.TypeName(), field{"uint256", "validFromTime"}, field{"uint256", "validToTime"})
}

func (t TimeRange) TypeHash() common.Hash { return typeHashOf(t.TypeString()) }

func (t TimeRange) EncodeData() ([]byte, error) {
	return timeRangeArgs.Pack(u256(t.ValidFrom), u256(t.ValidTo))
}

// Contains returns true when now is within the range, bounds inclusive.
func (t TimeRange) Contains(now uint64) bool {
	return t.ValidFrom <= now && now <= t.ValidTo
}

func (Always) TypeName() string              { return "Always" }
func (a Always) TypeString() string          { return formatTypeString(a.TypeName()) }
func (a Always) TypeHash() common.Hash       { return typeHashOf(a.TypeString()) }
func (a Always) EncodeData() ([]byte, error) { return noArgs.Pack() }

func (AnyCaller) TypeName() string              { return "AnyCaller" }
func (a AnyCaller) TypeString() string          { return formatTypeString(a.TypeName()) }
func (a AnyCaller) TypeHash() common.Hash       { return typeHashOf(a.TypeString()) }
func (a AnyCaller) EncodeData() ([]byte, error) { return noArgs.Pack() }

func (DirectAddress) TypeName() string { return "Address" }

func (d DirectAddress) TypeString() string {
	return formatTypeString(d.TypeName(), field{"address", "caller"})
}

func (d DirectAddress) TypeHash() common.Hash { return typeHashOf(d.TypeString()) }

func (d DirectAddress) EncodeData() ([]byte, error) {
	return directAddressArgs.Pack(d.Address)
}

func (NFTOwnership) TypeName() string { return "NFTOwner" }

func (n NFTOwnership) TypeString() string {
	return formatTypeString(n.TypeName(), field{"address", "nftContract"}, field{"uint256", "tokenId"})
}

func (n NFTOwnership) TypeHash() common.Hash { return typeHashOf(n.TypeString()) }

func (n NFTOwnership) EncodeData() ([]byte, error) {
	return nftOwnershipArgs.Pack(n.Collection, bigOrZero(n.TokenID))
}

func (RegisteredAccount) TypeName() string { return "RegisteredAccount" }

func (r RegisteredAccount) TypeString() string {
	return formatTypeString(r.TypeName(), field{"address", "registry"}, field{"address", "account"})
}

func (r RegisteredAccount) TypeHash() common.Hash { return typeHashOf(r.TypeString()) }

func (r RegisteredAccount) EncodeData() ([]byte, error) {
	return registeredArgs.Pack(r.Registry, r.Account)
}

// TokenID returns the registration token ID of the account.
func (r RegisteredAccount) TokenID() *big.Int {
	return AccountTokenID(r.Account)
}

// AccountTokenID derives the registration token ID of the account, ie the
// address interpreted as big-endian unsigned integer.
func AccountTokenID(account common.Address) *big.Int {
	return new(big.Int).SetBytes(account.Bytes())
}

var (
	stateDecoders  = map[common.Hash]func([]byte) (StateCheck, error){}
	callerDecoders = map[common.Hash]func([]byte) (CallerCheck, error){}
)

func init() {
	stateDecoders[TimeRange{}.TypeHash()] = func(data []byte) (StateCheck, error) {
		v, err := unpack(timeRangeArgs, data)
		if err != nil {
			return nil, err
		}
		return TimeRange{
			ValidFrom: saturatingUint64(v[0].(*big.Int)),
			ValidTo:   saturatingUint64(v[1].(*big.Int)),
		}, nil
	}

	stateDecoders[Always{}.TypeHash()] = func(data []byte) (StateCheck, error) {
		if err := expectEmpty(data); err != nil {
			return nil, err
		}
		return Always{}, nil
	}

	callerDecoders[AnyCaller{}.TypeHash()] = func(data []byte) (CallerCheck, error) {
		if err := expectEmpty(data); err != nil {
			return nil, err
		}
		return AnyCaller{}, nil
	}
	callerDecoders[DirectAddress{}.TypeHash()] = func(data []byte) (CallerCheck, error) {
		v, err := unpack(directAddressArgs, data)
		if err != nil {
			return nil, err
		}
		return DirectAddress{Address: v[0].(common.Address)}, nil
	}
	callerDecoders[NFTOwnership{}.TypeHash()] = func(data []byte) (CallerCheck, error) {
		v, err := unpack(nftOwnershipArgs, data)
		if err != nil {
			return nil, err
		}
		return NFTOwnership{Collection: v[0].(common.Address), TokenID: v[1].(*big.Int)}, nil
	}
	callerDecoders[RegisteredAccount{}.TypeHash()] = func(data []byte) (CallerCheck, error) {
		v, err := unpack(registeredArgs, data)
		if err != nil {
			return nil, err
		}
		return RegisteredAccount{Registry: v[0].(common.Address), Account: v[1].(common.Address)}, nil
	}
}

func decodeStateCheck(typeHash common.Hash, data []byte) (StateCheck, error) {
	if dec, ok := stateDecoders[typeHash]; ok {
		s, err := dec(data)
		if err != nil {
			return nil, fmt.Errorf("decoding state check: %w", err)
		}
		return s, nil
	}
	return UnknownState{unknownStruct{Hash: typeHash, Data: data}}, nil
}

func decodeCallerCheck(typeHash common.Hash, data []byte) (CallerCheck, error) {
	if dec, ok := callerDecoders[typeHash]; ok {
		c, err := dec(data)
		if err != nil {
			return nil, fmt.Errorf("decoding caller check: %w", err)
		}
		return c, nil
	}
	return UnknownCaller{unknownStruct{Hash: typeHash, Data: data}}, nil
}
