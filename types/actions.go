package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type (
	// Action is a transfer instruction executed by the custodian.
	Action interface {
		Struct
		isAction()
	}

	/*
	NativeTransfer transfers Amount of native currency. When Recipient is nil
	the caller is paid and the caller may redirect the payment with extra
	params.
	*/
	NativeTransfer struct {
		Amount    *big.Int
		Recipient *common.Address
	}

	// ERC20Transfer transfers Amount of fungible Token, Recipient semantics are the same as with NativeTransfer.
	ERC20Transfer struct {
		Token     common.Address
		Amount    *big.Int
		Recipient *common.Address
	}

	// NFTTransfer transfers TokenID of Collection, Recipient semantics are the same as with NativeTransfer.
	NFTTransfer struct {
		Collection common.Address
		Recipient  *common.Address
		TokenID    *big.Int
	}

	UnknownAction struct{ unknownStruct }
)

var (
	nativeToCallerArgs = arguments(abiUint256)
	nativeArgs         = arguments(abiUint256, abiAddress)
	erc20ToCallerArgs  = arguments(abiAddress, abiUint256)
	erc20Args          = arguments(abiAddress, abiUint256, abiAddress)
	nftToCallerArgs    = arguments(abiAddress, abiUint256)
	nftArgs            = arguments(abiAddress, abiAddress, abiUint256)
)

func (NativeTransfer) isAction() {}
func (ERC20Transfer) isAction()  {}
func (NFTTransfer) isAction()    {}
func (UnknownAction) isAction()  {}

func (n NativeTransfer) TypeName() string {
	if n.Recipient == nil {
		return "TransferNativeToCaller"
	}
	return "TransferNative"
}

func (n NativeTransfer) TypeString() string {
	if n.Recipient == nil {
		return formatTypeString(n.TypeName(), field{"uint256", "amount"})
	}
	return formatTypeString(n.TypeName(), field{"uint256", "amount"}, field{"address", "recipient"})
}

func (n NativeTransfer) TypeHash() common.Hash { return typeHashOf(n.TypeString()) }

func (n NativeTransfer) EncodeData() ([]byte, error) {
	if n.Recipient == nil {
		return nativeToCallerArgs.Pack(bigOrZero(n.Amount))
	}
	return nativeArgs.Pack(bigOrZero(n.Amount), *n.Recipient)
}

func (e ERC20Transfer) TypeName() string {
	if e.Recipient == nil {
		return "TransferERC20ToCaller"
	}
	return "TransferERC20"
}

func (e ERC20Transfer) TypeString() string {
	if e.Recipient == nil {
		return formatTypeString(e.TypeName(), field{"address", "token"}, field{"uint256", "amount"})
	}
	return formatTypeString(e.TypeName(), field{"address", "token"}, field{"uint256", "amount"}, field{"address", "recipient"})
}

func (e ERC20Transfer) TypeHash() common.Hash { return typeHashOf(e.TypeString()) }

func (e ERC20Transfer) EncodeData() ([]byte, error) {
	if e.Recipient == nil {
		return erc20ToCallerArgs.Pack(e.Token, bigOrZero(e.Amount))
	}
	return erc20Args.Pack(e.Token, bigOrZero(e.Amount), *e.Recipient)
}

func (n NFTTransfer) TypeName() string {
	if n.Recipient == nil {
		return "TransferNFTToCaller"
	}
	return "TransferNFT"
}

func (n NFTTransfer) TypeString() string {
	if n.Recipient == nil {
		return formatTypeString(n.TypeName(), field{"address", "nftContract"}, field{"uint256", "tokenId"})
	}
	return formatTypeString(n.TypeName(), field{"address", "nftContract"}, field{"address", "recipient"}, field{"uint256", "tokenId"})
}

func (n NFTTransfer) TypeHash() common.Hash { return typeHashOf(n.TypeString()) }

func (n NFTTransfer) EncodeData() ([]byte, error) {
	if n.Recipient == nil {
		return nftToCallerArgs.Pack(n.Collection, bigOrZero(n.TokenID))
	}
	return nftArgs.Pack(n.Collection, *n.Recipient, bigOrZero(n.TokenID))
}

// NewUnknownState, NewUnknownCaller and NewUnknownAction create placeholders for
// variants this version of the module does not recognize.
func NewUnknownState(typeHash common.Hash, data []byte) UnknownState {
	return UnknownState{unknownStruct{Hash: typeHash, Data: data}}
}

func NewUnknownCaller(typeHash common.Hash, data []byte) UnknownCaller {
	return UnknownCaller{unknownStruct{Hash: typeHash, Data: data}}
}

func NewUnknownAction(typeHash common.Hash, data []byte) UnknownAction {
	return UnknownAction{unknownStruct{Hash: typeHash, Data: data}}
}

var actionDecoders = map[common.Hash]func([]byte) (Action, error){}

func init() {
	var someone common.Address
	actionDecoders[NativeTransfer{}.TypeHash()] = func(data []byte) (Action, error) {
		v, err := unpack(nativeToCallerArgs, data)
		if err != nil {
			return nil, err
		}
		return NativeTransfer{Amount: v[0].(*big.Int)}, nil
	}
	actionDecoders[NativeTransfer{Recipient: &someone}.TypeHash()] = func(data []byte) (Action, error) {
		v, err := unpack(nativeArgs, data)
		if err != nil {
			return nil, err
		}
		recipient := v[1].(common.Address)
		return NativeTransfer{Amount: v[0].(*big.Int), Recipient: &recipient}, nil
	}
	actionDecoders[ERC20Transfer{}.TypeHash()] = func(data []byte) (Action, error) {
		v, err := unpack(erc20ToCallerArgs, data)
		if err != nil {
			return nil, err
		}
		return ERC20Transfer{Token: v[0].(common.Address), Amount: v[1].(*big.Int)}, nil
	}
	actionDecoders[ERC20Transfer{Recipient: &someone}.TypeHash()] = func(data []byte) (Action, error) {
		v, err := unpack(erc20Args, data)
		if err != nil {
			return nil, err
		}
		recipient := v[2].(common.Address)
		return ERC20Transfer{Token: v[0].(common.Address), Amount: v[1].(*big.Int), Recipient: &recipient}, nil
	}
	actionDecoders[NFTTransfer{}.TypeHash()] = func(data []byte) (Action, error) {
		v, err := unpack(nftToCallerArgs, data)
		if err != nil {
			return nil, err
		}
		return NFTTransfer{Collection: v[0].(common.Address), TokenID: v[1].(*big.Int)}, nil
	}
	actionDecoders[NFTTransfer{Recipient: &someone}.TypeHash()] = func(data []byte) (Action, error) {
		v, err := unpack(nftArgs, data)
		if err != nil {
			return nil, err
		}
		recipient := v[1].(common.Address)
		return NFTTransfer{Collection: v[0].(common.Address), Recipient: &recipient, TokenID: v[2].(*big.Int)}, nil
	}
}

func decodeAction(typeHash common.Hash, data []byte) (Action, error) {
	if dec, ok := actionDecoders[typeHash]; ok {
		a, err := dec(data)
		if err != nil {
			return nil, fmt.Errorf("decoding action: %w", err)
		}
		return a, nil
	}
	return UnknownAction{unknownStruct{Hash: typeHash, Data: data}}, nil
}
