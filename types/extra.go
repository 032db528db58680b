package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var extraRecipientArgs = arguments(abiAddress)

/*
ExtraParams are caller supplied parameters appended outside of the signed
payload. They are never covered by a signature nor by a Merkle leaf.
*/
type ExtraParams struct {
	// Recipient overrides the payee of "...ToCaller" actions.
	Recipient *common.Address
}

// Encode returns empty slice when there are no params, otherwise ABI encoded (address recipient).
func (e ExtraParams) Encode() ([]byte, error) {
	if e.Recipient == nil {
		return []byte{}, nil
	}
	return extraRecipientArgs.Pack(*e.Recipient)
}

func DecodeExtraParams(data []byte) (ExtraParams, error) {
	if len(data) == 0 {
		return ExtraParams{}, nil
	}
	v, err := extraRecipientArgs.Unpack(data)
	if err != nil {
		return ExtraParams{}, fmt.Errorf("decoding extra params: %w", err)
	}
	recipient := v[0].(common.Address)
	return ExtraParams{Recipient: &recipient}, nil
}
