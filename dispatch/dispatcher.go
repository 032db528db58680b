/*
Package dispatch translates the action of an authorized claim into exactly
one custodian invocation.
*/
package dispatch

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphabill-org/claim-settlement/custodian"
	"github.com/alphabill-org/claim-settlement/types"
)

type Dispatcher struct {
	custodian custodian.Custodian
	module    common.Address
}

// New returns dispatcher executing actions through c on behalf of module.
func New(c custodian.Custodian, module common.Address) *Dispatcher {
	return &Dispatcher{custodian: c, module: module}
}

/*
Dispatch executes the action. Caller is the identity redeeming the claim and
extra are the caller supplied (unsigned) extra params. Every failure is
reported as ErrActionFailed, custodian errors are kept in the chain as is.
The call is never retried.
*/
func (d *Dispatcher) Dispatch(ctx context.Context, action types.Action, caller common.Address, extra []byte) error {
	params, err := types.DecodeExtraParams(extra)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrActionFailed, err)
	}

	var (
		target common.Address
		value  *big.Int
		data   []byte
	)
	switch a := action.(type) {
	case types.NativeTransfer:
		if target, err = Recipient(a.Recipient, caller, params); err != nil {
			return err
		}
		value = amountOrZero(a.Amount)
	case types.ERC20Transfer:
		to, err := Recipient(a.Recipient, caller, params)
		if err != nil {
			return err
		}
		if data, err = custodian.PackTransfer(to, amountOrZero(a.Amount)); err != nil {
			return fmt.Errorf("%w: encoding token transfer: %w", types.ErrActionFailed, err)
		}
		target = a.Token
	case types.NFTTransfer:
		to, err := Recipient(a.Recipient, caller, params)
		if err != nil {
			return err
		}
		if data, err = custodian.PackSafeTransferFrom(d.custodian.Address(), to, amountOrZero(a.TokenID)); err != nil {
			return fmt.Errorf("%w: encoding NFT transfer: %w", types.ErrActionFailed, err)
		}
		target = a.Collection
	case types.UnknownAction:
		return fmt.Errorf("%w: unknown action %s", types.ErrActionFailed, a.TypeHash())
	default:
		return fmt.Errorf("%w: unsupported action %T", types.ErrActionFailed, action)
	}

	if err := d.custodian.Execute(ctx, d.module, target, value, data); err != nil {
		return fmt.Errorf("%w: %w", types.ErrActionFailed, err)
	}
	return nil
}

/*
Recipient resolves the payee of an action: the signed recipient when the
action has one, otherwise the recipient override of the extra params,
otherwise the caller. Overriding a signed recipient is an error.
*/
func Recipient(signed *common.Address, caller common.Address, extra types.ExtraParams) (common.Address, error) {
	switch {
	case signed != nil && extra.Recipient != nil:
		return common.Address{}, fmt.Errorf("%w: action doesn't allow recipient override", types.ErrActionFailed)
	case signed != nil:
		return *signed, nil
	case extra.Recipient != nil:
		return *extra.Recipient, nil
	default:
		return caller, nil
	}
}

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
