/*
Package custodian defines the boundary to the external component that holds
the assets and executes transfers on behalf of enabled modules.
*/
package custodian

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

//go:generate mockgen -destination=custodianmock/custodian.go -package=custodianmock . Custodian

type Custodian interface {
	// Address is the identity holding the assets, ie the "from" of transfers.
	Address() common.Address

	/*
	Execute performs a call to target with value of native currency and
	calldata data on behalf of module. The module must have been enabled by
	the custodian's governance. Reverts are returned as errors.
	*/
	Execute(ctx context.Context, module, target common.Address, value *big.Int, data []byte) error
}
