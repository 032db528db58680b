package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	levelds "github.com/ipfs/go-ds-leveldb"
	ldbopts "github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/alphabill-org/claim-settlement/settlement"
)

var errOffline = errors.New("custodian is not reachable from claimctl")

// offlineCustodian stands in for the custodian when the module is administered locally, it refuses every transfer.
type offlineCustodian common.Address

func (c offlineCustodian) Address() common.Address { return common.Address(c) }

func (offlineCustodian) Execute(ctx context.Context, module, target common.Address, value *big.Int, data []byte) error {
	return errOffline
}

/*
openModule opens the module database and the module described by the
configuration. Caller must call the returned close func when done with the
module.
*/
func (a *app) openModule(ctx context.Context) (_ *settlement.Module, closeFn func() error, err error) {
	dir, err := a.dataDir()
	if err != nil {
		return nil, nil, err
	}
	module, err := a.address(keyModule, false)
	if err != nil {
		return nil, nil, err
	}
	admin, err := a.address(keyAdmin, false)
	if err != nil {
		return nil, nil, err
	}
	custodian, err := a.address(keyCustodian, true)
	if err != nil {
		return nil, nil, err
	}

	opts := []settlement.Option{
		settlement.WithDomain(a.v.GetString(keyDomainName), a.v.GetString(keyDomainVersion)),
	}
	validator, err := a.address(keyValidator, true)
	if err != nil {
		return nil, nil, err
	}
	if validator != (common.Address{}) {
		opts = append(opts, settlement.WithInitialValidator(validator))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}
	ds, err := levelds.NewDatastore(dir, &levelds.Options{
		Compression: ldbopts.NoCompression,
		NoSync:      false,
		Strict:      ldbopts.StrictAll,
		ReadOnly:    false,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open leveldb: %w", err)
	}

	m, err := settlement.New(ctx, ds, a.v.GetUint64(keyChainID), module, admin, offlineCustodian(custodian), opts...)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("opening module: %w", err), ds.Close())
	}
	return m, ds.Close, nil
}

// sender is the principal of the administrative operations, the admin unless overridden.
func (a *app) sender(override string) (common.Address, error) {
	if override == "" {
		return a.address(keyAdmin, false)
	}
	if !common.IsHexAddress(override) {
		return common.Address{}, fmt.Errorf("invalid sender address %q", override)
	}
	return common.HexToAddress(override), nil
}
