package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-datastore"

	"github.com/alphabill-org/claim-settlement/cbor"
	"github.com/alphabill-org/claim-settlement/types"
)

var ErrModuleMismatch = errors.New("store belongs to another module")

// ModuleInfo is the identity of the module instance the store belongs to.
type ModuleInfo struct {
	_         struct{}       `cbor:",toarray"`
	Version   types.Version  `json:"version"`
	ChainID   uint64         `json:"chainId"`
	Module    common.Address `json:"module"`
	Admin     common.Address `json:"admin"`
	Custodian common.Address `json:"custodian"`
}

func (mi *ModuleInfo) GetVersion() types.Version {
	if mi != nil && mi.Version > 0 {
		return mi.Version
	}
	return 1
}

func (mi *ModuleInfo) MarshalCBOR() ([]byte, error) {
	type alias ModuleInfo
	if mi.Version == 0 {
		mi.Version = mi.GetVersion()
	}
	return cbor.MarshalTaggedValue(types.ModuleInfoTag, (*alias)(mi))
}

func (mi *ModuleInfo) UnmarshalCBOR(data []byte) error {
	type alias ModuleInfo
	if err := cbor.UnmarshalTaggedValue(types.ModuleInfoTag, data, (*alias)(mi)); err != nil {
		return err
	}
	return types.EnsureVersion(mi, mi.Version, 1)
}

/*
Init records the module identity on first use. When the store has been
initialized before, the recorded identity must match info.
*/
func (s *Store) Init(ctx context.Context, info ModuleInfo) error {
	stored, err := s.ModuleInfo(ctx)
	switch {
	case errors.Is(err, datastore.ErrNotFound):
		data, err := cbor.Marshal(&info)
		if err != nil {
			return fmt.Errorf("encoding module info: %w", err)
		}
		return s.ds.Put(ctx, metaKey, data)
	case err != nil:
		return err
	}
	if stored.ChainID != info.ChainID || stored.Module != info.Module || stored.Admin != info.Admin || stored.Custodian != info.Custodian {
		return fmt.Errorf("%w: stored %s on chain %d", ErrModuleMismatch, stored.Module, stored.ChainID)
	}
	return nil
}

// ModuleInfo returns the recorded module identity, datastore.ErrNotFound when the store hasn't been initialized.
func (s *Store) ModuleInfo(ctx context.Context) (*ModuleInfo, error) {
	data, err := s.ds.Get(ctx, metaKey)
	if err != nil {
		return nil, fmt.Errorf("reading module info: %w", err)
	}
	info := &ModuleInfo{}
	if err := cbor.Unmarshal(data, info); err != nil {
		return nil, fmt.Errorf("decoding module info: %w", err)
	}
	return info, nil
}
