package state

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	"github.com/ipfs/go-datastore/query"

	"github.com/alphabill-org/claim-settlement/hash"
)

var (
	validatorsPrefix = datastore.NewKey("/validators")
	usedPrefix       = datastore.NewKey("/used")
	rootsPrefix      = datastore.NewKey("/roots")
	configKey        = datastore.NewKey("/config")
	metaKey          = datastore.NewKey("/meta")

	present = []byte{1}
)

/*
Store is the durable state of one module instance: the validator set, the
used claim ids, the Merkle root slots, the opaque configuration string and
the module identity. All keys live under the module's own namespace so many
modules may share one datastore.
*/
type Store struct {
	ds datastore.Batching
}

// New returns store of the module on top of ds. The datastore must be safe for concurrent use.
func New(ds datastore.Batching, module common.Address) *Store {
	return &Store{ds: namespace.Wrap(ds, datastore.NewKey(addrKey(module)))}
}

func (s *Store) AddValidator(ctx context.Context, validator common.Address) error {
	return s.ds.Put(ctx, validatorKey(validator), present)
}

func (s *Store) RemoveValidator(ctx context.Context, validator common.Address) error {
	return s.ds.Delete(ctx, validatorKey(validator))
}

func (s *Store) IsValidator(ctx context.Context, validator common.Address) (bool, error) {
	return s.ds.Has(ctx, validatorKey(validator))
}

// Validators returns the validator set ordered by address.
func (s *Store) Validators(ctx context.Context) ([]common.Address, error) {
	entries, err := s.list(ctx, validatorsPrefix, true)
	if err != nil {
		return nil, fmt.Errorf("listing validators: %w", err)
	}
	validators := make([]common.Address, 0, len(entries))
	for _, e := range entries {
		addr, err := hexutil.Decode(datastore.RawKey(e.Key).BaseNamespace())
		if err != nil {
			return nil, fmt.Errorf("invalid validator key %q: %w", e.Key, err)
		}
		validators = append(validators, common.BytesToAddress(addr))
	}
	slices.SortFunc(validators, func(a, b common.Address) int { return a.Cmp(b) })
	return validators, nil
}

func (s *Store) IsUsed(ctx context.Context, id common.Hash) (bool, error) {
	return s.ds.Has(ctx, usedKey(id))
}

// SetRoot records root under the slot rootID, other slots are not affected.
func (s *Store) SetRoot(ctx context.Context, rootID, root common.Hash) error {
	return s.ds.Put(ctx, rootKey(rootID), root.Bytes())
}

// Root returns the root stored under rootID, ok is false when the slot is empty.
func (s *Store) Root(ctx context.Context, rootID common.Hash) (root common.Hash, ok bool, err error) {
	v, err := s.ds.Get(ctx, rootKey(rootID))
	switch {
	case errors.Is(err, datastore.ErrNotFound):
		return common.Hash{}, false, nil
	case err != nil:
		return common.Hash{}, false, fmt.Errorf("reading root %s: %w", rootID, err)
	case len(v) != common.HashLength:
		return common.Hash{}, false, fmt.Errorf("root %s has invalid length %d", rootID, len(v))
	}
	return common.BytesToHash(v), true, nil
}

func (s *Store) SetConfiguration(ctx context.Context, config string) error {
	return s.ds.Put(ctx, configKey, []byte(config))
}

// Configuration returns the opaque configuration string, empty if it has never been set.
func (s *Store) Configuration(ctx context.Context) (string, error) {
	v, err := s.ds.Get(ctx, configKey)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading configuration: %w", err)
	}
	return string(v), nil
}

/*
StateHash returns keccak256 hash of the CBOR encoded (key, value) pairs of
the whole module state in key order. Two stores with equal content have equal
state hash.
*/
func (s *Store) StateHash(ctx context.Context) (common.Hash, error) {
	entries, err := s.list(ctx, datastore.NewKey("/"), false)
	if err != nil {
		return common.Hash{}, fmt.Errorf("listing state: %w", err)
	}
	hasher := hash.NewKeccak()
	for _, e := range entries {
		hasher.Write([]any{e.Key, e.Value})
	}
	h, err := hasher.Sum()
	if err != nil {
		return common.Hash{}, fmt.Errorf("hashing state: %w", err)
	}
	return common.BytesToHash(h), nil
}

// Begin starts a transaction, nothing written through the transaction is visible before Commit.
func (s *Store) Begin() *Txn {
	return &Txn{s: s, writes: make(map[datastore.Key][]byte)}
}

func (s *Store) list(ctx context.Context, prefix datastore.Key, keysOnly bool) ([]query.Entry, error) {
	res, err := s.ds.Query(ctx, query.Query{
		Prefix:   prefix.String(),
		KeysOnly: keysOnly,
		Orders:   []query.Order{query.OrderByKey{}},
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Close() }()
	return res.Rest()
}

func addrKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func validatorKey(validator common.Address) datastore.Key {
	return validatorsPrefix.ChildString(addrKey(validator))
}

func usedKey(id common.Hash) datastore.Key {
	return usedPrefix.ChildString(id.Hex())
}

func rootKey(rootID common.Hash) datastore.Key {
	return rootsPrefix.ChildString(rootID.Hex())
}
