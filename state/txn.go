package state

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-datastore"

	"github.com/alphabill-org/claim-settlement/types"
)

/*
Txn stages the writes of one redemption. Reads see the staged writes on top
of the committed state. Commit writes everything in one datastore batch,
Discard drops the staged writes.

Txn is not safe for concurrent use, callers serialize transactions.
*/
type Txn struct {
	s      *Store
	writes map[datastore.Key][]byte
	done   bool
}

func (t *Txn) IsUsed(ctx context.Context, id common.Hash) (bool, error) {
	if _, ok := t.writes[usedKey(id)]; ok {
		return true, nil
	}
	return t.s.IsUsed(ctx, id)
}

// MarkUsed stages id as used, ErrAlreadyClaimed when the id is already used.
func (t *Txn) MarkUsed(ctx context.Context, id common.Hash) error {
	if t.done {
		return fmt.Errorf("transaction already closed")
	}
	used, err := t.IsUsed(ctx, id)
	if err != nil {
		return fmt.Errorf("reading claim %s status: %w", id, err)
	}
	if used {
		return fmt.Errorf("%w: %s", types.ErrAlreadyClaimed, id)
	}
	t.writes[usedKey(id)] = present
	return nil
}

func (t *Txn) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already closed")
	}
	t.done = true
	if len(t.writes) == 0 {
		return nil
	}
	b, err := t.s.ds.Batch(ctx)
	if err != nil {
		return fmt.Errorf("creating batch: %w", err)
	}
	// deterministic write order
	keys := slices.SortedFunc(maps.Keys(t.writes), func(a, b datastore.Key) int {
		return strings.Compare(a.String(), b.String())
	})
	for _, k := range keys {
		if err := b.Put(ctx, k, t.writes[k]); err != nil {
			return fmt.Errorf("staging %s: %w", k, err)
		}
	}
	if err := b.Commit(ctx); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

func (t *Txn) Discard() {
	t.done = true
	clear(t.writes)
}
