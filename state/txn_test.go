package state

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/claim-settlement/types"
)

func TestTxn(t *testing.T) {
	ctx := context.Background()
	id := common.Hash{0x42}

	t.Run("writes are invisible before commit", func(t *testing.T) {
		s, _ := newStore(t)
		txn := s.Begin()
		require.NoError(t, txn.MarkUsed(ctx, id))

		used, err := txn.IsUsed(ctx, id)
		require.NoError(t, err)
		require.True(t, used)

		used, err = s.IsUsed(ctx, id)
		require.NoError(t, err)
		require.False(t, used)

		require.NoError(t, txn.Commit(ctx))
		used, err = s.IsUsed(ctx, id)
		require.NoError(t, err)
		require.True(t, used)
	})

	t.Run("discard drops writes", func(t *testing.T) {
		s, _ := newStore(t)
		txn := s.Begin()
		require.NoError(t, txn.MarkUsed(ctx, id))
		txn.Discard()

		used, err := s.IsUsed(ctx, id)
		require.NoError(t, err)
		require.False(t, used)
		require.EqualError(t, txn.Commit(ctx), "transaction already closed")
	})

	t.Run("already claimed", func(t *testing.T) {
		s, _ := newStore(t)
		txn := s.Begin()
		require.NoError(t, txn.MarkUsed(ctx, id))
		require.ErrorIs(t, txn.MarkUsed(ctx, id), types.ErrAlreadyClaimed)
		require.NoError(t, txn.Commit(ctx))

		txn = s.Begin()
		require.ErrorIs(t, txn.MarkUsed(ctx, id), types.ErrAlreadyClaimed)
		require.NoError(t, txn.MarkUsed(ctx, common.Hash{0x43}))
		require.NoError(t, txn.Commit(ctx))
	})

	t.Run("empty commit", func(t *testing.T) {
		s, _ := newStore(t)
		require.NoError(t, s.Begin().Commit(ctx))
	})
}
