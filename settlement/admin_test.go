package settlement

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/claim-settlement/types"
)

func TestAdmin(t *testing.T) {
	ctx := context.Background()
	validator := common.HexToAddress("0x3000000000000000000000000000000000000003")

	t.Run("only admin manages validators", func(t *testing.T) {
		env := newTestEnv(t)
		m := env.module

		require.ErrorIs(t, m.AddValidator(ctx, stranger, validator), types.ErrUnauthorized)
		// validators can't manage the validator set either
		require.ErrorIs(t, m.AddValidator(ctx, env.validators[0].Address(), validator), types.ErrUnauthorized)
		require.ErrorIs(t, m.RemoveValidator(ctx, stranger, env.validators[0].Address()), types.ErrUnauthorized)
		ok, err := m.IsValidator(ctx, validator)
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, m.AddValidator(ctx, admin, validator))
		require.NoError(t, m.AddValidator(ctx, admin, validator))
		ok, err = m.IsValidator(ctx, validator)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, m.RemoveValidator(ctx, admin, validator))
		require.NoError(t, m.RemoveValidator(ctx, admin, validator))
		ok, err = m.IsValidator(ctx, validator)
		require.NoError(t, err)
		require.False(t, ok)

		require.Equal(t, 2, env.logs.FilterMessage(EventValidatorRemoved).Len())
		require.Equal(t, 2.0, testutil.ToFloat64(m.metrics.adminOps.WithLabelValues(opAddValidator, "unauthorized")))
		require.Equal(t, 1.0, testutil.ToFloat64(m.metrics.adminOps.WithLabelValues(opRemoveValidator, "unauthorized")))
	})

	t.Run("task layer pre-checks", func(t *testing.T) {
		env := newTestEnv(t)
		a := env.module.Admin(admin)

		require.NoError(t, a.AddValidator(ctx, validator))
		err := a.AddValidator(ctx, validator)
		require.ErrorIs(t, err, types.ErrAlreadyValidator)
		require.ErrorContains(t, err, "already included in the validator set")

		require.NoError(t, a.RemoveValidator(ctx, validator))
		require.ErrorIs(t, a.RemoveValidator(ctx, validator), types.ErrNotValidator)

		validators, err := a.Validators(ctx)
		require.NoError(t, err)
		require.Len(t, validators, len(env.validators))

		// pre-checks don't bypass the admin gate
		require.ErrorIs(t, env.module.Admin(stranger).AddValidator(ctx, validator), types.ErrUnauthorized)
	})

	t.Run("set root", func(t *testing.T) {
		env := newTestEnv(t)
		m := env.module

		require.ErrorIs(t, m.SetRoot(ctx, stranger, common.Hash{1}, common.Hash{2}), types.ErrUnauthorized)
		require.NoError(t, m.SetRoot(ctx, admin, common.Hash{1}, common.Hash{2}))
		require.NoError(t, m.SetRoot(ctx, env.validators[0].Address(), common.Hash{3}, common.Hash{4}))

		root, ok, err := m.Root(ctx, common.Hash{1})
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, common.Hash{2}, root)
		root, ok, err = m.Root(ctx, common.Hash{3})
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, common.Hash{4}, root)

		logs := env.logs.FilterMessage(EventRootSet).All()
		require.Len(t, logs, 2)
		require.Equal(t, common.Hash{3}.String(), logs[1].ContextMap()["rootId"])
	})

	t.Run("set configuration", func(t *testing.T) {
		env := newTestEnv(t)
		m := env.module

		require.ErrorIs(t, m.SetConfiguration(ctx, env.validators[0].Address(), "cfg"), types.ErrUnauthorized)
		require.NoError(t, env.module.Admin(admin).SetConfiguration(ctx, "cfg"))
		cfg, err := m.Configuration(ctx)
		require.NoError(t, err)
		require.Equal(t, "cfg", cfg)
		require.Equal(t, 1, env.logs.FilterMessage(EventConfigurationSet).Len())
	})

	t.Run("state hash follows mutations", func(t *testing.T) {
		env := newTestEnv(t)
		h1, err := env.module.StateHash(ctx)
		require.NoError(t, err)
		require.NoError(t, env.module.Admin(admin).SetRoot(ctx, common.Hash{1}, common.Hash{2}))
		h2, err := env.module.StateHash(ctx)
		require.NoError(t, err)
		require.NotEqual(t, h1, h2)
	})
}
