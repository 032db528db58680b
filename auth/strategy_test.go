package auth

import (
	"context"
	"fmt"
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/claim-settlement/crypto"
	"github.com/alphabill-org/claim-settlement/custodian/memvault"
	"github.com/alphabill-org/claim-settlement/state"
	"github.com/alphabill-org/claim-settlement/tree/mt"
	"github.com/alphabill-org/claim-settlement/types"
)

const chainID = 31337

var (
	moduleA    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	moduleB    = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	stakeToken = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	payee      = common.HexToAddress("0x1000000000000000000000000000000000000001")
)

func newClaim(id byte, module common.Address) *types.Claim {
	return &types.Claim{
		ID:           common.Hash{id},
		ChainID:      chainID,
		TargetModule: module,
		State:        types.TimeRange{ValidFrom: 100, ValidTo: 200},
		Caller:       types.DirectAddress{Address: payee},
		Action:       types.ERC20Transfer{Token: stakeToken, Amount: big.NewInt(1000)},
	}
}

func newSigner(t *testing.T) *crypto.Signer {
	t.Helper()
	s, err := crypto.GenerateSigner()
	require.NoError(t, err)
	return s
}

func sign(t *testing.T, domain types.Domain, claim *types.Claim, signers ...*crypto.Signer) [][]byte {
	t.Helper()
	digest, err := domain.Digest(claim)
	require.NoError(t, err)
	sigs := make([][]byte, len(signers))
	for i, s := range signers {
		sigs[i], err = s.SignDigest(digest)
		require.NoError(t, err)
	}
	return sigs
}

func newStore(t *testing.T, validators ...*crypto.Signer) *state.Store {
	t.Helper()
	s := state.New(dssync.MutexWrap(datastore.NewMapDatastore()), moduleA)
	for _, v := range validators {
		require.NoError(t, s.AddValidator(context.Background(), v.Address()))
	}
	return s
}

func TestSigned(t *testing.T) {
	ctx := context.Background()
	domain := types.NewDomain(chainID, moduleA)
	validator, stranger := newSigner(t), newSigner(t)
	strategy := NewSigned(domain, newStore(t, validator), crypto.NewRecoveryCache(0))
	claim := newClaim(1, moduleA)

	t.Run("valid", func(t *testing.T) {
		a, err := strategy.Verify(ctx, claim, nil, Proof{Signatures: sign(t, domain, claim, validator)})
		require.NoError(t, err)
		require.Equal(t, types.StrategySigned, a.Strategy)
		require.Equal(t, []common.Address{validator.Address()}, a.Signers)
	})

	t.Run("ABI encoded signature", func(t *testing.T) {
		sig, err := crypto.EncodeABISignature(sign(t, domain, claim, validator)[0])
		require.NoError(t, err)
		_, err = strategy.Verify(ctx, claim, nil, Proof{Signatures: [][]byte{sig}})
		require.NoError(t, err)
	})

	t.Run("signer is not a validator", func(t *testing.T) {
		_, err := strategy.Verify(ctx, claim, nil, Proof{Signatures: sign(t, domain, claim, stranger)})
		require.ErrorIs(t, err, types.ErrInvalidSignature)
	})

	t.Run("signature count", func(t *testing.T) {
		_, err := strategy.Verify(ctx, claim, nil, Proof{})
		require.ErrorIs(t, err, types.ErrInvalidSignature)
		_, err = strategy.Verify(ctx, claim, nil, Proof{Signatures: sign(t, domain, claim, validator, validator)})
		require.ErrorIs(t, err, types.ErrInvalidSignature)
	})

	t.Run("malformed signature", func(t *testing.T) {
		_, err := strategy.Verify(ctx, claim, nil, Proof{Signatures: [][]byte{{1, 2, 3}}})
		require.ErrorIs(t, err, types.ErrInvalidSignature)
	})

	t.Run("signature over another claim", func(t *testing.T) {
		sigs := sign(t, domain, newClaim(2, moduleA), validator)
		_, err := strategy.Verify(ctx, claim, nil, Proof{Signatures: sigs})
		require.ErrorIs(t, err, types.ErrInvalidSignature)
	})

	t.Run("claim for another module", func(t *testing.T) {
		// validly signed for module B, submitted to module A
		other := newClaim(1, moduleB)
		sigs := sign(t, types.NewDomain(chainID, moduleB), other, validator)
		_, err := strategy.Verify(ctx, other, nil, Proof{Signatures: sigs})
		require.ErrorIs(t, err, types.ErrInvalidModule)

		// claim body retargeted to A, signature still over B's domain
		_, err = strategy.Verify(ctx, claim, nil, Proof{Signatures: sigs})
		require.ErrorIs(t, err, types.ErrInvalidSignature)
	})

	t.Run("claim for another chain", func(t *testing.T) {
		other := newClaim(1, moduleA)
		other.ChainID = 1
		_, err := strategy.Verify(ctx, other, nil, Proof{Signatures: sign(t, domain, other, validator)})
		require.ErrorIs(t, err, types.ErrInvalidModule)
	})
}

func TestConsensus(t *testing.T) {
	ctx := context.Background()
	domain := types.NewDomain(chainID, moduleA)
	cfg := ConsensusConfig{
		StakeToken:     stakeToken,
		MinSignerStake: big.NewInt(300),
		MinTotalStake:  big.NewInt(1000),
		MinSigners:     2,
	}
	claim := newClaim(1, moduleA)

	setup := func(t *testing.T, stakes ...int64) (*Consensus, []*crypto.Signer) {
		vault := memvault.New(common.Address{0xfa})
		validators := make([]*crypto.Signer, len(stakes))
		for i, stake := range stakes {
			validators[i] = newSigner(t)
			vault.MintERC20(stakeToken, validators[i].Address(), big.NewInt(stake))
		}
		c, err := NewConsensus(domain, newStore(t, validators...), vault, cfg, crypto.NewRecoveryCache(0))
		require.NoError(t, err)
		return c, validators
	}

	t.Run("consensus reached", func(t *testing.T) {
		c, v := setup(t, 500, 500)
		a, err := c.Verify(ctx, claim, nil, Proof{Signatures: sign(t, domain, claim, v[0], v[1])})
		require.NoError(t, err)
		require.Equal(t, types.StrategyConsensus, a.Strategy)
		require.Equal(t, []common.Address{v[0].Address(), v[1].Address()}, a.Signers)
	})

	t.Run("not enough signatures", func(t *testing.T) {
		c, v := setup(t, 500, 500)
		_, err := c.Verify(ctx, claim, nil, Proof{Signatures: sign(t, domain, claim, v[0])})
		require.ErrorIs(t, err, types.ErrNotBackedByEnoughSigners)

		_, err = c.Verify(ctx, claim, nil, Proof{})
		require.ErrorIs(t, err, types.ErrNotBackedByEnoughSigners)
	})

	t.Run("validator does not have enough staked", func(t *testing.T) {
		c, v := setup(t, 500, 100)
		_, err := c.Verify(ctx, claim, nil, Proof{Signatures: sign(t, domain, claim, v[0], v[1])})
		require.ErrorIs(t, err, types.ErrNotBackedByEnoughSigners)
	})

	t.Run("understaked signer doesn't break consensus of others", func(t *testing.T) {
		c, v := setup(t, 500, 100, 500)
		_, err := c.Verify(ctx, claim, nil, Proof{Signatures: sign(t, domain, claim, v[0], v[1], v[2])})
		require.NoError(t, err)
	})

	t.Run("signature order doesn't matter", func(t *testing.T) {
		c, v := setup(t, 400, 400, 400, 400, 400)
		for range 5 {
			_, err := c.Verify(ctx, claim, nil, Proof{Signatures: shuffled(sign(t, domain, claim, v...))})
			require.NoError(t, err)
		}
	})

	t.Run("signer is not a validator", func(t *testing.T) {
		c, v := setup(t, 500, 500)
		_, err := c.Verify(ctx, claim, nil, Proof{Signatures: sign(t, domain, claim, v[0], v[1], newSigner(t))})
		require.ErrorIs(t, err, types.ErrNotBackedByEnoughSigners)
	})

	t.Run("duplicated signature", func(t *testing.T) {
		c, v := setup(t, 500, 500)
		// stake is summed per signature but the same signer is counted once
		_, err := c.Verify(ctx, claim, nil, Proof{Signatures: sign(t, domain, claim, v[0], v[0])})
		require.ErrorIs(t, err, types.ErrNotBackedByEnoughSigners)
		require.ErrorContains(t, err, "1 staked signers, required 2")
	})

	t.Run("single signer policy", func(t *testing.T) {
		vault := memvault.New(common.Address{0xfa})
		v := newSigner(t)
		vault.MintERC20(stakeToken, v.Address(), big.NewInt(1000))
		c, err := NewConsensus(domain, newStore(t, v), vault, ConsensusConfig{StakeToken: stakeToken, MinTotalStake: big.NewInt(1000), MinSigners: 1}, nil)
		require.NoError(t, err)
		_, err = c.Verify(ctx, claim, nil, Proof{Signatures: sign(t, domain, claim, v)})
		require.NoError(t, err)
	})

	t.Run("claim for another module", func(t *testing.T) {
		c, v := setup(t, 500, 500)
		other := newClaim(1, moduleB)
		_, err := c.Verify(ctx, other, nil, Proof{Signatures: sign(t, types.NewDomain(chainID, moduleB), other, v[0], v[1])})
		require.ErrorIs(t, err, types.ErrInvalidModule)
	})

	t.Run("invalid config", func(t *testing.T) {
		oracle := memvault.New(common.Address{})
		for _, tc := range []struct {
			cfg    ConsensusConfig
			errMsg string
		}{
			{cfg: ConsensusConfig{}, errMsg: "minimum total stake must be positive, got <nil>"},
			{cfg: ConsensusConfig{MinTotalStake: big.NewInt(0), MinSigners: 1}, errMsg: "minimum total stake must be positive, got 0"},
			{cfg: ConsensusConfig{MinTotalStake: big.NewInt(1)}, errMsg: "minimum signer count must be at least 1, got 0"},
			{cfg: ConsensusConfig{MinTotalStake: big.NewInt(1), MinSigners: -1}, errMsg: "minimum signer count must be at least 1, got -1"},
			{cfg: ConsensusConfig{MinSignerStake: big.NewInt(-1), MinTotalStake: big.NewInt(1), MinSigners: 1}, errMsg: "negative minimum signer stake -1"},
		} {
			_, err := NewConsensus(domain, newStore(t), oracle, tc.cfg, nil)
			require.EqualError(t, err, "invalid consensus config: "+tc.errMsg)
		}
		_, err := NewConsensus(domain, newStore(t), oracle, ConsensusConfig{MinTotalStake: big.NewInt(1), MinSigners: 1}, nil)
		require.NoError(t, err)
		_, err = NewConsensus(domain, newStore(t), nil, cfg, nil)
		require.EqualError(t, err, "stake oracle is nil")
	})
}

func TestMerkle(t *testing.T) {
	ctx := context.Background()
	domain := types.NewDomain(chainID, moduleA)
	rootID, rotatedID := common.Hash{0x01}, common.Hash{0x02}

	batch := func(t *testing.T, rootID common.Hash, n int) ([]*types.Claim, [][]byte, *mt.MerkleTree) {
		claims := make([]*types.Claim, n)
		leaves := make([][]byte, n)
		for i := range n {
			c := newClaim(0, moduleA)
			c.ID = common.BigToHash(big.NewInt(int64(i + 1)))
			c.RootID = rootID
			data, err := c.Encode()
			require.NoError(t, err)
			// verification runs on decoded claims
			claims[i], err = types.DecodeClaim(data)
			require.NoError(t, err)
			leaves[i] = data
		}
		return claims, leaves, mt.New(leaves)
	}

	t.Run("1024 leaves", func(t *testing.T) {
		store := newStore(t)
		strategy := NewMerkle(domain, store)
		claims, leaves, tree := batch(t, rootID, 1024)
		require.NoError(t, store.SetRoot(ctx, rootID, tree.Root()))

		for i := range claims {
			path, err := tree.GetMerklePath(i)
			require.NoError(t, err)
			a, err := strategy.Verify(ctx, claims[i], leaves[i], Proof{Path: path})
			require.NoError(t, err, "leaf %d", i)
			require.Equal(t, tree.Root(), a.Root)
		}

		// wrong proof
		path, err := tree.GetMerklePath(1)
		require.NoError(t, err)
		_, err = strategy.Verify(ctx, claims[0], leaves[0], Proof{Path: path})
		require.ErrorIs(t, err, types.ErrInvalidProof)
	})

	t.Run("rotated root", func(t *testing.T) {
		store := newStore(t)
		strategy := NewMerkle(domain, store)
		claims, leaves, tree := batch(t, rootID, 8)
		_, rotatedLeaves, rotatedTree := batch(t, rotatedID, 8)
		require.NoError(t, store.SetRoot(ctx, rootID, tree.Root()))
		require.NoError(t, store.SetRoot(ctx, rotatedID, rotatedTree.Root()))

		// older batch is still redeemable after rotation
		path, err := tree.GetMerklePath(3)
		require.NoError(t, err)
		_, err = strategy.Verify(ctx, claims[3], leaves[3], Proof{Path: path})
		require.NoError(t, err)

		// proof recomputed against the rotated root doesn't verify the claim of the old slot
		rotatedPath, err := rotatedTree.GetMerklePath(3)
		require.NoError(t, err)
		_, err = strategy.Verify(ctx, claims[3], leaves[3], Proof{Path: rotatedPath})
		require.ErrorIs(t, err, types.ErrInvalidProof)

		// claims of the rotated batch verify against the rotated slot
		rotatedClaim, err := types.DecodeClaim(rotatedLeaves[3])
		require.NoError(t, err)
		_, err = strategy.Verify(ctx, rotatedClaim, rotatedLeaves[3], Proof{Path: rotatedPath})
		require.NoError(t, err)
	})

	t.Run("single leaf", func(t *testing.T) {
		store := newStore(t)
		strategy := NewMerkle(domain, store)
		claims, leaves, tree := batch(t, rootID, 1)
		require.Equal(t, types.LeafHash(leaves[0]), tree.Root())
		require.NoError(t, store.SetRoot(ctx, rootID, tree.Root()))

		_, err := strategy.Verify(ctx, claims[0], leaves[0], Proof{})
		require.NoError(t, err)
	})

	t.Run("no root", func(t *testing.T) {
		strategy := NewMerkle(domain, newStore(t))
		claims, leaves, _ := batch(t, rootID, 1)
		_, err := strategy.Verify(ctx, claims[0], leaves[0], Proof{})
		require.ErrorIs(t, err, types.ErrInvalidProof)
		require.ErrorContains(t, err, fmt.Sprintf("no root under %s", rootID))
	})

	t.Run("claim for another module", func(t *testing.T) {
		store := newStore(t)
		strategy := NewMerkle(domain, store)
		c := newClaim(1, moduleB)
		data, err := c.Encode()
		require.NoError(t, err)
		require.NoError(t, store.SetRoot(ctx, c.RootID, types.LeafHash(data)))
		_, err = strategy.Verify(ctx, c, data, Proof{})
		require.ErrorIs(t, err, types.ErrInvalidModule)
	})
}

// shuffled returns the elements of src in random order, src is not modified.
func shuffled[T any](src []T) []T {
	dst := append([]T(nil), src...)
	rand.Shuffle(len(dst), func(i, j int) { dst[i], dst[j] = dst[j], dst[i] })
	return dst
}
