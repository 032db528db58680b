package auth

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/alphabill-org/claim-settlement/crypto"
	"github.com/alphabill-org/claim-settlement/types"
)

/*
ConsensusConfig is the stake policy of the consensus strategy. Stakes are
balances of StakeToken read live at verification time.
*/
type ConsensusConfig struct {
	StakeToken common.Address
	// signers holding less contribute zero weight
	MinSignerStake *big.Int
	// sum of contributed weights must reach it
	MinTotalStake *big.Int
	// number of distinct contributing signers must reach it
	MinSigners int
}

// IsValid rejects policies which a claim without signatures would satisfy.
func (c ConsensusConfig) IsValid() error {
	if c.MinSignerStake != nil && c.MinSignerStake.Sign() < 0 {
		return fmt.Errorf("negative minimum signer stake %s", c.MinSignerStake)
	}
	if c.MinTotalStake == nil || c.MinTotalStake.Sign() <= 0 {
		return fmt.Errorf("minimum total stake must be positive, got %s", c.MinTotalStake)
	}
	if c.MinSigners < 1 {
		return fmt.Errorf("minimum signer count must be at least 1, got %d", c.MinSigners)
	}
	return nil
}

// Consensus accepts claims signed by enough staked validators.
type Consensus struct {
	domain     types.Domain
	validators ValidatorSet
	oracle     StakeOracle
	cfg        ConsensusConfig
	recovery   *crypto.RecoveryCache
}

func NewConsensus(domain types.Domain, validators ValidatorSet, oracle StakeOracle, cfg ConsensusConfig, recovery *crypto.RecoveryCache) (*Consensus, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("invalid consensus config: %w", err)
	}
	if oracle == nil {
		return nil, fmt.Errorf("stake oracle is nil")
	}
	return &Consensus{domain: domain, validators: validators, oracle: oracle, cfg: cfg, recovery: recovery}, nil
}

func (c *Consensus) Kind() types.Strategy { return types.StrategyConsensus }

/*
Verify recovers every signer in parallel. Any signer which is not a
validator fails the whole check. Signers with less than MinSignerStake
contribute zero weight, duplicated signatures are counted as many times as
they appear.
*/
func (c *Consensus) Verify(ctx context.Context, claim *types.Claim, _ []byte, proof Proof) (*Authorization, error) {
	if err := c.domain.Binds(claim); err != nil {
		return nil, err
	}
	if len(proof.Signatures) == 0 {
		return nil, fmt.Errorf("%w: no signatures", types.ErrNotBackedByEnoughSigners)
	}
	digest, err := c.domain.Digest(claim)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrMalformedClaim, err)
	}

	signers := make([]common.Address, len(proof.Signatures))
	stakes := make([]*big.Int, len(proof.Signatures))
	g, gctx := errgroup.WithContext(ctx)
	for i, sig := range proof.Signatures {
		g.Go(func() error {
			signer, err := c.recovery.Recover(digest, sig)
			if err != nil {
				return fmt.Errorf("%w: signature %d: %w", types.ErrInvalidSignature, i, err)
			}
			ok, err := c.validators.IsValidator(gctx, signer)
			if err != nil {
				return fmt.Errorf("checking validator %s: %w", signer, err)
			}
			if !ok {
				return fmt.Errorf("%w: signer %s is not a validator", types.ErrNotBackedByEnoughSigners, signer)
			}
			stake, err := c.oracle.BalanceOf(gctx, c.cfg.StakeToken, signer)
			if err != nil {
				return fmt.Errorf("reading stake of %s: %w", signer, err)
			}
			signers[i], stakes[i] = signer, stake
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := new(big.Int)
	contributors := make(map[common.Address]struct{})
	for i, stake := range stakes {
		if stake == nil || stake.Cmp(orZero(c.cfg.MinSignerStake)) < 0 {
			continue
		}
		total.Add(total, stake)
		contributors[signers[i]] = struct{}{}
	}
	if total.Cmp(orZero(c.cfg.MinTotalStake)) < 0 {
		return nil, fmt.Errorf("%w: total stake %s, required %s", types.ErrNotBackedByEnoughSigners, total, orZero(c.cfg.MinTotalStake))
	}
	if len(contributors) < c.cfg.MinSigners {
		return nil, fmt.Errorf("%w: %d staked signers, required %d", types.ErrNotBackedByEnoughSigners, len(contributors), c.cfg.MinSigners)
	}
	return &Authorization{Strategy: types.StrategyConsensus, Signers: signers}, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
