package settlement

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/alphabill-org/claim-settlement/auth"
	"github.com/alphabill-org/claim-settlement/types"
)

var errConsensusDisabled = errors.New("consensus strategy is not enabled")

// SignedExecute redeems the claim authorized by a single validator signature.
func (m *Module) SignedExecute(ctx context.Context, caller common.Address, signature, encodedClaim, extra []byte) error {
	return m.redeem(ctx, m.signed, types.StrategySigned, caller, encodedClaim, auth.Proof{Signatures: [][]byte{signature}}, extra)
}

// ConsensusExecute redeems the claim authorized by signatures of enough staked validators.
func (m *Module) ConsensusExecute(ctx context.Context, caller common.Address, signatures [][]byte, encodedClaim, extra []byte) error {
	return m.redeem(ctx, m.consensus, types.StrategyConsensus, caller, encodedClaim, auth.Proof{Signatures: signatures}, extra)
}

// MerkleExecute redeems the claim included in a batch committed with SetRoot.
func (m *Module) MerkleExecute(ctx context.Context, caller common.Address, encodedClaim []byte, proof []common.Hash, extra []byte) error {
	return m.redeem(ctx, m.merkle, types.StrategyMerkle, caller, encodedClaim, auth.Proof{Path: proof}, extra)
}

// Redeem submits the redemption bundle through the entry point of its strategy.
func (m *Module) Redeem(ctx context.Context, caller common.Address, r *types.Redemption) error {
	if err := r.IsValid(); err != nil {
		return fmt.Errorf("invalid redemption: %w", err)
	}
	switch r.Strategy {
	case types.StrategySigned:
		return m.SignedExecute(ctx, caller, r.Signatures[0], r.Claim, r.Extra)
	case types.StrategyConsensus:
		return m.ConsensusExecute(ctx, caller, r.Signatures, r.Claim, r.Extra)
	default:
		return m.MerkleExecute(ctx, caller, r.Claim, r.Proof, r.Extra)
	}
}

/*
redeem runs verify, guard, check and dispatch. Used claim id is written only
when the dispatch succeeded, any failure leaves the state untouched.

The custodian may call back into the module with the context it was given:
redeeming the claim being dispatched fails with ErrAlreadyClaimed, any other
call fails with ErrReentrantCall.
*/
func (m *Module) redeem(ctx context.Context, strategy auth.Strategy, kind types.Strategy, caller common.Address, encodedClaim []byte, proof auth.Proof, extra []byte) (err error) {
	var claimID common.Hash
	defer func() {
		m.metrics.redemption(kind, err)
		if err != nil {
			m.emit(EventClaimRejected, zap.String("strategy", string(kind)), zap.Stringer("claim", claimID), zap.Stringer("caller", caller), zap.Error(err))
		}
	}()

	if strategy == nil {
		return errConsensusDisabled
	}
	claim, err := types.DecodeClaim(encodedClaim)
	if err != nil {
		return err
	}
	claimID = claim.ID

	if err := m.enter(ctx, claim.ID); err != nil {
		return err
	}
	defer m.leave(claim.ID)

	m.mu.Lock()
	defer m.mu.Unlock()

	authz, err := strategy.Verify(ctx, claim, encodedClaim, proof)
	if err != nil {
		return err
	}

	txn := m.store.Begin()
	defer txn.Discard()
	if err := txn.MarkUsed(ctx, claim.ID); err != nil {
		return err
	}
	if err := m.checker.Check(ctx, claim, caller); err != nil {
		return err
	}
	if err := m.dispatcher.Dispatch(withDispatching(ctx, m), claim.Action, caller, extra); err != nil {
		return err
	}
	if err := txn.Commit(ctx); err != nil {
		// the custodian has executed the action, the store is out of sync with it
		m.log.Error("recording used claim failed after dispatch", zap.Stringer("claim", claim.ID), zap.Error(err))
		return fmt.Errorf("recording claim %s as used: %w", claim.ID, err)
	}

	fields := []zap.Field{zap.String("strategy", string(kind)), zap.Stringer("claim", claim.ID), zap.Stringer("caller", caller)}
	if len(authz.Signers) > 0 {
		fields = append(fields, zap.Stringers("signers", authz.Signers))
	}
	if kind == types.StrategyMerkle {
		fields = append(fields, zap.Stringer("rootId", claim.RootID))
	}
	m.emit(EventClaimRedeemed, fields...)
	return nil
}

// enter registers claim id as in flight, it doesn't block.
func (m *Module) enter(ctx context.Context, id common.Hash) error {
	m.inflightMu.Lock()
	defer m.inflightMu.Unlock()
	if _, ok := m.inflight[id]; ok {
		return fmt.Errorf("%w: claim %s is being redeemed", types.ErrAlreadyClaimed, id)
	}
	if m.isDispatching(ctx) {
		return fmt.Errorf("%w: redeeming claim %s during dispatch", types.ErrReentrantCall, id)
	}
	m.inflight[id] = struct{}{}
	return nil
}

func (m *Module) leave(id common.Hash) {
	m.inflightMu.Lock()
	defer m.inflightMu.Unlock()
	delete(m.inflight, id)
}

// dispatchingKey is the context key of the modules which have a custodian call in progress.
type dispatchingKey struct{}

func withDispatching(ctx context.Context, m *Module) context.Context {
	outer, _ := ctx.Value(dispatchingKey{}).([]*Module)
	return context.WithValue(ctx, dispatchingKey{}, append(slices.Clip(outer), m))
}

func (m *Module) isDispatching(ctx context.Context) bool {
	outer, _ := ctx.Value(dispatchingKey{}).([]*Module)
	return slices.Contains(outer, m)
}

func (m *Module) notDispatching(ctx context.Context, op string) error {
	if m.isDispatching(ctx) {
		return fmt.Errorf("%w: %s during dispatch", types.ErrReentrantCall, op)
	}
	return nil
}
