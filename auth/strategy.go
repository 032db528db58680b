/*
Package auth implements the authorization strategies of claims: a single
validator signature, stake weighted validator consensus and inclusion in a
validator committed Merkle batch.
*/
package auth

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphabill-org/claim-settlement/types"
)

/*
Strategy verifies that a claim is authorized. The claim must have been
decoded from encoded, strategies working on the raw encoding (Merkle leaves)
use encoded while signature based strategies use the typed hash of claim.
*/
type Strategy interface {
	Kind() types.Strategy
	Verify(ctx context.Context, claim *types.Claim, encoded []byte, proof Proof) (*Authorization, error)
}

// Proof is the strategy specific authorization evidence supplied by the submitter.
type Proof struct {
	Signatures [][]byte
	Path       []common.Hash
}

// Authorization describes on what grounds a claim was accepted.
type Authorization struct {
	Strategy types.Strategy
	// Signers are the recovered validators, in the order of signatures.
	Signers []common.Address
	// Root is the Merkle root the claim was proven against.
	Root common.Hash
}

type ValidatorSet interface {
	IsValidator(ctx context.Context, validator common.Address) (bool, error)
}

type RootStore interface {
	Root(ctx context.Context, rootID common.Hash) (common.Hash, bool, error)
}

// StakeOracle returns the live token balance of a holder.
type StakeOracle interface {
	BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error)
}
