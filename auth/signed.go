package auth

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphabill-org/claim-settlement/crypto"
	"github.com/alphabill-org/claim-settlement/types"
)

// Signed accepts claims signed by a single registered validator.
type Signed struct {
	domain     types.Domain
	validators ValidatorSet
	recovery   *crypto.RecoveryCache
}

// NewSigned returns the single signature strategy. The recovery cache may be nil.
func NewSigned(domain types.Domain, validators ValidatorSet, recovery *crypto.RecoveryCache) *Signed {
	return &Signed{domain: domain, validators: validators, recovery: recovery}
}

func (s *Signed) Kind() types.Strategy { return types.StrategySigned }

func (s *Signed) Verify(ctx context.Context, claim *types.Claim, _ []byte, proof Proof) (*Authorization, error) {
	if err := s.domain.Binds(claim); err != nil {
		return nil, err
	}
	if len(proof.Signatures) != 1 {
		return nil, fmt.Errorf("%w: expected one signature, got %d", types.ErrInvalidSignature, len(proof.Signatures))
	}
	digest, err := s.domain.Digest(claim)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrMalformedClaim, err)
	}
	signer, err := s.recovery.Recover(digest, proof.Signatures[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidSignature, err)
	}
	ok, err := s.validators.IsValidator(ctx, signer)
	if err != nil {
		return nil, fmt.Errorf("checking validator %s: %w", signer, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: signer %s is not a validator", types.ErrInvalidSignature, signer)
	}
	return &Authorization{Strategy: types.StrategySigned, Signers: []common.Address{signer}}, nil
}
