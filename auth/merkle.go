package auth

import (
	"context"
	"fmt"

	"github.com/alphabill-org/claim-settlement/tree/mt"
	"github.com/alphabill-org/claim-settlement/types"
)

/*
Merkle accepts claims included in a batch whose root was committed under the
root slot named by the claim. The leaf hash is keccak256 of the encoded claim.
*/
type Merkle struct {
	domain types.Domain
	roots  RootStore
}

func NewMerkle(domain types.Domain, roots RootStore) *Merkle {
	return &Merkle{domain: domain, roots: roots}
}

func (m *Merkle) Kind() types.Strategy { return types.StrategyMerkle }

func (m *Merkle) Verify(ctx context.Context, claim *types.Claim, encoded []byte, proof Proof) (*Authorization, error) {
	if err := m.domain.Binds(claim); err != nil {
		return nil, err
	}
	root, ok, err := m.roots.Root(ctx, claim.RootID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no root under %s", types.ErrInvalidProof, claim.RootID)
	}
	if !mt.Verify(proof.Path, root, types.LeafHash(encoded)) {
		return nil, fmt.Errorf("%w: claim is not included in root %s", types.ErrInvalidProof, claim.RootID)
	}
	return &Authorization{Strategy: types.StrategyMerkle, Root: root}, nil
}
