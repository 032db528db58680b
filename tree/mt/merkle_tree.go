/*
Package mt implements binary Merkle tree with keccak256 sorted-pair node
hashing. Because the children of a node are ordered by value before hashing,
a proof is a plain list of sibling hashes without direction bits. A node
without sibling is promoted to the next layer as is.
*/
package mt

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphabill-org/claim-settlement/hash"
)

var (
	ErrIndexOutOfBounds = errors.New("merkle tree data index out of bounds")
	ErrLeafNotFound     = errors.New("leaf not found")
)

type MerkleTree struct {
	// layers[0] are leaf hashes, last layer holds the root
	layers     [][]common.Hash
	dataLength int
}

// New hashes each leaf with keccak256 and builds the tree from the leaf hashes.
func New(leaves [][]byte) *MerkleTree {
	hashes := make([]common.Hash, len(leaves))
	for i, l := range leaves {
		hashes[i] = hash.Keccak256(l)
	}
	return NewFromHashes(hashes)
}

// NewFromHashes builds the tree from already hashed leaves.
func NewFromHashes(leafHashes []common.Hash) *MerkleTree {
	mt := &MerkleTree{dataLength: len(leafHashes)}
	if len(leafHashes) == 0 {
		return mt
	}
	layer := make([]common.Hash, len(leafHashes))
	copy(layer, leafHashes)
	mt.layers = append(mt.layers, layer)
	for len(layer) > 1 {
		next := make([]common.Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 < len(layer) {
				next = append(next, hash.SortedPair(layer[i], layer[i+1]))
			} else {
				next = append(next, layer[i])
			}
		}
		mt.layers = append(mt.layers, next)
		layer = next
	}
	return mt
}

// GetRootHash returns the root hash of the Merkle tree, nil when the tree is empty.
func (s *MerkleTree) GetRootHash() []byte {
	if len(s.layers) == 0 {
		return nil
	}
	root := s.layers[len(s.layers)-1][0]
	return root.Bytes()
}

// Root returns the root hash, zero hash when the tree is empty.
func (s *MerkleTree) Root() common.Hash {
	return common.BytesToHash(s.GetRootHash())
}

// Len returns the number of leaves.
func (s *MerkleTree) Len() int {
	return s.dataLength
}

/*
GetMerklePath extracts the proof of the leaf at index idx. Proof of single
leaf tree is empty (nil).
*/
func (s *MerkleTree) GetMerklePath(idx int) ([]common.Hash, error) {
	if idx < 0 || idx >= s.dataLength {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfBounds, idx)
	}
	var path []common.Hash
	for _, layer := range s.layers[:len(s.layers)-1] {
		if sibling := idx ^ 1; sibling < len(layer) {
			path = append(path, layer[sibling])
		}
		idx /= 2
	}
	return path, nil
}

// GetProof returns the proof of the first leaf whose hash equals keccak256(leaf).
func (s *MerkleTree) GetProof(leaf []byte) ([]common.Hash, error) {
	if s.dataLength == 0 {
		return nil, ErrLeafNotFound
	}
	lh := hash.Keccak256(leaf)
	for i, h := range s.layers[0] {
		if h == lh {
			return s.GetMerklePath(i)
		}
	}
	return nil, ErrLeafNotFound
}

// PlainTreeOutput calculates the root hash implied by the leaf hash and the proof.
func PlainTreeOutput(proof []common.Hash, leafHash common.Hash) common.Hash {
	h := leafHash
	for _, sibling := range proof {
		h = hash.SortedPair(h, sibling)
	}
	return h
}

// Verify returns true iff the proof links the leaf hash to the root.
func Verify(proof []common.Hash, root, leafHash common.Hash) bool {
	return PlainTreeOutput(proof, leafHash) == root
}
