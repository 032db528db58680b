package hash

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Keccak256 returns the legacy Keccak-256 digest of the concatenated data.
func Keccak256(data ...[]byte) common.Hash {
	return crypto.Keccak256Hash(data...)
}

/*
SortedPair hashes the two node hashes in ascending byte order, so the result
does not depend on whether the sibling was on the left or on the right.
*/
func SortedPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return Keccak256(a[:], b[:])
}
