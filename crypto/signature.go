package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	// SignatureLength is the length of r || s || v signature.
	SignatureLength = ethcrypto.SignatureLength
	// abiSignatureLength is the length of ABI encoded (uint8 v, bytes32 r, bytes32 s) tuple.
	abiSignatureLength = 3 * 32
)

var (
	ErrSignatureLength = errors.New("invalid signature length")
	ErrSignatureValues = errors.New("invalid signature values")
)

/*
ParseSignature normalizes signature into 65 byte r || s || v form where v is
the recovery id (0 or 1). Accepted inputs are the 65 byte form (v may be 0/1
or 27/28) and the ABI encoded (uint8 v, bytes32 r, bytes32 s) tuple.
*/
func ParseSignature(sig []byte) ([]byte, error) {
	var r, s []byte
	var v byte
	switch len(sig) {
	case SignatureLength:
		r, s, v = sig[:32], sig[32:64], sig[64]
	case abiSignatureLength:
		vWord := new(big.Int).SetBytes(sig[:32])
		if !vWord.IsUint64() || vWord.Uint64() > 0xff {
			return nil, fmt.Errorf("%w: v out of range", ErrSignatureValues)
		}
		v, r, s = byte(vWord.Uint64()), sig[32:64], sig[64:96]
	default:
		return nil, fmt.Errorf("%w: %d bytes", ErrSignatureLength, len(sig))
	}
	if v >= 27 {
		v -= 27
	}
	if !ethcrypto.ValidateSignatureValues(v, new(big.Int).SetBytes(r), new(big.Int).SetBytes(s), true) {
		return nil, ErrSignatureValues
	}
	out := make([]byte, SignatureLength)
	copy(out, r)
	copy(out[32:], s)
	out[64] = v
	return out, nil
}

// Recover returns the address of the key which produced the signature over the digest.
func Recover(digest common.Hash, sig []byte) (common.Address, error) {
	norm, err := ParseSignature(sig)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := ethcrypto.SigToPub(digest[:], norm)
	if err != nil {
		return common.Address{}, fmt.Errorf("recovering public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// EncodeABISignature returns the signature as ABI encoded (uint8 v, bytes32 r, bytes32 s) tuple.
func EncodeABISignature(sig []byte) ([]byte, error) {
	norm, err := ParseSignature(sig)
	if err != nil {
		return nil, err
	}
	out := make([]byte, abiSignatureLength)
	out[31] = norm[64] + 27
	copy(out[32:64], norm[:32])
	copy(out[64:], norm[32:64])
	return out, nil
}

// Signer signs digests with secp256k1 key.
type Signer struct {
	key *ecdsa.PrivateKey
}

func NewSigner(key *ecdsa.PrivateKey) (*Signer, error) {
	if key == nil {
		return nil, errors.New("private key is nil")
	}
	return &Signer{key: key}, nil
}

// NewSignerFromHex creates signer from hex encoded private key (0x prefix is optional).
func NewSignerFromHex(hexKey string) (*Signer, error) {
	if len(hexKey) > 1 && hexKey[0] == '0' && (hexKey[1] == 'x' || hexKey[1] == 'X') {
		hexKey = hexKey[2:]
	}
	key, err := ethcrypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return NewSigner(key)
}

func GenerateSigner() (*Signer, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return NewSigner(key)
}

func (s *Signer) Address() common.Address {
	return ethcrypto.PubkeyToAddress(s.key.PublicKey)
}

// SignDigest returns 65 byte r || s || v signature with v in {27, 28}.
func (s *Signer) SignDigest(digest common.Hash) ([]byte, error) {
	sig, err := ethcrypto.Sign(digest[:], s.key)
	if err != nil {
		return nil, fmt.Errorf("signing digest: %w", err)
	}
	sig[64] += 27
	return sig, nil
}
