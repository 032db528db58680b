package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphabill-org/claim-settlement/hash"
)

const (
	DefaultDomainName    = "ClaimSettlementModule"
	DefaultDomainVersion = "1"

	domainTypeString = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"
)

var (
	domainTypeHash = typeHashOf(domainTypeString)
	domainArgs     = arguments(abiBytes32, abiBytes32, abiBytes32, abiUint256, abiAddress)
)

/*
Domain binds signatures to one protocol version, one chain and one module
instance so that a signature over a claim can't be replayed elsewhere.
*/
type Domain struct {
	Name            string
	Version         string
	ChainID         uint64
	VerifyingModule common.Address
}

// NewDomain returns domain with the default protocol name and version.
func NewDomain(chainID uint64, module common.Address) Domain {
	return Domain{
		Name:            DefaultDomainName,
		Version:         DefaultDomainVersion,
		ChainID:         chainID,
		VerifyingModule: module,
	}
}

func (d Domain) Separator() common.Hash {
	data, err := domainArgs.Pack(
		[32]byte(domainTypeHash),
		[32]byte(hash.Keccak256([]byte(d.Name))),
		[32]byte(hash.Keccak256([]byte(d.Version))),
		u256(d.ChainID),
		d.VerifyingModule,
	)
	if err != nil {
		// all arguments are static and of correct type
		panic(fmt.Errorf("encoding domain separator: %w", err))
	}
	return hash.Keccak256(data)
}

// Digest returns the message hash signed by validators: keccak256(0x1901 || separator || structHash(claim)).
func (d Domain) Digest(c *Claim) (common.Hash, error) {
	sh, err := c.StructHash()
	if err != nil {
		return common.Hash{}, err
	}
	sep := d.Separator()
	return hash.Keccak256([]byte{0x19, 0x01}, sep[:], sh[:]), nil
}

// Binds returns ErrInvalidModule unless the claim targets this domain's chain and module.
func (d Domain) Binds(c *Claim) error {
	if c.ChainID != d.ChainID {
		return fmt.Errorf("%w: claim is for chain %d, module runs on chain %d", ErrInvalidModule, c.ChainID, d.ChainID)
	}
	if c.TargetModule != d.VerifyingModule {
		return fmt.Errorf("%w: claim targets %s, expected %s", ErrInvalidModule, c.TargetModule, d.VerifyingModule)
	}
	return nil
}
