package types

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphabill-org/claim-settlement/hash"
)

/*
Claim is a signable assertion authorizing one specific transfer under stated
conditions. Claims are constructed off-line and are immutable once encoded.
*/
type Claim struct {
	ID           common.Hash
	ChainID      uint64
	TargetModule common.Address
	// RootID names the Merkle root slot the claim was committed under,
	// zero for claims redeemed with signatures.
	RootID common.Hash
	State  StateCheck
	Caller CallerCheck
	Action Action

	// type hash as it was in the wire encoding, nil for claims built in code
	typeHash *common.Hash
}

// claimArgs is the wire layout of an encoded claim.
var claimArgs = arguments(
	abiBytes32, // claim type hash
	abiBytes32, // id
	abiUint256, // chain id
	abiAddress, // target module
	abiBytes32, // root id
	abiBytes32, abiBytes, // state check
	abiBytes32, abiBytes, // caller check
	abiBytes32, abiBytes, // action
)

// claimStructArgs is the EIP-712 encodeData layout of the Claim struct.
var claimStructArgs = arguments(abiBytes32, abiBytes32, abiBytes32, abiBytes32, abiBytes32)

func (c *Claim) IsValid() error {
	if c == nil {
		return errors.New("claim is nil")
	}
	if c.State == nil {
		return errors.New("state check is nil")
	}
	if c.Caller == nil {
		return errors.New("caller check is nil")
	}
	if c.Action == nil {
		return errors.New("action is nil")
	}
	return nil
}

/*
TypeString returns the claim's own type string followed by the lexicographically
sorted type strings of the state check, the caller check and the action.
*/
func (c *Claim) TypeString() (string, error) {
	if err := c.IsValid(); err != nil {
		return "", err
	}
	subTypes := []Struct{c.State, c.Caller, c.Action}
	for _, s := range subTypes {
		if s.TypeName() == "" {
			return "", fmt.Errorf("type string of unknown sub-structure %s", s.TypeHash())
		}
	}
	own := fmt.Sprintf("Claim(bytes32 id,%s state,%s caller,%s action)", c.State.TypeName(), c.Caller.TypeName(), c.Action.TypeName())
	sorted := []string{c.State.TypeString(), c.Caller.TypeString(), c.Action.TypeString()}
	slices.Sort(sorted)
	return own + strings.Join(sorted, ""), nil
}

// TypeHash returns the type hash the claim was decoded with or calculates it from the type string.
func (c *Claim) TypeHash() (common.Hash, error) {
	if c.typeHash != nil {
		return *c.typeHash, nil
	}
	ts, err := c.TypeString()
	if err != nil {
		return common.Hash{}, err
	}
	return typeHashOf(ts), nil
}

/*
SetTypeHash sets the claim type hash explicitly. Claims carrying variants
unknown to this version of the module can't derive their type string.
*/
func (c *Claim) SetTypeHash(h common.Hash) {
	c.typeHash = &h
}

// StructHash returns keccak256(typeHash || id || hash(state) || hash(caller) || hash(action)).
func (c *Claim) StructHash() (common.Hash, error) {
	if err := c.IsValid(); err != nil {
		return common.Hash{}, err
	}
	th, err := c.TypeHash()
	if err != nil {
		return common.Hash{}, err
	}
	sh, err := StructHash(c.State)
	if err != nil {
		return common.Hash{}, fmt.Errorf("hashing state check: %w", err)
	}
	ch, err := StructHash(c.Caller)
	if err != nil {
		return common.Hash{}, fmt.Errorf("hashing caller check: %w", err)
	}
	ah, err := StructHash(c.Action)
	if err != nil {
		return common.Hash{}, fmt.Errorf("hashing action: %w", err)
	}
	data, err := claimStructArgs.Pack([32]byte(th), [32]byte(c.ID), [32]byte(sh), [32]byte(ch), [32]byte(ah))
	if err != nil {
		return common.Hash{}, err
	}
	return hash.Keccak256(data), nil
}

// Encode returns the canonical wire encoding of the claim.
func (c *Claim) Encode() ([]byte, error) {
	th, err := c.TypeHash()
	if err != nil {
		return nil, err
	}
	stateData, err := c.State.EncodeData()
	if err != nil {
		return nil, fmt.Errorf("encoding state check: %w", err)
	}
	callerData, err := c.Caller.EncodeData()
	if err != nil {
		return nil, fmt.Errorf("encoding caller check: %w", err)
	}
	actionData, err := c.Action.EncodeData()
	if err != nil {
		return nil, fmt.Errorf("encoding action: %w", err)
	}
	return claimArgs.Pack(
		[32]byte(th),
		[32]byte(c.ID),
		u256(c.ChainID),
		c.TargetModule,
		[32]byte(c.RootID),
		[32]byte(c.State.TypeHash()), stateData,
		[32]byte(c.Caller.TypeHash()), callerData,
		[32]byte(c.Action.TypeHash()), actionData,
	)
}

/*
DecodeClaim parses the wire encoding of a claim. Sub-structures with unknown
type hashes are decoded as UnknownState, UnknownCaller or UnknownAction.
*/
func DecodeClaim(data []byte) (*Claim, error) {
	v, err := unpack(claimArgs, data)
	if err != nil {
		return nil, err
	}
	chainID := v[2].(*big.Int)
	if !chainID.IsUint64() {
		return nil, fmt.Errorf("%w: chain id %s out of range", ErrMalformedClaim, chainID)
	}
	th := asHash(v[0])
	c := &Claim{
		ID:           asHash(v[1]),
		ChainID:      chainID.Uint64(),
		TargetModule: v[3].(common.Address),
		RootID:       asHash(v[4]),
		typeHash:     &th,
	}
	if c.State, err = decodeStateCheck(asHash(v[5]), v[6].([]byte)); err != nil {
		return nil, err
	}
	if c.Caller, err = decodeCallerCheck(asHash(v[7]), v[8].([]byte)); err != nil {
		return nil, err
	}
	if c.Action, err = decodeAction(asHash(v[9]), v[10].([]byte)); err != nil {
		return nil, err
	}
	return c, nil
}

// LeafHash returns the Merkle tree leaf hash of the encoded claim.
func LeafHash(encodedClaim []byte) common.Hash {
	return hash.Keccak256(encodedClaim)
}
