package types

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphabill-org/claim-settlement/cbor"
)

type (
	Strategy string

	/*
	Redemption is the portable bundle of everything needed to submit a claim:
	the encoded claim, the authorization proof and the extra params.
	*/
	Redemption struct {
		_          struct{}      `cbor:",toarray"`
		Version    Version       `json:"version"`
		Strategy   Strategy      `json:"strategy"`
		Claim      []byte        `json:"claim"`
		Signatures [][]byte      `json:"signatures"` // one for "signed", many for "consensus"
		Proof      []common.Hash `json:"proof"`      // Merkle proof for "merkle"
		Extra      []byte        `json:"extra"`
	}
)

const (
	StrategySigned    Strategy = "signed"
	StrategyConsensus Strategy = "consensus"
	StrategyMerkle    Strategy = "merkle"
)

func (s Strategy) IsValid() error {
	switch s {
	case StrategySigned, StrategyConsensus, StrategyMerkle:
		return nil
	}
	return errors.New("unknown strategy " + string(s))
}

func (r *Redemption) IsValid() error {
	if r == nil {
		return errors.New("redemption is nil")
	}
	if err := r.Strategy.IsValid(); err != nil {
		return err
	}
	if len(r.Claim) == 0 {
		return errors.New("claim is empty")
	}
	switch r.Strategy {
	case StrategySigned:
		if len(r.Signatures) != 1 {
			return errors.New("signed redemption must have exactly one signature")
		}
	case StrategyConsensus:
		if len(r.Signatures) == 0 {
			return errors.New("consensus redemption has no signatures")
		}
	}
	return nil
}

func (r *Redemption) GetVersion() Version {
	if r != nil && r.Version > 0 {
		return r.Version
	}
	return 1
}

func (r *Redemption) MarshalCBOR() ([]byte, error) {
	type alias Redemption
	if r.Version == 0 {
		r.Version = r.GetVersion()
	}
	return cbor.MarshalTaggedValue(RedemptionTag, (*alias)(r))
}

func (r *Redemption) UnmarshalCBOR(data []byte) error {
	type alias Redemption
	if err := cbor.UnmarshalTaggedValue(RedemptionTag, data, (*alias)(r)); err != nil {
		return err
	}
	return EnsureVersion(r, r.Version, 1)
}
