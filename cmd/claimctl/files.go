package main

import (
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v3"

	"github.com/alphabill-org/claim-settlement/types"
	"github.com/alphabill-org/claim-settlement/util"
)

type (
	/*
	claimDoc is the YAML form of a claim. Chain id and module default to the
	configured ones, exactly one caller check and one action must be set.

		id: 0x0000000000000000000000000000000000000000000000000000000000000001
		state: {validFrom: 1700000000, validTo: 1800000000}
		caller: {address: 0x1000000000000000000000000000000000000001}
		action:
		  erc20: {token: 0x00000000000000000000000000000000000000cc, amount: 10}
	*/
	claimDoc struct {
		ID      common.Hash     `yaml:"id"`
		ChainID uint64          `yaml:"chainId"`
		Module  *common.Address `yaml:"module"`
		RootID  common.Hash     `yaml:"rootId"`
		State   stateDoc        `yaml:"state"`
		Caller  callerDoc       `yaml:"caller"`
		Action  actionDoc       `yaml:"action"`
	}

	// stateDoc is either a time range or "always: true".
	stateDoc struct {
		Always    bool   `yaml:"always"`
		ValidFrom uint64 `yaml:"validFrom"`
		ValidTo   uint64 `yaml:"validTo"`
	}

	callerDoc struct {
		Any        bool            `yaml:"any"`
		Address    *common.Address `yaml:"address"`
		NFT        *nftDoc         `yaml:"nft"`
		Registered *registeredDoc  `yaml:"registered"`
	}

	nftDoc struct {
		Collection common.Address  `yaml:"collection"`
		TokenID    *big.Int        `yaml:"tokenId"`
		Recipient  *common.Address `yaml:"recipient"`
	}

	registeredDoc struct {
		Registry common.Address `yaml:"registry"`
		Account  common.Address `yaml:"account"`
	}

	actionDoc struct {
		Native *transferDoc `yaml:"native"`
		ERC20  *transferDoc `yaml:"erc20"`
		NFT    *nftDoc      `yaml:"nft"`
	}

	transferDoc struct {
		Token     common.Address  `yaml:"token"`
		Amount    *big.Int        `yaml:"amount"`
		Recipient *common.Address `yaml:"recipient"`
	}

	/*
	batchSpec is the input of "batch build": explicit claims and/or a sequence
	of claims differing only by id.
	*/
	batchSpec struct {
		RootID   common.Hash  `yaml:"rootId"`
		Claims   []claimDoc   `yaml:"claims"`
		Sequence *sequenceDoc `yaml:"sequence"`
	}

	sequenceDoc struct {
		FirstID uint64   `yaml:"firstId"`
		Count   uint64   `yaml:"count"`
		Claim   claimDoc `yaml:"claim"`
	}

	// batchDoc is the output of "batch build", leaves are the encoded claims.
	batchDoc struct {
		RootID string   `yaml:"rootId"`
		Root   string   `yaml:"root"`
		Leaves []string `yaml:"leaves"`
	}
)

func (d claimDoc) toClaim(chainID uint64, module common.Address) (*types.Claim, error) {
	c := &types.Claim{
		ID:           d.ID,
		ChainID:      d.ChainID,
		TargetModule: module,
		RootID:       d.RootID,
	}
	if c.ChainID == 0 {
		c.ChainID = chainID
	}
	if d.Module != nil {
		c.TargetModule = *d.Module
	}

	var err error
	if c.State, err = d.State.toStateCheck(); err != nil {
		return nil, err
	}
	if c.Caller, err = d.Caller.toCallerCheck(); err != nil {
		return nil, err
	}
	if c.Action, err = d.Action.toAction(); err != nil {
		return nil, err
	}
	if err := c.IsValid(); err != nil {
		return nil, fmt.Errorf("invalid claim %s: %w", c.ID, err)
	}
	return c, nil
}

func (d stateDoc) toStateCheck() (types.StateCheck, error) {
	if !d.Always {
		return types.TimeRange{ValidFrom: d.ValidFrom, ValidTo: d.ValidTo}, nil
	}
	if d.ValidFrom != 0 || d.ValidTo != 0 {
		return nil, errors.New("state check can't have both a time range and always")
	}
	return types.Always{}, nil
}

func (d callerDoc) toCallerCheck() (types.CallerCheck, error) {
	var checks []types.CallerCheck
	if d.Any {
		checks = append(checks, types.AnyCaller{})
	}
	if d.Address != nil {
		checks = append(checks, types.DirectAddress{Address: *d.Address})
	}
	if d.NFT != nil {
		if d.NFT.Recipient != nil {
			return nil, errors.New("NFT ownership check has no recipient")
		}
		checks = append(checks, types.NFTOwnership{Collection: d.NFT.Collection, TokenID: d.NFT.TokenID})
	}
	if d.Registered != nil {
		checks = append(checks, types.RegisteredAccount{Registry: d.Registered.Registry, Account: d.Registered.Account})
	}
	if len(checks) != 1 {
		return nil, fmt.Errorf("claim must have exactly one caller check, got %d", len(checks))
	}
	return checks[0], nil
}

func (d actionDoc) toAction() (types.Action, error) {
	var actions []types.Action
	if d.Native != nil {
		actions = append(actions, types.NativeTransfer{Amount: d.Native.Amount, Recipient: d.Native.Recipient})
	}
	if d.ERC20 != nil {
		actions = append(actions, types.ERC20Transfer{Token: d.ERC20.Token, Amount: d.ERC20.Amount, Recipient: d.ERC20.Recipient})
	}
	if d.NFT != nil {
		actions = append(actions, types.NFTTransfer{Collection: d.NFT.Collection, Recipient: d.NFT.Recipient, TokenID: d.NFT.TokenID})
	}
	if len(actions) != 1 {
		return nil, fmt.Errorf("claim must have exactly one action, got %d", len(actions))
	}
	return actions[0], nil
}

// claims expands the batch spec, sequence ids are firstId, firstId+1, ...
func (b batchSpec) claims(chainID uint64, module common.Address) ([]*types.Claim, error) {
	var out []*types.Claim
	add := func(d claimDoc) error {
		d.RootID = b.RootID
		c, err := d.toClaim(chainID, module)
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	}

	for _, d := range b.Claims {
		if err := add(d); err != nil {
			return nil, err
		}
	}
	if seq := b.Sequence; seq != nil {
		for i := range seq.Count {
			id, ok := util.SafeAdd(seq.FirstID, i)
			if !ok {
				return nil, fmt.Errorf("claim id overflows at sequence index %d", i)
			}
			d := seq.Claim
			d.ID = common.BigToHash(new(big.Int).SetUint64(id))
			if err := add(d); err != nil {
				return nil, err
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.New("batch has no claims")
	}
	return out, nil
}

func readYAML(filename string, v any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", filename, err)
	}
	return nil
}

func writeYAML(filename string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filename, err)
	}
	return os.WriteFile(filename, data, 0o644)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid 32 byte hash %q", s)
	}
	return common.BytesToHash(b), nil
}
