package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/alphabill-org/claim-settlement/crypto"
	"github.com/alphabill-org/claim-settlement/types"
	"github.com/alphabill-org/claim-settlement/util"
)

const keyKeys = "key"

func newClaimCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Encode and sign claims",
	}
	cmd.AddCommand(newClaimEncodeCmd(a), newClaimSignCmd(a), newClaimInspectCmd(a))
	return cmd
}

func newClaimEncodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "encode <claim.yaml>",
		Short: "Print the encoded claim, its signing digest and its Merkle leaf hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, domain, err := a.readClaim(args[0])
			if err != nil {
				return err
			}
			data, err := c.Encode()
			if err != nil {
				return err
			}
			digest, err := domain.Digest(c)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "claim:  %s\n", hexutil.Encode(data))
			fmt.Fprintf(w, "digest: %s\n", digest)
			fmt.Fprintf(w, "leaf:   %s\n", types.LeafHash(data))
			return nil
		},
	}
}

func newClaimSignCmd(a *app) *cobra.Command {
	var strategy, recipient, out string
	cmd := &cobra.Command{
		Use:   "sign <claim.yaml>",
		Short: "Sign the claim and print the redemption",
		Long: `Sign the claim with the validator key(s) and print the CBOR encoded
redemption as hex, or write it to the --out file.

Keys are hex encoded secp256k1 private keys, given with --key or CLAIMCTL_KEY.
Strategy "signed" takes exactly one key, "consensus" takes any number.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, domain, err := a.readClaim(args[0])
			if err != nil {
				return err
			}
			keys := a.v.GetStringSlice(keyKeys)
			switch types.Strategy(strategy) {
			case types.StrategySigned:
				if len(keys) != 1 {
					return fmt.Errorf("strategy %q needs exactly one key, got %d", strategy, len(keys))
				}
			case types.StrategyConsensus:
				if len(keys) == 0 {
					return errors.New("no signing keys")
				}
			default:
				return fmt.Errorf("claims can't be signed for strategy %q", strategy)
			}

			digest, err := domain.Digest(c)
			if err != nil {
				return err
			}
			r := &types.Redemption{Strategy: types.Strategy(strategy)}
			for i, key := range keys {
				signer, err := crypto.NewSignerFromHex(key)
				if err != nil {
					return fmt.Errorf("key %d: %w", i, err)
				}
				sig, err := signer.SignDigest(digest)
				if err != nil {
					return err
				}
				r.Signatures = append(r.Signatures, sig)
			}
			if r.Claim, err = c.Encode(); err != nil {
				return err
			}
			if r.Extra, err = extraParams(recipient); err != nil {
				return err
			}
			return writeRedemption(cmd, r, out)
		},
	}
	flags := cmd.Flags()
	flags.StringSlice(keyKeys, nil, "validator private key, repeat for consensus")
	flags.StringVar(&strategy, "strategy", string(types.StrategySigned), `authorization strategy, "signed" or "consensus"`)
	flags.StringVar(&recipient, "recipient", "", "redirect the payment of a transfer to caller")
	flags.StringVar(&out, "out", "", "write the CBOR redemption to file")
	_ = a.v.BindPFlag(keyKeys, flags.Lookup(keyKeys))
	return cmd
}

type redemptionDoc struct {
	Strategy types.Strategy `yaml:"strategy"`
	ClaimID  string         `yaml:"claimId"`
	Digest   string         `yaml:"digest"`
	Signers  []string       `yaml:"signers,omitempty"`
	Proof    []string       `yaml:"proof,omitempty"`
	Extra    string         `yaml:"extra,omitempty"`
}

func newClaimInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <redemption.cbor>",
		Short: "Decode the redemption and recover its signers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := a.domain()
			if err != nil {
				return err
			}
			r, err := readRedemption(args[0])
			if err != nil {
				return err
			}
			c, err := types.DecodeClaim(r.Claim)
			if err != nil {
				return err
			}
			digest, err := domain.Digest(c)
			if err != nil {
				return err
			}
			doc := redemptionDoc{
				Strategy: r.Strategy,
				ClaimID:  c.ID.Hex(),
				Digest:   digest.Hex(),
				Proof:    util.TransformSlice(r.Proof, common.Hash.Hex),
			}
			if len(r.Extra) > 0 {
				doc.Extra = hexutil.Encode(r.Extra)
			}
			for i, sig := range r.Signatures {
				signer, err := crypto.Recover(digest, sig)
				if err != nil {
					return fmt.Errorf("signature %d: %w", i, err)
				}
				doc.Signers = append(doc.Signers, signer.Hex())
			}
			out, err := yaml.Marshal(doc)
			if err != nil {
				return fmt.Errorf("marshaling redemption: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func (a *app) readClaim(filename string) (*types.Claim, types.Domain, error) {
	domain, err := a.domain()
	if err != nil {
		return nil, types.Domain{}, err
	}
	var doc claimDoc
	if err := readYAML(filename, &doc); err != nil {
		return nil, types.Domain{}, err
	}
	c, err := doc.toClaim(domain.ChainID, domain.VerifyingModule)
	if err != nil {
		return nil, types.Domain{}, err
	}
	return c, domain, nil
}

func extraParams(recipient string) ([]byte, error) {
	if recipient == "" {
		return nil, nil
	}
	addr, err := parseAddress(recipient)
	if err != nil {
		return nil, err
	}
	return types.ExtraParams{Recipient: &addr}.Encode()
}

func writeRedemption(cmd *cobra.Command, r *types.Redemption, filename string) error {
	if err := r.IsValid(); err != nil {
		return err
	}
	data, err := r.MarshalCBOR()
	if err != nil {
		return fmt.Errorf("encoding redemption: %w", err)
	}
	if filename != "" {
		return os.WriteFile(filename, data, 0o644)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(data))
	return err
}

func readRedemption(filename string) (*types.Redemption, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	r := &types.Redemption{}
	if err := r.UnmarshalCBOR(data); err != nil {
		return nil, fmt.Errorf("decoding redemption: %w", err)
	}
	return r, nil
}
