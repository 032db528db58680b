package main

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/alphabill-org/claim-settlement/tree/mt"
	"github.com/alphabill-org/claim-settlement/types"
	"github.com/alphabill-org/claim-settlement/util"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Build Merkle batches of claims and extract proofs",
	}
	cmd.AddCommand(newBatchBuildCmd(a), newBatchProofCmd(a))
	return cmd
}

func newBatchBuildCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "build <batch-spec.yaml>",
		Short: "Encode the claims of the batch and compute the Merkle root",
		Long: `Encode the claims of the batch spec and compute the Merkle root over them.
The batch (root id, root and encoded claims) is written to the --out file and
the root is printed. Set the root with "claimctl root set <root-id> <root>".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := a.domain()
			if err != nil {
				return err
			}
			var spec batchSpec
			if err := readYAML(args[0], &spec); err != nil {
				return err
			}
			claims, err := spec.claims(domain.ChainID, domain.VerifyingModule)
			if err != nil {
				return err
			}

			leaves := make([][]byte, len(claims))
			for i, c := range claims {
				if leaves[i], err = c.Encode(); err != nil {
					return fmt.Errorf("encoding claim %d: %w", i, err)
				}
			}
			tree := mt.New(leaves)
			batch := batchDoc{
				RootID: spec.RootID.Hex(),
				Root:   tree.Root().Hex(),
				Leaves: util.TransformSlice(leaves, hexutil.Encode),
			}
			if err := writeYAML(out, batch); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), batch.Root)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "batch.yaml", "batch output file")
	return cmd
}

func newBatchProofCmd(a *app) *cobra.Command {
	var recipient, out string
	cmd := &cobra.Command{
		Use:   "proof <batch.yaml> <index>",
		Short: "Print the Merkle redemption of the claim at index of the batch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var batch batchDoc
			if err := readYAML(args[0], &batch); err != nil {
				return err
			}
			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid leaf index %q", args[1])
			}

			leaves := make([][]byte, len(batch.Leaves))
			for i, leaf := range batch.Leaves {
				if leaves[i], err = hexutil.Decode(leaf); err != nil {
					return fmt.Errorf("decoding leaf %d: %w", i, err)
				}
			}
			tree := mt.New(leaves)
			if root := tree.Root().Hex(); root != batch.Root {
				return fmt.Errorf("batch root mismatch, file has %s, leaves hash to %s", batch.Root, root)
			}
			path, err := tree.GetMerklePath(idx)
			if err != nil {
				return err
			}

			r := &types.Redemption{
				Strategy: types.StrategyMerkle,
				Claim:    leaves[idx],
				Proof:    path,
			}
			if r.Extra, err = extraParams(recipient); err != nil {
				return err
			}
			return writeRedemption(cmd, r, out)
		},
	}
	cmd.Flags().StringVar(&recipient, "recipient", "", "redirect the payment of a transfer to caller")
	cmd.Flags().StringVar(&out, "out", "", "write the CBOR redemption to file")
	return cmd
}
