package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/alphabill-org/claim-settlement/settlement"
	"github.com/alphabill-org/claim-settlement/util"
)

type statusDoc struct {
	Module          string   `yaml:"module"`
	ChainID         uint64   `yaml:"chainId"`
	Admin           string   `yaml:"admin"`
	Custodian       string   `yaml:"custodian"`
	DomainSeparator string   `yaml:"domainSeparator"`
	Validators      []string `yaml:"validators"`
	Configuration   string   `yaml:"configuration"`
	StateHash       string   `yaml:"stateHash"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the module identity and state summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withModule(cmd, func(m *settlement.Module) error {
				ctx := cmd.Context()
				validators, err := m.Validators(ctx)
				if err != nil {
					return err
				}
				config, err := m.Configuration(ctx)
				if err != nil {
					return err
				}
				stateHash, err := m.StateHash(ctx)
				if err != nil {
					return err
				}
				info := m.Info()
				out, err := yaml.Marshal(statusDoc{
					Module:          info.Module.Hex(),
					ChainID:         info.ChainID,
					Admin:           info.Admin.Hex(),
					Custodian:       info.Custodian.Hex(),
					DomainSeparator: m.Domain().Separator().Hex(),
					Validators:      util.TransformSlice(validators, common.Address.Hex),
					Configuration:   config,
					StateHash:       stateHash.Hex(),
				})
				if err != nil {
					return fmt.Errorf("marshaling status: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			})
		},
	}
}

func newValidatorsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validators",
		Short: "Manage the validator set",
	}
	var sender string
	cmd.PersistentFlags().StringVar(&sender, "sender", "", "principal of the operation (default: the admin)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the validators",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withModule(cmd, func(m *settlement.Module) error {
					validators, err := m.Validators(cmd.Context())
					if err != nil {
						return err
					}
					for _, v := range validators {
						fmt.Fprintln(cmd.OutOrStdout(), v.Hex())
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "add <address>",
			Short: "Add a validator",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withAdmin(cmd, sender, func(adm *settlement.Admin) error {
					validator, err := parseAddress(args[0])
					if err != nil {
						return err
					}
					if err := adm.AddValidator(cmd.Context(), validator); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "added validator %s\n", validator)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <address>",
			Short: "Remove a validator",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withAdmin(cmd, sender, func(adm *settlement.Admin) error {
					validator, err := parseAddress(args[0])
					if err != nil {
						return err
					}
					if err := adm.RemoveValidator(cmd.Context(), validator); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed validator %s\n", validator)
					return nil
				})
			},
		},
	)
	return cmd
}

func newMerkleRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "root",
		Short: "Manage Merkle roots of claim batches",
	}
	var sender string
	cmd.PersistentFlags().StringVar(&sender, "sender", "", "principal of the operation, the admin or a validator (default: the admin)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <root-id> <root>",
			Short: "Set the Merkle root stored under root id",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withAdmin(cmd, sender, func(adm *settlement.Admin) error {
					rootID, err := parseHash(args[0])
					if err != nil {
						return err
					}
					root, err := parseHash(args[1])
					if err != nil {
						return err
					}
					return adm.SetRoot(cmd.Context(), rootID, root)
				})
			},
		},
		&cobra.Command{
			Use:   "get <root-id>",
			Short: "Print the Merkle root stored under root id",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withModule(cmd, func(m *settlement.Module) error {
					rootID, err := parseHash(args[0])
					if err != nil {
						return err
					}
					root, ok, err := m.Root(cmd.Context(), rootID)
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("no root under %s", rootID)
					}
					fmt.Fprintln(cmd.OutOrStdout(), root.Hex())
					return nil
				})
			},
		},
	)
	return cmd
}

func newConfigurationCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configuration",
		Short: "Manage the module configuration value",
	}
	var sender string
	cmd.PersistentFlags().StringVar(&sender, "sender", "", "principal of the operation (default: the admin)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <value>",
			Short: "Set the configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withAdmin(cmd, sender, func(adm *settlement.Admin) error {
					return adm.SetConfiguration(cmd.Context(), args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "get",
			Short: "Print the configuration value",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withModule(cmd, func(m *settlement.Module) error {
					config, err := m.Configuration(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), config)
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) withModule(cmd *cobra.Command, f func(m *settlement.Module) error) (err error) {
	m, closeFn, err := a.openModule(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeFn(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing module database: %w", closeErr)
		}
	}()
	return f(m)
}

func (a *app) withAdmin(cmd *cobra.Command, sender string, f func(adm *settlement.Admin) error) error {
	principal, err := a.sender(sender)
	if err != nil {
		return err
	}
	return a.withModule(cmd, func(m *settlement.Module) error {
		return f(m.Admin(principal))
	})
}
