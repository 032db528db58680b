package main

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alphabill-org/claim-settlement/types"
)

// configuration keys, also the names of the global flags
const (
	keyDataDir       = "datadir"
	keyChainID       = "chain-id"
	keyModule        = "module"
	keyAdmin         = "admin"
	keyCustodian     = "custodian"
	keyDomainName    = "domain-name"
	keyDomainVersion = "domain-version"
	keyValidator     = "initial-validator"
	keyVerbose       = "verbose"

	envPrefix = "CLAIMCTL"
)

type app struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	cmd := &cobra.Command{
		Use:   "claimctl",
		Short: "claimctl - claim settlement module administration",
		Long: `claimctl administers a claim settlement module kept in a local database
and prepares redemptions: signed claims and Merkle batch proofs.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CLAIMCTL_*)
3. Config file ($HOME/.claimctl/config.yaml)
4. Defaults`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.claimctl/config.yaml)")
	flags.String(keyDataDir, "", "module database directory (default: $HOME/.claimctl/data)")
	flags.Uint64(keyChainID, 1, "chain id the module is deployed on")
	flags.String(keyModule, "", "address of the settlement module")
	flags.String(keyAdmin, "", "address of the module admin")
	flags.String(keyCustodian, "", "address of the custodian holding the assets")
	flags.String(keyDomainName, types.DefaultDomainName, "signing domain name")
	flags.String(keyDomainVersion, types.DefaultDomainVersion, "signing domain version")
	flags.String(keyValidator, "", "validator to seed a newly created module with")
	flags.BoolP(keyVerbose, "v", false, "verbose output")
	for _, key := range []string{keyDataDir, keyChainID, keyModule, keyAdmin, keyCustodian, keyDomainName, keyDomainVersion, keyValidator, keyVerbose} {
		_ = a.v.BindPFlag(key, flags.Lookup(key))
	}

	cmd.AddCommand(
		newStatusCmd(a),
		newValidatorsCmd(a),
		newMerkleRootCmd(a),
		newConfigurationCmd(a),
		newClaimCmd(a),
		newBatchCmd(a),
	)
	return cmd
}

// initConfig reads in config file and ENV variables
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(filepath.Join(home, ".claimctl"))
		a.v.SetConfigType("yaml")
		a.v.SetConfigName("config")
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	if a.v.GetBool(keyVerbose) {
		if err := logging.SetLogLevelRegex("claims/.*", "debug"); err != nil {
			return fmt.Errorf("setting log level: %w", err)
		}
	}
	return nil
}

func (a *app) dataDir() (string, error) {
	if dir := a.v.GetString(keyDataDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".claimctl", "data"), nil
}

/*
address returns the address under key, zero address when not set and optional.
YAML decodes unquoted hex addresses which fit into 64 bits as integers, those
are converted back to addresses.
*/
func (a *app) address(key string, optional bool) (common.Address, error) {
	switch v := a.v.Get(key).(type) {
	case nil:
		return emptyAddress(key, optional)
	case string:
		if v == "" {
			return emptyAddress(key, optional)
		}
		if !common.IsHexAddress(v) {
			return common.Address{}, fmt.Errorf("invalid %s address %q", key, v)
		}
		return common.HexToAddress(v), nil
	case int:
		return intAddress(key, int64(v))
	case int64:
		return intAddress(key, v)
	case uint64:
		return common.BigToAddress(new(big.Int).SetUint64(v)), nil
	default:
		return common.Address{}, fmt.Errorf("invalid %s address %v (%T), quote hex addresses in the config file", key, v, v)
	}
}

func emptyAddress(key string, optional bool) (common.Address, error) {
	if optional {
		return common.Address{}, nil
	}
	return common.Address{}, fmt.Errorf("invalid %s address %q", key, "")
}

func intAddress(key string, v int64) (common.Address, error) {
	if v < 0 {
		return common.Address{}, fmt.Errorf("invalid %s address %d, quote hex addresses in the config file", key, v)
	}
	return common.BigToAddress(big.NewInt(v)), nil
}

func (a *app) domain() (types.Domain, error) {
	module, err := a.address(keyModule, false)
	if err != nil {
		return types.Domain{}, err
	}
	return types.Domain{
		Name:            a.v.GetString(keyDomainName),
		Version:         a.v.GetString(keyDomainVersion),
		ChainID:         a.v.GetUint64(keyChainID),
		VerifyingModule: module,
	}, nil
}
