/*
Package settlement implements the claim settlement module: the administrative
surface managing validators, Merkle roots and configuration, and the
redemption surface executing authorized claims through the custodian.
*/
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-datastore"
	logging "github.com/ipfs/go-log/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/alphabill-org/claim-settlement/auth"
	"github.com/alphabill-org/claim-settlement/crypto"
	"github.com/alphabill-org/claim-settlement/custodian"
	"github.com/alphabill-org/claim-settlement/dispatch"
	"github.com/alphabill-org/claim-settlement/eligibility"
	"github.com/alphabill-org/claim-settlement/state"
	"github.com/alphabill-org/claim-settlement/types"
)

var log = logging.Logger("claims/settlement")

type (
	Option func(c *moduleConf)

	moduleConf struct {
		domainName       string
		domainVersion    string
		clock            eligibility.Clock
		owners           eligibility.OwnerLookup
		stakeOracle      auth.StakeOracle
		consensus        auth.ConsensusConfig
		registerer       prometheus.Registerer
		logger           *zap.Logger
		recoveryTTL      time.Duration
		initialValidator *common.Address
	}
)

/*
Module is one claim settlement module instance. Redemptions and
administrative mutations are serialized, every redemption runs
verify, guard, check, dispatch and commit as one unit.
*/
type Module struct {
	mu sync.Mutex

	// ids of the claims between decode and commit, guarded by inflightMu
	inflightMu sync.Mutex
	inflight   map[common.Hash]struct{}

	info       state.ModuleInfo
	domain     types.Domain
	store      *state.Store
	custodian  custodian.Custodian
	signed     auth.Strategy
	consensus  auth.Strategy
	merkle     auth.Strategy
	checker    *eligibility.Checker
	dispatcher *dispatch.Dispatcher

	log     *zap.Logger
	metrics *metrics
}

/*
New opens the module at address on chainID on top of ds. Admin is the
principal allowed to manage the module (the custodian's governance) and c is
the custodian holding the assets. When ds already holds the state of the
module its identity must match.
*/
func New(ctx context.Context, ds datastore.Batching, chainID uint64, address, admin common.Address, c custodian.Custodian, opts ...Option) (*Module, error) {
	if ds == nil {
		return nil, errors.New("datastore is nil")
	}
	if c == nil {
		return nil, errors.New("custodian is nil")
	}
	if address == (common.Address{}) {
		return nil, errors.New("module address is zero")
	}

	// init config
	conf := &moduleConf{
		domainName:    types.DefaultDomainName,
		domainVersion: types.DefaultDomainVersion,
		clock:         eligibility.SystemClock,
	}
	for _, opt := range opts {
		opt(conf)
	}
	if conf.logger == nil {
		conf.logger = log.Desugar()
	}

	m := &Module{
		info: state.ModuleInfo{
			Version:   1,
			ChainID:   chainID,
			Module:    address,
			Admin:     admin,
			Custodian: c.Address(),
		},
		domain: types.Domain{
			Name:            conf.domainName,
			Version:         conf.domainVersion,
			ChainID:         chainID,
			VerifyingModule: address,
		},
		inflight:   make(map[common.Hash]struct{}),
		store:      state.New(ds, address),
		custodian:  c,
		checker:    eligibility.New(conf.clock, conf.owners),
		dispatcher: dispatch.New(c, address),
		log:        conf.logger.With(zap.Stringer("module", address), zap.Uint64("chain", chainID)),
	}

	var err error
	if m.metrics, err = newMetrics(conf.registerer); err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	recovery := crypto.NewRecoveryCache(conf.recoveryTTL)
	m.signed = auth.NewSigned(m.domain, m.store, recovery)
	m.merkle = auth.NewMerkle(m.domain, m.store)
	if conf.stakeOracle != nil {
		if m.consensus, err = auth.NewConsensus(m.domain, m.store, conf.stakeOracle, conf.consensus, recovery); err != nil {
			return nil, err
		}
	}

	if err := m.init(ctx, conf.initialValidator); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Module) init(ctx context.Context, initialValidator *common.Address) error {
	_, err := m.store.ModuleInfo(ctx)
	fresh := errors.Is(err, datastore.ErrNotFound)
	if err != nil && !fresh {
		return err
	}
	if err := m.store.Init(ctx, m.info); err != nil {
		return fmt.Errorf("initializing module state: %w", err)
	}
	if fresh && initialValidator != nil {
		if err := m.store.AddValidator(ctx, *initialValidator); err != nil {
			return fmt.Errorf("adding initial validator: %w", err)
		}
		m.log.Info(EventValidatorAdded, zap.Stringer("validator", *initialValidator))
	}
	return nil
}

// WithDomain overrides the default name and version of the signing domain.
func WithDomain(name, version string) Option {
	return func(c *moduleConf) {
		c.domainName = name
		c.domainVersion = version
	}
}

// WithClock sets the time source of the time range checks.
func WithClock(clock eligibility.Clock) Option {
	return func(c *moduleConf) {
		c.clock = clock
	}
}

// WithOwnerLookup sets the resolver of token owners used by the NFT ownership checks.
func WithOwnerLookup(owners eligibility.OwnerLookup) Option {
	return func(c *moduleConf) {
		c.owners = owners
	}
}

// WithConsensus enables the consensus strategy with the given stake oracle and policy.
func WithConsensus(oracle auth.StakeOracle, cfg auth.ConsensusConfig) Option {
	return func(c *moduleConf) {
		c.stakeOracle = oracle
		c.consensus = cfg
	}
}

func WithMetrics(registerer prometheus.Registerer) Option {
	return func(c *moduleConf) {
		c.registerer = registerer
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *moduleConf) {
		c.logger = logger
	}
}

// WithRecoveryCacheTTL sets how long recovered signers are cached.
func WithRecoveryCacheTTL(ttl time.Duration) Option {
	return func(c *moduleConf) {
		c.recoveryTTL = ttl
	}
}

// WithInitialValidator seeds the validator set of a newly created module.
func WithInitialValidator(validator common.Address) Option {
	return func(c *moduleConf) {
		c.initialValidator = &validator
	}
}

func (m *Module) Address() common.Address { return m.info.Module }

func (m *Module) Domain() types.Domain { return m.domain }

func (m *Module) Info() state.ModuleInfo { return m.info }

func (m *Module) IsValidator(ctx context.Context, validator common.Address) (bool, error) {
	return m.store.IsValidator(ctx, validator)
}

func (m *Module) Validators(ctx context.Context) ([]common.Address, error) {
	return m.store.Validators(ctx)
}

func (m *Module) Root(ctx context.Context, rootID common.Hash) (common.Hash, bool, error) {
	return m.store.Root(ctx, rootID)
}

func (m *Module) Configuration(ctx context.Context) (string, error) {
	return m.store.Configuration(ctx)
}

func (m *Module) IsUsed(ctx context.Context, id common.Hash) (bool, error) {
	return m.store.IsUsed(ctx, id)
}

func (m *Module) StateHash(ctx context.Context) (common.Hash, error) {
	return m.store.StateHash(ctx)
}
