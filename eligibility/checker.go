/*
Package eligibility evaluates the state and caller predicates of a claim at
redemption time.
*/
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphabill-org/claim-settlement/types"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

var SystemClock Clock = ClockFunc(time.Now)

// OwnerLookup resolves the current owner of a token of any collection.
type OwnerLookup interface {
	OwnerOf(ctx context.Context, collection common.Address, tokenID *big.Int) (common.Address, error)
}

// TokenOwner resolves the current owner of a token of a single collection.
type TokenOwner interface {
	OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error)
}

type Checker struct {
	clock  Clock
	owners OwnerLookup
}

func New(clock Clock, owners OwnerLookup) *Checker {
	if clock == nil {
		clock = SystemClock
	}
	return &Checker{clock: clock, owners: owners}
}

// Check evaluates the state predicate and then the caller predicate of the claim.
func (c *Checker) Check(ctx context.Context, claim *types.Claim, caller common.Address) error {
	if err := c.CheckState(claim.State); err != nil {
		return err
	}
	return c.CheckCaller(ctx, claim.Caller, caller)
}

func (c *Checker) CheckState(sc types.StateCheck) error {
	switch s := sc.(type) {
	case types.TimeRange:
		now := c.now()
		if !s.Contains(now) {
			return fmt.Errorf("%w: time %d is outside of [%d, %d]", types.ErrInvalidState, now, s.ValidFrom, s.ValidTo)
		}
		return nil
	case types.Always:
		return nil
	case types.UnknownState:
		return fmt.Errorf("%w: unknown state check %s", types.ErrInvalidState, s.TypeHash())
	default:
		return fmt.Errorf("%w: unsupported state check %T", types.ErrInvalidState, sc)
	}
}

func (c *Checker) CheckCaller(ctx context.Context, cc types.CallerCheck, caller common.Address) error {
	switch p := cc.(type) {
	case types.AnyCaller:
		return nil
	case types.DirectAddress:
		if p.Address != caller {
			return fmt.Errorf("%w: %s is not %s", types.ErrInvalidCaller, caller, p.Address)
		}
		return nil
	case types.NFTOwnership:
		return c.checkOwner(ctx, p.Collection, p.TokenID, caller)
	case types.RegisteredAccount:
		return c.checkOwner(ctx, p.Registry, p.TokenID(), caller)
	case types.UnknownCaller:
		return fmt.Errorf("%w: unknown caller check %s", types.ErrInvalidCaller, p.TypeHash())
	default:
		return fmt.Errorf("%w: unsupported caller check %T", types.ErrInvalidCaller, cc)
	}
}

/*
checkOwner passes iff caller currently holds the token. Lookup errors (ie
nonexistent token) are surfaced as ErrOwnerLookupFailed with the error of
the collection kept in the chain.
*/
func (c *Checker) checkOwner(ctx context.Context, collection common.Address, tokenID *big.Int, caller common.Address) error {
	if c.owners == nil {
		return fmt.Errorf("%w: no owner lookup for collection %s", types.ErrOwnerLookupFailed, collection)
	}
	if tokenID == nil {
		return fmt.Errorf("%w: token id is nil", types.ErrInvalidCaller)
	}
	owner, err := c.owners.OwnerOf(ctx, collection, tokenID)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrOwnerLookupFailed, err)
	}
	if owner != caller {
		return fmt.Errorf("%w: token %s of %s is held by %s", types.ErrInvalidCaller, tokenID, collection, owner)
	}
	return nil
}

func (c *Checker) now() uint64 {
	if ts := c.clock.Now().Unix(); ts > 0 {
		return uint64(ts)
	}
	return 0
}

var ErrUnknownCollection = errors.New("unknown collection")

/*
Collections routes owner lookups: collections added with Add (eg account
registration registries) are asked directly, all other lookups go to the
fallback.
*/
type Collections struct {
	routes   map[common.Address]TokenOwner
	fallback OwnerLookup
}

func NewCollections(fallback OwnerLookup) *Collections {
	return &Collections{routes: make(map[common.Address]TokenOwner), fallback: fallback}
}

// Add is not safe for concurrent use with OwnerOf, routes are set up before use.
func (c *Collections) Add(collection common.Address, owners TokenOwner) *Collections {
	c.routes[collection] = owners
	return c
}

func (c *Collections) OwnerOf(ctx context.Context, collection common.Address, tokenID *big.Int) (common.Address, error) {
	if r, ok := c.routes[collection]; ok {
		return r.OwnerOf(ctx, tokenID)
	}
	if c.fallback == nil {
		return common.Address{}, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return c.fallback.OwnerOf(ctx, collection, tokenID)
}
