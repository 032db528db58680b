/*
Package registration implements the account registration registry: a
non-fungible token collection where the token of an account has the id
uint256(account address). Holding the token of an account entitles the
holder to redeem claims addressed to that account.
*/
package registration

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	logging "github.com/ipfs/go-log/v2"

	"github.com/alphabill-org/claim-settlement/types"
)

var log = logging.Logger("claims/registration")

var (
	ErrNotSelf            = errors.New("registration account must be the sender")
	ErrNonexistentToken   = errors.New("invalid token ID")
	ErrNotOwnerOrApproved = errors.New("caller is not token owner or approved")
	ErrAlreadyRegistered  = errors.New("token already minted")
	ErrInvalidRecipient   = errors.New("transfer to the zero address")
)

type Registry struct {
	mu      sync.RWMutex
	addr    common.Address
	holders map[common.Address]common.Address // registered account -> holder
}

func New(addr common.Address) *Registry {
	return &Registry{
		addr:    addr,
		holders: make(map[common.Address]common.Address),
	}
}

// Address is the collection address of the registry, claims refer to the registry with it.
func (r *Registry) Address() common.Address { return r.addr }

// Register mints the token of target to holder. Only target itself may register.
func (r *Registry) Register(ctx context.Context, sender, target, holder common.Address) error {
	if sender != target {
		return ErrNotSelf
	}
	if holder == (common.Address{}) {
		return ErrInvalidRecipient
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.holders[target]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, types.AccountTokenID(target))
	}
	r.holders[target] = holder
	log.Debugw("account registered", "account", target, "holder", holder)
	return nil
}

// Unregister burns the token, only the current holder may unregister.
func (r *Registry) Unregister(ctx context.Context, sender common.Address, tokenID *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, holder, err := r.lookup(tokenID)
	if err != nil {
		return err
	}
	if holder != sender {
		return ErrNotOwnerOrApproved
	}
	delete(r.holders, account)
	log.Debugw("account unregistered", "account", account, "holder", holder)
	return nil
}

// Transfer moves the token from the current holder (sender) to "to".
func (r *Registry) Transfer(ctx context.Context, sender, to common.Address, tokenID *big.Int) error {
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	account, holder, err := r.lookup(tokenID)
	if err != nil {
		return err
	}
	if holder != sender {
		return ErrNotOwnerOrApproved
	}
	r.holders[account] = to
	return nil
}

// OwnerOf returns the current holder of the token, ErrNonexistentToken when it isn't registered.
func (r *Registry) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, holder, err := r.lookup(tokenID)
	return holder, err
}

// BalanceOf returns the number of tokens held by holder.
func (r *Registry) BalanceOf(ctx context.Context, holder common.Address) (uint64, error) {
	tokens, err := r.TokensOf(ctx, holder)
	return uint64(len(tokens)), err
}

// TokensOf returns the ids of the tokens held by holder in ascending order.
func (r *Registry) TokensOf(ctx context.Context, holder common.Address) ([]*big.Int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var tokens []*big.Int
	for account, h := range r.holders {
		if h == holder {
			tokens = append(tokens, types.AccountTokenID(account))
		}
	}
	slices.SortFunc(tokens, (*big.Int).Cmp)
	return tokens, nil
}

func (r *Registry) lookup(tokenID *big.Int) (account, holder common.Address, err error) {
	if tokenID == nil || tokenID.Sign() < 0 || tokenID.BitLen() > 8*common.AddressLength {
		return account, holder, fmt.Errorf("%w: %v", ErrNonexistentToken, tokenID)
	}
	account = common.BigToAddress(tokenID)
	holder, ok := r.holders[account]
	if !ok {
		return account, holder, fmt.Errorf("%w: %s", ErrNonexistentToken, tokenID)
	}
	return account, holder, nil
}
