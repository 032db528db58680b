/*
Package memvault is an in-memory custodian: a vault holding native currency,
fungible and non-fungible tokens, together with the ledgers of those tokens.
It is used by tests and tooling in place of a real on-chain custodian.
*/
package memvault

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphabill-org/claim-settlement/custodian"
)

var (
	ErrModuleNotEnabled    = errors.New("module not enabled")
	ErrInsufficientBalance = errors.New("transfer amount exceeds balance")
	ErrNonexistentToken    = errors.New("invalid token ID")
	ErrNotTokenOwner       = errors.New("caller is not token owner or approved")
	ErrTokenExists         = errors.New("token already minted")
)

var _ custodian.Custodian = (*Vault)(nil)

type Vault struct {
	mu      sync.Mutex
	addr    common.Address
	modules map[common.Address]struct{}
	// native currency balances
	native map[common.Address]*big.Int
	// fungible token -> holder -> balance
	fungible map[common.Address]map[common.Address]*big.Int
	// collection -> token id -> owner
	nfts map[common.Address]map[string]common.Address
}

func New(addr common.Address) *Vault {
	return &Vault{
		addr:     addr,
		modules:  make(map[common.Address]struct{}),
		native:   make(map[common.Address]*big.Int),
		fungible: make(map[common.Address]map[common.Address]*big.Int),
		nfts:     make(map[common.Address]map[string]common.Address),
	}
}

func (v *Vault) Address() common.Address { return v.addr }

// EnableModule authorizes module to call Execute.
func (v *Vault) EnableModule(module common.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.modules[module] = struct{}{}
}

func (v *Vault) DisableModule(module common.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.modules, module)
}

/*
Execute supports plain native transfers (empty data) and calls of ERC-20
"transfer" and ERC-721 "safeTransferFrom" on tokens of the in-memory ledger.
Either the whole call succeeds or no balance changes.
*/
func (v *Vault) Execute(ctx context.Context, module, target common.Address, value *big.Int, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.modules[module]; !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotEnabled, module)
	}
	var apply []func()
	if value != nil && value.Sign() != 0 {
		if value.Sign() < 0 {
			return fmt.Errorf("negative value %s", value)
		}
		if bal := balance(v.native, v.addr); bal.Cmp(value) < 0 {
			return fmt.Errorf("%w: native balance %s, transfer amount %s", ErrInsufficientBalance, bal, value)
		}
		apply = append(apply, func() { move(v.native, v.addr, target, value) })
	}
	if len(data) > 0 {
		call, err := custodian.DecodeCall(data)
		if err != nil {
			return fmt.Errorf("call to %s: %w", target, err)
		}
		switch call.Method {
		case custodian.MethodTransfer:
			to, amount := call.Args[0].(common.Address), call.Args[1].(*big.Int)
			ledger := v.fungible[target]
			if bal := balance(ledger, v.addr); bal.Cmp(amount) < 0 {
				return fmt.Errorf("%w: token %s balance %s, transfer amount %s", ErrInsufficientBalance, target, bal, amount)
			}
			apply = append(apply, func() { move(ledger, v.addr, to, amount) })
		case custodian.MethodSafeTransferFrom:
			from, to, id := call.Args[0].(common.Address), call.Args[1].(common.Address), call.Args[2].(*big.Int)
			owner, ok := v.nfts[target][id.String()]
			if !ok {
				return fmt.Errorf("%w: %s", ErrNonexistentToken, id)
			}
			if owner != from || from != v.addr {
				return ErrNotTokenOwner
			}
			apply = append(apply, func() { v.nfts[target][id.String()] = to })
		default:
			return fmt.Errorf("method %s can't be executed by the vault", call.Method)
		}
	}
	for _, f := range apply {
		f()
	}
	return nil
}

// Mint credits amount of native currency to account.
func (v *Vault) Mint(account common.Address, amount *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	credit(v.native, account, amount)
}

// MintERC20 credits amount of token to holder.
func (v *Vault) MintERC20(token, holder common.Address, amount *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ledger, ok := v.fungible[token]
	if !ok {
		ledger = make(map[common.Address]*big.Int)
		v.fungible[token] = ledger
	}
	credit(ledger, holder, amount)
}

func (v *Vault) MintNFT(collection common.Address, tokenID *big.Int, owner common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	tokens, ok := v.nfts[collection]
	if !ok {
		tokens = make(map[string]common.Address)
		v.nfts[collection] = tokens
	}
	if _, ok := tokens[tokenID.String()]; ok {
		return fmt.Errorf("%w: %s", ErrTokenExists, tokenID)
	}
	tokens[tokenID.String()] = owner
	return nil
}

func (v *Vault) NativeBalance(account common.Address) *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return balance(v.native, account)
}

// BalanceOf returns holder's balance of fungible token.
func (v *Vault) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return balance(v.fungible[token], holder), nil
}

// OwnerOf returns the owner of tokenID in collection, ErrNonexistentToken if the token hasn't been minted.
func (v *Vault) OwnerOf(ctx context.Context, collection common.Address, tokenID *big.Int) (common.Address, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	owner, ok := v.nfts[collection][tokenID.String()]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrNonexistentToken, tokenID)
	}
	return owner, nil
}

func balance(ledger map[common.Address]*big.Int, account common.Address) *big.Int {
	if b, ok := ledger[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func credit(ledger map[common.Address]*big.Int, account common.Address, amount *big.Int) {
	ledger[account] = new(big.Int).Add(balance(ledger, account), amount)
}

func move(ledger map[common.Address]*big.Int, from, to common.Address, amount *big.Int) {
	ledger[from] = new(big.Int).Sub(balance(ledger, from), amount)
	credit(ledger, to, amount)
}
