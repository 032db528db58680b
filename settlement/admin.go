package settlement

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/alphabill-org/claim-settlement/types"
)

const (
	opAddValidator     = "add_validator"
	opRemoveValidator  = "remove_validator"
	opSetRoot          = "set_root"
	opSetConfiguration = "set_configuration"
)

/*
AddValidator adds validator to the validator set. Only the admin may call
it, adding an existing validator is no-op.
*/
func (m *Module) AddValidator(ctx context.Context, sender, validator common.Address) (err error) {
	defer func() { m.metrics.adminOp(opAddValidator, err) }()
	if err := m.notDispatching(ctx, opAddValidator); err != nil {
		return err
	}
	if err := m.onlyAdmin(sender); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.AddValidator(ctx, validator); err != nil {
		return fmt.Errorf("adding validator %s: %w", validator, err)
	}
	m.emit(EventValidatorAdded, zap.Stringer("validator", validator))
	return nil
}

/*
RemoveValidator removes validator from the validator set. Only the admin may
call it, removing an absent validator is no-op.
*/
func (m *Module) RemoveValidator(ctx context.Context, sender, validator common.Address) (err error) {
	defer func() { m.metrics.adminOp(opRemoveValidator, err) }()
	if err := m.notDispatching(ctx, opRemoveValidator); err != nil {
		return err
	}
	if err := m.onlyAdmin(sender); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.RemoveValidator(ctx, validator); err != nil {
		return fmt.Errorf("removing validator %s: %w", validator, err)
	}
	m.emit(EventValidatorRemoved, zap.Stringer("validator", validator))
	return nil
}

/*
SetRoot commits Merkle root of a claim batch under the slot rootID. The
admin or any validator may call it. Roots in other slots are not affected.
*/
func (m *Module) SetRoot(ctx context.Context, sender common.Address, rootID, root common.Hash) (err error) {
	defer func() { m.metrics.adminOp(opSetRoot, err) }()
	if err := m.notDispatching(ctx, opSetRoot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if sender != m.info.Admin {
		ok, err := m.store.IsValidator(ctx, sender)
		if err != nil {
			return fmt.Errorf("checking validator %s: %w", sender, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s is neither admin nor validator", types.ErrUnauthorized, sender)
		}
	}
	if err := m.store.SetRoot(ctx, rootID, root); err != nil {
		return fmt.Errorf("setting root %s: %w", rootID, err)
	}
	m.emit(EventRootSet, zap.Stringer("rootId", rootID), zap.Stringer("root", root), zap.Stringer("sender", sender))
	return nil
}

// SetConfiguration stores the opaque configuration string. Only the admin may call it.
func (m *Module) SetConfiguration(ctx context.Context, sender common.Address, config string) (err error) {
	defer func() { m.metrics.adminOp(opSetConfiguration, err) }()
	if err := m.notDispatching(ctx, opSetConfiguration); err != nil {
		return err
	}
	if err := m.onlyAdmin(sender); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.SetConfiguration(ctx, config); err != nil {
		return fmt.Errorf("setting configuration: %w", err)
	}
	m.emit(EventConfigurationSet, zap.String("configuration", config))
	return nil
}

func (m *Module) onlyAdmin(sender common.Address) error {
	if sender != m.info.Admin {
		return fmt.Errorf("%w: %s is not the admin", types.ErrUnauthorized, sender)
	}
	return nil
}

/*
Admin is the administrative task layer on top of the module: unlike the
idempotent registry operations it refuses to add an existing validator or
remove an absent one.
*/
type Admin struct {
	m      *Module
	sender common.Address
}

// Admin returns the task layer acting as sender.
func (m *Module) Admin(sender common.Address) *Admin {
	return &Admin{m: m, sender: sender}
}

func (a *Admin) AddValidator(ctx context.Context, validator common.Address) error {
	ok, err := a.m.IsValidator(ctx, validator)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s is already included in the validator set of %s", types.ErrAlreadyValidator, validator, a.m.Address())
	}
	return a.m.AddValidator(ctx, a.sender, validator)
}

func (a *Admin) RemoveValidator(ctx context.Context, validator common.Address) error {
	ok, err := a.m.IsValidator(ctx, validator)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not in the validator set of %s", types.ErrNotValidator, validator, a.m.Address())
	}
	return a.m.RemoveValidator(ctx, a.sender, validator)
}

func (a *Admin) Validators(ctx context.Context) ([]common.Address, error) {
	return a.m.Validators(ctx)
}

func (a *Admin) SetRoot(ctx context.Context, rootID, root common.Hash) error {
	return a.m.SetRoot(ctx, a.sender, rootID, root)
}

func (a *Admin) SetConfiguration(ctx context.Context, config string) error {
	return a.m.SetConfiguration(ctx, a.sender, config)
}
