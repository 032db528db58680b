package types

import "errors"

var (
	ErrUnauthorized             = errors.New("unauthorized")
	ErrInvalidSignature         = errors.New("invalid signature")
	ErrNotBackedByEnoughSigners = errors.New("not backed by enough signers")
	ErrInvalidProof             = errors.New("invalid proof")
	ErrInvalidModule            = errors.New("invalid module")
	ErrInvalidState             = errors.New("invalid state")
	ErrInvalidCaller            = errors.New("invalid caller")
	ErrOwnerLookupFailed        = errors.New("owner lookup failed")
	ErrAlreadyClaimed           = errors.New("already claimed")
	ErrActionFailed             = errors.New("action failed")
	ErrMalformedClaim           = errors.New("malformed claim")
	ErrReentrantCall            = errors.New("reentrant call")

	// returned by the administrative task layer, the registry itself is idempotent
	ErrAlreadyValidator = errors.New("already a validator")
	ErrNotValidator     = errors.New("not a validator")
)
