package pool

import "errors"

var (
	// ErrNoIncoming is returned when a deposit or swap-in arrives without
	// assets.
	ErrNoIncoming = errors.New("pool: at least one asset required")
	// ErrNoCaller is returned when the caller witness is missing.
	ErrNoCaller = errors.New("pool: caller witness required")
	// ErrNotEligible is returned when an incoming asset is not part of the
	// collection.
	ErrNotEligible = errors.New("pool: asset not part of the collection")
	// ErrDepositValue is returned when an incoming asset does not carry value
	// one.
	ErrDepositValue = errors.New("pool: each asset must arrive with value one")
	// ErrDuplicateAsset is returned when the same asset appears twice in one
	// batch.
	ErrDuplicateAsset = errors.New("pool: duplicate asset in batch")
	// ErrForeignToken is returned when a fungible swap carries anything other
	// than the vault's own token.
	ErrForeignToken = errors.New("pool: swap requires the vault's own token")
	// ErrBelowRate is returned when the fungible amount buys less than one
	// asset.
	ErrBelowRate = errors.New("pool: amount below the exchange rate")
	// ErrInsufficientStored is returned when the pool holds fewer assets than
	// the swap requests.
	ErrInsufficientStored = errors.New("pool: insufficient stored assets")
	// ErrSupplyCap is returned when minting for a swap-in would push the
	// issued supply past the hard cap.
	ErrSupplyCap = errors.New("pool: issued supply cap reached")
	// ErrEmptySlot is returned by slot introspection for cleared or never
	// written slots.
	ErrEmptySlot = errors.New("pool: slot empty")

	errNilState    = errors.New("pool: state backend not configured")
	errNilVerifier = errors.New("pool: membership verifier not configured")
	errNoIdentity  = errors.New("pool: token identity not configured")
)
