package rewards

import "errors"

var (
	// ErrNoAssets is returned when a claim arrives with an empty id list.
	ErrNoAssets = errors.New("rewards: claim requires at least one asset")
	// ErrNothingToClaim is returned when an asset's accrual is already fully
	// claimed. It fails the whole batch.
	ErrNothingToClaim = errors.New("rewards: no rewards available")
	// ErrSupplyCap is returned when minting the batch total would push the
	// issued supply past the hard cap.
	ErrSupplyCap = errors.New("rewards: issued supply cap reached")
	// ErrNoCaller is returned when the claiming witness is missing.
	ErrNoCaller = errors.New("rewards: caller witness required")

	errNilState    = errors.New("rewards: state backend not configured")
	errNilResolver = errors.New("rewards: resolver not configured")
	errNilLedger   = errors.New("rewards: ledger client not configured")
)
