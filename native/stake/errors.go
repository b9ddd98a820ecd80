package stake

import "errors"

var (
	// ErrNotEligible marks an asset outside the configured collection.
	ErrNotEligible = errors.New("stake: asset not eligible")
	// ErrAlreadyStaked rejects staking an asset that is already in custody.
	ErrAlreadyStaked = errors.New("stake: asset already staked")
	// ErrNotStaked rejects releasing an asset that is not in custody.
	ErrNotStaked = errors.New("stake: asset not staked")
	// ErrNotStakedByCaller rejects releasing an asset staked by someone else.
	ErrNotStakedByCaller = errors.New("stake: asset not staked by caller")
	// ErrStakeValue rejects transfers whose value differs from the policy.
	ErrStakeValue = errors.New("stake: transfer value does not match policy")
	// ErrNoIncoming rejects stake calls without any attached asset.
	ErrNoIncoming = errors.New("stake: no incoming assets")
	// ErrNoCaller rejects calls without a caller witness.
	ErrNoCaller = errors.New("stake: caller witness required")
	// ErrLockProofRequired rejects timelock stakes without a lock proof.
	ErrLockProofRequired = errors.New("stake: lock proof required")
	// ErrLockTooShort rejects lock proofs below the minimum height distance.
	ErrLockTooShort = errors.New("stake: lock period too short")
	// ErrLockSingleAsset rejects timelock stakes carrying more than one asset.
	ErrLockSingleAsset = errors.New("stake: timelock stake accepts a single asset")
	// ErrReceiptInput rejects receipt unstakes whose input is not exactly one
	// receipt of value one.
	ErrReceiptInput = errors.New("stake: expected a single receipt of value one")
	// ErrReceiptRequired rejects direct unstakes while receipt mode is active.
	ErrReceiptRequired = errors.New("stake: unstake requires the bound receipt")
	// ErrReceiptsDisabled rejects receipt unstakes while receipt mode is off.
	ErrReceiptsDisabled = errors.New("stake: receipt mode disabled")
	// ErrUnboundReceipt marks a receipt with no recorded original.
	ErrUnboundReceipt = errors.New("stake: receipt not bound to an asset")
	// ErrReceiptsExhausted rejects minting past the configured instance cap.
	ErrReceiptsExhausted = errors.New("stake: receipt instances exhausted")
	// ErrNeverUnstaked marks an asset with no recorded release height.
	ErrNeverUnstaked = errors.New("stake: asset never unstaked")
	// ErrNoLockScript marks a missing lock script archive entry.
	ErrNoLockScript = errors.New("stake: no lock script recorded")
	// ErrIndexMismatch marks a divergence between a stake record and the
	// owner index. It indicates corrupted state and aborts the call.
	ErrIndexMismatch = errors.New("stake: owner index out of sync with record")
	// ErrUnknownOpcode rejects queries the server does not implement.
	ErrUnknownOpcode = errors.New("stake: unknown opcode")

	errNilState    = errors.New("stake: state not configured")
	errNilQuerier  = errors.New("stake: querier not configured")
	errNilFactory  = errors.New("stake: receipt factory not configured")
	errNilVerifier = errors.New("stake: membership verifier not configured")
)
