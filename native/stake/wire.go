package stake

// Opcodes served by the query server, the union of the ledger's historical
// surfaces. Per-asset opcodes take the asset's block and tx limbs as the two
// inputs, address opcodes take the witness halves low-first. Numeric replies
// are exactly 16 little-endian bytes.
const (
	// OpGetName reports the ledger's display name.
	OpGetName uint64 = 99
	// OpGetSymbol reports the ledger's display symbol.
	OpGetSymbol uint64 = 100
	// OpGetReceiptSupply reports how many receipt instances exist.
	OpGetReceiptSupply uint64 = 101
	// OpGetReceiptCap reports the configured receipt instance cap.
	OpGetReceiptCap uint64 = 102
	// OpGetReceiptsMinted reports how many receipts have been minted.
	OpGetReceiptsMinted uint64 = 103

	// OpGetStakedIDs reports the concatenated asset keys staked by a witness.
	OpGetStakedIDs uint64 = 501
	// OpGetStakeRewards reports the accumulated staked span of one asset.
	OpGetStakeRewards uint64 = 502
	// OpGetLockScript reports the locking script archived for a timelock
	// stake, keyed by witness and asset.
	OpGetLockScript uint64 = 503
	// OpGetTotalStakedAlt is the historical alias of OpGetTotalStaked.
	OpGetTotalStakedAlt uint64 = 504
	// OpGetTotalRewards reports the block spans credited across all assets.
	OpGetTotalRewards uint64 = 505
	// OpGetEligibility reports 1 when the asset belongs to the collection and
	// is not currently staked.
	OpGetEligibility uint64 = 506
	// OpGetStakedHeight reports the height the asset was staked at. It errors
	// for assets not currently staked.
	OpGetStakedHeight uint64 = 507
	// OpGetStakedByReceipt reports the "block:tx" text of the original bound
	// to a receipt.
	OpGetStakedByReceipt uint64 = 508
	// OpGetUnstakeHeight reports the height the asset was last released at.
	OpGetUnstakeHeight uint64 = 509
	// OpGetTotalStakedBlocks reports the asset's accumulated staked span.
	OpGetTotalStakedBlocks uint64 = 510
	// OpGetTotalStaked reports the global staked counter.
	OpGetTotalStaked uint64 = 511
	// OpGetTotalUnstaked reports how many receipt releases have happened.
	OpGetTotalUnstaked uint64 = 512

	// OpGetIdentifier reports the ledger's own "block:tx" identifier.
	OpGetIdentifier uint64 = 998

	// OpAssetMintIndex asks an asset contract which mint index it carries.
	// The engine issues it against receipt candidates, it is not served.
	OpAssetMintIndex uint64 = 999
)
