package state

var (
	stakeRecordPrefix       = []byte("vault/stake/record/")
	stakeIndexPrefix        = []byte("vault/stake/index/")
	receiptBindingPrefix    = []byte("vault/stake/receipt/")
	receiptInstancePrefix   = []byte("vault/stake/instance/")
	receiptInstanceCountKey = []byte("vault/stake/instance-count")
	lockScriptPrefix        = []byte("vault/stake/lock/")
	totalStakedKey          = []byte("vault/stake/total")
	totalUnstakedKey        = []byte("vault/stake/unstaked")
	totalRewardsKey         = []byte("vault/stake/rewards")

	claimRecordPrefix = []byte("vault/claim/record/")
	totalClaimedKey   = []byte("vault/claim/total")

	tokenMetaKey    = []byte("vault/token/meta")
	issuedSupplyKey = []byte("vault/token/supply")
	initializedKey  = []byte("vault/initialized")

	poolSlotPrefix       = []byte("vault/pool/slot/")
	poolDepositIndexKey  = []byte("vault/pool/deposit-index")
	poolRetrieveIndexKey = []byte("vault/pool/retrieve-index")
	poolBalanceKey       = []byte("vault/pool/balance")
)
