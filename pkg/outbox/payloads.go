package outbox

// BalanceChangedPayload is the data block carried by balance.changed events.
// It snapshots the full post-mutation ledger state so consumers never need a
// follow-up read to render it; Version orders events per tenant.
type BalanceChangedPayload struct {
	TenantID       string         `json:"tenantId"`
	Buckets        map[string]int `json:"buckets"`
	TotalAvailable int            `json:"totalAvailable"`
	Version        int64          `json:"version"`
	Reason         string         `json:"reason"`
}

// WalletChangedPayload is the data block carried by wallet.changed events.
type WalletChangedPayload struct {
	UserID         string `json:"userId"`
	BalancePaise   int64  `json:"balancePaise"`
	ReservedPaise  int64  `json:"reservedPaise"`
	AvailablePaise int64  `json:"availablePaise"`
	Version        int64  `json:"version"`
	Reason         string `json:"reason"`
}
