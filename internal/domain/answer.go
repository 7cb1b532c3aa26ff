package domain

// AnswerSnapshot is one decoded read of an answer account.
// Corresponds to answer_snapshots table in PostgreSQL.
type AnswerSnapshot struct {
	SnapshotID string // deterministic hash, see idhash.ComputeSnapshotID
	Address    string // answer account (base58)
	Schema     string // layout name, e.g. feed-v1
	Slot       uint64 // slot the account was read at
	Asset      string // feed/mint address or asset code
	Chain      uint64 // source chain id (cross-chain layouts only)
	Name       string
	Price      uint64 // raw integer price
	Decimal    uint64 // decimal exponent applied to Price
	Time       uint64 // on-chain update time, Unix seconds
	PriceType  string // unit, e.g. USD
	ObservedAt int64  // local read time, Unix milliseconds
	CreatedAt  int64  // set by the store
}

// AnswerPricePoint is the scaled price of a snapshot.
// Corresponds to answer_prices table in ClickHouse.
type AnswerPricePoint struct {
	Address     string  // answer account (base58)
	TimestampMs int64   // on-chain update time, Unix milliseconds
	Slot        uint64  // slot the account was read at
	Price       float64 // Price / 10^Decimal
	Unit        string
}
