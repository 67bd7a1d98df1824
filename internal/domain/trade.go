package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide indicates the taker-perspective direction of a fill. A fill is a
// BUY when the maker paid collateral (USDC) for outcome tokens, and a SELL
// when the maker surrendered outcome tokens for collateral.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Trade is one decoded OrderFilled event from the CTF Exchange. Rows are
// append-only: once written they are never updated or deleted, and the pair
// (TxHash, LogIndex) is globally unique. Seq is the storage-assigned insertion
// sequence used as the pagination cursor.
type Trade struct {
	Seq             int64           `json:"seq"`
	TxHash          string          `json:"tx_hash"`
	LogIndex        uint            `json:"log_index"`
	BlockNumber     uint64          `json:"block_number"`
	BlockHash       string          `json:"block_hash,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
	TokenID         string          `json:"token_id"`
	Maker           string          `json:"maker"`
	Taker           string          `json:"taker"`
	Side            TradeSide       `json:"side"`
	Price           decimal.Decimal `json:"price"`
	Size            decimal.Decimal `json:"size"`
	Fee             decimal.Decimal `json:"fee"`
	OrderHash       string          `json:"order_hash,omitempty"`
	MakerAssetID    string          `json:"maker_asset_id,omitempty"`
	TakerAssetID    string          `json:"taker_asset_id,omitempty"`
	ExchangeAddress string          `json:"exchange_address,omitempty"`

	// Outcome is derived at read time by joining TokenID against the market
	// pair; it is not persisted. "YES", "NO", or "UNKNOWN" for trades whose
	// market has not been discovered yet.
	Outcome string `json:"outcome,omitempty"`
}
