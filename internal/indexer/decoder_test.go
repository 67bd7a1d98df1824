package indexer

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/akarpov91/polyindexer/internal/domain"
)

func fillData(words ...*big.Int) []byte {
	data := make([]byte, 0, len(words)*32)
	for _, w := range words {
		data = append(data, common.BigToHash(w).Bytes()...)
	}
	return data
}

func fillLog(makerAsset, takerAsset, makerAmount, takerAmount, fee *big.Int) types.Log {
	orderHash := new(big.Int).SetInt64(0xabc)
	return types.Log{
		Address: common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4d8dE6bd8B8982E"),
		Topics: []common.Hash{
			// topic0 is the event signature; the decoder trusts the filter
			// and never re-checks it.
			common.HexToHash("0xd0a08e8c493f9c94f29311604c9de1b4e8c8d4c06bd0c789af57f2d65bfec0f6"),
			common.HexToHash("0x000000000000000000000000aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
			common.HexToHash("0x000000000000000000000000bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
		},
		Data:        fillData(orderHash, makerAsset, takerAsset, makerAmount, takerAmount, fee),
		BlockNumber: 7_500_000,
		TxHash:      common.HexToHash("0x11"),
		Index:       4,
		BlockHash:   common.HexToHash("0x22"),
	}
}

func TestDecodeOrderFilledBuy(t *testing.T) {
	tokenID, _ := new(big.Int).SetString("71321045679252212594626385532706912750332728571942532289631379312455583992563", 10)

	lg := fillLog(
		big.NewInt(0),         // maker gives USDC
		tokenID,               // taker gives outcome tokens
		big.NewInt(650_000),   // 0.65 USDC
		big.NewInt(1_000_000), // 1 token
		big.NewInt(10_000),    // 0.01 USDC fee
	)

	trade, err := DecodeOrderFilled(lg)
	if err != nil {
		t.Fatalf("DecodeOrderFilled: %v", err)
	}

	if trade.Side != domain.TradeSideBuy {
		t.Errorf("side = %s, want BUY", trade.Side)
	}
	if trade.TokenID != tokenID.String() {
		t.Errorf("token_id = %s, want %s", trade.TokenID, tokenID)
	}
	if want := decimal.RequireFromString("0.65"); !trade.Price.Equal(want) {
		t.Errorf("price = %s, want %s", trade.Price, want)
	}
	if want := decimal.RequireFromString("1"); !trade.Size.Equal(want) {
		t.Errorf("size = %s, want %s", trade.Size, want)
	}
	if want := decimal.RequireFromString("0.01"); !trade.Fee.Equal(want) {
		t.Errorf("fee = %s, want %s", trade.Fee, want)
	}
	if trade.Maker != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Errorf("maker = %s", trade.Maker)
	}
	if trade.Taker != "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb" {
		t.Errorf("taker = %s", trade.Taker)
	}
	if trade.BlockNumber != 7_500_000 || trade.LogIndex != 4 {
		t.Errorf("position = (%d, %d)", trade.BlockNumber, trade.LogIndex)
	}
}

func TestDecodeOrderFilledSell(t *testing.T) {
	tokenID := big.NewInt(987654321)

	lg := fillLog(
		tokenID,               // maker gives outcome tokens
		big.NewInt(0),         // taker gives USDC
		big.NewInt(2_000_000), // 2 tokens
		big.NewInt(800_000),   // 0.80 USDC
		big.NewInt(0),
	)

	trade, err := DecodeOrderFilled(lg)
	if err != nil {
		t.Fatalf("DecodeOrderFilled: %v", err)
	}

	if trade.Side != domain.TradeSideSell {
		t.Errorf("side = %s, want SELL", trade.Side)
	}
	if trade.TokenID != "987654321" {
		t.Errorf("token_id = %s", trade.TokenID)
	}
	if want := decimal.RequireFromString("0.4"); !trade.Price.Equal(want) {
		t.Errorf("price = %s, want 0.4", trade.Price)
	}
	if want := decimal.RequireFromString("2"); !trade.Size.Equal(want) {
		t.Errorf("size = %s, want 2", trade.Size)
	}
}

func TestDecodeOrderFilledZeroTokenAmount(t *testing.T) {
	lg := fillLog(big.NewInt(0), big.NewInt(42), big.NewInt(100), big.NewInt(0), big.NewInt(0))

	trade, err := DecodeOrderFilled(lg)
	if err != nil {
		t.Fatalf("DecodeOrderFilled: %v", err)
	}
	if !trade.Price.IsZero() || !trade.Size.IsZero() {
		t.Errorf("price/size = %s/%s, want zero for zero token amount", trade.Price, trade.Size)
	}
}

func TestDecodeOrderFilledMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Log)
	}{
		{"missing topics", func(lg *types.Log) { lg.Topics = lg.Topics[:2] }},
		{"short data", func(lg *types.Log) { lg.Data = lg.Data[:5*32] }},
		{"ragged data", func(lg *types.Log) { lg.Data = lg.Data[:6*32-1] }},
		{"empty data", func(lg *types.Log) { lg.Data = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg := fillLog(big.NewInt(0), big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(0))
			tt.mutate(&lg)
			_, err := DecodeOrderFilled(lg)
			if !errors.Is(err, domain.ErrDecode) {
				t.Fatalf("err = %v, want ErrDecode", err)
			}
		})
	}
}
