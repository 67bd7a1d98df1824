// Package indexer scans CTF Exchange OrderFilled logs into stored trades,
// tracking progress in sync_state so scans can resume after a restart.
package indexer

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/akarpov91/polyindexer/internal/domain"
)

// usdcScale converts raw 6-decimal USDC amounts to whole units.
var usdcScale = decimal.New(1, 6)

const (
	wordSize         = 32
	orderFilledWords = 6
)

// DecodeOrderFilled converts a raw OrderFilled log into a domain.Trade.
//
// Layout: maker and taker are the two indexed address topics; the data
// payload carries six 32-byte words (orderHash, makerAssetId, takerAssetId,
// makerAmountFilled, takerAmountFilled, fee). Asset id 0 is collateral, so a
// fill where the maker gives collateral is a BUY of the taker's outcome
// token. The block timestamp is not in the log and is filled in by the
// caller.
//
// Returns domain.ErrDecode for any log that does not match the layout.
func DecodeOrderFilled(lg types.Log) (domain.Trade, error) {
	if len(lg.Topics) < 3 {
		return domain.Trade{}, fmt.Errorf("%w: expected 3 topics, got %d (tx %s log %d)",
			domain.ErrDecode, len(lg.Topics), lg.TxHash.Hex(), lg.Index)
	}
	if len(lg.Data)%wordSize != 0 || len(lg.Data) < orderFilledWords*wordSize {
		return domain.Trade{}, fmt.Errorf("%w: data payload length %d (tx %s log %d)",
			domain.ErrDecode, len(lg.Data), lg.TxHash.Hex(), lg.Index)
	}

	word := func(i int) *big.Int {
		return new(big.Int).SetBytes(lg.Data[i*wordSize : (i+1)*wordSize])
	}
	orderHash := lg.Data[0:wordSize]
	makerAssetID := word(1)
	takerAssetID := word(2)
	makerAmount := word(3)
	takerAmount := word(4)
	fee := word(5)

	side := domain.TradeSideSell
	tokenID, tokenAmount, usdcAmount := makerAssetID, makerAmount, takerAmount
	if makerAssetID.Sign() == 0 && takerAssetID.Sign() != 0 {
		side = domain.TradeSideBuy
		tokenID, tokenAmount, usdcAmount = takerAssetID, takerAmount, makerAmount
	}

	price := decimal.Zero
	size := decimal.Zero
	if tokenAmount.Sign() != 0 {
		size = decimal.NewFromBigInt(tokenAmount, 0).Div(usdcScale)
		price = decimal.NewFromBigInt(usdcAmount, 0).Div(decimal.NewFromBigInt(tokenAmount, 0))
	}

	return domain.Trade{
		TxHash:          lg.TxHash.Hex(),
		LogIndex:        lg.Index,
		BlockNumber:     lg.BlockNumber,
		BlockHash:       lg.BlockHash.Hex(),
		TokenID:         tokenID.String(),
		Maker:           topicAddress(lg.Topics[1]),
		Taker:           topicAddress(lg.Topics[2]),
		Side:            side,
		Price:           price,
		Size:            size,
		Fee:             decimal.NewFromBigInt(fee, 0).Div(usdcScale),
		OrderHash:       hexutil.Encode(orderHash),
		MakerAssetID:    makerAssetID.String(),
		TakerAssetID:    takerAssetID.String(),
		ExchangeAddress: hexutil.Encode(lg.Address.Bytes()),
	}, nil
}

// topicAddress extracts the address packed into the low 20 bytes of a topic.
func topicAddress(topic [32]byte) string {
	return hexutil.Encode(topic[12:])
}
