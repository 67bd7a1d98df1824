// Package chain wraps the go-ethereum JSON-RPC client with the narrow
// surface the indexer needs: fill-log filtering, block resolution, and block
// timestamps, with RPC failures mapped onto domain error kinds.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/akarpov91/polyindexer/internal/domain"
)

// OrderFilledSignature is the canonical signature of the CTF Exchange fill
// event whose logs the indexer decodes.
const OrderFilledSignature = "OrderFilled(bytes32,address,address,uint256,uint256,uint256,uint256,uint256)"

// OrderFilledTopic is keccak256 of OrderFilledSignature, used as topic0 in
// log filters.
var OrderFilledTopic = common.BytesToHash(crypto.Keccak256([]byte(OrderFilledSignature)))

// Client wraps an ethclient connection.
type Client struct {
	ec *ethclient.Client
}

// Dial connects to the JSON-RPC endpoint at rpcURL.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, classifyRPCErr(err))
	}
	return &Client{ec: ec}, nil
}

// NewClient wraps an existing ethclient connection.
func NewClient(ec *ethclient.Client) *Client {
	return &Client{ec: ec}
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.ec.Close()
}

// FilterFillLogs returns all OrderFilled logs emitted by the given exchange
// addresses in [fromBlock, toBlock], in the node's (block, log index) order.
func (c *Client) FilterFillLogs(ctx context.Context, addresses []common.Address, fromBlock, toBlock uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		Addresses: addresses,
		Topics:    [][]common.Hash{{OrderFilledTopic}},
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
	}

	logs, err := c.ec.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("chain: filter logs [%d,%d]: %w", fromBlock, toBlock, classifyRPCErr(err))
	}
	return logs, nil
}

// BlockOfTx resolves a transaction hash to the block number it was mined in.
// It returns domain.ErrNotFound for transactions unknown to the node and for
// transactions still pending.
func (c *Client) BlockOfTx(ctx context.Context, txHash common.Hash) (uint64, error) {
	receipt, err := c.ec.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return 0, fmt.Errorf("chain: %w: tx %s", domain.ErrNotFound, txHash.Hex())
		}
		return 0, fmt.Errorf("chain: receipt for %s: %w", txHash.Hex(), classifyRPCErr(err))
	}
	if receipt.BlockNumber == nil {
		return 0, fmt.Errorf("chain: %w: tx %s not yet mined", domain.ErrNotFound, txHash.Hex())
	}
	return receipt.BlockNumber.Uint64(), nil
}

// BlockTimestamp returns the Unix timestamp of the given block.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	header, err := c.ec.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return 0, fmt.Errorf("chain: %w: block %d", domain.ErrNotFound, number)
		}
		return 0, fmt.Errorf("chain: header %d: %w", number, classifyRPCErr(err))
	}
	return header.Time, nil
}

// HeadBlock returns the current chain head block number.
func (c *Client) HeadBlock(ctx context.Context) (uint64, error) {
	n, err := c.ec.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("chain: head block: %w", classifyRPCErr(err))
	}
	return n, nil
}

// classifyRPCErr maps RPC failures onto domain error kinds. Providers signal
// an oversized range with differing messages, so matching is substring-based.
func classifyRPCErr(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "block range"),
		strings.Contains(msg, "too many results"),
		strings.Contains(msg, "query returned more than"),
		strings.Contains(msg, "limit exceeded"):
		return fmt.Errorf("%w: %v", domain.ErrRangeTooLarge, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") {
		return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	return err
}
