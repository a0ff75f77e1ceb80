package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// EthClient is the narrow RPC surface the indexer needs. The indexer loop and
// tests depend on this interface rather than the concrete client.
type EthClient interface {
	// ChainID returns the chain id reported by the node.
	ChainID(ctx context.Context) (uint64, error)
	// LatestBlock returns the number of the most recent block.
	LatestBlock(ctx context.Context) (uint64, error)
	// GetLogs retrieves logs matching the given filter query.
	GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
}

// Compile-time check to ensure Client implements the EthClient interface.
var _ EthClient = (*Client)(nil)

// Client wraps the Ethereum RPC client with the calls the indexer needs.
// Every call is bounded by the configured timeout so an unresponsive node
// cannot stall a tick indefinitely.
type Client struct {
	eth     *ethclient.Client
	rpc     *rpc.Client
	timeout time.Duration
}

// NewClient creates a new RPC client connected to the given endpoint.
func NewClient(ctx context.Context, endpoint string, timeout time.Duration) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	return &Client{
		eth:     ethclient.NewClient(rpcClient),
		rpc:     rpcClient,
		timeout: timeout,
	}, nil
}

// Close closes the RPC client connection.
func (c *Client) Close() {
	c.eth.Close()
}

// ChainID returns the chain id reported by the node.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	id, err := c.eth.ChainID(ctx)
	observeCall("eth_chainId", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain id: %w", err)
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("chain id %s does not fit in uint64", id)
	}
	return id.Uint64(), nil
}

// LatestBlock returns the number of the most recent block.
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	num, err := c.eth.BlockNumber(ctx)
	observeCall("eth_blockNumber", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return num, nil
}

// GetLogs retrieves logs matching the given filter query.
func (c *Client) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	logs, err := c.eth.FilterLogs(ctx, query)
	observeCall("eth_getLogs", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs: %w", err)
	}
	return logs, nil
}
