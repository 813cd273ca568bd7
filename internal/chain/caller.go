// Package chain is the JSON-RPC client for contract reads. Calls are
// pinned to a block hash so re-reads during reorg handling stay
// consistent, and are paced by a shared rate limiter.
package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"swapscan/internal/felt"
)

// Config holds the RPC connection settings.
type Config struct {
	URL   string
	RPS   float64
	Burst int
}

// Caller wraps the JSON-RPC client.
type Caller struct {
	rpc     *rpc.Client
	limiter *rate.Limiter
}

// Dial connects to the RPC node.
func Dial(ctx context.Context, cfg Config) (*Caller, error) {
	client, err := rpc.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rpc node: %w", err)
	}
	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return &Caller{rpc: client, limiter: limiter}, nil
}

// Close closes the connection.
func (c *Caller) Close() {
	c.rpc.Close()
}

type callRequest struct {
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
}

func newCallRequest(contract, selector felt.Felt, calldata []felt.Felt) callRequest {
	data := make([]string, 0, len(calldata))
	for _, f := range calldata {
		data = append(data, f.Hex())
	}
	return callRequest{
		ContractAddress:    contract.Hex(),
		EntryPointSelector: selector.Hex(),
		Calldata:           data,
	}
}

// blockID selects the state the call runs against. The zero hash means
// the latest state.
func blockID(hash felt.Felt) interface{} {
	if hash.IsZero() {
		return "latest"
	}
	return map[string]string{"block_hash": hash.Hex()}
}

// Call executes a read-only contract call at the given block.
func (c *Caller) Call(ctx context.Context, contract, selector felt.Felt, calldata []felt.Felt, blockHash felt.Felt) ([]felt.Felt, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req := newCallRequest(contract, selector, calldata)
	var raw []string
	if err := c.rpc.CallContext(ctx, &raw, "starknet_call", req, blockID(blockHash)); err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", selector.Hex(), contract.Hex(), err)
	}
	out, err := parseFelts(raw)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", selector.Hex(), contract.Hex(), err)
	}
	return out, nil
}

func parseFelts(raw []string) ([]felt.Felt, error) {
	out := make([]felt.Felt, len(raw))
	for i, s := range raw {
		f, err := felt.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("result word %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}
