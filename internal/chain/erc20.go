package chain

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"swapscan/internal/felt"
)

var (
	selName        = Selector("name")
	selSymbol      = Selector("symbol")
	selDecimals    = Selector("decimals")
	selTotalSupply = Selector("totalSupply")
	selBalanceOf   = Selector("balanceOf")
)

// TokenName reads the short-string name of a token contract.
func (c *Caller) TokenName(ctx context.Context, token, blockHash felt.Felt) (string, error) {
	res, err := c.Call(ctx, token, selName, nil, blockHash)
	if err != nil {
		return "", err
	}
	if len(res) < 1 {
		return "", fmt.Errorf("name call on %s returned no data", token.Hex())
	}
	return res[0].ShortString(), nil
}

// TokenSymbol reads the short-string symbol of a token contract.
func (c *Caller) TokenSymbol(ctx context.Context, token, blockHash felt.Felt) (string, error) {
	res, err := c.Call(ctx, token, selSymbol, nil, blockHash)
	if err != nil {
		return "", err
	}
	if len(res) < 1 {
		return "", fmt.Errorf("symbol call on %s returned no data", token.Hex())
	}
	return res[0].ShortString(), nil
}

// TokenDecimals reads the decimal count of a token contract.
func (c *Caller) TokenDecimals(ctx context.Context, token, blockHash felt.Felt) (int64, error) {
	res, err := c.Call(ctx, token, selDecimals, nil, blockHash)
	if err != nil {
		return 0, err
	}
	if len(res) < 1 {
		return 0, fmt.Errorf("decimals call on %s returned no data", token.Hex())
	}
	return int64(res[0].Uint64()), nil
}

// TokenTotalSupply reads the total supply of a token contract as a
// raw 256-bit integer.
func (c *Caller) TokenTotalSupply(ctx context.Context, token, blockHash felt.Felt) (*uint256.Int, error) {
	res, err := c.Call(ctx, token, selTotalSupply, nil, blockHash)
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, fmt.Errorf("totalSupply call on %s returned %d words, want 2", token.Hex(), len(res))
	}
	return felt.U256(res[0], res[1]), nil
}

// BalanceOf reads the raw 256-bit balance of owner in a token
// contract.
func (c *Caller) BalanceOf(ctx context.Context, token, owner, blockHash felt.Felt) (*uint256.Int, error) {
	res, err := c.Call(ctx, token, selBalanceOf, []felt.Felt{owner}, blockHash)
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, fmt.Errorf("balanceOf call on %s returned %d words, want 2", token.Hex(), len(res))
	}
	return felt.U256(res[0], res[1]), nil
}
