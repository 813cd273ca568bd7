package chain

import (
	"encoding/json"
	"testing"

	"swapscan/internal/felt"
)

func TestSelectorFitsField(t *testing.T) {
	t.Parallel()

	names := []string{"name", "symbol", "decimals", "totalSupply", "balanceOf", "Transfer", "Swap", "Sync", "Mint", "Burn", "PairCreated"}
	seen := make(map[felt.Felt]string)
	for _, name := range names {
		sel := Selector(name)
		if sel.IsZero() {
			t.Fatalf("Selector(%q) is zero", name)
		}
		if sel[0] > 0x03 {
			t.Fatalf("Selector(%q) exceeds 250 bits: first byte %#x", name, sel[0])
		}
		if prev, dup := seen[sel]; dup {
			t.Fatalf("Selector collision between %q and %q", name, prev)
		}
		seen[sel] = name
	}
}

func TestSelectorDeterministic(t *testing.T) {
	t.Parallel()

	if Selector("Transfer") != Selector("Transfer") {
		t.Fatalf("selector not deterministic")
	}
	if Selector("transfer") == Selector("Transfer") {
		t.Fatalf("selector ignores case")
	}
}

func TestCallRequestShape(t *testing.T) {
	t.Parallel()

	contract := felt.MustParse("0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7")
	owner := felt.MustParse("0xabc")
	req := newCallRequest(contract, selBalanceOf, []felt.Felt{owner})

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["contract_address"] != contract.Hex() {
		t.Fatalf("contract_address = %v", decoded["contract_address"])
	}
	calldata, ok := decoded["calldata"].([]interface{})
	if !ok || len(calldata) != 1 || calldata[0] != "0xabc" {
		t.Fatalf("calldata = %v", decoded["calldata"])
	}

	// Empty calldata must serialize as [], not null.
	req = newCallRequest(contract, selName, nil)
	data, err = json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw struct {
		Calldata json.RawMessage `json:"calldata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(raw.Calldata) != "[]" {
		t.Fatalf("empty calldata = %s, want []", raw.Calldata)
	}
}

func TestBlockID(t *testing.T) {
	t.Parallel()

	if got := blockID(felt.Zero); got != "latest" {
		t.Fatalf("zero hash block id = %v, want latest", got)
	}
	h := felt.MustParse("0x7d328a7")
	id, ok := blockID(h).(map[string]string)
	if !ok || id["block_hash"] != "0x7d328a7" {
		t.Fatalf("block id = %v", blockID(h))
	}
}

func TestParseFelts(t *testing.T) {
	t.Parallel()

	out, err := parseFelts([]string{"0x1", "0xff"})
	if err != nil {
		t.Fatalf("parseFelts: %v", err)
	}
	if len(out) != 2 || out[0].Uint64() != 1 || out[1].Uint64() != 255 {
		t.Fatalf("parseFelts = %v", out)
	}
	if _, err := parseFelts([]string{"0x1", "bogus-zz"}); err == nil {
		t.Fatalf("expected parse error")
	}
}
