package felt

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

func TestParseHex(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"0x0", "0x0"},
		{"0x1", "0x1"},
		{"0X1", "0x1"},
		{"abc", "0xabc"},
		{"0x00abc", "0xabc"},
		{"0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7", "0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"},
		{"0x0000000000000000000000000000000000000000000000000000000000000002", "0x2"},
	}

	for _, tc := range cases {
		f, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if got := f.Hex(); got != tc.want {
			t.Fatalf("Parse(%q).Hex()=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"",
		"0x",
		"0xzz",
		"not hex",
		"0x11111111111111111111111111111111111111111111111111111111111111111", // 65 nibbles
	} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("Parse(%q): expected error", in)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"0x0",
		"0x7",
		"0xdead",
		"0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7",
	} {
		f := MustParse(in)
		again, err := Parse(f.Hex())
		if err != nil {
			t.Fatalf("Parse(%q): %v", f.Hex(), err)
		}
		if again != f {
			t.Fatalf("round trip %q: got %v want %v", in, again, f)
		}
	}
}

func TestFromUint64(t *testing.T) {
	t.Parallel()

	f := FromUint64(10760)
	if got := f.Uint64(); got != 10760 {
		t.Fatalf("Uint64()=%d want 10760", got)
	}
	if got := f.Hex(); got != "0x2a08" {
		t.Fatalf("Hex()=%q want %q", got, "0x2a08")
	}
	if !FromUint64(0).IsZero() {
		t.Fatal("FromUint64(0) not zero")
	}
}

func TestShortString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"0x455448", "ETH"},
		{"0x444149", "DAI"},
		{"0x0", ""},
	}

	for _, tc := range cases {
		if got := MustParse(tc.in).ShortString(); got != tc.want {
			t.Fatalf("ShortString(%s)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestU256Composition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		low  string
		high string
		want string
	}{
		{"0x0", "0x0", "0x0"},
		{"0xde0b6b3a7640000", "0x0", "0xde0b6b3a7640000"},
		{"0x0", "0x1", "0x100000000000000000000000000000000"},
		{"0x1", "0x1", "0x100000000000000000000000000000001"},
	}

	for _, tc := range cases {
		got := U256(MustParse(tc.low), MustParse(tc.high))
		want := uint256.MustFromHex(tc.want)
		if !got.Eq(want) {
			t.Fatalf("U256(%s, %s)=%s want %s", tc.low, tc.high, got.Hex(), want.Hex())
		}
	}
}

func TestToDecimal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw      uint64
		decimals int32
		want     string
	}{
		{1000000000000000000, 18, "1"},
		{1500000000000000000, 18, "1.5"},
		{2500000, 6, "2.5"},
		{7, 0, "7"},
		{0, 18, "0"},
	}

	for _, tc := range cases {
		got := ToDecimal(uint256.NewInt(tc.raw), tc.decimals)
		if got.String() != tc.want {
			t.Fatalf("ToDecimal(%d, %d)=%s want %s", tc.raw, tc.decimals, got, tc.want)
		}
	}
}

func TestRatio(t *testing.T) {
	t.Parallel()

	a := decimal.RequireFromString("10")
	b := decimal.RequireFromString("4")
	if got := Ratio(a, b); got.String() != "2.5" {
		t.Fatalf("Ratio(10, 4)=%s want 2.5", got)
	}
	if got := Ratio(a, decimal.Zero); !got.IsZero() {
		t.Fatalf("Ratio(10, 0)=%s want 0", got)
	}
}

func TestTextRoundTrip(t *testing.T) {
	t.Parallel()

	f := MustParse("0x2a08")
	text, err := f.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var back Felt
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if back != f {
		t.Fatalf("round trip: got %v want %v", back, f)
	}
}
