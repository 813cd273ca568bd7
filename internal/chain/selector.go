package chain

import (
	"github.com/ethereum/go-ethereum/crypto"

	"swapscan/internal/felt"
)

// Selector computes the entry-point selector for a function or event
// name: Keccak-256 truncated to 250 bits so it fits the field.
func Selector(name string) felt.Felt {
	var f felt.Felt
	copy(f[:], crypto.Keccak256([]byte(name)))
	f[0] &= 0x03
	return f
}
