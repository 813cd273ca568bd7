package indexer

import (
	"fmt"

	"github.com/holiman/uint256"

	"swapscan/internal/chain"
	"swapscan/internal/felt"
)

// Event keys are the Keccak-250 hashes of the event names. PairCreated
// is computed because only the factory emits it; the pair-contract
// keys are pinned to the values observed on chain.
var (
	keyPairCreated = chain.Selector("PairCreated")
	keyTransfer    = felt.MustParse("0x99cd8bde557814842a3121e8ddfd433a539b8c9f14bf31ebf108d12e6196e9")
	keySwap        = felt.MustParse("0xe316f0d9d2a3affa97de1d99bb2aac0538e2666d0d8545545ead241ef0ccab")
	keySync        = felt.MustParse("0xe14a408baf7f453312eec68e9b7d728ec5337fbdf671f917ee8c80f3255232")
	keyMint        = felt.MustParse("0x34e55c1cd55f1338241b50d352f0e91c7e4ffad0e4271d64eb347589ebdfd16")
	keyBurn        = felt.MustParse("0x243e1de00e8a6bc1dfa3e950e6ade24c52e4a25de4dee7fb5affe918ad1e744")
)

// pairEventKeys are the five events a pair contract emits, subscribed
// for every pair the factory announces.
var pairEventKeys = []felt.Felt{keyTransfer, keySwap, keySync, keyMint, keyBurn}

type pairCreatedEvent struct {
	Token0     felt.Felt
	Token1     felt.Felt
	Pair       felt.Felt
	TotalPairs int64
}

func decodePairCreated(data []felt.Felt) (pairCreatedEvent, error) {
	if len(data) < 4 {
		return pairCreatedEvent{}, fmt.Errorf("PairCreated payload has %d words, want 4", len(data))
	}
	return pairCreatedEvent{
		Token0:     data[0],
		Token1:     data[1],
		Pair:       data[2],
		TotalPairs: int64(data[3].Uint64()),
	}, nil
}

type transferEvent struct {
	From  felt.Felt
	To    felt.Felt
	Value *uint256.Int
}

func decodeTransfer(data []felt.Felt) (transferEvent, error) {
	if len(data) < 4 {
		return transferEvent{}, fmt.Errorf("Transfer payload has %d words, want 4", len(data))
	}
	return transferEvent{
		From:  data[0],
		To:    data[1],
		Value: felt.U256(data[2], data[3]),
	}, nil
}

type swapEvent struct {
	Sender     felt.Felt
	Amount0In  *uint256.Int
	Amount1In  *uint256.Int
	Amount0Out *uint256.Int
	Amount1Out *uint256.Int
	To         felt.Felt
}

func decodeSwap(data []felt.Felt) (swapEvent, error) {
	if len(data) < 10 {
		return swapEvent{}, fmt.Errorf("Swap payload has %d words, want 10", len(data))
	}
	return swapEvent{
		Sender:     data[0],
		Amount0In:  felt.U256(data[1], data[2]),
		Amount1In:  felt.U256(data[3], data[4]),
		Amount0Out: felt.U256(data[5], data[6]),
		Amount1Out: felt.U256(data[7], data[8]),
		To:         data[9],
	}, nil
}

type syncEvent struct {
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
}

func decodeSync(data []felt.Felt) (syncEvent, error) {
	if len(data) < 4 {
		return syncEvent{}, fmt.Errorf("Sync payload has %d words, want 4", len(data))
	}
	return syncEvent{
		Reserve0: felt.U256(data[0], data[1]),
		Reserve1: felt.U256(data[2], data[3]),
	}, nil
}

type mintEvent struct {
	Sender  felt.Felt
	Amount0 *uint256.Int
	Amount1 *uint256.Int
}

func decodeMint(data []felt.Felt) (mintEvent, error) {
	if len(data) < 5 {
		return mintEvent{}, fmt.Errorf("Mint payload has %d words, want 5", len(data))
	}
	return mintEvent{
		Sender:  data[0],
		Amount0: felt.U256(data[1], data[2]),
		Amount1: felt.U256(data[3], data[4]),
	}, nil
}

type burnEvent struct {
	Sender  felt.Felt
	Amount0 *uint256.Int
	Amount1 *uint256.Int
	To      felt.Felt
}

func decodeBurn(data []felt.Felt) (burnEvent, error) {
	if len(data) < 6 {
		return burnEvent{}, fmt.Errorf("Burn payload has %d words, want 6", len(data))
	}
	return burnEvent{
		Sender:  data[0],
		Amount0: felt.U256(data[1], data[2]),
		Amount1: felt.U256(data[3], data[4]),
		To:      data[5],
	}, nil
}
