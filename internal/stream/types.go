// Package stream is the websocket client for the block/event stream.
// The protocol is JSON: the client subscribes with a filter and a
// cursor, the server replies with an ordered sequence of block
// messages interleaved with heartbeats. The filter can be swapped at
// runtime without reconnecting.
package stream

import (
	"time"

	"swapscan/internal/felt"
)

// Filter selects which events a subscription delivers. WeakHeader
// requests every block header even when no event matches.
type Filter struct {
	WeakHeader bool          `json:"weak_header"`
	Events     []EventFilter `json:"events"`
}

// EventFilter matches events by emitting contract and first key.
type EventFilter struct {
	FromAddress felt.Felt `json:"from_address"`
	Key         felt.Felt `json:"key"`
}

// Add appends an (address, key) subscription to the filter.
func (f *Filter) Add(from, key felt.Felt) {
	f.Events = append(f.Events, EventFilter{FromAddress: from, Key: key})
}

// Header is the block header part of a block message.
type Header struct {
	Number     int64     `json:"number"`
	Hash       felt.Felt `json:"hash"`
	ParentHash felt.Felt `json:"parent_hash"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event is one contract event with its raw key and data words.
type Event struct {
	FromAddress     felt.Felt   `json:"from_address"`
	Keys            []felt.Felt `json:"keys"`
	Data            []felt.Felt `json:"data"`
	TransactionHash felt.Felt   `json:"transaction_hash"`
	LogIndex        int64       `json:"log_index"`
}

// Block is one finalized block with the events matching the filter.
type Block struct {
	Header Header  `json:"header"`
	Events []Event `json:"events"`
}

type request struct {
	Method string  `json:"method"`
	Filter *Filter `json:"filter,omitempty"`
	Cursor *int64  `json:"cursor,omitempty"`
}

type message struct {
	Type  string `json:"type"`
	Block *Block `json:"block,omitempty"`
}

const (
	methodSubscribe    = "subscribe"
	methodUpdateFilter = "update_filter"

	messageBlock     = "block"
	messageHeartbeat = "heartbeat"
)
