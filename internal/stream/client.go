package stream

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

// Client is a single-subscription stream connection.
type Client struct {
	conn *websocket.Conn
}

// Dial connects to the stream endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stream: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Subscribe starts delivery from cursor with the given filter.
func (c *Client) Subscribe(filter Filter, cursor int64) error {
	req := request{Method: methodSubscribe, Filter: &filter, Cursor: &cursor}
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// UpdateFilter swaps the subscription filter without reconnecting.
// Delivery continues from the current position.
func (c *Client) UpdateFilter(filter Filter) error {
	req := request{Method: methodUpdateFilter, Filter: &filter}
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("update filter: %w", err)
	}
	return nil
}

// Next blocks until the next block arrives, skipping heartbeats. Close
// from another goroutine unblocks it with an error.
func (c *Client) Next(ctx context.Context) (*Block, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var msg message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("read stream: %w", err)
		}
		switch msg.Type {
		case messageBlock:
			if msg.Block == nil {
				return nil, fmt.Errorf("block message without body")
			}
			return msg.Block, nil
		case messageHeartbeat:
			continue
		default:
			return nil, fmt.Errorf("unexpected stream message type %q", msg.Type)
		}
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
