package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"swapscan/internal/felt"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func TestSubscribeAndNext(t *testing.T) {
	t.Parallel()

	factory := felt.MustParse("0xdad")
	key := felt.MustParse("0x123")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var req request
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if req.Method != "subscribe" {
			t.Errorf("method = %q, want subscribe", req.Method)
		}
		if req.Cursor == nil || *req.Cursor != 10760 {
			t.Errorf("cursor = %v, want 10760", req.Cursor)
		}
		if req.Filter == nil || !req.Filter.WeakHeader {
			t.Errorf("filter = %+v, want weak header", req.Filter)
		}
		if len(req.Filter.Events) != 1 || req.Filter.Events[0].FromAddress != factory || req.Filter.Events[0].Key != key {
			t.Errorf("filter events = %+v", req.Filter.Events)
		}

		if err := conn.WriteJSON(message{Type: "heartbeat"}); err != nil {
			t.Errorf("write heartbeat: %v", err)
			return
		}
		block := Block{
			Header: Header{
				Number:     10760,
				Hash:       felt.MustParse("0xaaa"),
				ParentHash: felt.MustParse("0xbbb"),
				Timestamp:  time.Date(2022, 11, 17, 12, 0, 0, 0, time.UTC),
			},
			Events: []Event{{
				FromAddress:     factory,
				Keys:            []felt.Felt{key},
				Data:            []felt.Felt{felt.MustParse("0x1"), felt.MustParse("0x2")},
				TransactionHash: felt.MustParse("0xccc"),
				LogIndex:        3,
			}},
		}
		if err := conn.WriteJSON(message{Type: "block", Block: &block}); err != nil {
			t.Errorf("write block: %v", err)
		}

		// Then the filter update issued after the pair insert.
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read update: %v", err)
			return
		}
		if req.Method != "update_filter" {
			t.Errorf("method = %q, want update_filter", req.Method)
		}
		if req.Cursor != nil {
			t.Errorf("update_filter carries cursor %v", *req.Cursor)
		}
		if len(req.Filter.Events) != 2 {
			t.Errorf("updated filter has %d events, want 2", len(req.Filter.Events))
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	filter := Filter{WeakHeader: true}
	filter.Add(factory, key)
	if err := client.Subscribe(filter, 10760); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	block, err := client.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if block.Header.Number != 10760 {
		t.Fatalf("block number = %d, want 10760", block.Header.Number)
	}
	if block.Header.Hash.Hex() != "0xaaa" {
		t.Fatalf("block hash = %s", block.Header.Hash.Hex())
	}
	if !block.Header.Timestamp.Equal(time.Date(2022, 11, 17, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("timestamp = %s", block.Header.Timestamp)
	}
	if len(block.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(block.Events))
	}
	ev := block.Events[0]
	if ev.FromAddress != factory || len(ev.Keys) != 1 || ev.Keys[0] != key {
		t.Fatalf("event = %+v", ev)
	}
	if ev.LogIndex != 3 || ev.TransactionHash.Hex() != "0xccc" {
		t.Fatalf("event meta = %+v", ev)
	}

	filter.Add(felt.MustParse("0xdead"), felt.MustParse("0x456"))
	if err := client.UpdateFilter(filter); err != nil {
		t.Fatalf("update filter: %v", err)
	}
}

func TestNextRejectsUnknownMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		if err := conn.WriteJSON(message{Type: "surprise"}); err != nil {
			t.Errorf("write: %v", err)
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if _, err := client.Next(ctx); err == nil {
		t.Fatalf("expected error for unknown message type")
	}
}
