package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"orbitalvault/core"
	"orbitalvault/core/events"
	"orbitalvault/core/types"
)

func TestEventHubFanout(t *testing.T) {
	hub := newEventHub()
	id, updates := hub.subscribe()

	hub.Emit(events.StakeLocked{
		Owner:  types.Witness{},
		Asset:  types.NewAssetID(2, 7),
		Height: 100,
	})

	select {
	case evt := <-updates:
		if evt.Type != events.TypeStakeLocked {
			t.Fatalf("expected %s, got %s", events.TypeStakeLocked, evt.Type)
		}
		if evt.Attributes["asset"] != "2:7" {
			t.Fatalf("expected asset attribute, got %+v", evt.Attributes)
		}
	default:
		t.Fatalf("expected buffered event")
	}

	// A full subscriber drops events instead of blocking the emitter.
	for i := 0; i < wsBacklog+5; i++ {
		hub.Emit(events.SupplyCapHit{Requested: big.NewInt(1), Issued: big.NewInt(0), Cap: big.NewInt(1)})
	}

	hub.unsubscribe(id)
	for range updates {
	}

	// Emitting after close is a no-op.
	hub.close()
	hub.Emit(events.StakeLocked{Asset: types.NewAssetID(2, 8)})
}

func TestEventStreamOverWebsocket(t *testing.T) {
	server := newTestServer(t, Options{})
	httpServer := httptest.NewServer(server.Handler())
	defer httpServer.Close()

	vault := server.vault
	vault.SetEmitter(server.Events())
	if err := vault.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(httpServer.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// The handshake returns before the server registers the subscriber.
	deadline := time.Now().Add(time.Second)
	for {
		server.hub.mu.Lock()
		ready := len(server.hub.subs) > 0
		server.hub.mu.Unlock()
		if ready {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	caller, err := types.WitnessFromBytes(bytes.Repeat([]byte{0xAB}, types.WitnessSize))
	if err != nil {
		t.Fatalf("witness: %v", err)
	}
	_, err = vault.Stake(core.CallContext{
		Caller:   caller,
		Height:   100,
		Incoming: []types.Transfer{types.NewTransfer(types.NewAssetID(2, 7), 1)},
	}, nil)
	if err != nil {
		t.Fatalf("stake: %v", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var evt types.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("decode frame %q: %v", data, err)
	}
	if evt.Type != events.TypeStakeLocked {
		t.Fatalf("expected %s frame, got %s", events.TypeStakeLocked, evt.Type)
	}
	if evt.Attributes["asset"] != "2:7" || evt.Attributes["height"] != "100" {
		t.Fatalf("unexpected attributes: %+v", evt.Attributes)
	}
}
