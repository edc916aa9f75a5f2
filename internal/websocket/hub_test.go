package websocket

import (
	"testing"
	"time"
)

func newTestClient(id string) *Client {
	return &Client{send: make(chan []byte, 8), StationID: id}
}

// waitForHub polls the hub state until cond holds or the deadline passes
func waitForHub(t *testing.T, h *Hub, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.RLock()
		ok := cond()
		h.mu.RUnlock()
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("hub did not reach expected state in time")
}

func TestHubReidentifyDropsAnonymousAlias(t *testing.T) {
	h := NewHub()
	go h.Run()

	// Connect anonymously, then identify as a station on the same connection
	c := newTestClient("dash_123")
	h.register <- c
	waitForHub(t, h, func() bool {
		_, ok := h.clients["dash_123"]
		return ok
	})

	c.StationID = "ST1"
	h.register <- c

	waitForHub(t, h, func() bool {
		_, alias := h.clients["dash_123"]
		_, station := h.clients["ST1"]
		return !alias && station
	})

	h.Broadcast(Event{Type: "UNIT_CREATED", Serial: "SV-PROD1-00001"})

	select {
	case <-c.send:
	case <-time.After(2 * time.Second):
		t.Fatal("identified station did not receive the broadcast")
	}

	// Exactly one delivery: the old alias entry must be gone
	select {
	case msg := <-c.send:
		t.Fatalf("broadcast delivered twice, extra message: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastAfterIdentifiedDisconnect(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := newTestClient("dash_abc")
	h.register <- c
	waitForHub(t, h, func() bool {
		_, ok := h.clients["dash_abc"]
		return ok
	})

	c.StationID = "ST2"
	h.register <- c

	waitForHub(t, h, func() bool {
		_, ok := h.clients["ST2"]
		return ok
	})

	h.unregister <- c

	waitForHub(t, h, func() bool {
		return len(h.clients) == 0
	})

	if _, open := <-c.send; open {
		t.Fatal("send channel still open after unregister")
	}

	// The next broadcast must not reach the closed channel
	h.Broadcast(Event{Type: "UNIT_CREATED", Serial: "SV-PROD1-00002"})
	time.Sleep(50 * time.Millisecond)

	// A second connect after the broadcast proves the hub loop is still alive
	c2 := newTestClient("ST3")
	h.register <- c2
	waitForHub(t, h, func() bool {
		_, ok := h.clients["ST3"]
		return ok
	})
}

func TestHubStationReconnectClosesOldConnection(t *testing.T) {
	h := NewHub()
	go h.Run()

	old := newTestClient("ST9")
	h.register <- old

	replacement := newTestClient("ST9")
	h.register <- replacement

	waitForHub(t, h, func() bool {
		return h.clients["ST9"] == replacement
	})

	if _, open := <-old.send; open {
		t.Fatal("old connection's send channel not closed on reconnect")
	}

	h.Broadcast(Event{Type: "STEP_COMPLETED"})
	select {
	case <-replacement.send:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement connection did not receive the broadcast")
	}
}
