package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testHub() *Hub {
	return NewHub(zap.NewNop().Sugar(), nil)
}

func testClient(id string, buffer int) *Client {
	return &Client{id: id, send: make(chan []byte, buffer)}
}

func TestBroadcastDeliversToAllSubscribers(t *testing.T) {
	h := testHub()
	c1 := testClient("c1", 4)
	c2 := testClient("c2", 4)
	c3 := testClient("c3", 4)
	for _, c := range []*Client{c1, c2, c3} {
		h.Register(c)
	}

	payload := []byte(`{"status":"PASS"}`)
	h.Broadcast(payload)

	for _, c := range []*Client{c1, c2, c3} {
		select {
		case got := <-c.send:
			assert.Equal(t, payload, got)
		default:
			t.Fatalf("client %s received nothing", c.id)
		}
	}
	assert.Equal(t, 3, h.Count())
}

func TestBroadcastRemovesDeadSubscriberWithoutAffectingOthers(t *testing.T) {
	h := testHub()
	c1 := testClient("c1", 4)
	dead := testClient("dead", 0) // nothing draining, behaves like a closed conn
	c3 := testClient("c3", 4)
	for _, c := range []*Client{c1, dead, c3} {
		h.Register(c)
	}

	payload := []byte(`{"status":"FAIL"}`)
	h.Broadcast(payload)

	assert.Equal(t, payload, <-c1.send)
	assert.Equal(t, payload, <-c3.send)
	assert.Equal(t, 2, h.Count())

	// the dead client's channel was closed by the hub
	_, open := <-dead.send
	assert.False(t, open)
}

func TestBroadcastPreservesPerSubscriberOrder(t *testing.T) {
	h := testHub()
	c := testClient("c1", 8)
	h.Register(c)

	h.Broadcast([]byte("first"))
	h.Broadcast([]byte("second"))
	h.Broadcast([]byte("third"))

	assert.Equal(t, "first", string(<-c.send))
	assert.Equal(t, "second", string(<-c.send))
	assert.Equal(t, "third", string(<-c.send))
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := testHub()
	c := testClient("c1", 1)
	h.Register(c)

	h.Unregister(c)
	assert.NotPanics(t, func() { h.Unregister(c) })
	assert.Zero(t, h.Count())

	// unregistering a client that was never registered is also a no-op
	assert.NotPanics(t, func() { h.Unregister(testClient("ghost", 1)) })
}

func TestConcurrentRegisterBroadcastUnregister(t *testing.T) {
	h := testHub()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := testClient("c", 1)
			h.Register(c)
			h.Broadcast([]byte("x"))
			h.Unregister(c)
		}()
	}
	wg.Wait()
	assert.Zero(t, h.Count())
}

func TestServeWSEndToEnd(t *testing.T) {
	h := testHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(h, w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// wait for the handshake goroutine to register the client
	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 10*time.Millisecond)

	payload := []byte(`{"barcode":"BC-1","status":"PASS"}`)
	h.Broadcast(payload)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.Equal(t, payload, msg)

	conn.Close()
	require.Eventually(t, func() bool { return h.Count() == 0 }, time.Second, 10*time.Millisecond)
}
