package broadcast

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
)

func testAlert() domain.Alert {
	return domain.Alert{
		CampaignID:    42,
		CampaignName:  "Summer Sale",
		Type:          domain.AlertConversionRateDrop,
		Severity:      domain.SeverityHigh,
		Metric:        "conversion_rate",
		CurrentValue:  0.0058,
		PreviousValue: 0.01,
		ChangePercent: -42.0,
		Threshold:     30,
		Message:       "Conversion rate dropped 42.0%",
		TriggeredAt:   time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
}

// testHub sets up a Hub with a test HTTP server.
func testHub(t *testing.T, maxClients int) (*Hub, func() *ws.Conn) {
	t.Helper()

	hub := NewHub(clockwork.NewRealClock(), maxClients)
	t.Cleanup(func() { hub.Stop() })

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		if err := hub.Register(conn); err != nil {
			return
		}

		go func() {
			defer hub.Unregister(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}))
	t.Cleanup(func() { server.Close() })

	dial := func() *ws.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	return hub, dial
}

func waitForClientCount(h *Hub, expected int) bool {
	for i := 0; i < 100; i++ {
		if h.ClientCount() == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func TestHub_PublishReachesClient(t *testing.T) {
	hub, dial := testHub(t, 10)

	conn := dial()
	require.True(t, waitForClientCount(hub, 1))

	hub.Publish(testAlert())

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal(msg, &result))
	assert.Equal(t, "Summer Sale", result["campaign_name"])
	assert.Equal(t, domain.AlertConversionRateDrop, result["type"])
	assert.Equal(t, "high", result["severity"])
	assert.Equal(t, -42.0, result["change_percent"])
}

func TestHub_MultipleClients(t *testing.T) {
	hub, dial := testHub(t, 10)

	conn1 := dial()
	conn2 := dial()
	require.True(t, waitForClientCount(hub, 2))

	hub.Publish(testAlert())

	for _, conn := range []*ws.Conn{conn1, conn2} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal(msg, &result))
		assert.Equal(t, float64(42), result["campaign_id"])
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub, dial := testHub(t, 10)

	assert.Equal(t, 0, hub.ClientCount())

	conn1 := dial()
	require.True(t, waitForClientCount(hub, 1))

	dial()
	require.True(t, waitForClientCount(hub, 2))

	conn1.Close()
	require.True(t, waitForClientCount(hub, 1))
}

func TestHub_MaxClients(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock(), 2)
	t.Cleanup(func() { hub.Stop() })

	for i := 0; i < 2; i++ {
		server, _ := newTestConnPair(t)
		require.NoError(t, hub.Register(server), "client %d should register successfully", i)
	}

	assert.Equal(t, 2, hub.ClientCount())

	// The next client should be rejected
	server, _ := newTestConnPair(t)
	err := hub.Register(server)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max clients")
}

func newTestConnPair(t *testing.T) (server *ws.Conn, client *ws.Conn) {
	t.Helper()
	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ready := make(chan *ws.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ready <- conn
	}))
	t.Cleanup(func() { srv.Close() })

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-ready
	t.Cleanup(func() { serverConn.Close() })

	return serverConn, clientConn
}

func TestHub_PublishWithNoClients(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock(), 10)
	t.Cleanup(func() { hub.Stop() })

	// Just verify no panic with nobody listening
	hub.Publish(testAlert())
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock(), 10)

	server, client := newTestConnPair(t)
	require.NoError(t, hub.Register(server))
	require.True(t, waitForClientCount(hub, 1))

	hub.Stop()

	// Client should observe a normal close
	client.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := client.ReadMessage()
	require.Error(t, err)
	assert.True(t, ws.IsCloseError(err, ws.CloseNormalClosure), "expected close frame, got %v", err)
}

func TestHub_StopIdempotent(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock(), 10)

	server, _ := newTestConnPair(t)
	require.NoError(t, hub.Register(server))

	// Calling Stop multiple times should not panic
	hub.Stop()
	hub.Stop()
}

func TestHub_SlowClientEvicted(t *testing.T) {
	hub := NewHub(clockwork.NewRealClock(), 10)
	t.Cleanup(func() { hub.Stop() })

	server, client := newTestConnPair(t)
	require.NoError(t, hub.Register(server))
	require.True(t, waitForClientCount(hub, 1))

	// Kill the peer so writes start failing and the writer goroutine
	// exits. Once nothing drains the send buffer (capacity 16), further
	// publishes overflow it and the hub evicts the connection.
	client.Close()

	alert := testAlert()
	for i := 0; i < 100; i++ {
		hub.Publish(alert)
	}

	require.True(t, waitForClientCount(hub, 0), "slow client should be evicted")
}
