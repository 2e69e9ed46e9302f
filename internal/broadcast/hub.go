package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second  // Actor command timeout
	stopTimeout    = 10 * time.Second // Graceful shutdown timeout
)

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	connection *websocket.Conn
}

type publishCmd struct {
	baseHubCmd
	payload []byte
}

type clientCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub manages WebSocket connections and fans out alert messages to all
// connected clients. All state is owned by a single goroutine fed by a
// command channel.
type Hub struct {
	cmdCh         chan hubCmd
	clock         clockwork.Clock
	activeClients map[*websocket.Conn]*clientWriter
	done          chan struct{}
	stopTimeout   time.Duration
	maxClients    int
}

// NewHub creates a new alert hub.
// maxClients limits concurrent connections (prevents resource exhaustion).
func NewHub(clock clockwork.Clock, maxClients int) *Hub {
	h := &Hub{
		cmdCh:         make(chan hubCmd, 256),
		clock:         clock,
		activeClients: make(map[*websocket.Conn]*clientWriter),
		done:          make(chan struct{}),
		stopTimeout:   stopTimeout,
		maxClients:    maxClients,
	}
	go h.run()
	return h
}

// Register adds a client connection. Returns an error only if the
// maximum client count is reached or the command times out.
func (h *Hub) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{connection: conn, errorChannel: errCh}

	// Use timeout to prevent blocking forever if the hub is stuck
	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a client connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.cmdCh <- unregisterCmd{connection: conn}
}

// Publish fans an alert out to all connected clients.
func (h *Hub) Publish(alert domain.Alert) {
	data, err := json.Marshal(alert)
	if err != nil {
		slog.Error("Failed to marshal alert message", "error", err)
		return
	}
	h.cmdCh <- publishCmd{payload: data}
}

// ClientCount returns the number of connected clients.
// Returns -1 if the command times out.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the hub, closing all client connections.
// Blocks until the hub goroutine has exited or timeout is reached.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timeout := h.clock.NewTimer(h.stopTimeout)
	defer timeout.Stop()

	select {
	case <-h.done:
		slog.Info("Alert hub stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Alert hub stop timeout exceeded, forcing exit", "timeout", h.stopTimeout)
		metrics.BroadcasterStopTimeoutsTotal.Inc()

		// Force goroutine exit
		close(h.done)

		slog.Error("Alert hub goroutine may have leaked", "active_clients", len(h.activeClients))
	}
}

func (h *Hub) run() {
	// Panic recovery wrapper
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Alert hub panic recovered", "panic", r)
			metrics.BroadcasterPanicsTotal.Inc()

			h.closeAllClients("alert hub panic")
		}
	}()

	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c)
		case publishCmd:
			h.handlePublish(c)
		case clientCountCmd:
			c.replyChannel <- len(h.activeClients)
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("Alert hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if len(h.activeClients) >= h.maxClients {
		slog.Warn("Rejecting client: max clients reached", "max_clients", h.maxClients)
		c.connection.Close()
		c.errorChannel <- fmt.Errorf("max clients (%d) reached", h.maxClients)
		return
	}

	cw := newClientWriter(c.connection, h.clock)
	h.activeClients[c.connection] = cw

	metrics.BroadcasterConnectedClients.Inc()

	slog.Debug("Alert client registered", "total_clients", len(h.activeClients))
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(c unregisterCmd) {
	cw, exists := h.activeClients[c.connection]
	if !exists {
		return
	}

	cw.stop()
	delete(h.activeClients, c.connection)

	metrics.BroadcasterConnectedClients.Dec()

	slog.Debug("Alert client unregistered", "remaining_clients", len(h.activeClients))
}

func (h *Hub) handlePublish(c publishCmd) {
	metrics.BroadcasterMessagesPublished.Inc()

	var slow []*websocket.Conn
	for conn, writer := range h.activeClients {
		select {
		case writer.sendChannel <- c.payload:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow alert client")
		metrics.BroadcasterSlowClientsEvicted.Inc()
		h.handleUnregister(unregisterCmd{connection: conn})
	}
}

func (h *Hub) handleStop() {
	slog.Info("Alert hub shutting down", "clients", len(h.activeClients))
	h.closeAllClients("Server shutting down")
	slog.Info("Alert hub shutdown complete")
}

// closeAllClients closes all client connections with the given reason.
// Used during panic recovery and graceful shutdown.
func (h *Hub) closeAllClients(reason string) {
	for conn, cw := range h.activeClients {
		cw.stopGraceful(reason)
		delete(h.activeClients, conn)
		metrics.BroadcasterConnectedClients.Dec()
	}
}
