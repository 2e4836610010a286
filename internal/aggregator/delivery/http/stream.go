package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/aggregator/metrics"
	"golang-market-aggregator/pkg/logger"
	"golang-market-aggregator/pkg/utils"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	subscriberBuffer = 8
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
)

// StreamMessage is one frame of the live snapshot feed.
type StreamMessage struct {
	GeneratedAt time.Time                     `json:"generated_at"`
	Snapshots   map[string]dto.SymbolSnapshot `json:"snapshots"`
}

type subscriber struct {
	send chan []byte
	// symbols filters the feed; empty means every symbol.
	symbols map[string]struct{}
}

// Hub fans live cycle results out to websocket subscribers. Delivery is best
// effort: a subscriber whose buffer is full misses the frame.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	upgrader    websocket.Upgrader
	metrics     *metrics.Recorder
	logger      *logger.Logger
}

// NewHub creates a Hub.
func NewHub(rec *metrics.Recorder, log *logger.Logger) *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		metrics: rec,
		logger:  log,
	}
}

// Publish sends snapshots to every subscriber without blocking.
func (h *Hub) Publish(snapshots map[string]dto.SymbolSnapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		msg := StreamMessage{GeneratedAt: utils.TimeNowUTC(), Snapshots: filterSnapshots(snapshots, sub.symbols)}
		if len(msg.Snapshots) == 0 {
			continue
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			h.logger.Error("Failed to encode stream frame", logger.ErrorField(err))
			continue
		}
		select {
		case sub.send <- payload:
		default:
			h.logger.Warn("Dropping stream frame for slow subscriber")
		}
	}
}

func filterSnapshots(snapshots map[string]dto.SymbolSnapshot, symbols map[string]struct{}) map[string]dto.SymbolSnapshot {
	if len(symbols) == 0 {
		return snapshots
	}
	out := make(map[string]dto.SymbolSnapshot, len(symbols))
	for symbol, snap := range snapshots {
		if _, ok := symbols[symbol]; ok {
			out[symbol] = snap
		}
	}
	return out
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	n := len(h.subscribers)
	h.mu.Unlock()
	h.metrics.SetSubscribers(n)
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.send)
	}
	n := len(h.subscribers)
	h.mu.Unlock()
	h.metrics.SetSubscribers(n)
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.send)
	}
	h.mu.Unlock()
	h.metrics.SetSubscribers(0)
}

// Stream godoc
// @Summary Live snapshot feed
// @Description Upgrades to a websocket and pushes the snapshots of every live cycle. Frames are dropped for slow readers.
// @Tags snapshots
// @Param   symbols query   string  false   "Comma separated symbols to receive, all when empty"
// @Success 101
// @Failure 400 {object} dto.ErrorResponse
// @Router /snapshots/stream [get]
func (h *Hub) Stream(c echo.Context) error {
	symbols, err := dto.NormalizeSymbols(dto.SplitList(c.QueryParam("symbols")), 0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.WarnContext(c.Request().Context(), "Websocket upgrade failed", logger.ErrorField(err))
		return nil
	}

	sub := &subscriber{send: make(chan []byte, subscriberBuffer), symbols: make(map[string]struct{}, len(symbols))}
	for _, s := range symbols {
		sub.symbols[s] = struct{}{}
	}
	h.add(sub)

	utils.GoSafe(func() { h.writeLoop(conn, sub) })
	h.readLoop(conn, sub)
	return nil
}

// readLoop discards client frames and returns once the peer goes away.
func (h *Hub) readLoop(conn *websocket.Conn, sub *subscriber) {
	defer h.remove(sub)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case payload, ok := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
