package api

import (
	"net/http"
	"time"

	"FinBoard/internal/usecase"
	xhttp "FinBoard/pkg/http"
	xlogger "FinBoard/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	defaultPingPeriod = 25 * time.Second
	pongWait          = 60 * time.Second
	writeWait         = 5 * time.Second
	maxReadBytes      = 1024
)

// StreamHandler pushes widget updates to WebSocket clients. Clients may pass
// ?widgets=id1,id2 to receive only those widgets.
type StreamHandler struct {
	logger   *xlogger.Logger
	hub      *usecase.UpdateHub
	ping     time.Duration
	upgrader websocket.Upgrader
}

// NewStreamHandler builds the handler. The ping period must stay below the
// 60s pong deadline; zero selects 25s.
func NewStreamHandler(logger *xlogger.Logger, hub *usecase.UpdateHub, ping time.Duration) *StreamHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if ping <= 0 || ping >= pongWait {
		ping = defaultPingPeriod
	}
	return &StreamHandler{
		logger: logger.Named("api.stream"),
		hub:    hub,
		ping:   ping,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Stream)
}

func (h *StreamHandler) Stream(c echo.Context) error {
	filter := map[string]struct{}{}
	for _, id := range xhttp.QueryList(c, "widgets") {
		filter[id] = struct{}{}
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		h.logger.Debug("upgrade failed", xlogger.Error(err))
		return nil
	}

	updates, release := h.hub.Subscribe()
	h.logger.Debug("client connected", xlogger.String("remote", c.RealIP()), xlogger.Int("filter", len(filter)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readPump(conn)
	}()
	h.writePump(conn, updates, filter, done)

	release()
	_ = conn.Close()
	<-done
	h.logger.Debug("client disconnected", xlogger.String("remote", c.RealIP()))
	return nil
}

// readPump discards client messages and returns once the connection dies.
func (h *StreamHandler) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxReadBytes)
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

func (h *StreamHandler) writePump(conn *websocket.Conn, updates <-chan usecase.WidgetUpdate, filter map[string]struct{}, done <-chan struct{}) {
	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case u, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if len(filter) > 0 {
				if _, ok := filter[u.WidgetID]; !ok {
					continue
				}
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(u); err != nil {
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
