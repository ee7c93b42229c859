package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/StudyRoom/internal/app/orch"
	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/gorilla/websocket"
)

type Options struct {
	ReadLimit    int64
	PingPeriod   time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32 << 10
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	return o
}

// pongWait must exceed PingPeriod so one lost pong is tolerated.
func (o Options) pongWait() time.Duration { return o.PingPeriod * 10 / 9 }

// SignalWSController owns the WebSocket endpoints. ctx is the server's
// lifetime, not a request's: hijacked connections outlive their handler.
type SignalWSController struct {
	Orch *orch.Orchestrator
	ctx  context.Context
	opts Options
}

func NewSignalWSController(ctx context.Context, o *orch.Orchestrator, opts Options) *SignalWSController {
	return &SignalWSController{Orch: o, ctx: ctx, opts: opts.withDefaults()}
}

// WsSignalConn is a core.SignalConnection over one WebSocket. Frames go
// through a bounded queue drained by writePump; Close stops intake and lets
// the pump flush what is queued before the socket closes.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu        sync.RWMutex
	closed    bool
	closeCode int
	closeText string
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{
		conn:      ws,
		send:      make(chan core.Frame, buffer),
		closeCode: websocket.CloseNormalClosure,
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return core.ErrBackpressure
	}
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// CloseWith closes with a specific WebSocket close code.
func (c *WsSignalConn) CloseWith(code int, text string) {
	c.mu.Lock()
	if !c.closed {
		c.closeCode, c.closeText = code, text
	}
	c.mu.Unlock()
	c.Close()
}

func (c *WsSignalConn) closeFrame() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return websocket.FormatCloseMessage(c.closeCode, c.closeText)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}
