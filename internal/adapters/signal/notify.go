package signal

import (
	"encoding/json"

	"github.com/dkeye/StudyRoom/internal/adapters/auth"
	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// HandleNotify binds the caller's targeted channel. A newer connection for
// the same user replaces and closes the older one.
func (ctl *SignalWSController) HandleNotify(c *gin.Context, id auth.Identity) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	conn := newWsSignalConn(ws, ctl.opts.SendBuffer)
	sid := core.NewConnID()
	go ctl.writePump(conn, string(sid))

	if prev, replaced := ctl.Orch.Notifier.Register(id.User, sid, conn); replaced {
		prev.Close()
	}

	go ctl.readPump(conn, string(sid),
		func(data []byte) { ctl.handleNotifyFrame(conn, data) },
		func() { ctl.Orch.Notifier.Unregister(id.User, sid) },
	)
}

// The notify channel is push-only; clients may only ping it.
func (ctl *SignalWSController) handleNotifyFrame(conn *WsSignalConn, data []byte) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type != core.EventPing {
		return
	}
	_ = core.SendJSON(conn, core.Envelope{Type: core.EventPong})
}
