package signal

import (
	"context"
	"strconv"

	"github.com/dkeye/StudyRoom/internal/adapters/auth"
	"github.com/dkeye/StudyRoom/internal/app/orch"
	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// HandleRoom upgrades a join request for :room. A refused join still gets
// the socket: the client reads a REJECTED frame and a 44xx/45xx close code.
func (ctl *SignalWSController) HandleRoom(c *gin.Context, id auth.Identity) {
	req := orch.JoinRequest{
		Room:       domain.RoomKey(c.Param("room")),
		User:       id.User,
		Name:       id.Name,
		Occurrence: occurrenceParam(c.Query("occurrence")),
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	conn := newWsSignalConn(ws, ctl.opts.SendBuffer)
	tag := ws.RemoteAddr().String()
	go ctl.writePump(conn, tag)

	ms, err := ctl.Orch.Admit(ctl.ctx, req, conn)
	if err == nil {
		err = ctl.Orch.Enter(ctl.ctx, ms)
	}
	if err != nil {
		reject(conn, req, err)
		return
	}

	tag = string(ms.ID)
	go ctl.readPump(conn, tag,
		func(data []byte) { ctl.Orch.OnMessage(ctl.ctx, ms, data) },
		// the leave must be recorded even while the server shuts down
		func() { ctl.Orch.OnDisconnect(context.WithoutCancel(ctl.ctx), ms) },
	)
}

func reject(conn *WsSignalConn, req orch.JoinRequest, err error) {
	reason := core.RejectReason(err)
	log.Info().Err(err).Str("module", "signal").Str("room", string(req.Room)).Str("user", string(req.User)).Str("reason", reason).Msg("join rejected")
	_ = core.SendJSON(conn, core.RejectedEvent{Type: core.EventRejected, Room: req.Room, Reason: reason})
	conn.CloseWith(closeCodeFor(reason), reason)
}

// occurrenceParam treats a missing or malformed id as not supplied.
func occurrenceParam(raw string) *domain.OccurrenceID {
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		log.Warn().Str("module", "signal").Str("occurrence", raw).Msg("ignoring malformed occurrence id")
		return nil
	}
	occ := domain.OccurrenceID(n)
	return &occ
}
