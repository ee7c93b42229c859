package orch

import (
	"context"
	"encoding/json"

	"github.com/dkeye/StudyRoom/internal/app"
	"github.com/dkeye/StudyRoom/internal/app/ledger"
	"github.com/dkeye/StudyRoom/internal/app/schedule"
	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
)

// Orchestrator is the connection-accept handler: it admits joins, routes
// inbound frames and cleans up after disconnects.
type Orchestrator struct {
	Sessions  *core.SessionRegistry
	Presence  *app.PresenceBroadcaster
	Router    *app.MessageRouter
	Notifier  *app.TargetedNotifier
	Schedule  *schedule.Resolver
	Ledger    *ledger.Ledger
	Directory core.Directory
	Kicks     core.KickStore
	Limiter   *app.RateLimiter

	// gates order kick checks, registration and ledger writes for one
	// (room, user): a refresh cannot close the new session's record and a
	// kick cannot slip between admission and registration.
	gates keyedGates
}

func (o *Orchestrator) OnMessage(ctx context.Context, ms *core.MemberSession, data []byte) {
	o.Router.Handle(ctx, ms, data)
}

// Notify pushes a targeted notification. Offline users are skipped silently.
func (o *Orchestrator) Notify(user domain.UserID, payload json.RawMessage) bool {
	return o.Notifier.Notify(user, payload)
}
