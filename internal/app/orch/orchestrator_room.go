package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/rs/zerolog/log"
)

// JoinRequest is what the handshake carries out-of-band.
type JoinRequest struct {
	Room domain.RoomKey
	User domain.UserID
	// Name is the display name from the caller's token, used when the
	// directory cannot resolve one.
	Name       string
	Occurrence *domain.OccurrenceID
}

// Admit checks and attributes a join without registering anything. Any
// error means the connection must be rejected; see core.RejectReason.
func (o *Orchestrator) Admit(ctx context.Context, req JoinRequest, sig core.SignalConnection) (*core.MemberSession, error) {
	room, err := o.Directory.LookupRoom(ctx, req.Room)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownRoom, req.Room)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup room %s: %w", req.Room, err)
	}

	if room.SubjectID == "" {
		return nil, fmt.Errorf("%w: room %s has no subject", core.ErrScheduleUnresolved, room.Key)
	}

	if err := o.checkKicked(ctx, room.Key, req.User); err != nil {
		return nil, err
	}

	occ, err := o.Schedule.ResolveOccurrence(ctx, room.SubjectID, room.Key, req.Occurrence)
	if err != nil {
		return nil, err
	}

	user, durable := o.resolveUser(ctx, req)
	meta := domain.NewMember(user)
	meta.Durable = durable
	ms := core.NewMemberSession(room.Key, meta, sig)
	ms.Subject = room.SubjectID
	ms.Occurrence = occ.ID
	ms.JoinedAt = o.Schedule.Now()
	return ms, nil
}

// resolveUser builds the member's user. durable is false when the id does
// not resolve to a stored account; such members chat live but unpersisted.
func (o *Orchestrator) resolveUser(ctx context.Context, req JoinRequest) (*domain.User, bool) {
	durable := domain.ValidateUserID(req.User) == nil
	name, err := o.Directory.ResolveDisplayName(ctx, req.User)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			log.Warn().Err(err).Str("module", "orch").Str("user", string(req.User)).Msg("resolve display name")
		}
		durable = false
		name = req.Name
	}
	u, err := domain.NewUser(req.User, name)
	if err != nil {
		return &domain.User{ID: req.User, Username: domain.GuestName}, durable
	}
	return u, durable
}

func (o *Orchestrator) checkKicked(ctx context.Context, room domain.RoomKey, user domain.UserID) error {
	kicked, err := o.Kicks.IsKicked(ctx, room, user, o.Schedule.Today())
	if err != nil {
		return fmt.Errorf("kick check: %w", err)
	}
	if kicked {
		return fmt.Errorf("%w: user %s room %s", core.ErrKicked, user, room)
	}
	return nil
}

// Enter registers an admitted session, acknowledges it, announces the new
// member list and opens the attendance record. The kick check is repeated
// under the (room, user) gate Kick also takes, so a kick issued after Admit
// either finds the session registered or makes Enter fail.
func (o *Orchestrator) Enter(ctx context.Context, ms *core.MemberSession) error {
	user := ms.UserID()
	unlock := o.gates.lock(ms.Room, user)
	if err := o.checkKicked(ctx, ms.Room, user); err != nil {
		unlock()
		return err
	}
	o.Sessions.Register(ms.Room, ms)
	o.Ledger.RecordJoin(ctx, ms.ParticipationKey())
	unlock()

	_ = core.SendJSON(ms.Signal(), core.EnterEvent{
		Type:       core.EventEnter,
		Room:       ms.Room,
		ConnID:     ms.ID,
		UserID:     user,
		Name:       ms.Meta().User.Username,
		Occurrence: ms.Occurrence,
	})
	o.Presence.Announce(ms.Room)
	log.Info().Str("module", "orch").Str("room", string(ms.Room)).Str("user", string(user)).Str("conn", string(ms.ID)).Int64("occurrence", int64(ms.Occurrence)).Msg("entered room")
	return nil
}

// OnDisconnect runs once per connection on any close path. The leave is only
// recorded when the user has no other connection for the same occurrence.
func (o *Orchestrator) OnDisconnect(ctx context.Context, ms *core.MemberSession) {
	if !o.Sessions.Unregister(ms.Room, ms.ID) {
		return
	}
	o.Presence.Announce(ms.Room)

	user := ms.UserID()
	unlock := o.gates.lock(ms.Room, user)
	defer unlock()
	if o.Sessions.UserConnCount(ms.Room, user, ms.Occurrence) > 0 {
		return
	}
	o.Ledger.RecordLeave(ctx, ms.ParticipationKey())
	if len(o.Sessions.SessionsOfUser(ms.Room, user)) == 0 {
		o.Limiter.Forget(user)
	}
	if o.Sessions.Count(ms.Room) == 0 {
		log.Info().Str("module", "orch").Str("room", string(ms.Room)).Msg("room is empty")
	}
	log.Info().Str("module", "orch").Str("room", string(ms.Room)).Str("user", string(user)).Str("conn", string(ms.ID)).Msg("left room")
}

// Shutdown closes every open room connection and runs its disconnect path
// synchronously, so leaves are written before storage goes away. The
// transport's own disconnect callback then finds nothing to do.
func (o *Orchestrator) Shutdown(ctx context.Context) int {
	n := 0
	for _, info := range o.Sessions.Rooms() {
		for _, ms := range o.Sessions.Sessions(info.Key) {
			ms.Signal().Close()
			o.OnDisconnect(ctx, ms)
			n++
		}
	}
	o.Notifier.CloseAll()
	log.Info().Str("module", "orch").Int("connections", n).Msg("sessions closed for shutdown")
	return n
}

// Kick marks target as kicked from room for today and closes their
// connections there. Only the room owner may kick.
func (o *Orchestrator) Kick(ctx context.Context, actor domain.UserID, roomKey domain.RoomKey, target domain.UserID) (int, error) {
	room, err := o.Directory.LookupRoom(ctx, roomKey)
	if errors.Is(err, core.ErrNotFound) {
		return 0, fmt.Errorf("%w: %s", core.ErrUnknownRoom, roomKey)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup room %s: %w", roomKey, err)
	}
	if room.OwnerID != actor || actor == target {
		return 0, core.ErrForbidden
	}

	unlock := o.gates.lock(room.Key, target)
	marker := domain.KickMarker{Room: room.Key, User: target, At: o.Schedule.Now()}
	if err := o.Kicks.MarkKicked(ctx, marker); err != nil {
		unlock()
		return 0, fmt.Errorf("mark kicked: %w", err)
	}
	victims := o.Sessions.SessionsOfUser(room.Key, target)
	unlock()

	for _, ms := range victims {
		_ = core.SendJSON(ms.Signal(), core.KickedEvent{Type: core.EventKicked, Room: room.Key, By: actor})
		ms.Signal().Close()
	}
	log.Info().Str("module", "orch").Str("room", string(room.Key)).Str("user", string(target)).Str("by", string(actor)).Int("connections", len(victims)).Msg("kicked")
	return len(victims), nil
}
