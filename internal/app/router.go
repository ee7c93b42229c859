package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

const DefaultMaxTalkLength = 2000

type RouterOptions struct {
	MaxTalkLength int
	Limiter       *RateLimiter
	Now           func() time.Time
}

// MessageRouter dispatches inbound frames of one connection: chat goes to the
// whole room, control updates flags and re-announces.
type MessageRouter struct {
	sessions *core.SessionRegistry
	presence *PresenceBroadcaster
	sink     *ChatSink

	talkRule string
	limiter  *RateLimiter
	now      func() time.Time
}

func NewMessageRouter(sessions *core.SessionRegistry, presence *PresenceBroadcaster, sink *ChatSink, opts RouterOptions) *MessageRouter {
	if opts.MaxTalkLength <= 0 {
		opts.MaxTalkLength = DefaultMaxTalkLength
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &MessageRouter{
		sessions: sessions,
		presence: presence,
		sink:     sink,
		talkRule: fmt.Sprintf("required,max=%d", opts.MaxTalkLength),
		limiter:  opts.Limiter,
		now:      opts.Now,
	}
}

// Handle processes one inbound frame. Undecodable frames are dropped; the
// connection stays open.
func (r *MessageRouter) Handle(ctx context.Context, ms *core.MemberSession, data []byte) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("conn", string(ms.ID)).Msg("bad json")
		return
	}

	switch env.Type {
	case core.EventEnter:
		r.presence.Announce(ms.Room)
	case core.EventTalk:
		r.handleTalk(ms, data)
	case core.EventControl:
		r.handleControl(ms, data)
	case core.EventPing:
		_ = core.SendJSON(ms.Signal(), core.Envelope{Type: core.EventPong})
	default:
		log.Warn().Str("module", "app.router").Str("conn", string(ms.ID)).Str("type", string(env.Type)).Msg("unknown event")
	}
}

func (r *MessageRouter) handleTalk(ms *core.MemberSession, data []byte) {
	var p core.TalkPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("conn", string(ms.ID)).Msg("bad talk payload")
		return
	}
	if err := validate.Var(p.Text, r.talkRule); err != nil {
		r.replyError(ms, "invalid_text")
		return
	}
	user := ms.Meta().User
	if !r.limiter.Allow(user.ID) {
		r.replyError(ms, "rate_limited")
		return
	}

	msg := domain.ChatMessage{
		Room:   ms.Room,
		UserID: user.ID,
		Name:   user.Username,
		Text:   p.Text,
		At:     r.now().UTC(),
	}
	// Only durable accounts are persisted; delivery happens regardless.
	if ms.Meta().Durable {
		r.sink.Enqueue(msg)
	}

	frame, err := json.Marshal(core.TalkEvent{
		Type:   core.EventTalk,
		Room:   msg.Room,
		UserID: msg.UserID,
		Name:   msg.Name,
		Text:   msg.Text,
		At:     msg.At,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("room", string(ms.Room)).Msg("talk marshal")
		return
	}
	res := r.presence.Fanout(ms.Room, frame)
	log.Debug().Str("module", "app.router").Str("room", string(ms.Room)).Str("user", string(user.ID)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("talk")
}

func (r *MessageRouter) handleControl(ms *core.MemberSession, data []byte) {
	var p core.ControlPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("conn", string(ms.ID)).Msg("bad control payload")
		return
	}
	if p.Empty() {
		return
	}
	if !r.sessions.UpdateFlags(ms.Room, ms.ID, p.FlagsDelta) {
		return
	}
	r.presence.Announce(ms.Room)
}

func (r *MessageRouter) replyError(ms *core.MemberSession, reason string) {
	_ = core.SendJSON(ms.Signal(), core.ErrorEvent{Type: core.EventError, Error: reason})
}
