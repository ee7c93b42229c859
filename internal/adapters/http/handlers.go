package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dkeye/StudyRoom/internal/app/orch"
	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	orch         *orch.Orchestrator
	history      core.ChatHistory
	historyLimit int
}

type kickRequest struct {
	UserID string `json:"user_id" binding:"required,max=64"`
}

type notifyRequest struct {
	Kind string          `json:"kind" binding:"required,max=64"`
	Data json.RawMessage `json:"data"`
}

type membersResponse struct {
	Room    domain.RoomKey   `json:"room"`
	Version uint64           `json:"version"`
	Count   int              `json:"count"`
	Members []core.MemberDTO `json:"members"`
}

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.orch.Sessions.Rooms()})
}

func (h *handlers) roomMembers(c *gin.Context) {
	snap := h.orch.Sessions.Snapshot(domain.RoomKey(c.Param("room")))
	c.JSON(http.StatusOK, membersResponse{
		Room:    snap.Room,
		Version: snap.Version,
		Count:   len(snap.Members),
		Members: snap.Members,
	})
}

func (h *handlers) roomMessages(c *gin.Context) {
	limit := h.historyLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		if limit <= 0 || n < limit {
			limit = n
		}
	}
	room := domain.RoomKey(c.Param("room"))
	msgs, err := h.history.History(c.Request.Context(), room, limit)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(room)).Msg("chat history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"room": room, "messages": msgs})
}

func (h *handlers) kick(c *gin.Context) {
	var req kickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	actor := identity(c).User
	n, err := h.orch.Kick(c.Request.Context(), actor, domain.RoomKey(c.Param("room")), domain.UserID(req.UserID))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"kicked": req.UserID, "closed": n})
	case errors.Is(err, core.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the room owner may kick"})
	case errors.Is(err, core.ErrUnknownRoom):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown room"})
	default:
		log.Error().Err(err).Str("module", "adapters.http").Str("room", c.Param("room")).Msg("kick")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "kick failed"})
	}
}

func (h *handlers) notify(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || (len(req.Data) > 0 && !json.Valid(req.Data)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	payload, err := json.Marshal(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	user := domain.UserID(c.Param("user"))
	delivered := h.orch.Notify(user, payload)
	log.Info().Str("module", "adapters.http").Str("user", string(user)).Str("from", string(identity(c).User)).Bool("delivered", delivered).Msg("notify")
	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}

// notifyStatus tells a service whether a push would reach the user now.
func (h *handlers) notifyStatus(c *gin.Context) {
	user := domain.UserID(c.Param("user"))
	c.JSON(http.StatusOK, gin.H{"user": user, "online": h.orch.Notifier.Online(user)})
}

func (h *handlers) attendance(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid occurrence id"})
		return
	}
	records, err := h.orch.Ledger.Attendance(c.Request.Context(), domain.OccurrenceID(id))
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Int64("occurrence", id).Msg("attendance")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "attendance unavailable"})
		return
	}
	type row struct {
		Room domain.RoomKey `json:"room"`
		User domain.UserID  `json:"user_id"`
		domain.Participation
	}
	out := make([]row, 0, len(records))
	for _, p := range records {
		out = append(out, row{Room: p.Key.Room, User: p.Key.User, Participation: p})
	}
	c.JSON(http.StatusOK, gin.H{"occurrence_id": id, "records": out})
}
