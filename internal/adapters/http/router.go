package http

import (
	"context"
	"net/http"

	"github.com/dkeye/StudyRoom/internal/adapters/auth"
	"github.com/dkeye/StudyRoom/internal/adapters/signal"
	"github.com/dkeye/StudyRoom/internal/app/orch"
	"github.com/dkeye/StudyRoom/internal/config"
	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const identityKey = "identity"

// Deps are the collaborators the HTTP surface needs beyond the orchestrator.
type Deps struct {
	Orch     *orch.Orchestrator
	Verifier *auth.Verifier
	History  core.ChatHistory
}

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware tags every request with a device id cookie so
// several tabs of one user can be told apart in logs.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// Authenticate rejects requests without a valid bearer token before any
// WebSocket upgrade happens.
func Authenticate(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := v.Verify(auth.TokenFromRequest(c.Request))
		if err != nil {
			log.Info().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Str("device", c.GetString("client_token")).Msg("unauthorized")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireRole admits only callers whose token carries role. It runs after
// Authenticate.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := identity(c); id.Role != role {
			log.Info().Str("module", "adapters.http").Str("path", c.FullPath()).Str("user", string(id.User)).Msg("forbidden")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) auth.Identity {
	id, _ := c.Get(identityKey)
	ident, _ := id.(auth.Identity)
	return ident
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ws := signal.NewSignalWSController(ctx, deps.Orch, signal.Options{
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		WriteTimeout: cfg.WriteTimeout,
		SendBuffer:   cfg.SendBuffer,
	})
	h := &handlers{orch: deps.Orch, history: deps.History, historyLimit: cfg.Chat.HistoryLimit}

	api := r.Group("/api", Authenticate(deps.Verifier))

	api.GET("/ws/rooms/:room", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("room", c.Param("room")).Str("device", c.GetString("client_token")).Msg("ws room endpoint hit")
		ws.HandleRoom(c, identity(c))
	})
	api.GET("/ws/notify", func(c *gin.Context) {
		ws.HandleNotify(c, identity(c))
	})

	api.GET("/rooms", h.listRooms)
	api.GET("/rooms/:room/members", h.roomMembers)
	api.GET("/rooms/:room/messages", h.roomMessages)
	api.POST("/rooms/:room/kick", h.kick)
	api.GET("/occurrences/:id/attendance", h.attendance)

	svc := api.Group("/notify", RequireRole(auth.RoleService))
	svc.POST("/:user", h.notify)
	svc.GET("/:user", h.notifyStatus)

	return r
}
