// Package httpapi wires the REST surface and the websocket entrypoint into
// one gin engine.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mizuki/StudyRoom/internal/adapters/ws"
	"github.com/mizuki/StudyRoom/internal/config"
	"github.com/mizuki/StudyRoom/internal/store"
)

type API struct {
	Cfg      *config.Config
	Sessions *store.Memory
	Feedback *store.FeedbackBox
	Presence *ws.PresenceController
}

func genClientToken() string {
	return uuid.NewString()
}

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

func SetupRouter(ctx context.Context, api *API) *gin.Engine {
	cfg := api.Cfg
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	registerValidators()

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("StudyRoomSessions", cookieStore))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "httpapi").Str("static", cfg.StaticPath).Msg("router setup")

	apiGroup := r.Group("/api")
	apiGroup.Use(RateLimitMiddleware(NewClientRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)))

	apiGroup.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	sess := apiGroup.Group("/sessions")
	sess.POST("", api.createSession)
	sess.GET("/active", api.listActiveSessions)
	sess.PUT("/:id", api.updateSession)
	sess.DELETE("/:id", api.endSession)

	apiGroup.GET("/locations", api.listLocations)

	// Feedback is throttled hard: one submission per client per day.
	feedbackLimiter := NewClientRateLimiter(1, feedbackWindow)
	apiGroup.POST("/feedback", RateLimitMiddleware(feedbackLimiter), api.submitFeedback)

	apiGroup.GET("/ws/presence", func(c *gin.Context) {
		log.Info().Str("module", "httpapi").Str("token", c.GetString("client_token")).Msg("presence ws endpoint hit")
		api.Presence.HandlePresence(ctx, c)
	})

	return r
}
