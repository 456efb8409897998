package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dkeye/carecall/internal/adapters/signal"
	"github.com/dkeye/carecall/internal/app/relay"
	"github.com/dkeye/carecall/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware tags every browser with a long-lived token cookie.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)

		sess := sessions.Default(c)
		first, ok := sess.Get("first_seen").(int64)
		if !ok {
			first = time.Now().Unix()
			sess.Set("first_seen", first)
			_ = sess.Save()
		}
		c.Set("first_seen", first)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, board *relay.Switchboard) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("CarecallSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	opts := signal.Options{
		ReadLimit:       cfg.ReadLimit,
		PingPeriod:      cfg.PingPeriod,
		IdentifyTimeout: cfg.IdentifyTimeout,
		SendQueue:       cfg.SendQueue,
	}
	limiter := signal.NewRateLimiter(cfg.RateLimit.Calls, cfg.RateLimit.Window)
	ctrl := signal.NewSignalWSController(board, limiter, opts)

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client_token", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})
	api.GET("/session", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"clientToken": c.GetString("client_token"),
			"firstSeen":   c.GetInt64("first_seen"),
		})
	})
	api.GET("/online", func(c *gin.Context) {
		online := board.Registry.Online()
		c.JSON(http.StatusOK, gin.H{"users": online, "count": len(online)})
	})

	return r
}
