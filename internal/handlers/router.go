package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kjdragan/codescribe/internal/auth"
)

type RouterDeps struct {
	SessionSecret string
	Auth          *auth.Authenticator
	Customers     *CustomerHandler
	Agent         *AgentHandler
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// ── session store ──
	store := cookie.NewStore([]byte(deps.SessionSecret))
	r.Use(sessions.Sessions(auth.SessionName, store))

	// ── public endpoints ──
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/auth/login", deps.Auth.Login)
	r.GET("/auth/callback", deps.Auth.Callback)

	// ── protected API ──
	api := r.Group("/api")
	api.Use(deps.Auth.RequireAuth())
	{
		api.POST("/customers", deps.Customers.Create)
		api.GET("/customers/:email", deps.Customers.Get)
		api.PUT("/customers/:email", deps.Customers.Update)
		api.DELETE("/customers/:email", deps.Customers.Delete)
		if deps.Agent != nil {
			api.POST("/agent/query", deps.Agent.Query)
		}
	}

	return r
}
