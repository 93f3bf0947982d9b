// Package server wires the HTTP API: directory reads, settlement and
// deposit, invoice issuance, server-side scanning, and the voice endpoints.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gkash-app/gkash/internal/auth"
	"github.com/gkash-app/gkash/internal/directory"
	"github.com/gkash-app/gkash/internal/ledger"
	"github.com/gkash-app/gkash/internal/metrics"
	"github.com/gkash-app/gkash/internal/voice"
)

// Server holds the services behind the HTTP API.
type Server struct {
	ledger    *ledger.Ledger
	directory *directory.Directory
	auth      *auth.PINAuthenticator
	jwt       *auth.JWTManager
	assistant *voice.Assistant
	metrics   *metrics.Metrics
}

// New creates a Server over the given services.
func New(l *ledger.Ledger, d *directory.Directory, a *auth.PINAuthenticator, jwt *auth.JWTManager, assistant *voice.Assistant, m *metrics.Metrics) *Server {
	return &Server{
		ledger:    l,
		directory: d,
		auth:      a,
		jwt:       jwt,
		assistant: assistant,
		metrics:   m,
	}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router(registry *prometheus.Registry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), s.requestMetrics(), cors())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		api.POST("/auth/login", s.handleLogin)

		api.GET("/accounts", s.handleListAccounts)
		api.GET("/accounts/:id", s.handleGetAccount)
		api.GET("/transactions", s.handleListTransactions)
		api.POST("/scan", s.handleScan)

		api.GET("/voice/context", s.handleVoiceContext)
		api.POST("/voice/transcribe", s.handleTranscribe)
		api.POST("/voice/chat", s.handleChat)
		api.POST("/voice/speak", s.handleSpeak)

		// Money movement and invoice issuance require a device session.
		authed := api.Group("", s.requireAuth())
		authed.POST("/transactions", s.handleTransfer)
		authed.POST("/deposit", s.handleDeposit)
		authed.POST("/invoices", s.handleCreateInvoice)
	}

	return router
}
