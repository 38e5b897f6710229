package http

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"chat-sync/observability"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// History is the read side of the chat exposed to operators.
type History interface {
	History(ctx context.Context, after domain.MessageID, limit int) ([]domain.Message, error)
	LatestID(ctx context.Context) (domain.MessageID, error)
}

// Router serves the operational endpoints of the chat server:
// prometheus metrics, a health probe and a read-only view of the log.
type Router struct {
	router     *gin.Engine
	log        *slog.Logger
	history    History
	hub        contract.IHub
	monitoring *observability.MonitoringManager
}

type healthResponse struct {
	Status         string                         `json:"status"`
	LatestID       uint64                         `json:"latest_id"`
	ActiveSessions int                            `json:"active_sessions"`
	Telemetry      *observability.MonitoringStats `json:"telemetry,omitempty"`
}

type messageResponse struct {
	ID        uint64    `json:"id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRouter builds the ops router, monitoring is optional.
func NewRouter(log *slog.Logger, history History, hub contract.IHub,
	monitoring *observability.MonitoringManager, ginMode string) *Router {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}
	r := &Router{
		router:     gin.New(),
		log:        log,
		history:    history,
		hub:        hub,
		monitoring: monitoring,
	}
	r.router.Use(gin.Recovery())

	r.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.router.GET("/healthz", r.health)
	r.router.GET("/messages", r.messages)
	return r
}

func (r *Router) Handler() http.Handler {
	return r.router
}

func (r *Router) NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
}

func (r *Router) health(c *gin.Context) {
	latest, err := r.history.LatestID(c.Request.Context())
	if err != nil {
		r.log.Warn("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	response := healthResponse{
		Status:         "ok",
		LatestID:       uint64(latest),
		ActiveSessions: r.hub.Len(),
	}
	if r.monitoring != nil {
		if stats := r.monitoring.GetLatest(); !stats.SampledAt.IsZero() {
			response.Telemetry = &stats
		}
	}
	c.JSON(http.StatusOK, response)
}

// messages pages through the log: GET /messages?after=<id>&limit=<n>
func (r *Router) messages(c *gin.Context) {
	after, err := strconv.ParseUint(c.DefaultQuery("after", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "after must be a message id"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive number"})
		return
	}
	limit = min(limit, maxPageSize)

	messages, err := r.history.History(c.Request.Context(), domain.MessageID(after), limit)
	if err != nil {
		r.log.Error("Failed to read history", "after", after, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, lo.Map(messages, func(m domain.Message, _ int) messageResponse {
		return messageResponse{
			ID:        uint64(m.ID),
			Sender:    m.Sender,
			Body:      m.Body,
			CreatedAt: m.CreatedAt,
		}
	}))
}
