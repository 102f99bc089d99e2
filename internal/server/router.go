package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/keywatch/searchvolume/internal/metrics"
	"github.com/keywatch/searchvolume/internal/query"
)

const (
	userIDContextKey    = "searchvolume_token_user_id"
	requestIDContextKey = "searchvolume_request_id"
	requestIDHeader     = "X-Request-ID"
)

// QueryExecutor runs one batch search-volume query.
type QueryExecutor interface {
	Execute(ctx context.Context, req query.Request) (query.Result, error)
}

// TokenValidator checks bearer tokens when the auth gate is enabled.
type TokenValidator interface {
	ValidateToken(tokenString string) (int64, error)
}

// Dependencies wires the HTTP layer to the query orchestrator. Tokens is
// optional: when nil the /query endpoint is open.
type Dependencies struct {
	QueryService QueryExecutor
	Tokens       TokenValidator
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

// NewHTTPHandler builds the gin router serving the query API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.QueryService == nil {
		return nil, errMissingQueryService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := &httpHandler{
		queries: deps.QueryService,
		tokens:  deps.Tokens,
		metrics: deps.Metrics,
		logger:  logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.tagRequest)
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/healthz", handler.handleHealth)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
			deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	queryGroup := router.Group("/")
	if deps.Tokens != nil {
		queryGroup.Use(handler.authorizeRequest)
	}
	queryGroup.GET("/query", handler.handleQuery)

	return router, nil
}

type httpHandler struct {
	queries QueryExecutor
	tokens  TokenValidator
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// tagRequest attaches a request id and logs request completion.
func (h *httpHandler) tagRequest(c *gin.Context) {
	requestID := c.GetHeader(requestIDHeader)
	if requestID == "" {
		if generated, err := uuid.NewV7(); err == nil {
			requestID = generated.String()
		}
	}
	c.Set(requestIDContextKey, requestID)
	c.Header(requestIDHeader, requestID)

	started := time.Now()
	c.Next()

	h.logger.Info("request handled",
		zap.String("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("elapsed", time.Since(started)))
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header missing or invalid"})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header missing or invalid"})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}
