// Package httpapi exposes the engine over a small JSON HTTP surface.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aprevost/kaia/internal/kaia/composer"
)

// Server serves the chat endpoint and a health probe.
type Server struct {
	composer *composer.Composer
	logger   *slog.Logger
	engine   *gin.Engine
}

// NewServer builds the HTTP surface around a composer. A nil logger falls
// back to slog.Default.
func NewServer(c *composer.Composer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{composer: c, logger: logger, engine: engine}
	engine.GET("/healthz", s.handleHealth)
	engine.POST("/api/chat", s.handleChat)
	return s
}

// Handler returns the root http.Handler, for mounting in an http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

type chatRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	ErrorKind composer.ErrorKind `json:"error_kind"`
	Message   string             `json:"message"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			ErrorKind: composer.KindEmptyInput,
			Message:   "request body must be JSON with a \"text\" field",
		})
		return
	}

	reply, err := s.composer.Process(c.Request.Context(), req.SessionID, req.Text)
	if err != nil {
		cErr := composer.AsError(err)
		status := statusFor(cErr.Kind)
		if status >= http.StatusInternalServerError {
			s.logger.Error("chat request failed", "kind", cErr.Kind, "err", err)
		}
		c.JSON(status, errorResponse{ErrorKind: cErr.Kind, Message: cErr.Message})
		return
	}
	c.JSON(http.StatusOK, reply)
}

// statusFor maps the two error kinds Process can surface as hard errors.
// Malformed expressions and provider outages ride as error_kind annotations
// on 200 replies and never reach here.
func statusFor(kind composer.ErrorKind) int {
	if kind == composer.KindEmptyInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
