package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ibreez3/ai-chat/chat"
)

type CreateSessionReq struct {
	System   string       `json:"system"`
	Messages chat.History `json:"messages"`
}

type AskReq struct {
	Prompt string `json:"prompt" binding:"required"`
}

type CompleteReq struct {
	Messages chat.History `json:"messages"`
	N        int          `json:"n"`
}

// NewRouter exposes the session manager over HTTP. timeout bounds one
// request including all of its retries; zero means no bound.
func NewRouter(mgr *Manager, log logrus.FieldLogger, timeout time.Duration) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	withTimeout := func(c *gin.Context) (context.Context, context.CancelFunc) {
		if timeout > 0 {
			return context.WithTimeout(c.Request.Context(), timeout)
		}
		return context.WithCancel(c.Request.Context())
	}

	r.POST("/api/sessions", func(c *gin.Context) {
		var req CreateSessionReq
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var seed chat.History
		if req.System != "" {
			seed = append(seed, chat.SystemMessage(req.System))
		}
		seed = append(seed, req.Messages...)
		e, err := mgr.Create(seed)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": e.ID})
	})

	r.GET("/api/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": mgr.List()})
	})

	r.POST("/api/sessions/:id/ask", func(c *gin.Context) {
		var req AskReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx, cancel := withTimeout(c)
		defer cancel()
		reply, err := mgr.Ask(ctx, c.Param("id"), req.Prompt)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reply": reply})
	})

	r.GET("/api/sessions/:id", func(c *gin.Context) {
		e, err := mgr.Get(c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, e.Info())
	})

	r.GET("/api/sessions/:id/transcript", func(c *gin.Context) {
		e, err := mgr.Get(c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"transcript": e.Transcript()})
	})

	r.GET("/api/sessions/:id/messages", func(c *gin.Context) {
		e, err := mgr.Get(c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": e.Messages()})
	})

	r.DELETE("/api/sessions/:id", func(c *gin.Context) {
		if err := mgr.Delete(c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.POST("/api/completions", func(c *gin.Context) {
		var req CompleteReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.N == 0 {
			req.N = 1
		}
		ctx, cancel := withTimeout(c)
		defer cancel()
		choices, err := mgr.Complete(ctx, req.Messages, req.N)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"choices": choices})
	})

	return r
}

// StatusFor maps chat and service errors to HTTP status codes.
func StatusFor(err error) int {
	var (
		cfgErr    *chat.ConfigurationError
		roleErr   *chat.InvalidRoleError
		fatal     *chat.FatalRequestError
		exhausted *chat.RetriesExhaustedError
	)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &cfgErr), errors.As(err, &roleErr):
		return http.StatusBadRequest
	case errors.As(err, &exhausted):
		return http.StatusServiceUnavailable
	case errors.As(err, &fatal):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, chat.ErrNoCompletions):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	c.JSON(StatusFor(err), gin.H{"error": err.Error()})
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start),
		}).Info("request")
	}
}
