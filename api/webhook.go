package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"kinobot/internal/logger"
	"kinobot/internal/tg"
)

// WebhookPath prefixes the webhook route; the secret is its final segment.
const WebhookPath = "/api/webhook"

// WebhookRoute is the path Telegram posts updates to.
func WebhookRoute(secret string) string { return WebhookPath + "/" + secret }

const maxUpdateSize = 2 << 20

// Server is the webhook HTTP surface. Every decoded update is passed to dispatch, which
// must not block on handling it.
type Server struct {
	engine *gin.Engine
	srv    *http.Server
	log    *zap.SugaredLogger
}

// NewServer serves the webhook under WebhookRoute(secret). Requests carrying any other
// secret get 404.
func NewServer(addr, secret string, dispatch func(tg.Event), log *zap.SugaredLogger) *Server {
	log = logger.OrNop(log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST(WebhookPath+"/:secret", webhookHandler(secret, dispatch, log))

	return &Server{
		engine: r,
		log:    log,
		srv: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe blocks until the server stops; a graceful Shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.log.Infow("server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server")
	return s.srv.Shutdown(ctx)
}

func webhookHandler(secret string, dispatch func(tg.Event), log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(secret)) != 1 {
			log.Warnw("webhook secret mismatch", "remote", c.ClientIP())
			c.Status(http.StatusNotFound)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpdateSize)

		var upd tgbotapi.Update
		if err := c.ShouldBindJSON(&upd); err != nil {
			log.Warnw("bad update payload", "err", err)
			c.Status(http.StatusBadRequest)
			return
		}
		if ev, ok := tg.FromUpdate(upd); ok {
			dispatch(ev)
		}
		c.Status(http.StatusOK)
	}
}
