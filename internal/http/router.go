package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	health := NewHealthController(cfg.Database, cfg.Inbox, cfg.Version)
	router.GET("/health", health.Status)

	api := router.Group("/api")
	api.Use(BearerTokenMiddleware(cfg.Token))

	if cfg.Books != nil {
		booksController := NewBooksController(cfg.Books)
		api.GET("/books", booksController.GetBooks)
		api.GET("/books/stats", booksController.GetBookStats)
		api.GET("/books/:id", booksController.GetBook)
		api.GET("/fields", booksController.GetFields)
	}

	if cfg.Catalog != nil {
		matchController := NewMatchController(cfg.Catalog, cfg.Books)
		api.POST("/match", matchController.Match)
		if cfg.Books != nil {
			api.GET("/books/:id/candidates", matchController.MatchBook)
		}
	}

	if cfg.Inbox != nil {
		inboxController := NewInboxController(cfg.Inbox, cfg.InboxStatus)
		api.GET("/inbox", inboxController.GetStatus)
		api.POST("/inbox/run", inboxController.Run)
	}

	return router
}
