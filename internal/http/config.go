package http

import (
	"log/slog"

	"github.com/mrlokans/roots/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. Optional dependencies disable their routes
// when nil.
type RouterConfig struct {
	// Core dependencies
	Books    BookStore
	Database *database.Database

	// Catalog lookups for /api/match (optional)
	Catalog CandidateSource

	// Scheduled inbox import (optional)
	Inbox       InboxRunner
	InboxStatus InboxStatusReader

	// Bearer token required by /api routes; open when empty
	Token string

	Logger *slog.Logger

	// Application info
	Version string
}
