package http

import (
	"context"
	"time"

	"github.com/mrlokans/roots/internal/catalog"
	"github.com/mrlokans/roots/internal/database/books"
	"github.com/mrlokans/roots/internal/entities"
	"github.com/mrlokans/roots/internal/settingsstore"
)

// This file consolidates the interfaces HTTP controllers depend on.

// BookStore provides read access to library records.
type BookStore interface {
	GetByID(id uint) (*entities.Book, error)
	Find(q books.Query) ([]entities.Book, error)
	Count() (int64, error)
}

// CandidateSource looks up catalog entries for a query.
type CandidateSource interface {
	Candidates(ctx context.Context, query string) ([]catalog.VolumeInfo, error)
}

// InboxRunner triggers and reports on inbox imports.
type InboxRunner interface {
	Trigger() error
	IsImporting() bool
	NextRun() *time.Time
}

// InboxStatusReader provides the persisted outcome of the last inbox run.
type InboxStatusReader interface {
	GetInboxStatus() settingsstore.InboxStatus
}
