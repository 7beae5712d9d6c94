package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/roots/internal/catalog"
	"github.com/mrlokans/roots/internal/database/books"
	"github.com/mrlokans/roots/internal/ebook"
	"github.com/mrlokans/roots/internal/fsx"
	"github.com/mrlokans/roots/internal/http"
	"github.com/mrlokans/roots/internal/importer"
	"github.com/mrlokans/roots/internal/scheduler"
	"github.com/mrlokans/roots/internal/services"
	"github.com/mrlokans/roots/internal/settingsstore"
)

// =============================================================================
// Format Adapters
// =============================================================================

var _ ebook.Adapter = ebook.EpubAdapter{}
var _ ebook.Adapter = ebook.MobiAdapter{}

var _ ebook.RawMetadata = (*ebook.EpubMetadata)(nil)
var _ ebook.RawMetadata = (*ebook.MobiMetadata)(nil)

// =============================================================================
// External Services
// =============================================================================

// Catalog implementations
var _ importer.Catalog = (*catalog.Client)(nil)
var _ http.CandidateSource = (*catalog.Client)(nil)

// =============================================================================
// Import Pipeline
// =============================================================================

var _ services.Runner = (*importer.Pipeline)(nil)
var _ services.Mover = (*fsx.Executor)(nil)
var _ scheduler.Importer = (*services.Library)(nil)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ services.BookStore = (*books.Repository)(nil)
var _ http.BookStore = (*books.Repository)(nil)

var _ scheduler.StatusRecorder = (*settingsstore.SettingsStore)(nil)
var _ http.InboxStatusReader = (*settingsstore.SettingsStore)(nil)

// =============================================================================
// Scheduling
// =============================================================================

var _ http.InboxRunner = (*scheduler.InboxScheduler)(nil)
