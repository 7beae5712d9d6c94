// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help code agents understand
// extension points and how to implement new functionality.
//
// # Interface Categories
//
// ## Format Interfaces
//
//   - Adapter: Metadata extraction for one container format (internal/ebook/adapter.go)
//   - RawMetadata: Format-specific extraction result (internal/ebook/adapter.go)
//
// ## External Services
//
//   - Catalog: Candidate entries for a record (internal/importer/pipeline.go)
//   - CandidateSource: Catalog lookups from the API (internal/http/stores.go)
//
// ## Import Interfaces
//
//   - Runner: Batch pipeline run (internal/services/interfaces.go)
//   - Mover: Executes a proposed move (internal/services/interfaces.go)
//   - Importer: Inbox import target (internal/scheduler/inbox.go)
//
// ## Data Access Interfaces
//
//   - BookStore: Library records for imports (internal/services/interfaces.go)
//   - BookStore: Read-only library queries (internal/http/stores.go)
//   - StatusRecorder: Inbox run outcomes (internal/scheduler/inbox.go)
//   - InboxStatusReader: Inbox status for the API (internal/http/stores.go)
//
// # Adding a New Container Format
//
// To support a new e-book container:
//
//  1. Implement Adapter in internal/ebook/
//
//     type Fb2Metadata struct {
//         Fields   map[string][]string
//         warnings []error
//     }
//
//     type Fb2Adapter struct{}
//
//     func (Fb2Adapter) Format() entities.Format { return entities.FormatFb2 }
//     func (Fb2Adapter) Extract(path string) (RawMetadata, error)
//
//  2. Dispatch on its extension in ForPath
//
//  3. Add a case for *Fb2Metadata to normalize.Normalize
//
// # Adding a New Catalog
//
// To reconcile against another catalog (e.g., Open Library):
//
//  1. Implement Candidates in internal/catalog/
//
//     func (c *OpenLibraryClient) Candidates(ctx context.Context, query string) ([]VolumeInfo, error)
//
//     var _ importer.Catalog = (*OpenLibraryClient)(nil)
//
//  2. Pass it with importer.WithCatalog in entrypoint.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
