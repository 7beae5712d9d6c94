package config

const (
	AppName  = "roots"
	FileName = "config.yaml"

	// EnvPrefix prefixes every environment override, e.g. ROOTS_IMPORT_HASH.
	EnvPrefix = "ROOTS"

	// DefaultLibraryName is the sqlite database file, relative to the
	// working directory unless configured otherwise.
	DefaultLibraryName = "library.db"

	// DefaultCatalogURL is the Google Books volumes endpoint.
	DefaultCatalogURL = "https://www.googleapis.com/books/v1/volumes"
)
