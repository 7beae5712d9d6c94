// Package database provides the sqlite library store.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup, migrations
//	├── books/           # Book records and library queries
//	└── settings/        # Key/value application state
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./library.db", false)
//
//	booksRepo := books.NewRepository(db.DB)
//	settingsRepo := settings.NewRepository(db.DB)
//
//	q, err := books.ParseQuery([]string{"author:le guin", "dispossessed"})
//	found, err := booksRepo.Find(q)
//
// # Interface Implementations
//
//   - books.Repository: implements http.BookStore and scheduler.BookSaver
//   - settings.Repository: implements cli.StateStore
package database
