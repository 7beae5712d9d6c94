package services

import (
	"context"

	"github.com/mrlokans/roots/internal/entities"
	"github.com/mrlokans/roots/internal/importer"
)

// Runner processes files into records and proposed moves.
//
// Implementations:
//   - importer.Pipeline (importer/pipeline.go)
type Runner interface {
	Run(ctx context.Context, paths []string) []importer.Result
}

// Mover executes a proposed move and returns the final path.
//
// Implementations:
//   - fsx.Executor (fsx/fsx.go)
type Mover interface {
	Execute(move importer.ProposedMove) (string, error)
}

// BookStore persists library records.
//
// Implementations:
//   - books.Repository (database/books/repository.go)
type BookStore interface {
	Save(book *entities.Book) error
	FindByHash(hash string) ([]entities.Book, error)
	Paths() ([]string, error)
	DeleteByPath(path string) error
}
