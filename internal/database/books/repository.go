// Package books provides database operations for library records.
//
// Records are keyed by their canonical file path; saving a record for a
// path that is already stored replaces it.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	err := repo.Save(&book)
//	found, err := repo.Find(books.Query{Terms: []books.Term{{Field: "author", Value: "herbert"}}})
package books

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/roots/internal/database"
	"github.com/mrlokans/roots/internal/entities"
)

var (
	// ErrNoPath is returned when saving a record without a file path.
	ErrNoPath = errors.New("record has no file path")
	// ErrDuplicatePath is returned when a concurrent writer stored the same
	// path first.
	ErrDuplicatePath = errors.New("file path already stored")
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts book, or replaces the stored record with the same FilePath.
// On return book.ID identifies the stored row.
func (r *Repository) Save(book *entities.Book) error {
	if book.FilePath == "" {
		return ErrNoPath
	}

	var existing entities.Book
	err := r.db.Where("file_path = ?", book.FilePath).First(&existing).Error
	switch {
	case err == nil:
		book.ID = existing.ID
		book.CreatedAt = existing.CreatedAt
		return r.db.Save(book).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		book.ID = 0
		if err := r.db.Create(book).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("%s: %w", book.FilePath, ErrDuplicatePath)
			}
			return err
		}
		return nil
	default:
		return err
	}
}

// GetByID retrieves a record by its ID.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByPath retrieves the record stored for a canonical file path.
func (r *Repository) GetByPath(path string) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.Where("file_path = ?", path).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// FindByHash returns the records whose file content hash equals hash.
func (r *Repository) FindByHash(hash string) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Where("file_hash = ?", hash).Order("id ASC").Find(&books).Error
	return books, err
}

// Find returns the records matching q, ordered by title.
func (r *Repository) Find(q Query) ([]entities.Book, error) {
	tx := r.db.Model(&entities.Book{})
	for _, term := range q.Terms {
		clause, arg, err := term.where()
		if err != nil {
			return nil, err
		}
		tx = tx.Where(clause, arg)
	}
	for _, word := range q.Text {
		tx = tx.Where("LOWER(title) LIKE ?", contains(word))
	}

	var books []entities.Book
	err := tx.Order("title ASC, id ASC").Find(&books).Error
	return books, err
}

// Latest returns the most recently resolved record.
func (r *Repository) Latest() (*entities.Book, error) {
	var book entities.Book
	err := r.db.Where("resolved_at IS NOT NULL").Order("resolved_at DESC, id DESC").First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Paths lists every stored file path.
func (r *Repository) Paths() ([]string, error) {
	var paths []string
	err := r.db.Model(&entities.Book{}).Order("file_path ASC").Pluck("file_path", &paths).Error
	return paths, err
}

// DeleteByPath removes the record stored for path. Deleting a path that is
// not stored is not an error.
func (r *Repository) DeleteByPath(path string) error {
	return r.db.Where("file_path = ?", path).Delete(&entities.Book{}).Error
}

// Count returns the number of stored records.
func (r *Repository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&entities.Book{}).Count(&n).Error
	return n, err
}

func contains(value string) string {
	return "%" + strings.ToLower(value) + "%"
}
