package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/roots/internal/database/books"
	"github.com/mrlokans/roots/internal/entities"
)

type BooksController struct {
	store BookStore
}

func NewBooksController(store BookStore) *BooksController {
	return &BooksController{
		store: store,
	}
}

// GetBooks handles GET /api/books
// Query parameters: q (repeatable, field:value terms or title words) and one
// parameter per queryable field, e.g. ?author=herbert&format=epub.
func (controller *BooksController) GetBooks(c *gin.Context) {
	q, err := books.ParseQuery(c.QueryArray("q"))
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	for _, field := range entities.QueryFields {
		q.Add(field, c.Query(field))
	}

	found, err := controller.store.Find(q)
	if err != nil {
		respondInternalError(c, err, "find books")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": found, "count": len(found)})
}

// GetBook handles GET /api/books/:id
func (controller *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.store.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get book")
		return
	}
	c.IndentedJSON(http.StatusOK, book)
}

// GetBookStats handles GET /api/books/stats
func (controller *BooksController) GetBookStats(c *gin.Context) {
	total, err := controller.store.Count()
	if err != nil {
		respondInternalError(c, err, "count books")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"total_books": total})
}

// GetFields handles GET /api/fields
func (controller *BooksController) GetFields(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{"fields": entities.QueryFields})
}
