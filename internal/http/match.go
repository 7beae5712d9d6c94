package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/roots/internal/catalog"
	"github.com/mrlokans/roots/internal/entities"
	"github.com/mrlokans/roots/internal/importer"
	"github.com/mrlokans/roots/internal/matcher"
	"github.com/mrlokans/roots/internal/normalize"
)

// MatchRequest describes a record to identify in the catalog.
type MatchRequest struct {
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	ISBN      string   `json:"isbn"`
	Publisher string   `json:"publisher"`
	Date      string   `json:"date"` // YYYY-MM-DD
	Year      int      `json:"year"`
}

func (r MatchRequest) book() entities.Book {
	book := entities.Book{
		Title:     strings.TrimSpace(r.Title),
		Authors:   r.Authors,
		ISBN:      strings.TrimSpace(r.ISBN),
		Publisher: strings.TrimSpace(r.Publisher),
	}
	if d, ok := normalize.ParseDate(r.Date); ok {
		book.PublicationDate = &d
	} else if r.Year > 0 {
		d := time.Date(r.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		book.PublicationDate = &d
	}
	return book
}

// MatchResponse lists the ranked candidates for a record. Best is the
// candidate an import would merge, if any.
type MatchResponse struct {
	Query      string              `json:"query"`
	Best       *matcher.Candidate  `json:"best,omitempty"`
	Candidates []matcher.Candidate `json:"candidates"`
}

type MatchController struct {
	catalog CandidateSource
	store   BookStore
}

func NewMatchController(catalog CandidateSource, store BookStore) *MatchController {
	return &MatchController{catalog: catalog, store: store}
}

// Match handles POST /api/match
func (mc *MatchController) Match(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	mc.respond(c, req.book())
}

// MatchBook handles GET /api/books/:id/candidates
func (mc *MatchController) MatchBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := mc.store.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get book")
		return
	}
	mc.respond(c, *book)
}

func (mc *MatchController) respond(c *gin.Context, book entities.Book) {
	if !book.Identifiable() {
		respondError(c, http.StatusBadRequest, "unidentifiable", entities.ErrUnidentifiableRecord.Error())
		return
	}

	query := importer.Query(book)
	infos, err := mc.catalog.Candidates(c.Request.Context(), query)
	if err != nil {
		respondCatalogError(c, err)
		return
	}

	ranked, err := matcher.Rank(book, infos)
	if err != nil {
		respondError(c, http.StatusBadRequest, "unidentifiable", err.Error())
		return
	}

	resp := MatchResponse{Query: query, Candidates: ranked}
	if len(ranked) > 0 {
		resp.Best = &ranked[0]
	}
	c.IndentedJSON(http.StatusOK, resp)
}

func respondCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrTimeout):
		respondError(c, http.StatusGatewayTimeout, "catalog_timeout", err.Error())
	case errors.Is(err, catalog.ErrNetwork):
		respondError(c, http.StatusBadGateway, "catalog_unavailable", err.Error())
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		respondInternalError(c, err, "catalog lookup")
	}
}
