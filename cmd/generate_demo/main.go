// Command generate_demo creates a demo library database with records of
// public domain books.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mrlokans/roots/internal/database"
	"github.com/mrlokans/roots/internal/database/books"
	"github.com/mrlokans/roots/internal/entities"
)

const (
	defaultDemoDatabasePath = "./demo/library.db"
	defaultDemoLibraryDir   = "./demo/Books"
)

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	libDir := flag.String("dir", defaultDemoLibraryDir, "library directory the records point into")
	flag.Parse()

	log.Printf("Generating demo library at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}

	db, err := database.NewDatabase(*dbPath, false)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	dir, err := filepath.Abs(*libDir)
	if err != nil {
		log.Fatalf("Failed to resolve library directory: %v", err)
	}

	repo := books.NewRepository(db.DB)
	now := time.Now().UTC()
	for _, book := range publicDomainBooks() {
		book.FilePath = filepath.Join(dir, book.PrimaryAuthor(), book.Title+"."+string(book.Format))
		book.ResolvedAt = &now
		if err := repo.Save(&book); err != nil {
			log.Printf("Failed to save book %s: %v", book.Title, err)
			continue
		}
		log.Printf("Saved: %s by %s", book.Title, book.PrimaryAuthor())
	}

	log.Println("Demo library generated successfully!")
}

func year(y int) *time.Time {
	t := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

func publicDomainBooks() []entities.Book {
	return []entities.Book{
		{
			Title:           "Meditations",
			Authors:         []string{"Marcus Aurelius"},
			PublicationDate: year(180),
			Subjects:        []string{"Philosophy", "Stoics"},
			Format:          entities.FormatEpub,
		},
		{
			Title:           "Letters from a Stoic",
			Authors:         []string{"Seneca"},
			Publisher:       "Penguin Classics",
			PublicationDate: year(1969),
			ISBN:            "9780140442106",
			Subjects:        []string{"Philosophy"},
			Format:          entities.FormatEpub,
		},
		{
			Title:           "On the Origin of Species",
			Authors:         []string{"Charles Darwin"},
			Publisher:       "John Murray",
			PublicationDate: year(1859),
			Subjects:        []string{"Science", "Evolution"},
			Format:          entities.FormatMobi,
		},
		{
			Title:           "Howards End",
			Authors:         []string{"E. M. Forster"},
			Publisher:       "Edward Arnold",
			PublicationDate: year(1910),
			Subjects:        []string{"Fiction"},
			Format:          entities.FormatEpub,
		},
		{
			Title:           "A Room with a View",
			Authors:         []string{"E. M. Forster"},
			PublicationDate: year(1908),
			Subjects:        []string{"Fiction"},
			Format:          entities.FormatMobi,
		},
		{
			Title:           "Pride and Prejudice",
			Authors:         []string{"Jane Austen"},
			Publisher:       "T. Egerton",
			PublicationDate: year(1813),
			Subjects:        []string{"Fiction", "Romance"},
			Format:          entities.FormatEpub,
		},
	}
}
