package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/roots/internal/config"
	"github.com/mrlokans/roots/internal/entities"
)

func newTestClient(url string) *Client {
	return NewClient(config.Catalog{BaseURL: url, Timeout: 5 * time.Second, RequestsPerSecond: 1000})
}

func TestSearch(t *testing.T) {
	var gotQuery, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"kind": "books#volumes",
			"totalItems": 2,
			"items": [
				{"volumeInfo": {
					"title": "Space: The Final Frontier",
					"authors": ["Jane Doe"],
					"publisher": "Orbit",
					"publishedDate": "2004-05",
					"description": "Stars.",
					"industryIdentifiers": [
						{"type": "ISBN_10", "identifier": "0141439556"},
						{"type": "ISBN_13", "identifier": "9780141439556"}
					],
					"categories": ["Fiction"],
					"language": "en"
				}},
				{"volumeInfo": {"title": "Bare"}}
			]
		}`))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Search(context.Background(), "Space: The Final Frontier")
	require.NoError(t, err)

	assert.Equal(t, "q=Space%3A+The+Final+Frontier", gotQuery)
	assert.Contains(t, gotAgent, "roots")
	assert.Equal(t, "books#volumes", resp.Kind)
	assert.Equal(t, 2, resp.TotalItems)
	require.Len(t, resp.Items, 2)

	info := resp.Items[0].VolumeInfo
	assert.Equal(t, "9780141439556", info.ISBN())
	assert.True(t, info.HasIdentifier("0141439556"))
	assert.False(t, info.HasIdentifier("0141439"))
	assert.Equal(t, 2004, info.Year())

	book := info.Book()
	assert.Equal(t, "Space: The Final Frontier", book.Title)
	assert.Equal(t, []string{"Jane Doe"}, book.Authors)
	assert.Equal(t, "Orbit", book.Publisher)
	require.NotNil(t, book.PublicationDate)
	assert.Equal(t, time.Date(2004, 5, 1, 0, 0, 0, 0, time.UTC), *book.PublicationDate)
	assert.Equal(t, []string{"Fiction"}, book.Subjects)
	assert.Equal(t, entities.FormatCatalog, book.Format)

	bare := resp.Items[1].VolumeInfo.Book()
	assert.Equal(t, "Bare", bare.Title)
	assert.Nil(t, bare.Authors)
	assert.Nil(t, bare.PublicationDate)
	assert.Empty(t, bare.ISBN)
	assert.Equal(t, []string{"title"}, bare.Fields())
}

func TestSearchAPIKey(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		_ = json.NewEncoder(w).Encode(VolumeResponse{Kind: "books#volumes"})
	}))
	defer server.Close()

	c := NewClient(config.Catalog{BaseURL: server.URL, APIKey: "secret", RequestsPerSecond: 100})
	infos, err := c.Candidates(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, infos)
	assert.Equal(t, "secret", gotKey)
}

func TestSearchErrors(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Search(context.Background(), "title")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNetwork)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"items": [`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Search(context.Background(), "title")
		assert.ErrorIs(t, err, ErrNetwork)
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := newTestClient(url).Search(context.Background(), "title")
		assert.ErrorIs(t, err, ErrNetwork)
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := newTestClient(server.URL).Search(ctx, "title")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTimeout)
		assert.NotErrorIs(t, err, ErrNetwork)
	})

	t.Run("empty title", func(t *testing.T) {
		_, err := newTestClient("http://127.0.0.1:1").Search(context.Background(), "  ")
		assert.ErrorIs(t, err, entities.ErrUnidentifiableRecord)
	})
}

func TestExtractYear(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"2020", 2020},
		{"2021-06-15", 2021},
		{"1999-01", 1999},
		{"circa 1850", 1850},
		{"12345 then 1984", 1984},
		{"", 0},
		{"no year here", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractYear(tt.input))
		})
	}
}
