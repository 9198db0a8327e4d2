package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScraperConfig(t *testing.T) {
	config := ScraperConfig{
		BaseURL:        "https://example.com",
		MaxDepth:       5,
		RateLimit:      1.0,
		IgnorePatterns: []string{"/ignore/", "private"},
		Timeout:        10 * time.Second,
	}

	s, err := NewWithConfig(config)
	require.NoError(t, err)
	assert.Equal(t, config.BaseURL, s.config.BaseURL)
	assert.Equal(t, config.MaxDepth, s.config.MaxDepth)
	assert.Equal(t, "example.com", s.baseHost)

	_, err = New("not a url")
	assert.Error(t, err)
}

func TestShouldProcessURL(t *testing.T) {
	config := ScraperConfig{
		BaseURL:           "https://example.com",
		IgnorePatterns:    []string{"/ignore/", "private"},
		AllowedExtensions: []string{".html", "/"},
	}

	s, err := NewWithConfig(config)
	require.NoError(t, err)

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://example.com/docs/", true},
		{"https://example.com/page.html", true},
		{"https://example.com/ignore/page.html", false},
		{"https://other-domain.com/page.html", false},
		{"https://example.com/file.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			result := s.shouldProcessURL(tt.url)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestShouldProcessURL_DefaultExtensions(t *testing.T) {
	s, err := New("https://example.com")
	require.NoError(t, err)

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://example.com", true},
		{"https://example.com/", true},
		{"https://example.com/guide", true},
		{"https://example.com/docs/intro.HTML", true},
		{"https://example.com/v1.2/setup", true},
		{"https://example.com/report.pdf", false},
		{"https://example.com/files/archive.zip", false},
		{"https://example.com/logo.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.shouldProcessURL(tt.url))
		})
	}
}

func TestCleanContent(t *testing.T) {
	assert.Equal(t, "Hello world", cleanContent("  Hello\n\n\tworld  Cookie Policy"))
}

func newMockSite(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/", "":
			fmt.Fprint(w, `
			<html>
				<head><title>Test Page</title></head>
				<body>
					<nav><a href="/page2.html">Next</a></nav>
					<main>
						<h1>Test Content</h1>
						<p>This is a test paragraph.</p>
						<script>var ignored = true;</script>
					</main>
				</body>
			</html>`)
		case "/page2.html":
			fmt.Fprint(w, `<html><head><title>Second</title></head><body><article>Second page text</article></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestScrape_SinglePage(t *testing.T) {
	server := newMockSite(t)
	defer server.Close()

	s, err := NewWithConfig(ScraperConfig{
		BaseURL:   server.URL,
		RateLimit: 10,
	})
	require.NoError(t, err)

	docs, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, server.URL, doc.Filename)
	assert.Equal(t, "Test Page", doc.Metadata["title"])
	assert.Contains(t, doc.Text, "Test Content")
	assert.Contains(t, doc.Text, "This is a test paragraph")
	assert.NotContains(t, doc.Text, "ignored")
}

func TestScrape_FollowsLinks(t *testing.T) {
	server := newMockSite(t)
	defer server.Close()

	var visited []string
	s, err := NewWithConfig(ScraperConfig{
		BaseURL:    server.URL,
		MaxDepth:   1,
		RateLimit:  50,
		OnProgress: func(u string) { visited = append(visited, u) },
	})
	require.NoError(t, err)

	docs, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, server.URL+"/page2.html", docs[1].Filename)
	assert.Equal(t, "Second page text", docs[1].Text)
	assert.Len(t, visited, 2)
}

func TestScrape_Canceled(t *testing.T) {
	server := newMockSite(t)
	defer server.Close()

	s, err := NewWithConfig(ScraperConfig{BaseURL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Scrape(ctx, server.URL)
	assert.Error(t, err)
}
