package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sugawarayuuta/sonnet"
)

const (
	// DefaultHTTPTimeout bounds a single remote fetch
	DefaultHTTPTimeout = 10 * time.Second

	// maxBodyBytes caps how much remote text is read
	maxBodyBytes = 1 << 20

	userAgent = "tracething/1 (+dns)"
)

// NewHTTPClient returns the client shared by the remote sources
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{
		Timeout: timeout,
	}
}

// get performs a GET and returns the body, treating non-2xx as an error
func get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}

// Gist serves the raw content of a GitHub gist.
// Names look like <gist-id>.<user>.gist.<suffix>.
type Gist struct {
	Endpoint string
	Client   *http.Client
}

// NewGist creates a gist source against endpoint
func NewGist(endpoint string, client *http.Client) *Gist {
	return &Gist{
		Endpoint: strings.TrimSuffix(endpoint, "/"),
		Client:   client,
	}
}

// Fetch downloads the gist named by labels[0] (id) and labels[1] (user)
func (g *Gist) Fetch(ctx context.Context, labels []string) (string, error) {
	if len(labels) < 2 {
		return "", &FetchError{Source: "gist", Err: ErrMissingLabels}
	}

	u := fmt.Sprintf("%s/%s/%s/raw", g.Endpoint, url.PathEscape(labels[1]), url.PathEscape(labels[0]))
	body, err := get(ctx, g.Client, u)
	if err != nil {
		return "", &FetchError{Source: "gist", Err: err}
	}
	return string(body), nil
}

// Wikipedia serves the plain-text introduction of an article.
// Names look like <title>.wikipedia.<suffix>.
type Wikipedia struct {
	Endpoint string
	Client   *http.Client
}

// NewWikipedia creates a wikipedia source against a MediaWiki api.php endpoint
func NewWikipedia(endpoint string, client *http.Client) *Wikipedia {
	return &Wikipedia{
		Endpoint: endpoint,
		Client:   client,
	}
}

type wikiResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string  `json:"title"`
			Extract *string `json:"extract"`
			Missing *string `json:"missing"`
		} `json:"pages"`
	} `json:"query"`
}

// Fetch asks the extracts API for the intro of the article titled labels[0]
func (w *Wikipedia) Fetch(ctx context.Context, labels []string) (string, error) {
	if len(labels) < 1 || labels[0] == "" {
		return "", &FetchError{Source: "wikipedia", Err: ErrMissingLabels}
	}

	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("titles", labels[0])
	q.Set("prop", "extracts")
	q.Set("exintro", "")
	q.Set("explaintext", "")

	body, err := get(ctx, w.Client, w.Endpoint+"?"+q.Encode())
	if err != nil {
		return "", &FetchError{Source: "wikipedia", Err: err}
	}

	var resp wikiResponse
	if err := sonnet.Unmarshal(body, &resp); err != nil {
		return "", &FetchError{Source: "wikipedia", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	// A single title query returns exactly one page, keyed by page id
	for _, page := range resp.Query.Pages {
		if page.Missing != nil || page.Extract == nil {
			return "", &FetchError{Source: "wikipedia", Err: fmt.Errorf("%w: %s", ErrArticleNotFound, labels[0])}
		}
		return *page.Extract, nil
	}
	return "", &FetchError{Source: "wikipedia", Err: fmt.Errorf("no pages in response")}
}
