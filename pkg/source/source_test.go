package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/tracething/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticSource(text string) Source {
	return SourceFunc(func(context.Context, []string) (string, error) {
		return text, nil
	})
}

// TestRegistryRegisterLookup tests registration and lookup
func TestRegistryRegisterLookup(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("wikipedia", staticSource("w")))
	require.NoError(t, r.Register("gist", staticSource("g")))

	src, ok := r.Lookup("gist")
	require.True(t, ok)
	text, err := src.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "g", text)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"gist", "wikipedia"}, r.Keys())
}

// TestRegistryRejects tests invalid registrations
func TestRegistryRejects(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *Registry)
		key   string
		src   Source
	}{
		{
			name:  "empty key",
			setup: func(*Registry) {},
			key:   "",
			src:   staticSource("x"),
		},
		{
			name:  "nil source",
			setup: func(*Registry) {},
			key:   "x",
			src:   nil,
		},
		{
			name: "duplicate key",
			setup: func(r *Registry) {
				_ = r.Register("x", staticSource("x"))
			},
			key: "x",
			src: staticSource("y"),
		},
		{
			name: "sealed registry",
			setup: func(r *Registry) {
				r.Seal()
			},
			key: "x",
			src: staticSource("x"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			tt.setup(r)
			assert.Error(t, r.Register(tt.key, tt.src))
		})
	}
}

// TestRegistryFetchWrapsErrors tests that plain errors become FetchErrors
func TestRegistryFetchWrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	require.NoError(t, r.Register("bad", SourceFunc(func(context.Context, []string) (string, error) {
		return "", boom
	})))

	_, found, err := r.Fetch(context.Background(), "bad", nil)
	require.True(t, found)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "bad", fe.Source)
	assert.True(t, errors.Is(err, boom))

	_, found, err = r.Fetch(context.Background(), "unknown", nil)
	assert.False(t, found)
	assert.NoError(t, err)
}

// TestGistFetch tests the gist source against a fake server
func TestGistFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/octocat/abc123/raw" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "gist body")
	}))
	defer srv.Close()

	g := NewGist(srv.URL+"/", srv.Client())

	text, err := g.Fetch(context.Background(), []string{"abc123", "octocat"})
	require.NoError(t, err)
	assert.Equal(t, "gist body", text)

	_, err = g.Fetch(context.Background(), []string{"other", "octocat"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)

	_, err = g.Fetch(context.Background(), []string{"abc123"})
	assert.True(t, errors.Is(err, ErrMissingLabels))
}

// TestWikipediaFetch tests extract decoding
func TestWikipediaFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "extracts", q.Get("prop"))

		switch q.Get("titles") {
		case "golang":
			fmt.Fprint(w, `{"batchcomplete":"","query":{"pages":{"1234":{"pageid":1234,"title":"Go","extract":"Go is a language."}}}}`)
		case "broken":
			fmt.Fprint(w, `{"query":`)
		case "nosucharticlezzz":
			fmt.Fprint(w, `{"batchcomplete":"","query":{"pages":{"-1":{"ns":0,"title":"Nosucharticlezzz","missing":""}}}}`)
		case "noextract":
			fmt.Fprint(w, `{"query":{"pages":{"77":{"pageid":77,"title":"Noextract"}}}}`)
		default:
			fmt.Fprint(w, `{"query":{"pages":{}}}`)
		}
	}))
	defer srv.Close()

	wp := NewWikipedia(srv.URL, srv.Client())

	text, err := wp.Fetch(context.Background(), []string{"golang"})
	require.NoError(t, err)
	assert.Equal(t, "Go is a language.", text)

	_, err = wp.Fetch(context.Background(), []string{"broken"})
	var fe *FetchError
	assert.True(t, errors.As(err, &fe))

	_, err = wp.Fetch(context.Background(), []string{"nothing"})
	assert.Error(t, err)

	// A missing article is a failed fetch, not empty text
	text, err = wp.Fetch(context.Background(), []string{"nosucharticlezzz"})
	assert.Empty(t, text)
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "wikipedia", fe.Source)
	assert.ErrorIs(t, err, ErrArticleNotFound)

	_, err = wp.Fetch(context.Background(), []string{"noextract"})
	assert.ErrorIs(t, err, ErrArticleNotFound)

	_, err = wp.Fetch(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrMissingLabels))
}

type fakeDocs map[string]string

func (f fakeDocs) GetDocument(id string) (*storage.Document, error) {
	body, ok := f[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Document{ID: id, Body: body}, nil
}

// TestDocumentsFetch tests the local document source
func TestDocumentsFetch(t *testing.T) {
	d := NewDocuments(fakeDocs{"motd": "welcome"})

	text, err := d.Fetch(context.Background(), []string{"motd"})
	require.NoError(t, err)
	assert.Equal(t, "welcome", text)

	_, err = d.Fetch(context.Background(), []string{"absent"})
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = d.Fetch(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrMissingLabels))
}

// TestCachedSource tests that successes are cached and failures are not
func TestCachedSource(t *testing.T) {
	var calls atomic.Int32
	src := SourceFunc(func(_ context.Context, labels []string) (string, error) {
		calls.Add(1)
		if labels[0] == "fail" {
			return "", errors.New("nope")
		}
		return "text-" + labels[0], nil
	})

	c := Cached(src, 8, time.Minute)

	for i := 0; i < 3; i++ {
		text, err := c.Fetch(context.Background(), []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, "text-a", text)
	}
	assert.Equal(t, int32(1), calls.Load())

	for i := 0; i < 2; i++ {
		_, err := c.Fetch(context.Background(), []string{"fail"})
		assert.Error(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

// TestCachedDisabled tests that a zero size returns the source unchanged
func TestCachedDisabled(t *testing.T) {
	src := staticSource("x")
	_, isCached := Cached(src, 0, time.Minute).(*cached)
	assert.False(t, isCached)
}
