package source

import (
	"context"

	"github.com/cuemby/tracething/pkg/storage"
)

// DocumentGetter is the part of storage.Store the doc source needs
type DocumentGetter interface {
	GetDocument(id string) (*storage.Document, error)
}

// Documents serves text stored locally with `tracething doc put`.
// Names look like <doc-id>.doc.<suffix>.
type Documents struct {
	store DocumentGetter
}

// NewDocuments creates a doc source backed by store
func NewDocuments(store DocumentGetter) *Documents {
	return &Documents{store: store}
}

// Fetch returns the body of the document named by labels[0]
func (d *Documents) Fetch(_ context.Context, labels []string) (string, error) {
	if len(labels) < 1 || labels[0] == "" {
		return "", &FetchError{Source: "doc", Err: ErrMissingLabels}
	}

	doc, err := d.store.GetDocument(labels[0])
	if err != nil {
		return "", &FetchError{Source: "doc", Err: err}
	}
	return doc.Body, nil
}
