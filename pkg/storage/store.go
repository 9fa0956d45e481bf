package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a document id is unknown
var ErrNotFound = errors.New("document not found")

// Document is a piece of local text served by the doc source
type Document struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the interface for local document storage
type Store interface {
	PutDocument(doc *Document) error
	GetDocument(id string) (*Document, error)
	ListDocuments() ([]*Document, error)
	DeleteDocument(id string) error

	// Utility
	Close() error
}
