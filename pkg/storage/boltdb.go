package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketDocuments = []byte("documents")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) the document database at path
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketDocuments); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketDocuments, err)
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// normalizeID lower-cases ids, since DNS names arrive in any case
func normalizeID(id string) string {
	return strings.ToLower(id)
}

// PutDocument creates or replaces a document, keeping its creation time
func (s *BoltStore) PutDocument(doc *Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id must not be empty")
	}
	id := normalizeID(doc.ID)

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)

		now := time.Now().UTC()
		stored := *doc
		stored.ID = id
		stored.UpdatedAt = now
		stored.CreatedAt = now

		if existing := b.Get([]byte(id)); existing != nil {
			var prev Document
			if err := json.Unmarshal(existing, &prev); err == nil {
				stored.CreatedAt = prev.CreatedAt
			}
		}

		data, err := json.Marshal(&stored)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}

func (s *BoltStore) GetDocument(id string) (*Document, error) {
	var doc Document
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		data := b.Get([]byte(normalizeID(id)))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *BoltStore) ListDocuments() ([]*Document, error) {
	var docs []*Document
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		return b.ForEach(func(k, v []byte) error {
			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return err
			}
			docs = append(docs, &doc)
			return nil
		})
	})
	return docs, err
}

func (s *BoltStore) DeleteDocument(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		key := []byte(normalizeID(id))
		if b.Get(key) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return b.Delete(key)
	})
}
