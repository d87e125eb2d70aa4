// Package storage keeps the source documents uploaded for each client.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var ErrFileNotFound = errors.New("stored file not found")

// FileInfo contains metadata about a stored source document
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	ClientID    uuid.UUID `json:"client_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	SHA256      string    `json:"sha256"`
	Path        string    `json:"path"` // relative to the client directory
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the operations on stored source documents
type Storage interface {
	// Save stores a document and returns its metadata
	Save(ctx context.Context, clientID uuid.UUID, filename, contentType string, r io.Reader) (*FileInfo, error)

	// Open returns a reader for a stored document
	Open(ctx context.Context, clientID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// List returns a client's documents, newest first
	List(ctx context.Context, clientID uuid.UUID) ([]*FileInfo, error)

	// Delete removes a document
	Delete(ctx context.Context, clientID, fileID uuid.UUID) error

	// PruneOlderThan removes every document stored before cutoff and
	// returns how many were removed
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
