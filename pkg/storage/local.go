package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const metaDirName = ".meta"

// LocalStorage implements Storage on the local filesystem. Each client gets
// a directory holding the documents and a .meta directory of JSON metadata.
type LocalStorage struct {
	basePath string
	now      func() time.Time
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath, now: time.Now}, nil
}

func (s *LocalStorage) clientDir(clientID uuid.UUID) string {
	return filepath.Join(s.basePath, clientID.String())
}

func (s *LocalStorage) metaPath(clientID, fileID uuid.UUID) string {
	return filepath.Join(s.clientDir(clientID), metaDirName, fileID.String()+".json")
}

// Save stores a document and returns its metadata
func (s *LocalStorage) Save(ctx context.Context, clientID uuid.UUID, filename, contentType string, r io.Reader) (*FileInfo, error) {
	fileID := uuid.New()

	dir := s.clientDir(clientID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create client directory: %w", err)
	}

	storedName := fmt.Sprintf("%s_%s", fileID.String()[:8], sanitizeFilename(filename))
	filePath := filepath.Join(dir, storedName)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), r)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &FileInfo{
		ID:          fileID,
		ClientID:    clientID,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		SHA256:      hex.EncodeToString(hash.Sum(nil)),
		Path:        storedName,
		CreatedAt:   s.now(),
	}

	if err := s.saveMetadata(info); err != nil {
		os.Remove(filePath)
		return nil, err
	}
	return info, nil
}

// Open returns a reader for a stored document
func (s *LocalStorage) Open(ctx context.Context, clientID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := s.readMetadata(s.metaPath(clientID, fileID))
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.clientDir(clientID), info.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, info, nil
}

// List returns a client's documents, newest first
func (s *LocalStorage) List(ctx context.Context, clientID uuid.UUID) ([]*FileInfo, error) {
	files, err := s.listDir(filepath.Join(s.clientDir(clientID), metaDirName))
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].CreatedAt.After(files[j].CreatedAt) })
	return files, nil
}

// Delete removes a document
func (s *LocalStorage) Delete(ctx context.Context, clientID, fileID uuid.UUID) error {
	info, err := s.readMetadata(s.metaPath(clientID, fileID))
	if err != nil {
		return err
	}
	return s.remove(info)
}

// PruneOlderThan removes every document stored before cutoff
func (s *LocalStorage) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, fmt.Errorf("failed to list storage directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !entry.IsDir() {
			continue
		}
		if _, err := uuid.Parse(entry.Name()); err != nil {
			continue
		}

		files, err := s.listDir(filepath.Join(s.basePath, entry.Name(), metaDirName))
		if err != nil {
			return removed, err
		}
		for _, info := range files {
			if !info.CreatedAt.Before(cutoff) {
				continue
			}
			if err := s.remove(info); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func (s *LocalStorage) remove(info *FileInfo) error {
	filePath := filepath.Join(s.clientDir(info.ClientID), info.Path)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if err := os.Remove(s.metaPath(info.ClientID, info.ID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}

func (s *LocalStorage) listDir(metaDir string) ([]*FileInfo, error) {
	entries, err := os.ReadDir(metaDir)
	if errors.Is(err, os.ErrNotExist) {
		return []*FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := s.readMetadata(filepath.Join(metaDir, entry.Name()))
		if err != nil {
			continue
		}
		files = append(files, info)
	}
	return files, nil
}

func (s *LocalStorage) readMetadata(path string) (*FileInfo, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &info, nil
}

func (s *LocalStorage) saveMetadata(info *FileInfo) error {
	metaDir := filepath.Join(s.clientDir(info.ClientID), metaDirName)
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(info.ClientID, info.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// sanitizeFilename keeps the base name and replaces characters that are
// unsafe in paths.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	replacer := strings.NewReplacer(
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	name = replacer.Replace(name)
	if name == "" || name == "." || name == "/" {
		return "upload"
	}
	return name
}
