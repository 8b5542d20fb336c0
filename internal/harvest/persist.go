package harvest

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lblod/verenigingen-harvester/internal/config"
	"github.com/lblod/verenigingen-harvester/internal/support/exception"
)

// Artifact describes one gzipped result file written to the shared volume.
type Artifact struct {
	UUID         string
	PhysicalName string
	PhysicalPath string
	PhysicalURI  string
	Size         int64
	Created      time.Time
	Extension    string
	Format       string
}

// Store writes harvest results to the shared file volume, following the
// mu-semtech file-service layout.
type Store struct {
	sharePath    string
	relativePath string
}

// NewStore creates a Store from configuration.
func NewStore(cfg *config.Config) *Store {
	return &Store{
		sharePath:    cfg.Harvester.Storage.SharePath,
		relativePath: cfg.Harvester.Storage.RelativePath,
	}
}

// NewStoreAt creates a Store against an explicit directory, used in tests.
func NewStoreAt(sharePath, relativePath string) *Store {
	return &Store{sharePath: sharePath, relativePath: relativePath}
}

func (s *Store) storageDir() string {
	return filepath.Join(s.sharePath, s.relativePath)
}

// sharedURI addresses a stored file with a share:// URI.
func (s *Store) sharedURI(fileName string) string {
	if s.relativePath != "" {
		return "share://" + s.relativePath + "/" + fileName
	}
	return "share://" + fileName
}

// SaveJSON compresses the document and writes it to the shared volume as
// <uuid>.json.gz.
func (s *Store) SaveJSON(content []byte) (*Artifact, error) {
	dir := s.storageDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, exception.New("store", "failed to create storage directory", err, exception.KindUnknown)
	}

	id := uuid.NewString()
	name := id + ".json.gz"
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, exception.New("store", "failed to create result file", err, exception.KindUnknown)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write(content); err != nil {
		f.Close()
		return nil, exception.New("store", "failed to write result file", err, exception.KindUnknown)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return nil, exception.New("store", "failed to flush result file", err, exception.KindUnknown)
	}
	if err := f.Close(); err != nil {
		return nil, exception.New("store", "failed to close result file", err, exception.KindUnknown)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, exception.New("store", "failed to stat result file", err, exception.KindUnknown)
	}

	return &Artifact{
		UUID:         id,
		PhysicalName: name,
		PhysicalPath: path,
		PhysicalURI:  s.sharedURI(name),
		Size:         info.Size(),
		Created:      time.Now(),
		Extension:    "json",
		Format:       "application/gzip",
	}, nil
}
