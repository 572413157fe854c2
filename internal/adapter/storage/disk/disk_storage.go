package disk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/marketworks/listing-service/internal/listing/domain"
	"github.com/marketworks/listing-service/internal/platform/logger"
)

// Storage keeps media files on the local filesystem under
// <directory>/<uuid>_<original-filename>.
type Storage struct {
	log logger.Logger
}

func NewStorage(log logger.Logger) *Storage {
	return &Storage{log: log}
}

func (s *Storage) Store(ctx context.Context, directory string, upload *domain.Upload) (*domain.MediaAsset, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", directory, err)
	}

	name := uuid.NewString() + "_" + filepath.Base(upload.Filename)
	path := filepath.Join(directory, name)

	if err := os.WriteFile(path, upload.Data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file %s: %w", path, err)
	}

	s.log.Debugf("disk.Storage.Store: wrote %s (%d bytes)", path, len(upload.Data))
	return &domain.MediaAsset{
		ID:   uuid.NewString(),
		Path: path,
	}, nil
}

// Delete is best-effort: a missing file and any IO error are logged and
// swallowed so teardown paths never fail on cleanup.
func (s *Storage) Delete(ctx context.Context, asset domain.MediaAsset) {
	if asset.Path == "" {
		return
	}
	err := os.Remove(asset.Path)
	if err == nil {
		s.log.Debugf("disk.Storage.Delete: removed %s", asset.Path)
		return
	}
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Warnf("disk.Storage.Delete: file %s does not exist", asset.Path)
		return
	}
	s.log.Errorf("disk.Storage.Delete: file %s could not be deleted: %v", asset.Path, err)
}
