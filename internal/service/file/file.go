// internal/service/file/file.go
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"serverkit-service/internal/domain/file"
	xerrors "serverkit-service/internal/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FileService struct {
	store     file.Store
	uploadDir string
	logger    *zap.Logger
}

func NewFileService(store file.Store, uploadDir string, logger *zap.Logger) (*FileService, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &FileService{store: store, uploadDir: uploadDir, logger: logger}, nil
}

// SaveFile streams the upload to disk under a generated name and records its
// metadata. The original name is kept only as metadata, never as a path.
func (s *FileService) SaveFile(ctx context.Context, originalName, mimeType string, src io.Reader) (*file.FileInfo, error) {
	id := uuid.NewString()
	filename := id + filepath.Ext(originalName)
	path := filepath.Join(s.uploadDir, filename)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	size, err := io.Copy(dst, src)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &file.FileInfo{
		ID:           id,
		Filename:     filename,
		OriginalName: originalName,
		MimeType:     mimeType,
		Size:         size,
		FilePath:     path,
	}
	if err := s.store.Create(ctx, info); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to record file: %w", err)
	}

	s.logger.Info("file stored", zap.String("file_id", id), zap.Int64("size", size))
	return info, nil
}

// GetFile returns the metadata for a stored file.
func (s *FileService) GetFile(ctx context.Context, id string) (*file.FileInfo, error) {
	info, err := s.store.FindByID(ctx, id)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return info, nil
}

// Open returns the metadata together with a reader over the stored bytes.
// The caller owns the reader.
func (s *FileService) Open(ctx context.Context, id string) (*file.FileInfo, io.ReadCloser, error) {
	info, err := s.GetFile(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(info.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, xerrors.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return info, f, nil
}

// List pages through stored file metadata, newest first.
func (s *FileService) List(ctx context.Context, limit, offset int) ([]*file.FileInfo, error) {
	files, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

// Delete removes the metadata row and the bytes on disk. A missing disk file
// is logged, not fatal; the row is the source of truth.
func (s *FileService) Delete(ctx context.Context, id string) error {
	info, err := s.GetFile(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return xerrors.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if err := os.Remove(info.FilePath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("failed to remove file from disk", zap.String("file_id", id), zap.Error(err))
	}
	return nil
}
