// internal/domain/file/entity.go
package file

import (
	"context"
	"time"
)

// FileInfo is the metadata row for one stored file. The binary itself lives
// on disk under the upload directory, keyed by Filename.
type FileInfo struct {
	ID           string    `json:"id" db:"id"`
	Filename     string    `json:"filename" db:"filename"`
	OriginalName string    `json:"original_name" db:"original_name"`
	MimeType     string    `json:"mime_type" db:"mime_type"`
	Size         int64     `json:"size" db:"size"`
	FilePath     string    `json:"-" db:"file_path"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Store persists file metadata.
type Store interface {
	Create(ctx context.Context, info *FileInfo) error
	FindByID(ctx context.Context, id string) (*FileInfo, error)
	List(ctx context.Context, limit, offset int) ([]*FileInfo, error)
	Delete(ctx context.Context, id string) error
}
