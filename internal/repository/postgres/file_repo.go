// internal/repository/postgres/file_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"serverkit-service/internal/domain/file"
	xerrors "serverkit-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FileRepository is the postgres implementation of file.Store.
type FileRepository struct {
	db *pgxpool.Pool
}

func NewFileRepository(db *pgxpool.Pool) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, info *file.FileInfo) error {
	query := `
		INSERT INTO files (id, filename, original_name, mime_type, size, file_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query,
		info.ID, info.Filename, info.OriginalName, info.MimeType, info.Size, info.FilePath,
	).Scan(&info.CreatedAt)
}

func (r *FileRepository) FindByID(ctx context.Context, id string) (*file.FileInfo, error) {
	query := `
		SELECT id, filename, original_name, mime_type, size, file_path, created_at
		FROM files
		WHERE id = $1
	`
	var info file.FileInfo
	err := r.db.QueryRow(ctx, query, id).Scan(
		&info.ID, &info.Filename, &info.OriginalName, &info.MimeType,
		&info.Size, &info.FilePath, &info.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	return &info, nil
}

func (r *FileRepository) List(ctx context.Context, limit, offset int) ([]*file.FileInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, filename, original_name, mime_type, size, file_path, created_at
		FROM files
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []*file.FileInfo
	for rows.Next() {
		var info file.FileInfo
		if err := rows.Scan(&info.ID, &info.Filename, &info.OriginalName, &info.MimeType, &info.Size, &info.FilePath, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, &info)
	}
	return files, rows.Err()
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
