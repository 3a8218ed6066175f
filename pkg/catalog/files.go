package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateFile inserts a new file row. A missing ID is generated; the share
// code, if set, is stored canonically uppercase. Unique-index violations are
// mapped to ErrDuplicateShareCode or ErrDuplicateStorageKey.
func (s *Store) CreateFile(ctx context.Context, f *File) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.ShareCode != nil {
		upper := strings.ToUpper(*f.ShareCode)
		f.ShareCode = &upper
	}
	if f.ContentType == "" {
		f.ContentType = "application/octet-stream"
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}

	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		if isUniqueConstraintError(err) {
			if strings.Contains(err.Error(), "share_code") {
				return ErrDuplicateShareCode
			}
			return ErrDuplicateStorageKey
		}
		return err
	}
	return nil
}

// GetFile retrieves a file by id.
func (s *Store) GetFile(ctx context.Context, id string) (*File, error) {
	return getByField[File](s.db, ctx, "id", id, ErrFileNotFound)
}

// GetFileByShareCode retrieves a file by share code. Lookup is
// case-insensitive; codes are stored uppercase.
func (s *Store) GetFileByShareCode(ctx context.Context, code string) (*File, error) {
	return getByField[File](s.db, ctx, "share_code", strings.ToUpper(code), ErrFileNotFound)
}

// ShareCodeTaken reports whether a share code is already bound to a file.
// Satisfies sharecode.TakenFunc.
func (s *Store) ShareCodeTaken(ctx context.Context, code string) (bool, error) {
	return existsByField[File](s.db, ctx, "share_code", strings.ToUpper(code))
}

// ListFilesByOwner returns the owner's files ordered by creation time
// descending.
func (s *Store) ListFilesByOwner(ctx context.Context, ownerID string) ([]*File, error) {
	var files []*File
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// DeleteFile removes a file row by id. Returns ErrFileNotFound when the row
// is already gone, which makes owner deletes idempotent at the HTTP layer.
func (s *Store) DeleteFile(ctx context.Context, id string) error {
	return deleteByField[File](s.db, ctx, "id", id, ErrFileNotFound)
}

// IncrementDownloadCount atomically bumps the download counter by one using
// an SQL increment, so concurrent downloads never lose updates.
func (s *Store) IncrementDownloadCount(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).
		Model(&File{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}

// MarkFileTombstoned flags a row whose blob delete failed so the janitor
// retries instead of leaking the object.
func (s *Store) MarkFileTombstoned(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).
		Model(&File{}).
		Where("id = ?", id).
		Update("tombstoned", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}

// ListExpiredFiles returns up to limit non-tombstoned files whose expiry is
// at or before now. Tombstoned rows are handled by ListTombstonedFiles.
func (s *Store) ListExpiredFiles(ctx context.Context, now time.Time, limit int) ([]*File, error) {
	var files []*File
	err := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ? AND tombstoned = ?", now, false).
		Order("expires_at ASC").
		Limit(limit).
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ListTombstonedFiles returns up to limit rows awaiting a blob delete retry.
func (s *Store) ListTombstonedFiles(ctx context.Context, limit int) ([]*File, error) {
	var files []*File
	err := s.db.WithContext(ctx).
		Where("tombstoned = ?", true).
		Order("created_at ASC").
		Limit(limit).
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}
