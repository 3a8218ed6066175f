package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CreateUser inserts a user row after checking the deleted-accounts ban
// marker. Registration and credential management are owned by the external
// identity collaborator; this is the single point where the core consults
// the ban-expires timestamp.
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	var banned int64
	err := s.db.WithContext(ctx).
		Model(&DeletedAccount{}).
		Where("username = ? AND ban_expires_at > ?", user.Username, time.Now()).
		Count(&banned).Error
	if err != nil {
		return err
	}
	if banned > 0 {
		return ErrAccountBanned
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	return getByField[User](s.db, ctx, "id", id, ErrUserNotFound)
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return getByField[User](s.db, ctx, "username", username, ErrUserNotFound)
}
