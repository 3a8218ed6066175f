package catalog

import (
	"context"
	"strings"
	"time"
)

// CreateRoom inserts a room row in waiting status. The room code is stored
// canonically uppercase. Returns ErrDuplicateRoom when the code is already
// present; signaling tolerates that during host reconnects.
func (s *Store) CreateRoom(ctx context.Context, room *Room) error {
	room.Code = strings.ToUpper(room.Code)
	if room.Status == "" {
		room.Status = string(RoomWaiting)
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	if room.ExpiresAt.IsZero() {
		room.ExpiresAt = room.CreatedAt.Add(time.Hour)
	}

	if err := s.db.WithContext(ctx).Create(room).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateRoom
		}
		return err
	}
	return nil
}

// GetRoom retrieves a room by code. Lookup is case-insensitive.
func (s *Store) GetRoom(ctx context.Context, code string) (*Room, error) {
	return getByField[Room](s.db, ctx, "code", strings.ToUpper(code), ErrRoomNotFound)
}

// UpdateRoomStatus moves a room along its lifecycle. Transitions are
// monotonic waiting → connected → transferring → completed; the only
// backward move is to waiting when the peer disconnects. Illegal moves
// return ErrInvalidTransition.
func (s *Store) UpdateRoomStatus(ctx context.Context, code string, status RoomStatus) error {
	if !status.IsValid() {
		return ErrInvalidTransition
	}

	room, err := s.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if !RoomStatus(room.Status).CanTransitionTo(status) {
		return ErrInvalidTransition
	}

	return s.db.WithContext(ctx).
		Model(&Room{}).
		Where("code = ?", room.Code).
		Update("status", string(status)).Error
}

// UpdateRoomFileInfo records the host-announced file metadata.
func (s *Store) UpdateRoomFileInfo(ctx context.Context, code, fileName string, fileSize int64) error {
	result := s.db.WithContext(ctx).
		Model(&Room{}).
		Where("code = ?", strings.ToUpper(code)).
		Updates(map[string]any{
			"file_name": fileName,
			"file_size": fileSize,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// DeleteRoom removes a room row by code.
func (s *Store) DeleteRoom(ctx context.Context, code string) error {
	return deleteByField[Room](s.db, ctx, "code", strings.ToUpper(code), ErrRoomNotFound)
}

// ListExpiredRooms returns up to limit rooms whose expiry is at or before now.
func (s *Store) ListExpiredRooms(ctx context.Context, now time.Time, limit int) ([]*Room, error) {
	var rooms []*Room
	err := s.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// RoomCodeTaken reports whether a room code has a live catalog row.
// Satisfies sharecode.TakenFunc.
func (s *Store) RoomCodeTaken(ctx context.Context, code string) (bool, error) {
	return existsByField[Room](s.db, ctx, "code", strings.ToUpper(code))
}
