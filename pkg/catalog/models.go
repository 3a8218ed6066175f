// Package catalog is the durable store behind the share service: file
// metadata keyed by share code, peer-to-peer room records mirroring the
// signaling hub, and the account tables owned by the external identity
// collaborator.
package catalog

import (
	"time"
)

// File is the catalog row for an uploaded object.
//
// The storage key locates the object in the blob store and is never revealed
// to downloaders; they only ever see presigned URLs. PasswordHash holds an
// argon2id encoded hash, never plaintext. DownloadCount only increases.
type File struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	OwnerID       string     `gorm:"index:idx_files_owner_created,priority:1;not null;size:36" json:"owner_id"`
	OriginalName  string     `gorm:"not null;size:512" json:"original_name"`
	StorageKey    string     `gorm:"uniqueIndex;not null;size:1024" json:"-"`
	Size          int64      `gorm:"not null" json:"size"`
	ContentType   string     `gorm:"size:255" json:"content_type,omitempty"`
	ShareCode     *string    `gorm:"uniqueIndex;size:6" json:"share_code,omitempty"`
	PasswordHash  *string    `json:"-"`
	ExpiresAt     *time.Time `gorm:"index" json:"expires_at,omitempty"`
	DownloadCount int64      `gorm:"not null;default:0" json:"download_count"`

	// Tombstoned marks a row whose blob delete failed; the janitor retries
	// the blob delete and removes the row once the object is confirmed gone.
	Tombstoned bool `gorm:"not null;default:false" json:"-"`

	CreatedAt time.Time `gorm:"index:idx_files_owner_created,priority:2,sort:desc;autoCreateTime" json:"created_at"`
}

// TableName returns the table name for File.
func (File) TableName() string {
	return "files"
}

// ExpiredAt reports whether the file is past its expiry at the given instant.
// A file exactly at its expiry timestamp is expired.
func (f *File) ExpiredAt(now time.Time) bool {
	return f.ExpiresAt != nil && !now.Before(*f.ExpiresAt)
}

// HasPassword reports whether downloads require a password unlock.
func (f *File) HasPassword() bool {
	return f.PasswordHash != nil && *f.PasswordHash != ""
}

// RoomStatus is the lifecycle state of a peer-to-peer room.
type RoomStatus string

const (
	RoomWaiting      RoomStatus = "waiting"
	RoomConnected    RoomStatus = "connected"
	RoomTransferring RoomStatus = "transferring"
	RoomCompleted    RoomStatus = "completed"
)

// IsValid checks if the status is a known RoomStatus.
func (s RoomStatus) IsValid() bool {
	switch s {
	case RoomWaiting, RoomConnected, RoomTransferring, RoomCompleted:
		return true
	}
	return false
}

// rank orders statuses along the monotonic lifecycle.
func (s RoomStatus) rank() int {
	switch s {
	case RoomWaiting:
		return 0
	case RoomConnected:
		return 1
	case RoomTransferring:
		return 2
	case RoomCompleted:
		return 3
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next is legal. Transitions
// are monotonic along waiting → connected → transferring → completed, with
// one exception: a room falls back to waiting when its peer disconnects
// before the transfer completes.
func (s RoomStatus) CanTransitionTo(next RoomStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if next == RoomWaiting {
		return s == RoomConnected || s == RoomTransferring || s == RoomWaiting
	}
	return next.rank() >= s.rank()
}

// Room is the durable record of a peer-to-peer transfer room. The signaling
// hub is authoritative for live presence; this row is the metadata mirror.
type Room struct {
	Code      string    `gorm:"primaryKey;size:6" json:"code"`
	HostID    string    `gorm:"not null;size:64" json:"host_id"`
	FileName  string    `gorm:"size:512" json:"file_name,omitempty"`
	FileSize  int64     `json:"file_size,omitempty"`
	Status    string    `gorm:"not null;default:waiting;size:16" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
}

// TableName returns the table name for Room.
func (Room) TableName() string {
	return "p2p_rooms"
}

// ExpiredAt reports whether the room is past its expiry at the given instant.
func (r *Room) ExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// User is an account row. Authentication and session issuance belong to the
// external identity collaborator; the catalog stores the rows and the core
// only reads the deleted-accounts ban marker during creation.
type User struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Username     string     `gorm:"uniqueIndex;not null;size:255" json:"username"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Deleted      bool       `gorm:"not null;default:false" json:"-"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// Session is a server-side session row owned by the identity collaborator.
type Session struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	UserID    string    `gorm:"index;not null;size:36" json:"user_id"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Session.
func (Session) TableName() string {
	return "sessions"
}

// Feedback is a user feedback row; written by an external collaborator,
// never read by the core.
type Feedback struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;size:36" json:"user_id,omitempty"`
	Message   string    `gorm:"not null" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Feedback.
func (Feedback) TableName() string {
	return "feedback"
}

// DeletedAccount marks an identity that removed its account. BanExpiresAt
// blocks re-registration of the same username until it passes; the core
// reads only that timestamp.
type DeletedAccount struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"index;not null;size:255" json:"username"`
	BanExpiresAt time.Time `gorm:"not null" json:"ban_expires_at"`
	DeletedAt    time.Time `gorm:"autoCreateTime" json:"deleted_at"`
}

// TableName returns the table name for DeletedAccount.
func (DeletedAccount) TableName() string {
	return "deleted_accounts"
}

// AllModels returns all GORM models for auto-migration.
func AllModels() []any {
	return []any{
		&User{},
		&File{},
		&Room{},
		&Session{},
		&Feedback{},
		&DeletedAccount{},
	}
}
