package logger

import (
	"log/slog"
)

// Standard field keys for structured logging. Use these consistently so log
// aggregation can query across the API, hub, and janitor.
//
// Presigned URLs must never be logged; log the storage key instead.
const (
	KeyRequestID  = "request_id"  // chi request id for correlation
	KeyOwnerID    = "owner_id"    // file owner identity
	KeyFileID     = "file_id"     // catalog file id
	KeyShareCode  = "share_code"  // six-character share code
	KeyRoomCode   = "room_code"   // six-character signaling room code
	KeyRole       = "role"        // signaling role: host, peer
	KeyMsgType    = "msg_type"    // signaling envelope type
	KeyStorageKey = "storage_key" // object key in the blob store
	KeyBucket     = "bucket"      // blob store bucket
	KeySize       = "size"        // byte size
	KeyStatus     = "status"      // HTTP status or room status
	KeyClientIP   = "client_ip"   // remote address
	KeyAttempt    = "attempt"     // retry attempt number
	KeyMaxRetries = "max_retries" // retry bound
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeySwept      = "swept"       // rows removed by a janitor pass
)

// Field constructors for type safety.

// RequestID returns a slog.Attr for the request correlation id.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// OwnerID returns a slog.Attr for a file owner id.
func OwnerID(id string) slog.Attr {
	return slog.String(KeyOwnerID, id)
}

// FileID returns a slog.Attr for a catalog file id.
func FileID(id string) slog.Attr {
	return slog.String(KeyFileID, id)
}

// ShareCode returns a slog.Attr for a share code.
func ShareCode(code string) slog.Attr {
	return slog.String(KeyShareCode, code)
}

// RoomCode returns a slog.Attr for a signaling room code.
func RoomCode(code string) slog.Attr {
	return slog.String(KeyRoomCode, code)
}

// Role returns a slog.Attr for a signaling participant role.
func Role(role string) slog.Attr {
	return slog.String(KeyRole, role)
}

// MsgType returns a slog.Attr for a signaling envelope type.
func MsgType(t string) slog.Attr {
	return slog.String(KeyMsgType, t)
}

// StorageKey returns a slog.Attr for a blob store object key.
func StorageKey(key string) slog.Attr {
	return slog.String(KeyStorageKey, key)
}

// Bucket returns a slog.Attr for a blob store bucket name.
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// Size returns a slog.Attr for a byte size.
func Size(n int64) slog.Attr {
	return slog.Int64(KeySize, n)
}

// Status returns a slog.Attr for an HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// ClientIP returns a slog.Attr for a client address.
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// Err returns a slog.Attr for an error. Nil-safe.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
