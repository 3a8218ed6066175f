package catalog

import (
	"context"
	"errors"
	"testing"
	"time"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(&Config{
		Type:   DatabaseTypeSQLite,
		SQLite: SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func newTestFile(owner, key, code string) *File {
	var sc *string
	if code != "" {
		sc = strPtr(code)
	}
	return &File{
		OwnerID:      owner,
		OriginalName: "photo.jpg",
		StorageKey:   key,
		Size:         2097152,
		ContentType:  "image/jpeg",
		ShareCode:    sc,
	}
}

func TestCreateAndGetFile(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	f := newTestFile("u1", "uploads/u1/1-photo.jpg", "ABCDEF")
	if err := s.CreateFile(ctx, f); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if f.ID == "" {
		t.Fatal("CreateFile did not assign an id")
	}

	got, err := s.GetFile(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if got.StorageKey != f.StorageKey || got.Size != f.Size {
		t.Errorf("GetFile returned %+v, want %+v", got, f)
	}
	if got.DownloadCount != 0 {
		t.Errorf("new file download count = %d, want 0", got.DownloadCount)
	}
}

func TestGetFileByShareCodeCaseInsensitive(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	f := newTestFile("u1", "uploads/u1/1-photo.jpg", "abcdef")
	if err := s.CreateFile(ctx, f); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if *f.ShareCode != "ABCDEF" {
		t.Errorf("share code stored as %q, want canonical uppercase", *f.ShareCode)
	}

	for _, code := range []string{"ABCDEF", "abcdef", "AbCdEf"} {
		got, err := s.GetFileByShareCode(ctx, code)
		if err != nil {
			t.Fatalf("GetFileByShareCode(%q): %v", code, err)
		}
		if got.ID != f.ID {
			t.Errorf("GetFileByShareCode(%q) returned wrong file", code)
		}
	}

	if _, err := s.GetFileByShareCode(ctx, "ZZZZZZ"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("missing code error = %v, want ErrFileNotFound", err)
	}
}

func TestCreateFileDuplicates(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if err := s.CreateFile(ctx, newTestFile("u1", "uploads/u1/1-a.bin", "AAAAAA")); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	err := s.CreateFile(ctx, newTestFile("u1", "uploads/u1/2-b.bin", "AAAAAA"))
	if !errors.Is(err, ErrDuplicateShareCode) {
		t.Errorf("duplicate share code error = %v, want ErrDuplicateShareCode", err)
	}

	err = s.CreateFile(ctx, newTestFile("u1", "uploads/u1/1-a.bin", "BBBBBB"))
	if !errors.Is(err, ErrDuplicateStorageKey) {
		t.Errorf("duplicate storage key error = %v, want ErrDuplicateStorageKey", err)
	}
}

func TestShareCodeTaken(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if err := s.CreateFile(ctx, newTestFile("u1", "uploads/u1/1-a.bin", "AAAAAA")); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	taken, err := s.ShareCodeTaken(ctx, "aaaaaa")
	if err != nil {
		t.Fatalf("ShareCodeTaken: %v", err)
	}
	if !taken {
		t.Error("ShareCodeTaken = false for bound code")
	}

	taken, err = s.ShareCodeTaken(ctx, "BBBBBB")
	if err != nil {
		t.Fatalf("ShareCodeTaken: %v", err)
	}
	if taken {
		t.Error("ShareCodeTaken = true for unbound code")
	}
}

func TestListFilesByOwnerOrder(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, code := range []string{"AAAAAA", "BBBBBB", "CCCCCC"} {
		f := newTestFile("u1", "uploads/u1/"+code, code)
		f.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.CreateFile(ctx, f); err != nil {
			t.Fatalf("CreateFile: %v", err)
		}
	}
	other := newTestFile("u2", "uploads/u2/1-x.bin", "DDDDDD")
	if err := s.CreateFile(ctx, other); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	files, err := s.ListFilesByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("ListFilesByOwner: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3", len(files))
	}
	for _, f := range files {
		if f.OwnerID != "u1" {
			t.Errorf("file %s belongs to %s, want u1", f.ID, f.OwnerID)
		}
	}
	// Newest first.
	if *files[0].ShareCode != "CCCCCC" || *files[2].ShareCode != "AAAAAA" {
		t.Errorf("files not ordered by creation descending: %v, %v, %v",
			*files[0].ShareCode, *files[1].ShareCode, *files[2].ShareCode)
	}
}

func TestIncrementDownloadCount(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	f := newTestFile("u1", "uploads/u1/1-a.bin", "AAAAAA")
	if err := s.CreateFile(ctx, f); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.IncrementDownloadCount(ctx, f.ID); err != nil {
			t.Fatalf("IncrementDownloadCount: %v", err)
		}
	}

	got, err := s.GetFile(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if got.DownloadCount != 3 {
		t.Errorf("download count = %d, want 3", got.DownloadCount)
	}

	if err := s.IncrementDownloadCount(ctx, "missing"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("increment on missing file = %v, want ErrFileNotFound", err)
	}
}

func TestDeleteFileIdempotence(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	f := newTestFile("u1", "uploads/u1/1-a.bin", "AAAAAA")
	if err := s.CreateFile(ctx, f); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	if err := s.DeleteFile(ctx, f.ID); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if err := s.DeleteFile(ctx, f.ID); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("second delete = %v, want ErrFileNotFound", err)
	}
}

func TestExpiryScans(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	now := time.Now()

	past := now.Add(-time.Second)
	exactly := now
	future := now.Add(time.Hour)

	expired := newTestFile("u1", "uploads/u1/1-a.bin", "AAAAAA")
	expired.ExpiresAt = &past
	boundary := newTestFile("u1", "uploads/u1/2-b.bin", "BBBBBB")
	boundary.ExpiresAt = &exactly
	live := newTestFile("u1", "uploads/u1/3-c.bin", "CCCCCC")
	live.ExpiresAt = &future
	forever := newTestFile("u1", "uploads/u1/4-d.bin", "DDDDDD")

	for _, f := range []*File{expired, boundary, live, forever} {
		if err := s.CreateFile(ctx, f); err != nil {
			t.Fatalf("CreateFile: %v", err)
		}
	}

	got, err := s.ListExpiredFiles(ctx, now, 100)
	if err != nil {
		t.Fatalf("ListExpiredFiles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d expired files, want 2 (past and at-now)", len(got))
	}

	if !expired.ExpiredAt(now) || !boundary.ExpiredAt(now) {
		t.Error("ExpiredAt must treat expires_at <= now as expired")
	}
	if live.ExpiredAt(now) || forever.ExpiredAt(now) {
		t.Error("ExpiredAt reported a live file as expired")
	}
}

func TestTombstoneFlow(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	f := newTestFile("u1", "uploads/u1/1-a.bin", "AAAAAA")
	f.ExpiresAt = &past
	if err := s.CreateFile(ctx, f); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	if err := s.MarkFileTombstoned(ctx, f.ID); err != nil {
		t.Fatalf("MarkFileTombstoned: %v", err)
	}

	// Tombstoned rows leave the expiry scan and show up in the retry scan.
	expired, err := s.ListExpiredFiles(ctx, time.Now(), 100)
	if err != nil {
		t.Fatalf("ListExpiredFiles: %v", err)
	}
	if len(expired) != 0 {
		t.Errorf("tombstoned file still in expiry scan")
	}

	tombstoned, err := s.ListTombstonedFiles(ctx, 100)
	if err != nil {
		t.Fatalf("ListTombstonedFiles: %v", err)
	}
	if len(tombstoned) != 1 || tombstoned[0].ID != f.ID {
		t.Errorf("tombstoned scan = %v, want the marked file", tombstoned)
	}
}

func TestCreateUserBanned(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ban := &DeletedAccount{
		ID:           "d1",
		Username:     "mallory",
		BanExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := s.db.Create(ban).Error; err != nil {
		t.Fatalf("seed deleted account: %v", err)
	}

	err := s.CreateUser(ctx, &User{Username: "mallory", PasswordHash: "x"})
	if !errors.Is(err, ErrAccountBanned) {
		t.Errorf("CreateUser for banned name = %v, want ErrAccountBanned", err)
	}

	// Expired bans no longer block.
	old := &DeletedAccount{
		ID:           "d2",
		Username:     "bob",
		BanExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := s.db.Create(old).Error; err != nil {
		t.Fatalf("seed deleted account: %v", err)
	}
	if err := s.CreateUser(ctx, &User{Username: "bob", PasswordHash: "x"}); err != nil {
		t.Errorf("CreateUser after ban expiry: %v", err)
	}
}
