package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NavaneethReddy332/TitaniumShare-sub000/internal/logger"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/blob"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/catalog"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/metrics"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/passhash"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/sharecode"
)

// maxStorageKeyLen bounds generated object keys.
const maxStorageKeyLen = 1024

// headConcurrency caps parallel existence probes during listing.
const headConcurrency = 8

// FileHandler serves the owner-facing file operations: presign, confirm,
// multipart upload, list, and delete.
type FileHandler struct {
	catalog        *catalog.Store
	blob           blob.Store
	codes          *sharecode.Allocator
	metrics        *metrics.Metrics
	maxUploadBytes int64
	presignTTL     time.Duration
}

// NewFileHandler creates a file handler.
func NewFileHandler(cat *catalog.Store, store blob.Store, codes *sharecode.Allocator, m *metrics.Metrics, maxUploadBytes int64, presignTTL time.Duration) *FileHandler {
	return &FileHandler{
		catalog:        cat,
		blob:           store,
		codes:          codes,
		metrics:        m,
		maxUploadBytes: maxUploadBytes,
		presignTTL:     presignTTL,
	}
}

// sanitizeName replaces every character outside [A-Za-z0-9.-] with '_' so the
// original file name can be embedded in an object key.
func sanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.', c == '-':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// buildStorageKey returns uploads/{ownerId}/{epochMillis}-{sanitizedName},
// truncating the name portion so the key never exceeds maxStorageKeyLen.
func buildStorageKey(ownerID, fileName string, now time.Time) string {
	name := sanitizeName(fileName)
	if name == "" {
		name = "file"
	}
	prefix := fmt.Sprintf("uploads/%s/%d-", ownerID, now.UnixMilli())
	if room := maxStorageKeyLen - len(prefix); len(name) > room {
		name = name[:room]
	}
	return prefix + name
}

type presignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type presignResponse struct {
	UploadURL  string `json:"uploadUrl"`
	StorageKey string `json:"storageKey"`
	ShareCode  string `json:"shareCode"`
}

// Presign handles POST /api/files/presign. It mints a signed PUT URL and
// reserves a share code; the catalog row is only created on confirm.
func (h *FileHandler) Presign(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	var req presignRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.FileName == "" {
		BadRequest(w, "fileName is required")
		return
	}
	if req.Size < 0 {
		BadRequest(w, "size must be non-negative")
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	code, err := h.codes.Allocate(r.Context(), h.catalog.ShareCodeTaken)
	if err != nil {
		if errors.Is(err, sharecode.ErrExhausted) {
			ServiceUnavailable(w, "Could not allocate a share code, try again")
			return
		}
		logger.ErrorCtx(r.Context(), "share code allocation failed", logger.Err(err))
		InternalServerError(w, "Failed to allocate share code")
		return
	}

	key := buildStorageKey(ownerID, req.FileName, time.Now())
	uploadURL, err := h.blob.PresignPut(r.Context(), key, contentType, h.presignTTL)
	if err != nil {
		logger.ErrorCtx(r.Context(), "presign PUT failed",
			logger.StorageKey(key), logger.Err(err))
		BadGateway(w, "Object store unavailable")
		return
	}

	logger.InfoCtx(r.Context(), "upload presigned",
		logger.OwnerID(ownerID), logger.StorageKey(key),
		logger.ShareCode(code), logger.Size(req.Size))
	WriteJSONOK(w, presignResponse{
		UploadURL:  uploadURL,
		StorageKey: key,
		ShareCode:  code,
	})
}

type confirmRequest struct {
	StorageKey       string `json:"storageKey"`
	ShareCode        string `json:"shareCode"`
	OriginalName     string `json:"originalName"`
	Size             int64  `json:"size"`
	ContentType      string `json:"contentType"`
	Password         string `json:"password,omitempty"`
	ExpiresInSeconds int64  `json:"expiresInSeconds,omitempty"`
}

type confirmResponse struct {
	ID        string `json:"id"`
	ShareCode string `json:"shareCode"`
}

// Confirm handles POST /api/files/confirm. It binds an uploaded object to a
// share code by creating the catalog row.
func (h *FileHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	var req confirmRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.OriginalName == "" {
		BadRequest(w, "originalName is required")
		return
	}
	if req.Size < 0 {
		BadRequest(w, "size must be non-negative")
		return
	}
	code, wellFormed := sharecode.Normalize(req.ShareCode)
	if !wellFormed {
		BadRequest(w, "shareCode is malformed")
		return
	}
	// A storage key outside the caller's prefix would bind someone else's
	// object to this owner's share code.
	if !strings.HasPrefix(req.StorageKey, "uploads/"+ownerID+"/") {
		Forbidden(w, "Storage key does not belong to you")
		return
	}
	// Generated keys are capped at maxStorageKeyLen; the same cap applies
	// to keys echoed back by the client.
	if len(req.StorageKey) > maxStorageKeyLen {
		BadRequest(w, "storageKey is too long")
		return
	}

	file := &catalog.File{
		OwnerID:      ownerID,
		OriginalName: req.OriginalName,
		StorageKey:   req.StorageKey,
		Size:         req.Size,
		ContentType:  req.ContentType,
		ShareCode:    &code,
	}
	if req.Password != "" {
		hash, err := passhash.Hash(r.Context(), req.Password)
		if err != nil {
			logger.ErrorCtx(r.Context(), "password hashing failed", logger.Err(err))
			InternalServerError(w, "Failed to process password")
			return
		}
		file.PasswordHash = &hash
	}
	if req.ExpiresInSeconds > 0 {
		expiresAt := time.Now().Add(time.Duration(req.ExpiresInSeconds) * time.Second)
		file.ExpiresAt = &expiresAt
	}

	if err := h.catalog.CreateFile(r.Context(), file); err != nil {
		switch {
		case errors.Is(err, catalog.ErrDuplicateShareCode):
			Conflict(w, "Share code already in use")
		case errors.Is(err, catalog.ErrDuplicateStorageKey):
			Conflict(w, "Upload already confirmed")
		default:
			logger.ErrorCtx(r.Context(), "file creation failed", logger.Err(err))
			InternalServerError(w, "Failed to record upload")
		}
		return
	}

	h.metrics.IncUploads()
	logger.InfoCtx(r.Context(), "upload confirmed",
		logger.OwnerID(ownerID), logger.FileID(file.ID),
		logger.ShareCode(code), logger.Size(file.Size))
	WriteJSONCreated(w, confirmResponse{ID: file.ID, ShareCode: code})
}

type uploadResponse struct {
	ID           string `json:"id"`
	ShareCode    string `json:"shareCode"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
}

// Upload handles POST /api/files/upload, the single-round multipart path for
// small files. The body streams through a temp file so the size cap is
// enforced exactly before anything reaches the object store.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		BadRequest(w, "Expected a multipart/form-data body")
		return
	}

	tmp, err := os.CreateTemp("", "titaniumshare-upload-*")
	if err != nil {
		logger.ErrorCtx(r.Context(), "temp file creation failed", logger.Err(err))
		InternalServerError(w, "Failed to buffer upload")
		return
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	var (
		fileName    string
		contentType string
		size        int64
		password    string
		haveFile    bool
	)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			BadRequest(w, "Malformed multipart body")
			return
		}

		switch part.FormName() {
		case "file":
			if haveFile {
				part.Close()
				BadRequest(w, "Multiple file parts")
				return
			}
			haveFile = true
			fileName = part.FileName()
			contentType = part.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			if !allowedContentType(contentType) {
				part.Close()
				BadRequest(w, "Content type not allowed")
				return
			}
			size, err = io.Copy(tmp, io.LimitReader(part, h.maxUploadBytes+1))
			part.Close()
			if err != nil {
				logger.ErrorCtx(r.Context(), "upload spooling failed", logger.Err(err))
				InternalServerError(w, "Failed to buffer upload")
				return
			}
			if size > h.maxUploadBytes {
				BadRequest(w, fmt.Sprintf("File exceeds the %d byte upload limit", h.maxUploadBytes))
				return
			}
		case "password":
			buf, err := io.ReadAll(io.LimitReader(part, 1024))
			part.Close()
			if err != nil {
				BadRequest(w, "Malformed multipart body")
				return
			}
			password = string(buf)
		default:
			part.Close()
		}
	}

	if !haveFile {
		BadRequest(w, "Missing file part")
		return
	}
	if fileName == "" {
		BadRequest(w, "File part has no file name")
		return
	}

	code, err := h.codes.Allocate(r.Context(), h.catalog.ShareCodeTaken)
	if err != nil {
		if errors.Is(err, sharecode.ErrExhausted) {
			ServiceUnavailable(w, "Could not allocate a share code, try again")
			return
		}
		logger.ErrorCtx(r.Context(), "share code allocation failed", logger.Err(err))
		InternalServerError(w, "Failed to allocate share code")
		return
	}

	key := buildStorageKey(ownerID, fileName, time.Now())
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		logger.ErrorCtx(r.Context(), "temp file rewind failed", logger.Err(err))
		InternalServerError(w, "Failed to buffer upload")
		return
	}
	if err := h.blob.Put(r.Context(), key, contentType, size, tmp); err != nil {
		logger.ErrorCtx(r.Context(), "blob upload failed",
			logger.StorageKey(key), logger.Err(err))
		BadGateway(w, "Object store unavailable")
		return
	}

	file := &catalog.File{
		OwnerID:      ownerID,
		OriginalName: fileName,
		StorageKey:   key,
		Size:         size,
		ContentType:  contentType,
		ShareCode:    &code,
	}
	if password != "" {
		hash, err := passhash.Hash(r.Context(), password)
		if err != nil {
			logger.ErrorCtx(r.Context(), "password hashing failed", logger.Err(err))
			InternalServerError(w, "Failed to process password")
			return
		}
		file.PasswordHash = &hash
	}

	if err := h.catalog.CreateFile(r.Context(), file); err != nil {
		// The object is already stored; drop it rather than leak it.
		if delErr := h.blob.Delete(r.Context(), key); delErr != nil {
			logger.WarnCtx(r.Context(), "orphan cleanup failed",
				logger.StorageKey(key), logger.Err(delErr))
		}
		if errors.Is(err, catalog.ErrDuplicateShareCode) {
			Conflict(w, "Share code already in use")
			return
		}
		logger.ErrorCtx(r.Context(), "file creation failed", logger.Err(err))
		InternalServerError(w, "Failed to record upload")
		return
	}

	h.metrics.IncUploads()
	logger.InfoCtx(r.Context(), "multipart upload stored",
		logger.OwnerID(ownerID), logger.FileID(file.ID),
		logger.ShareCode(code), logger.Size(size))
	WriteJSONCreated(w, uploadResponse{
		ID:           file.ID,
		ShareCode:    code,
		OriginalName: fileName,
		Size:         size,
	})
}

type fileItem struct {
	ID              string     `json:"id"`
	OriginalName    string     `json:"originalName"`
	Size            int64      `json:"size"`
	ContentType     string     `json:"contentType,omitempty"`
	ShareCode       string     `json:"shareCode,omitempty"`
	HasPassword     bool       `json:"hasPassword"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	DownloadCount   int64      `json:"downloadCount"`
	CreatedAt       time.Time  `json:"createdAt"`
	ExistsInStorage bool       `json:"existsInStorage"`
}

// List handles GET /api/files. Each item reports whether the object is still
// present in the blob store; the probes run through a small worker pool.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}

	files, err := h.catalog.ListFilesByOwner(r.Context(), ownerID)
	if err != nil {
		logger.ErrorCtx(r.Context(), "file listing failed",
			logger.OwnerID(ownerID), logger.Err(err))
		InternalServerError(w, "Failed to list files")
		return
	}

	items := make([]fileItem, 0, len(files))
	for _, f := range files {
		if f.Tombstoned {
			continue
		}
		item := fileItem{
			ID:            f.ID,
			OriginalName:  f.OriginalName,
			Size:          f.Size,
			ContentType:   f.ContentType,
			HasPassword:   f.HasPassword(),
			ExpiresAt:     f.ExpiresAt,
			DownloadCount: f.DownloadCount,
			CreatedAt:     f.CreatedAt,
		}
		if f.ShareCode != nil {
			item.ShareCode = *f.ShareCode
		}
		items = append(items, item)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, headConcurrency)
	visible := 0
	for _, f := range files {
		if f.Tombstoned {
			continue
		}
		i, key := visible, f.StorageKey
		visible++
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			info, err := h.blob.Head(r.Context(), key)
			if err != nil {
				logger.WarnCtx(r.Context(), "storage probe failed",
					logger.StorageKey(key), logger.Err(err))
				return
			}
			items[i].ExistsInStorage = info != nil
		}()
	}
	wg.Wait()

	WriteJSONOK(w, items)
}

// Delete handles DELETE /api/files/{id}. The blob goes first; if the blob
// delete fails the row is tombstoned so the janitor retries instead of
// silently leaking bytes.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromContext(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	file, err := h.catalog.GetFile(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrFileNotFound) {
			NotFound(w, "File not found")
			return
		}
		logger.ErrorCtx(r.Context(), "file lookup failed",
			logger.FileID(id), logger.Err(err))
		InternalServerError(w, "Failed to load file")
		return
	}
	if file.OwnerID != ownerID {
		Forbidden(w, "Not the owner of this file")
		return
	}

	if err := h.blob.Delete(r.Context(), file.StorageKey); err != nil {
		logger.WarnCtx(r.Context(), "blob delete failed, tombstoning row",
			logger.FileID(id), logger.StorageKey(file.StorageKey), logger.Err(err))
		if err := h.catalog.MarkFileTombstoned(r.Context(), id); err != nil && !errors.Is(err, catalog.ErrFileNotFound) {
			logger.ErrorCtx(r.Context(), "tombstoning failed",
				logger.FileID(id), logger.Err(err))
			InternalServerError(w, "Failed to delete file")
			return
		}
		WriteNoContent(w)
		return
	}

	if err := h.catalog.DeleteFile(r.Context(), id); err != nil && !errors.Is(err, catalog.ErrFileNotFound) {
		logger.ErrorCtx(r.Context(), "file row delete failed",
			logger.FileID(id), logger.Err(err))
		InternalServerError(w, "Failed to delete file")
		return
	}

	logger.InfoCtx(r.Context(), "file deleted",
		logger.OwnerID(ownerID), logger.FileID(id),
		logger.StorageKey(file.StorageKey))
	WriteNoContent(w)
}
