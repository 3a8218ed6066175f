package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NavaneethReddy332/TitaniumShare-sub000/internal/logger"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/blob"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/catalog"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/metrics"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/passhash"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/sharecode"
)

// DownloadHandler resolves share codes to presigned download URLs. Both
// endpoints are public; password-protected files answer with a challenge
// instead of a URL until unlocked.
type DownloadHandler struct {
	catalog    *catalog.Store
	blob       blob.Store
	metrics    *metrics.Metrics
	presignTTL time.Duration
}

// NewDownloadHandler creates a download handler.
func NewDownloadHandler(cat *catalog.Store, store blob.Store, m *metrics.Metrics, presignTTL time.Duration) *DownloadHandler {
	return &DownloadHandler{catalog: cat, blob: store, metrics: m, presignTTL: presignTTL}
}

type downloadResponse struct {
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	ContentType  string `json:"contentType,omitempty"`
	URL          string `json:"url"`
}

type passwordChallenge struct {
	RequiresPassword bool   `json:"requiresPassword"`
	OriginalName     string `json:"originalName"`
	Size             int64  `json:"size"`
}

type unlockRequest struct {
	Password string `json:"password"`
}

// lookup resolves a share code to a live file row, writing the error response
// itself when the code is malformed, unknown, or expired.
func (h *DownloadHandler) lookup(w http.ResponseWriter, r *http.Request) (*catalog.File, bool) {
	code, wellFormed := sharecode.Normalize(chi.URLParam(r, "code"))
	if !wellFormed {
		NotFound(w, "Share code not found")
		return nil, false
	}

	file, err := h.catalog.GetFileByShareCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, catalog.ErrFileNotFound) {
			NotFound(w, "Share code not found")
			return nil, false
		}
		logger.ErrorCtx(r.Context(), "share code lookup failed",
			logger.ShareCode(code), logger.Err(err))
		InternalServerError(w, "Failed to resolve share code")
		return nil, false
	}
	// Tombstoned rows are deletions in progress.
	if file.Tombstoned {
		NotFound(w, "Share code not found")
		return nil, false
	}
	if file.ExpiredAt(time.Now()) {
		Gone(w, "This share has expired")
		return nil, false
	}
	return file, true
}

// mint presigns the download URL and bumps the counter, writing the success
// response. The counter moves exactly once per minted URL.
func (h *DownloadHandler) mint(w http.ResponseWriter, r *http.Request, file *catalog.File) {
	url, err := h.blob.PresignGet(r.Context(), file.StorageKey, h.presignTTL)
	if err != nil {
		logger.ErrorCtx(r.Context(), "presign GET failed",
			logger.FileID(file.ID), logger.StorageKey(file.StorageKey), logger.Err(err))
		BadGateway(w, "Object store unavailable")
		return
	}
	if err := h.catalog.IncrementDownloadCount(r.Context(), file.ID); err != nil {
		logger.ErrorCtx(r.Context(), "download count increment failed",
			logger.FileID(file.ID), logger.Err(err))
		InternalServerError(w, "Failed to record download")
		return
	}

	h.metrics.IncDownloads()
	logger.InfoCtx(r.Context(), "download minted",
		logger.FileID(file.ID), logger.Size(file.Size))
	WriteJSONOK(w, downloadResponse{
		OriginalName: file.OriginalName,
		Size:         file.Size,
		ContentType:  file.ContentType,
		URL:          url,
	})
}

// Resolve handles GET /api/files/download/{code}. Password-protected files
// get a 401 challenge carrying the metadata needed to render an unlock
// prompt, and no URL.
func (h *DownloadHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	file, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if file.HasPassword() {
		WriteJSON(w, http.StatusUnauthorized, passwordChallenge{
			RequiresPassword: true,
			OriginalName:     file.OriginalName,
			Size:             file.Size,
		})
		return
	}
	h.mint(w, r, file)
}

// Unlock handles POST /api/files/download/{code}. Verification is
// constant-time; failed attempts do not move the download counter.
func (h *DownloadHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	file, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req unlockRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if file.HasPassword() {
		match, err := passhash.Verify(r.Context(), req.Password, *file.PasswordHash)
		if err != nil {
			logger.ErrorCtx(r.Context(), "password verification failed",
				logger.FileID(file.ID), logger.Err(err))
			InternalServerError(w, "Failed to verify password")
			return
		}
		if !match {
			Unauthorized(w, "Invalid password")
			return
		}
	}
	h.mint(w, r, file)
}
