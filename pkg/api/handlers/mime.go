package handlers

import (
	"mime"
	"strings"
)

// allowedMIMEPrefixes admits whole top-level media classes.
var allowedMIMEPrefixes = []string{
	"image/",
	"audio/",
	"video/",
	"text/",
	"font/",
}

// allowedMIMETypes admits individual document and archive types that do not
// fall under an allowed class.
var allowedMIMETypes = map[string]struct{}{
	"application/pdf":          {},
	"application/msword":       {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
	"application/vnd.ms-powerpoint":                                             {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"application/rtf":              {},
	"application/json":             {},
	"application/xml":              {},
	"application/zip":              {},
	"application/gzip":             {},
	"application/x-tar":            {},
	"application/x-7z-compressed":  {},
	"application/x-rar-compressed": {},
	"application/x-bzip2":          {},
	"application/epub+zip":         {},
	"application/octet-stream":     {},
}

// allowedContentType reports whether a declared MIME type passes the upload
// allow-list. Parameters (charset etc.) are stripped before matching. The
// list applies only to the in-process multipart path; presign flows record
// the declared type without verification.
func allowedContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	mediaType = strings.ToLower(mediaType)

	if _, ok := allowedMIMETypes[mediaType]; ok {
		return true
	}
	for _, prefix := range allowedMIMEPrefixes {
		if strings.HasPrefix(mediaType, prefix) {
			return true
		}
	}
	return false
}
