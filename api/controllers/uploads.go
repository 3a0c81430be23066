package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/calderhq/storefront-backend/pkg/errors"
	"github.com/calderhq/storefront-backend/pkg/storage"
)

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// parseMultipart reads the multipart form, bounding memory at maxBytes.
func parseMultipart(r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return pkgerrors.New(pkgerrors.CodeValidation, "upload exceeds the size limit").WithDetails(map[string]any{"max_bytes": maxBytes})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}
	return nil
}

// blobFromFileHeader opens one uploaded file and wraps it for storage.
// The caller owns the returned closer.
func blobFromFileHeader(header *multipart.FileHeader) (storage.Blob, multipart.File, error) {
	file, err := header.Open()
	if err != nil {
		return storage.Blob{}, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable upload")
	}

	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if _, ok := allowedImageTypes[contentType]; !ok {
		file.Close()
		return storage.Blob{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image content type").WithDetails(map[string]any{"content_type": contentType})
	}

	return storage.Blob{
		Reader:      file,
		FileName:    header.Filename,
		ContentType: contentType,
		SizeBytes:   header.Size,
	}, file, nil
}

func parseFormInt(raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "form field must be a non-negative integer")
	}
	return value, nil
}
