package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/egovauthenticator/api/internal/domain"
	"github.com/gabriel-vasile/mimetype"
)

var (
	errUploadTooLarge  = errors.New("upload exceeds size limit")
	errUnsupportedType = errors.New("unsupported image type")
	errMissingFile     = errors.New("missing file field")
)

var allowedImageTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

// readUpload parses a multipart document upload: a required "file" part and an
// optional "sex_crop" part. Both are sniffed and must be one of the allowed image types.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (domain.DocumentUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return domain.DocumentUpload{}, errUploadTooLarge
		}
		return domain.DocumentUpload{}, fmt.Errorf("invalid multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	var up domain.DocumentUpload
	data, name, mime, err := readPart(r, "file")
	if err != nil {
		return domain.DocumentUpload{}, err
	}
	if data == nil {
		return domain.DocumentUpload{}, errMissingFile
	}
	up.Image, up.Filename, up.MimeType = data, name, mime

	crop, _, cropMime, err := readPart(r, "sex_crop")
	if err != nil {
		return domain.DocumentUpload{}, err
	}
	up.SexCrop, up.SexCropMime = crop, cropMime
	return up, nil
}

// readPart returns nil data when the part is absent.
func readPart(r *http.Request, field string) ([]byte, string, string, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", "", nil
	}
	if err != nil {
		return nil, "", "", fmt.Errorf("read %s: %w", field, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", "", fmt.Errorf("read %s: %w", field, err)
	}
	if len(data) == 0 {
		return nil, "", "", nil
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedImageTypes...) {
		return nil, "", "", fmt.Errorf("%s is %s: %w", field, mt.String(), errUnsupportedType)
	}
	return data, header.Filename, mt.String(), nil
}

func writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errUploadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, errUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
