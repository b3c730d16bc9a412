package api

import (
	"errors"
	"image"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/okian/facegate/internal/domain/imaging"
)

// imageField is the multipart field carrying the frame.
const imageField = "image"

type uploadReader struct {
	maxBytes int64
}

func newUploadReader(maxBytes int64) uploadReader {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return uploadReader{maxBytes: maxBytes}
}

// frame reads one image from r. Multipart bodies carry it in the "image"
// field; any other body is taken as the raw encoded image.
func (u uploadReader) frame(w http.ResponseWriter, r *http.Request) (image.Image, error) {
	const op = "api.read_frame"
	r.Body = http.MaxBytesReader(w, r.Body, u.maxBytes)

	var (
		data []byte
		err  error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		data, err = u.multipartImage(r)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, WrapKind(op, ErrPayloadTooLarge, err)
		}
		if errors.Is(err, ErrMissingImage) {
			return nil, err
		}
		return nil, WrapKind(op, ErrBadRequest, err)
	}
	if len(data) == 0 {
		return nil, NewKind(op, ErrMissingImage)
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, WrapKind(op, ErrBadRequest, err)
	}
	return img, nil
}

func (u uploadReader) multipartImage(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(u.maxBytes); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, NewKind("api.read_frame", ErrMissingImage)
		}
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
