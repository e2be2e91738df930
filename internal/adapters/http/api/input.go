package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/squadron/internal/domain/types"
)

// Form field and header names.
const (
	fieldFile           = "file"
	fieldScoreThreshold = "score_threshold"
	fieldChunkSize      = "chunk_size"
	headerIdempotency   = "Idempotency-Key"
)

// uploads reads request payloads under a size cap.
type uploads struct {
	maxBytes int64
}

// limit caps the request body and parses a multipart form when present.
// It reports whether the request is multipart.
func (u *uploads) limit(w http.ResponseWriter, r *http.Request, op string) (bool, error) {
	r.Body = http.MaxBytesReader(w, r.Body, u.maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return false, nil
	}
	if err := r.ParseMultipartForm(u.maxBytes); err != nil {
		return true, u.readError(op, err)
	}
	return true, nil
}

// file returns the content of the named multipart file. For other requests
// the raw body is the file.
func (u *uploads) file(w http.ResponseWriter, r *http.Request, op, field string) ([]byte, error) {
	multipart, err := u.limit(w, r, op)
	if err != nil {
		return nil, err
	}
	if !multipart {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, u.readError(op, err)
		}
		return data, nil
	}
	return u.part(r, op, field)
}

// part reads one file of an already parsed multipart form.
func (u *uploads) part(r *http.Request, op, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, WrapKind(op, ErrBadRequest, fmt.Errorf("missing file field %q", field))
	}
	if err != nil {
		return nil, WrapKind(op, ErrBadRequest, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, u.readError(op, err)
	}
	return data, nil
}

func (u *uploads) readError(op string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return WrapKind(op, ErrPayloadTooLarge, fmt.Errorf("limit is %d bytes", u.maxBytes))
	}
	return WrapKind(op, ErrBadRequest, err)
}

// formRequest reads the candidate table and optional parameters. Parameters
// come from form fields or the query string.
func (u *uploads) formRequest(w http.ResponseWriter, r *http.Request, op string) (*types.FormRequest, error) {
	data, err := u.file(w, r, op, fieldFile)
	if err != nil {
		return nil, err
	}
	req := &types.FormRequest{Input: data, IdempotencyKey: strings.TrimSpace(r.Header.Get(headerIdempotency))}

	if raw := strings.TrimSpace(r.FormValue(fieldScoreThreshold)); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, WrapKind(op, ErrBadRequest, fmt.Errorf("%s must be a number, got %q", fieldScoreThreshold, raw))
		}
		req.ScoreThreshold = &v
	}
	if raw := strings.TrimSpace(r.FormValue(fieldChunkSize)); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, WrapKind(op, ErrBadRequest, fmt.Errorf("%s must be an integer, got %q", fieldChunkSize, raw))
		}
		req.ChunkSize = &v
	}
	return req, nil
}
