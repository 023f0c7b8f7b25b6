package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "mrcreams/pkg/domain-errors"
)

// maxBodyBytes caps request bodies; all API payloads here are small JSON.
const maxBodyBytes = 1 << 20

// DecodeJSON reads a JSON request body into dst, rejecting unknown fields and
// trailing content. Failures come back as CodeBadRequest domain errors so the
// handler can pass them straight to WriteError.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	if dec.More() {
		return dErrors.New(dErrors.CodeBadRequest, "request body must contain a single JSON object")
	}
	return nil
}
