// Package formutil reads and validates JSON request bodies.
//
// When a submission fails, the handler answers 400 with the first
// validation message, the same way for every endpoint:
//
//	var in createGroupInput
//	if !formutil.Decode(w, r, &in) {
//		return
//	}
package formutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/therapyrooms/internal/app/features/errors"
	"github.com/dalemusser/therapyrooms/internal/app/system/inputval"
)

// MaxBody caps the size of a request body.
const MaxBody = 64 << 10

// Decode reads r's JSON body into v and validates it with inputval.
// On failure it writes a 400 and returns false. An empty body decodes as {}.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		uierrors.BadRequest(w, describe(err))
		return false
	}
	if res := inputval.Validate(v); res.HasErrors() {
		uierrors.Write(w, http.StatusBadRequest, "validation", res.First())
		return false
	}
	return true
}

func describe(err error) string {
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &syn):
		return "The request body is not valid JSON."
	case errors.As(err, &typ):
		return "Field " + typ.Field + " has the wrong type."
	case errors.As(err, &tooBig):
		return "The request body is too large."
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return "Unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field ") + "."
	}
	return "The request body could not be read."
}

// Trimmed returns s with surrounding space removed, or nil for nil.
func Trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
